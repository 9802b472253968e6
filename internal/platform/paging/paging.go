// Package paging provides client-side pagination over cached lists and the server page envelope.
package paging

// MaxPageSize bounds client-side page sizes.
const MaxPageSize = 20

// Page is the paged envelope returned by list endpoints. Number is zero-based.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// Pager slices a list into pages. Page numbers are one-based. The zero value is not usable; use NewPager.
type Pager[T any] struct {
	items []T
	size  int
	page  int
}

// NewPager returns a pager on page 1. size is clamped to [1, MaxPageSize].
func NewPager[T any](size int) *Pager[T] {
	if size <= 0 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return &Pager[T]{size: size, page: 1}
}

// SetItems replaces the list and resets to page 1.
func (p *Pager[T]) SetItems(items []T) {
	p.items = items
	p.page = 1
}

// Replace swaps the list keeping the current page, stepping back when the page no longer exists.
// Used after removing an item so a now-empty trailing page moves the view to the previous page.
func (p *Pager[T]) Replace(items []T) {
	p.items = items
	if p.page > p.TotalPages() {
		p.page = p.TotalPages()
	}
}

// Items returns the full list.
func (p *Pager[T]) Items() []T { return p.items }

// Len returns the number of items across all pages.
func (p *Pager[T]) Len() int { return len(p.items) }

// Size returns the page size.
func (p *Pager[T]) Size() int { return p.size }

// Page returns the current one-based page.
func (p *Pager[T]) Page() int { return p.page }

// TotalPages is at least 1, even for an empty list.
func (p *Pager[T]) TotalPages() int {
	n := (len(p.items) + p.size - 1) / p.size
	if n < 1 {
		return 1
	}
	return n
}

// Current returns the items on the current page.
func (p *Pager[T]) Current() []T {
	start := (p.page - 1) * p.size
	if start >= len(p.items) {
		return nil
	}
	end := start + p.size
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[start:end]
}

// GoTo moves to page n if it exists. It reports whether the page changed.
func (p *Pager[T]) GoTo(n int) bool {
	if n < 1 || n > p.TotalPages() || n == p.page {
		return false
	}
	p.page = n
	return true
}

// Next advances one page when possible.
func (p *Pager[T]) Next() bool { return p.GoTo(p.page + 1) }

// Prev goes back one page when possible.
func (p *Pager[T]) Prev() bool { return p.GoTo(p.page - 1) }

// Ellipsis marks a gap in a page window.
const Ellipsis = -1

// windowSize is the number of pages listed without gaps.
const windowSize = 7

// Window returns zero-based page numbers to render around current. Up to seven pages are listed
// directly; beyond that the first and last pages frame current±2, with Ellipsis markers for gaps.
func Window(current, total int) []int {
	if total <= 0 {
		return nil
	}
	if total <= windowSize {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := []int{0}
	if current > 3 {
		out = append(out, Ellipsis)
	}
	start := max(1, current-2)
	end := min(total-2, current+2)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	if current < total-4 {
		out = append(out, Ellipsis)
	}
	return append(out, total-1)
}
