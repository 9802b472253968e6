// Package service holds the login-log viewer: server-side paging over filtered logs, statistics,
// security checks and maintenance.
package service

import (
	"context"
	"log"
	"strconv"
	"sync"

	"envmonitor/console/internal/loginlog/domain"
	"envmonitor/console/internal/loginlog/repository"
	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/platform/paging"
	"envmonitor/console/internal/telemetry"
)

const (
	// DefaultPageSize is the server page size.
	DefaultPageSize = 20
	// DefaultDaysToKeep is the retention used by Cleanup when none is given.
	DefaultDaysToKeep = 30
	// DefaultActiveUsers is the ActiveUsers limit when none is given.
	DefaultActiveUsers = 10
	// DefaultFailureWindow is the RecentFailures window in hours when none is given.
	DefaultFailureWindow = 24
)

const eventSource = "login-logs"

// Viewer is the login-log view-model. Safe for concurrent use.
type Viewer struct {
	repo    repository.Repository
	emitter telemetry.EventEmitter
	gen     generation.Counter

	mu      sync.Mutex
	size    int
	number  int
	filters domain.Filters
	page    paging.Page[domain.LoginLog]
	stats   domain.Stats
	err     error
}

// NewViewer returns a viewer on page 0. A non-positive size uses DefaultPageSize. emitter may be nil.
func NewViewer(repo repository.Repository, size int, emitter telemetry.EventEmitter) *Viewer {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Viewer{repo: repo, emitter: emitter, size: size, stats: domain.ZeroStats()}
}

// Load fetches the current page, through the search endpoint when filters are set. A failure
// empties the page.
func (v *Viewer) Load(ctx context.Context) error {
	v.mu.Lock()
	filters, number, size := v.filters, v.number, v.size
	v.mu.Unlock()

	token := v.gen.Next()
	var p *paging.Page[domain.LoginLog]
	var err error
	if filters.Empty() {
		p, err = v.repo.List(ctx, number, size)
	} else {
		p, err = v.repo.Search(ctx, filters, number, size)
	}
	if !v.gen.Current(token) {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		log.Printf("login-logs: load page %d: %v", number, err)
		v.err = err
		v.page = paging.Page[domain.LoginLog]{Number: number, Size: size}
		return err
	}
	v.err = nil
	v.page = *p
	v.number = p.Number
	return nil
}

// LoadStats fetches the overview; failures report zeros.
func (v *Viewer) LoadStats(ctx context.Context) domain.Stats {
	s, err := v.repo.Stats(ctx)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		log.Printf("login-logs: stats: %v", err)
		v.stats = domain.ZeroStats()
		return v.stats
	}
	if s.SuspiciousIPs == nil {
		s.SuspiciousIPs = []string{}
	}
	v.stats = *s
	return v.stats
}

// Refresh reloads the page and the overview.
func (v *Viewer) Refresh(ctx context.Context) error {
	err := v.Load(ctx)
	v.LoadStats(ctx)
	return err
}

// ApplyFilters sets f and reloads from page 0.
func (v *Viewer) ApplyFilters(ctx context.Context, f domain.Filters) error {
	v.mu.Lock()
	v.filters = f.Normalize()
	v.number = 0
	v.mu.Unlock()
	return v.Load(ctx)
}

// ClearFilters drops every filter and reloads from page 0.
func (v *Viewer) ClearFilters(ctx context.Context) error {
	return v.ApplyFilters(ctx, domain.Filters{})
}

// GoToPage loads zero-based page n when it exists. It reports whether a load happened.
func (v *Viewer) GoToPage(ctx context.Context, n int) (bool, error) {
	v.mu.Lock()
	if n < 0 || n >= v.page.TotalPages || n == v.number {
		v.mu.Unlock()
		return false, nil
	}
	v.number = n
	v.mu.Unlock()
	return true, v.Load(ctx)
}

// NextPage loads the following page when there is one.
func (v *Viewer) NextPage(ctx context.Context) (bool, error) {
	return v.GoToPage(ctx, v.PageNumber()+1)
}

// PrevPage loads the previous page when there is one.
func (v *Viewer) PrevPage(ctx context.Context) (bool, error) {
	return v.GoToPage(ctx, v.PageNumber()-1)
}

// Logs returns the logs of the current page.
func (v *Viewer) Logs() []domain.LoginLog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.LoginLog(nil), v.page.Content...)
}

// PageNumber returns the zero-based current page.
func (v *Viewer) PageNumber() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.number
}

// Totals returns the page count and the total number of matching logs.
func (v *Viewer) Totals() (pages, elements int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page.TotalPages, v.page.TotalElements
}

// PageWindow returns the page numbers to render, with paging.Ellipsis gaps.
func (v *Viewer) PageWindow() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return paging.Window(v.number, v.page.TotalPages)
}

// Filters returns the active filters.
func (v *Viewer) Filters() domain.Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// Stats returns the last overview.
func (v *Viewer) Stats() domain.Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Err returns the last failure, or nil.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Cleanup deletes logs older than daysToKeep (DefaultDaysToKeep when non-positive) and refreshes.
func (v *Viewer) Cleanup(ctx context.Context, daysToKeep int) (int, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultDaysToKeep
	}
	n, err := v.repo.Cleanup(ctx, daysToKeep)
	if err != nil {
		return 0, v.fail("cleanup", err)
	}
	v.emit(ctx, "cleanup", strconv.Itoa(daysToKeep))
	log.Printf("login-logs: cleanup removed %d logs older than %d days", n, daysToKeep)
	return n, v.Refresh(ctx)
}

// DeleteLog removes one log and reloads, stepping back a page when the current one empties.
func (v *Viewer) DeleteLog(ctx context.Context, id int64) error {
	if err := v.repo.Delete(ctx, id); err != nil {
		return v.fail("delete", err)
	}
	v.mu.Lock()
	remaining := 0
	for _, l := range v.page.Content {
		if l.ID != id {
			remaining++
		}
	}
	if remaining == 0 && v.number > 0 {
		v.number--
	}
	v.mu.Unlock()
	v.emit(ctx, "delete", strconv.FormatInt(id, 10))
	return v.Load(ctx)
}

// ExportCSV returns the server CSV of the logs matching the active filters.
func (v *Viewer) ExportCSV(ctx context.Context) ([]byte, error) {
	return v.repo.ExportCSV(ctx, v.Filters())
}

// ExportPDF returns the server PDF of the logs matching the active filters.
func (v *Viewer) ExportPDF(ctx context.Context) ([]byte, error) {
	return v.repo.ExportPDF(ctx, v.Filters())
}

// Daily returns per-day login counts.
func (v *Viewer) Daily(ctx context.Context) ([]domain.StatRow, error) {
	return v.repo.Daily(ctx)
}

// PeakHours returns per-hour login counts.
func (v *Viewer) PeakHours(ctx context.Context) ([]domain.StatRow, error) {
	return v.repo.PeakHours(ctx)
}

// ActiveUsers returns the most active users, DefaultActiveUsers when limit is non-positive.
func (v *Viewer) ActiveUsers(ctx context.Context, limit int) ([]domain.StatRow, error) {
	if limit <= 0 {
		limit = DefaultActiveUsers
	}
	return v.repo.ActiveUsers(ctx, limit)
}

// SuspiciousIPs returns addresses flagged by the backend.
func (v *Viewer) SuspiciousIPs(ctx context.Context) ([]domain.StatRow, error) {
	return v.repo.SuspiciousIPs(ctx)
}

// RecentFailures returns failed logins of the last hours, DefaultFailureWindow when non-positive.
func (v *Viewer) RecentFailures(ctx context.Context, hours int) ([]domain.LoginLog, error) {
	if hours <= 0 {
		hours = DefaultFailureWindow
	}
	return v.repo.RecentFailures(ctx, hours)
}

// CheckIP asks whether ip is suspicious.
func (v *Viewer) CheckIP(ctx context.Context, ip string) (*domain.IPCheck, error) {
	return v.repo.CheckIP(ctx, ip)
}

// ByUser returns one page of a user's logins.
func (v *Viewer) ByUser(ctx context.Context, username string, page int) (*paging.Page[domain.LoginLog], error) {
	return v.repo.ByUser(ctx, username, page, v.size)
}

// LastLogin returns the newest login of username, or nil.
func (v *Viewer) LastLogin(ctx context.Context, username string) (*domain.LoginLog, error) {
	return v.repo.LastLogin(ctx, username)
}

// Today returns today's logins.
func (v *Viewer) Today(ctx context.Context) ([]domain.LoginLog, error) {
	return v.repo.Today(ctx)
}

func (v *Viewer) fail(op string, err error) error {
	log.Printf("login-logs: %s: %v", op, err)
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
	return err
}

func (v *Viewer) emit(ctx context.Context, action, subject string) {
	telemetry.EmitAsync(v.emitter, ctx, telemetry.NewEvent(
		telemetry.KindAdminAction, eventSource, "", subject,
		map[string]string{"action": action, "resource": "login-log"},
	))
}
