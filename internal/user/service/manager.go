// Package service holds the user administration view-model: the cached account list, its filters,
// pagination and the approve/reject/deactivate workflow.
package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/platform/paging"
	"envmonitor/console/internal/platform/rbac"
	"envmonitor/console/internal/telemetry"
	"envmonitor/console/internal/user/domain"
	"envmonitor/console/internal/user/repository"
)

const (
	// PageSize is the number of accounts per page.
	PageSize = 10
	// InitialPassword is set on accounts created by an administrator.
	InitialPassword = "tempPassword"

	eventSource = "users"
)

// Manager is the user administration view-model. Safe for concurrent use.
type Manager struct {
	repo    repository.Repository
	emitter telemetry.EventEmitter
	gen     generation.Counter

	mu     sync.Mutex
	users  []domain.User
	filter domain.Filter
	pager  *paging.Pager[domain.User]
	err    error
}

// NewManager returns an empty view-model. emitter may be nil.
func NewManager(repo repository.Repository, emitter telemetry.EventEmitter) *Manager {
	return &Manager{
		repo:    repo,
		emitter: emitter,
		pager:   paging.NewPager[domain.User](PageSize),
	}
}

// Load fetches every account and re-applies the current filter. On failure the previous list is
// kept and the error flag is set. A response overtaken by a newer Load is discarded.
func (m *Manager) Load(ctx context.Context) error {
	token := m.gen.Next()
	users, err := m.repo.List(ctx)
	if !m.gen.Current(token) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		log.Printf("users: load: %v", err)
		m.err = err
		return err
	}
	m.err = nil
	m.users = users
	m.refilter(false)
	return nil
}

// LoadPending fetches the approval queue from the server.
func (m *Manager) LoadPending(ctx context.Context) ([]domain.User, error) {
	users, err := m.repo.ListPending(ctx)
	if err != nil {
		log.Printf("users: load pending: %v", err)
		return nil, err
	}
	return users, nil
}

// refilter rebuilds the filtered list. keepPage keeps the current page when it still exists.
// Caller holds mu.
func (m *Manager) refilter(keepPage bool) {
	filtered := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if m.filter.Match(u) {
			filtered = append(filtered, u)
		}
	}
	if keepPage {
		m.pager.Replace(filtered)
	} else {
		m.pager.SetItems(filtered)
	}
}

// ApplyFilters sets the filter and returns to page 1.
func (m *Manager) ApplyFilters(f domain.Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
	m.refilter(false)
}

// ResetFilters clears every filter.
func (m *Manager) ResetFilters() {
	m.ApplyFilters(domain.Filter{})
}

// Filter returns the active filter.
func (m *Manager) Filter() domain.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// All returns a copy of the unfiltered cache.
func (m *Manager) All() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.User(nil), m.users...)
}

// Filtered returns a copy of the filtered list.
func (m *Manager) Filtered() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.User(nil), m.pager.Items()...)
}

// Page returns the accounts on the current page.
func (m *Manager) Page() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.User(nil), m.pager.Current()...)
}

// PageNumber returns the current one-based page and the page count.
func (m *Manager) PageNumber() (page, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.Page(), m.pager.TotalPages()
}

// NextPage advances when possible.
func (m *Manager) NextPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.Next()
}

// PrevPage goes back when possible.
func (m *Manager) PrevPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.Prev()
}

// GoToPage jumps to page n when it exists.
func (m *Manager) GoToPage(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.GoTo(n)
}

// Err returns the last load or mutation error, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// PendingUsers returns cached accounts awaiting approval (PENDING with role USER).
func (m *Manager) PendingUsers() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.IsPendingApproval() {
			out = append(out, u)
		}
	}
	return out
}

// Counts returns the number of cached accounts per status.
func (m *Manager) Counts() map[domain.UserStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.UserStatus]int, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out[s] = 0
	}
	for _, u := range m.users {
		out[u.Status]++
	}
	return out
}

func (m *Manager) fail(op string, err error) error {
	log.Printf("users: %s: %v", op, err)
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return err
}

func (m *Manager) emit(ctx context.Context, action string, id int64) {
	telemetry.EmitAsync(m.emitter, ctx, telemetry.NewEvent(
		telemetry.KindAdminAction, eventSource, "", strconv.FormatInt(id, 10),
		map[string]string{"action": action, "resource": "user"},
	))
}

// Create validates u and creates it with InitialPassword, then reloads the list.
func (m *Manager) Create(ctx context.Context, u domain.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	created, err := m.repo.Create(ctx, u, InitialPassword)
	if err != nil {
		return m.fail("create", err)
	}
	m.emit(ctx, "create", created.ID)
	return m.Load(ctx)
}

// Update saves u, status included, then reloads the list.
func (m *Manager) Update(ctx context.Context, u domain.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if _, err := m.repo.Update(ctx, u); err != nil {
		return m.fail("update", err)
	}
	m.emit(ctx, "update", u.ID)
	return m.Load(ctx)
}

// Delete removes the account and drops it locally. An emptied trailing page steps back.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return m.fail("delete", err)
	}
	m.mu.Lock()
	kept := m.users[:0:0]
	for _, u := range m.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	m.users = kept
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "delete", id)
	return nil
}

type transitionFunc func(ctx context.Context, id int64) (*domain.User, error)

// transition runs a status change and patches the cached user from the reply, falling back to
// fallback when the reply carries no status.
func (m *Manager) transition(ctx context.Context, op string, id int64, call transitionFunc, fallback domain.UserStatus) error {
	updated, err := call(ctx, id)
	if err != nil {
		return m.fail(op, err)
	}
	status := fallback
	if updated != nil && updated.Status != "" {
		status = updated.Status
	}
	m.mu.Lock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Status = status
			enabled := status == domain.UserStatusActive
			m.users[i].Enabled = &enabled
		}
	}
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, op, id)
	return nil
}

// Approve activates a pending account.
func (m *Manager) Approve(ctx context.Context, id int64) error {
	return m.transition(ctx, "approve", id, m.repo.Approve, domain.UserStatusActive)
}

// Reject refuses a pending account.
func (m *Manager) Reject(ctx context.Context, id int64) error {
	return m.transition(ctx, "reject", id, m.repo.Reject, domain.UserStatusRejected)
}

// Deactivate disables an account. The backend records INACTIVE, not REJECTED.
func (m *Manager) Deactivate(ctx context.Context, id int64) error {
	return m.transition(ctx, "deactivate", id, m.repo.Deactivate, domain.UserStatusInactive)
}

// Suspend suspends an account.
func (m *Manager) Suspend(ctx context.Context, id int64) error {
	return m.transition(ctx, "suspend", id, m.repo.Suspend, domain.UserStatusInactive)
}

// Toggle deactivates an active account and approves any other.
func (m *Manager) Toggle(ctx context.Context, u domain.User) error {
	if u.IsActive() {
		return m.Deactivate(ctx, u.ID)
	}
	return m.Approve(ctx, u.ID)
}

// ChangeRole sets the role of an account after checking it is a known role.
func (m *Manager) ChangeRole(ctx context.Context, id int64, role string) error {
	r, ok := rbac.ParseRole(role)
	if !ok {
		return fmt.Errorf("users: unknown role %q", role)
	}
	updated, err := m.repo.ChangeRole(ctx, id, string(r))
	if err != nil {
		return m.fail("change role", err)
	}
	m.mu.Lock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Role = string(r)
			if updated != nil && updated.Role != "" {
				m.users[i].Role = updated.Role
			}
		}
	}
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "role_changed", id)
	return nil
}
