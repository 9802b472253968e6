// Package service holds the alert view-model: the alert list with live updates, filters and
// pagination, and the threshold editor.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/alert/repository"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/platform/paging"
	"envmonitor/console/internal/telemetry"
)

// PageSize is the number of alerts per page.
const PageSize = 10

const eventSource = "alerts"

var (
	// ErrInvalidThreshold is returned when warning is not strictly below critical.
	ErrInvalidThreshold = errors.New("warning threshold must be below critical threshold")
	ErrAlertNotFound    = errors.New("alert not found")
)

// Filter narrows the alert list. Empty fields match everything.
type Filter struct {
	Type     domain.Type
	Severity domain.Severity
	Term     string
}

// Match reports whether a passes every set criterion.
func (f Filter) Match(a domain.Alert) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Term))
	return term == "" || strings.Contains(strings.ToLower(a.Message), term)
}

// Manager is the alert view-model. Safe for concurrent use.
type Manager struct {
	repo    repository.Repository
	emitter telemetry.EventEmitter
	gen     generation.Counter

	mu            sync.Mutex
	alerts        []domain.Alert
	filter        Filter
	pager         *paging.Pager[domain.Alert]
	thresholds    []domain.Threshold
	usingDefaults bool
	remoteSummary *domain.Summary
	err           error
}

// NewManager returns an empty view-model with default thresholds. emitter may be nil.
func NewManager(repo repository.Repository, emitter telemetry.EventEmitter) *Manager {
	return &Manager{
		repo:          repo,
		emitter:       emitter,
		pager:         paging.NewPager[domain.Alert](PageSize),
		thresholds:    domain.DefaultThresholds(),
		usingDefaults: true,
	}
}

// Load fetches the alert list. Stale responses are discarded; on failure prior state is kept.
func (m *Manager) Load(ctx context.Context) error {
	token := m.gen.Next()
	alerts, err := m.repo.List(ctx)
	if !m.gen.Current(token) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		log.Printf("alerts: load: %v", err)
		m.err = err
		return err
	}
	m.err = nil
	m.alerts = alerts
	m.remoteSummary = nil
	m.refilter(false)
	return nil
}

// LoadThresholds fetches thresholds. On failure, or an empty reply, the defaults are used and
// the error flag is set.
func (m *Manager) LoadThresholds(ctx context.Context) error {
	list, err := m.repo.Thresholds(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		log.Printf("alerts: load thresholds, using defaults: %v", err)
		m.thresholds = domain.DefaultThresholds()
		m.usingDefaults = true
		m.err = err
		return err
	}
	if len(list) == 0 {
		m.thresholds = domain.DefaultThresholds()
		m.usingDefaults = true
		return nil
	}
	m.thresholds = list
	m.usingDefaults = false
	return nil
}

// Thresholds returns the current thresholds and whether they are the built-in defaults.
func (m *Manager) Thresholds() ([]domain.Threshold, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Threshold(nil), m.thresholds...), m.usingDefaults
}

// UpdateThreshold validates and saves t, then replaces the cached copy.
func (m *Manager) UpdateThreshold(ctx context.Context, t domain.Threshold) (*domain.Threshold, error) {
	if !t.Parameter.Valid() {
		return nil, fmt.Errorf("alerts: unknown parameter %q", t.Parameter)
	}
	if t.WarningThreshold < 0 || t.WarningThreshold >= t.CriticalThreshold {
		return nil, ErrInvalidThreshold
	}
	saved, err := m.repo.UpdateThreshold(ctx, t)
	if err != nil {
		return nil, m.fail("update threshold", err)
	}
	m.mu.Lock()
	replaced := false
	for i := range m.thresholds {
		if m.thresholds[i].Parameter == saved.Parameter || (saved.ID != 0 && m.thresholds[i].ID == saved.ID) {
			m.thresholds[i] = *saved
			replaced = true
		}
	}
	if !replaced {
		m.thresholds = append(m.thresholds, *saved)
	}
	m.mu.Unlock()
	m.emit(ctx, "update_threshold", strconv.FormatInt(saved.ID, 10))
	return saved, nil
}

// Recalculate asks the backend to re-evaluate alerts, then reloads them.
func (m *Manager) Recalculate(ctx context.Context) error {
	if err := m.repo.Recalculate(ctx); err != nil {
		return m.fail("recalculate", err)
	}
	m.emit(ctx, "recalculate", "")
	return m.Load(ctx)
}

// Get fetches one alert.
func (m *Manager) Get(ctx context.Context, id int64) (*domain.Alert, error) {
	a, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, m.fail("get", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	return a, nil
}

// Delete removes one alert. An emptied trailing page steps back.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return m.fail("delete", err)
	}
	m.mu.Lock()
	kept := m.alerts[:0:0]
	for _, a := range m.alerts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	m.alerts = kept
	m.remoteSummary = nil
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "delete", strconv.FormatInt(id, 10))
	return nil
}

// Clear removes every alert.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.repo.Clear(ctx); err != nil {
		return m.fail("clear", err)
	}
	m.mu.Lock()
	m.alerts = nil
	m.remoteSummary = nil
	m.refilter(false)
	m.mu.Unlock()
	m.emit(ctx, "clear", "")
	return nil
}

// caller holds mu
func (m *Manager) refilter(keepPage bool) {
	filtered := make([]domain.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if m.filter.Match(a) {
			filtered = append(filtered, a)
		}
	}
	if keepPage {
		m.pager.Replace(filtered)
	} else {
		m.pager.SetItems(filtered)
	}
}

// ApplyFilters sets the filter and returns to page 1.
func (m *Manager) ApplyFilters(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
	m.refilter(false)
}

// ResetFilters clears every filter.
func (m *Manager) ResetFilters() { m.ApplyFilters(Filter{}) }

// All returns a copy of the cached alerts, newest pushed first.
func (m *Manager) All() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alert(nil), m.alerts...)
}

// Filtered returns a copy of the filtered list.
func (m *Manager) Filtered() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alert(nil), m.pager.Items()...)
}

// Page returns the alerts on the current page.
func (m *Manager) Page() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alert(nil), m.pager.Current()...)
}

// PageNumber returns the current one-based page and the page count.
func (m *Manager) PageNumber() (page, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.Page(), m.pager.TotalPages()
}

// GoToPage jumps to page n when it exists.
func (m *Manager) GoToPage(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pager.GoTo(n)
}

// Err returns the last failure, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// CountBySeverity counts the cached alerts per severity.
func (m *Manager) CountBySeverity() map[domain.Severity]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Severity]int{
		domain.SeverityInfo:    0,
		domain.SeverityWarning: 0,
		domain.SeverityDanger:  0,
	}
	for _, a := range m.alerts {
		out[a.Severity]++
	}
	return out
}

// Summary returns the summary pushed by the server since the last local change, or one computed
// from the cache.
func (m *Manager) Summary() domain.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remoteSummary != nil {
		return *m.remoteSummary
	}
	return domain.Summarize(m.alerts)
}

// Push prepends a live alert. An alert already cached under the same id is replaced in place.
func (m *Manager) Push(a domain.Alert) {
	a.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID != 0 {
		for i := range m.alerts {
			if m.alerts[i].ID == a.ID {
				m.alerts[i] = a
				m.refilter(true)
				return
			}
		}
	}
	m.alerts = append([]domain.Alert{a}, m.alerts...)
	m.refilter(true)
}

func (m *Manager) setSummary(s domain.Summary) {
	m.mu.Lock()
	m.remoteSummary = &s
	m.mu.Unlock()
}

// Watch prepends live alerts and tracks pushed summaries until release is called.
func (m *Manager) Watch(b *bus.Bus) (release func()) {
	stopAlerts := bus.Watch(b.Alerts, bus.DefaultBuffer, m.Push)
	stopSummary := bus.Watch(b.AlertSummary, 1, m.setSummary)
	return func() {
		stopAlerts()
		stopSummary()
	}
}

func (m *Manager) fail(op string, err error) error {
	log.Printf("alerts: %s: %v", op, err)
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return err
}

func (m *Manager) emit(ctx context.Context, action, subject string) {
	telemetry.EmitAsync(m.emitter, ctx, telemetry.NewEvent(
		telemetry.KindAdminAction, eventSource, "", subject,
		map[string]string{"action": action, "resource": "alert"},
	))
}
