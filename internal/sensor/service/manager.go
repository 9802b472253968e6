// Package service holds the sensor management view-model: cached fleet, filters, pagination,
// CRUD, the maintenance history and bulk import.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/platform/paging"
	"envmonitor/console/internal/sensor/domain"
	"envmonitor/console/internal/sensor/repository"
	"envmonitor/console/internal/telemetry"
)

// PageSize is the number of sensors per page.
const PageSize = 10

const eventSource = "sensors"

var (
	ErrNameRequired     = errors.New("sensor name is required")
	ErrLocationRequired = errors.New("sensor location is required")
	ErrCommentRequired  = errors.New("history comment is required")
	ErrHistoryIndex     = errors.New("history entry index out of range")
	ErrSensorNotFound   = errors.New("sensor not found")
)

// Filter narrows the cached fleet. Empty fields match everything.
type Filter struct {
	Type   domain.Type
	Status domain.Status
	// Term is a case-insensitive substring of name or location.
	Term string
}

// Match reports whether s passes every set criterion.
func (f Filter) Match(s domain.Sensor) bool {
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Name), term) ||
		strings.Contains(strings.ToLower(s.Loc().String()), term)
}

// Draft is the create/edit form.
type Draft struct {
	Name     string
	Type     domain.Type
	Status   domain.Status
	Location domain.Location
}

// Validate checks the required fields.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrNameRequired
	}
	if !d.Location.IsMap && strings.TrimSpace(d.Location.Text) == "" {
		return ErrLocationRequired
	}
	return nil
}

func (d Draft) toSensor(now time.Time) domain.Sensor {
	typ := d.Type
	if typ == "" {
		typ = domain.TypeTemperature
	}
	status := d.Status
	if status == "" {
		status = domain.StatusActive
	}
	stamp := now.UTC().Format(time.RFC3339Nano)
	return domain.Sensor{
		Name:      strings.TrimSpace(d.Name),
		Type:      typ,
		Status:    status,
		Location:  d.Location.String(),
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

// ImportResult counts a bulk import outcome.
type ImportResult struct {
	Imported int
	Errors   int
}

// Counts groups the fleet by status and type.
type Counts struct {
	Total    int
	ByStatus map[domain.Status]int
	ByType   map[domain.Type]int
}

// Manager is the sensor management view-model. Safe for concurrent use.
type Manager struct {
	repo    repository.Repository
	emitter telemetry.EventEmitter
	gen     generation.Counter
	now     func() time.Time

	mu      sync.Mutex
	sensors []domain.Sensor
	filter  Filter
	pager   *paging.Pager[domain.Sensor]
	err     error
}

// NewManager returns an empty view-model. emitter may be nil.
func NewManager(repo repository.Repository, emitter telemetry.EventEmitter) *Manager {
	return &Manager{
		repo:    repo,
		emitter: emitter,
		now:     time.Now,
		pager:   paging.NewPager[domain.Sensor](PageSize),
	}
}

// Load fetches the fleet. Stale responses are discarded; on failure prior state is kept.
func (m *Manager) Load(ctx context.Context) error {
	return m.load(ctx, "load", m.repo.List)
}

// LoadCurrent fetches the fleet with latest values.
func (m *Manager) LoadCurrent(ctx context.Context) error {
	return m.load(ctx, "load current", m.repo.Current)
}

func (m *Manager) load(ctx context.Context, op string, fetch func(context.Context) ([]domain.Sensor, error)) error {
	token := m.gen.Next()
	sensors, err := fetch(ctx)
	if !m.gen.Current(token) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		log.Printf("sensors: %s: %v", op, err)
		m.err = err
		return err
	}
	m.err = nil
	m.sensors = sensors
	m.refilter(false)
	return nil
}

// caller holds mu
func (m *Manager) refilter(keepPage bool) {
	filtered := make([]domain.Sensor, 0, len(m.sensors))
	for _, s := range m.sensors {
		if m.filter.Match(s) {
			filtered = append(filtered, s)
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

// All returns a copy of the cached fleet.
func (m *Manager) All() []domain.Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Sensor(nil), m.sensors...)
}

// Filtered returns a copy of the filtered fleet.
func (m *Manager) Filtered() []domain.Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Sensor(nil), m.pager.Items()...)
}

// Page returns the sensors on the current page.
func (m *Manager) Page() []domain.Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Sensor(nil), m.pager.Current()...)
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

// Err returns the last failure, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Counts groups the cached fleet.
func (m *Manager) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Counts{
		Total:    len(m.sensors),
		ByStatus: make(map[domain.Status]int, len(domain.Statuses)),
		ByType:   make(map[domain.Type]int, len(domain.Types)),
	}
	for _, s := range domain.Statuses {
		c.ByStatus[s] = 0
	}
	for _, t := range domain.Types {
		c.ByType[t] = 0
	}
	for _, s := range m.sensors {
		c.ByStatus[s.Status]++
		c.ByType[s.Type]++
	}
	return c
}

func (m *Manager) fail(op string, err error) error {
	log.Printf("sensors: %s: %v", op, err)
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return err
}

func (m *Manager) emit(ctx context.Context, action string, id int64) {
	telemetry.EmitAsync(m.emitter, ctx, telemetry.NewEvent(
		telemetry.KindAdminAction, eventSource, "", strconv.FormatInt(id, 10),
		map[string]string{"action": action, "resource": "sensor"},
	))
}

// Create validates d, creates the sensor and appends it to the cache.
func (m *Manager) Create(ctx context.Context, d Draft) (*domain.Sensor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	created, err := m.repo.Create(ctx, d.toSensor(m.now()))
	if err != nil {
		return nil, m.fail("create", err)
	}
	m.mu.Lock()
	m.sensors = append(m.sensors, *created)
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "create", created.ID)
	return created, nil
}

// Update saves d over sensor id and replaces the cached copy.
func (m *Manager) Update(ctx context.Context, id int64, d Draft) (*domain.Sensor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := d.toSensor(m.now())
	s.ID = id
	updated, err := m.repo.Update(ctx, s)
	if err != nil {
		return nil, m.fail("update", err)
	}
	m.mu.Lock()
	for i := range m.sensors {
		if m.sensors[i].ID == id {
			m.sensors[i] = *updated
		}
	}
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "update", id)
	return updated, nil
}

// Delete removes a sensor. An emptied trailing page steps back.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return m.fail("delete", err)
	}
	m.mu.Lock()
	kept := m.sensors[:0:0]
	for _, s := range m.sensors {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.sensors = kept
	m.refilter(true)
	m.mu.Unlock()
	m.emit(ctx, "delete", id)
	return nil
}

// Get fetches one sensor and refreshes its cached copy.
func (m *Manager) Get(ctx context.Context, id int64) (*domain.Sensor, error) {
	s, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, m.fail("get", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %d", ErrSensorNotFound, id)
	}
	m.mu.Lock()
	for i := range m.sensors {
		if m.sensors[i].ID == id {
			m.sensors[i] = *s
		}
	}
	m.refilter(true)
	m.mu.Unlock()
	return s, nil
}

// GenerateData asks the backend to simulate readings.
func (m *Manager) GenerateData(ctx context.Context, id int64) error {
	if err := m.repo.GenerateData(ctx, id); err != nil {
		return m.fail("generate data", err)
	}
	return nil
}

// History loads the maintenance log. A failed load yields an empty history and the error.
func (m *Manager) History(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	text, err := m.repo.History(ctx, id)
	if err != nil {
		log.Printf("sensors: history %d: %v", id, err)
		return []domain.HistoryEntry{}, err
	}
	return domain.ParseHistory(text), nil
}

func (m *Manager) saveHistory(ctx context.Context, id int64, entries []domain.HistoryEntry) error {
	text, err := domain.EncodeHistory(entries)
	if err != nil {
		return fmt.Errorf("sensors: encode history: %w", err)
	}
	if err := m.repo.SaveHistory(ctx, id, text); err != nil {
		return m.fail("save history", err)
	}
	return nil
}

// AddHistory prepends an entry stamped now.
func (m *Manager) AddHistory(ctx context.Context, id int64, status domain.Status, comment string) ([]domain.HistoryEntry, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrCommentRequired
	}
	entries, err := m.History(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := domain.HistoryEntry{Date: m.now().UTC(), Status: status, Comment: comment}
	entries = append([]domain.HistoryEntry{entry}, entries...)
	if err := m.saveHistory(ctx, id, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EditHistory rewrites the status and comment of entry index.
func (m *Manager) EditHistory(ctx context.Context, id int64, index int, status domain.Status, comment string) ([]domain.HistoryEntry, error) {
	entries, err := m.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entries) {
		return nil, ErrHistoryIndex
	}
	entries[index].Status = status
	entries[index].Comment = strings.TrimSpace(comment)
	if err := m.saveHistory(ctx, id, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteHistory removes entry index.
func (m *Manager) DeleteHistory(ctx context.Context, id int64, index int) ([]domain.HistoryEntry, error) {
	entries, err := m.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entries) {
		return nil, ErrHistoryIndex
	}
	entries = append(entries[:index], entries[index+1:]...)
	if err := m.saveHistory(ctx, id, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Import creates every row and counts successes and failures. The list is reloaded afterwards.
func (m *Manager) Import(ctx context.Context, rows []domain.Sensor) ImportResult {
	var res ImportResult
	now := m.now().UTC().Format(time.RFC3339Nano)
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			res.Errors++
			continue
		}
		row.ID = 0
		row.CreatedAt, row.UpdatedAt = now, now
		if _, err := m.repo.Create(ctx, row); err != nil {
			log.Printf("sensors: import %q: %v", row.Name, err)
			res.Errors++
			continue
		}
		res.Imported++
	}
	if res.Imported > 0 {
		_ = m.Load(ctx)
	}
	return res
}

// ApplyUpdate patches the cached sensor named by a live update. Unknown ids are ignored.
func (m *Manager) ApplyUpdate(u domain.Update) bool {
	id, err := strconv.ParseInt(string(u.ID), 10, 64)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sensors {
		if m.sensors[i].ID != id {
			continue
		}
		if u.Status != "" {
			m.sensors[i].Status = u.Status
		}
		if u.Value != "" {
			m.sensors[i].Value = u.Value
		}
		if u.LastUpdate != nil {
			m.sensors[i].UpdatedAt = u.LastUpdate.UTC().Format(time.RFC3339Nano)
		}
		m.refilter(true)
		return true
	}
	return false
}

// Watch applies live sensor updates until release is called.
func (m *Manager) Watch(topic *bus.Topic[domain.Update]) (release func()) {
	return bus.Watch(topic, bus.DefaultBuffer, func(u domain.Update) { m.ApplyUpdate(u) })
}
