package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"envmonitor/console/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.Entry
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, limit int) ([]*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

func (m *mockAuditRepo) getEntries() []*domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func() string { return "admin" })

	logger.LogEvent(context.Background(), "approve", "user", "PUT /admin/users/1/approve")

	entries := repo.getEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("entry ID should be set")
	}
	if e.Actor != "admin" {
		t.Errorf("actor = %q, want %q", e.Actor, "admin")
	}
	if e.Action != "approve" || e.Resource != "user" {
		t.Errorf("action/resource = %q/%q", e.Action, e.Resource)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NoActor(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "clear", "alert", "")

	if got := repo.getEntries()[0].Actor; got != SystemActor {
		t.Errorf("actor = %q, want %q", got, SystemActor)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "delete", "sensor", "")

	if len(repo.getEntries()) != 0 {
		t.Error("no entry should be stored on error")
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.LogEvent(context.Background(), "delete", "sensor", "")
	NewLogger(nil, nil).LogEvent(context.Background(), "delete", "sensor", "")
}

func TestLogger_ObserveMutation(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func() string { return "root" })
	ctx := context.Background()

	logger.ObserveMutation(ctx, "POST", "/auth/login")
	logger.ObserveMutation(ctx, "DELETE", "/admin/users/3")

	entries := repo.getEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Action != "delete" || entries[0].Resource != "user" {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Metadata != "DELETE /admin/users/3" {
		t.Errorf("metadata = %q", entries[0].Metadata)
	}
}
