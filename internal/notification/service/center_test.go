package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/notification/domain"
	"envmonitor/console/internal/platform/paging"
)

type mockRepo struct {
	mu        sync.Mutex
	items     []domain.Notification
	unread    int
	listErr   error
	pages     [][2]int
	created   map[string][]domain.Notification
	marked    []int64
	markedAll bool
	approved  []int64
	rejected  []int64
}

func (m *mockRepo) List(ctx context.Context, page, size int) (*paging.Page[domain.Notification], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, [2]int{page, size})
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &paging.Page[domain.Notification]{
		Content:       append([]domain.Notification(nil), m.items...),
		TotalElements: len(m.items),
		TotalPages:    1,
		Number:        page,
		Size:          size,
	}, nil
}

func (m *mockRepo) UnreadCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread, nil
}

func (m *mockRepo) MarkRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, id)
	return nil
}

func (m *mockRepo) MarkAllRead(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markedAll = true
	return nil
}

func (m *mockRepo) Preferences(ctx context.Context) (*domain.Preferences, error) {
	return &domain.Preferences{WebNotifications: true}, nil
}

func (m *mockRepo) UpdatePreferences(ctx context.Context, p domain.Preferences) (*domain.Preferences, error) {
	return &p, nil
}

func (m *mockRepo) Create(ctx context.Context, endpoint string, n domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == nil {
		m.created = map[string][]domain.Notification{}
	}
	m.created[endpoint] = append(m.created[endpoint], n)
	n.ID = 500
	return &n, nil
}

func (m *mockRepo) ApproveUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approved = append(m.approved, userID)
	return nil
}

func (m *mockRepo) RejectUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, userID)
	return nil
}

func inbox() []domain.Notification {
	return []domain.Notification{
		{ID: 1, Message: "a", Type: domain.TypeWeatherAlert, Status: domain.StatusUnread},
		{ID: 2, Message: "b", Type: domain.TypeSystemAlert, Status: domain.StatusRead},
		{ID: 3, Message: "c", Type: domain.TypeNewUser, Status: domain.StatusUnread},
	}
}

func TestLoad_Defaults(t *testing.T) {
	repo := &mockRepo{items: inbox()}
	c := NewCenter(repo)
	if _, err := c.Load(context.Background(), -1, 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if repo.pages[0] != [2]int{0, DefaultPageSize} {
		t.Errorf("requested page = %v, want [0 %d]", repo.pages[0], DefaultPageSize)
	}
	if got := len(c.Notifications()); got != 3 {
		t.Errorf("len(Notifications) = %d, want 3", got)
	}
}

func TestLoad_FailureKeepsPage(t *testing.T) {
	repo := &mockRepo{items: inbox()}
	c := NewCenter(repo)
	_, _ = c.Load(context.Background(), 0, 10)
	repo.listErr = errors.New("down")
	if _, err := c.Load(context.Background(), 1, 10); err == nil {
		t.Fatal("Load should fail")
	}
	if got := len(c.Notifications()); got != 3 {
		t.Errorf("len(Notifications) = %d, want prior 3", got)
	}
	if c.Err() == nil {
		t.Error("Err should be set")
	}
}

func TestMarkRead(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{items: inbox(), unread: 2}
	c := NewCenter(repo)
	c.now = func() time.Time { return fixed }
	ctx := context.Background()
	_, _ = c.Load(ctx, 0, 10)
	_, _ = c.RefreshUnread(ctx)

	if err := c.MarkRead(ctx, 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	n := c.Notifications()[0]
	if n.Status != domain.StatusRead || n.ReadAt == nil || !n.ReadAt.Equal(fixed) {
		t.Errorf("notification 1 = %+v, want READ at %v", n, fixed)
	}
	if c.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", c.UnreadCount())
	}
	// already read: no double decrement
	_ = c.MarkRead(ctx, 1)
	if c.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d after re-marking, want 1", c.UnreadCount())
	}

	if err := c.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	for _, n := range c.Notifications() {
		if n.Unread() {
			t.Errorf("notification %d still unread", n.ID)
		}
	}
	if c.UnreadCount() != 0 || !repo.markedAll {
		t.Errorf("UnreadCount = %d, markedAll = %v", c.UnreadCount(), repo.markedAll)
	}
}

func TestNotifyNewUser(t *testing.T) {
	repo := &mockRepo{}
	c := NewCenter(repo)
	if err := c.NotifyNewUser(context.Background(), 12, "alice", "alice@example.com"); err != nil {
		t.Fatalf("NotifyNewUser: %v", err)
	}
	sent := repo.created["new-user"]
	if len(sent) != 1 {
		t.Fatalf("new-user posts = %d, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Message, "alice") || sent[0].Type != domain.TypeNewUser {
		t.Errorf("posted = %+v", sent[0])
	}
	if sent[0].User == nil || sent[0].User.ID != 12 {
		t.Errorf("posted user = %+v, want id 12", sent[0].User)
	}
	if c.UnreadCount() != 1 || c.Notifications()[0].ID != 500 {
		t.Errorf("center not updated: unread %d, items %+v", c.UnreadCount(), c.Notifications())
	}
}

func TestNotifyThreshold_Message(t *testing.T) {
	repo := &mockRepo{}
	c := NewCenter(repo)
	if err := c.NotifyThreshold(context.Background(), "pm25", 61.5, 55); err != nil {
		t.Fatalf("NotifyThreshold: %v", err)
	}
	sent := repo.created["threshold-alert"]
	if len(sent) != 1 {
		t.Fatalf("threshold posts = %d, want 1", len(sent))
	}
	want := "Le seuil critique a été dépassé pour pm25: 61.5 (limite: 55)"
	if sent[0].Message != want {
		t.Errorf("Message = %q, want %q", sent[0].Message, want)
	}
}

func TestApproveReject_Reload(t *testing.T) {
	repo := &mockRepo{items: inbox(), unread: 4}
	c := NewCenter(repo)
	ctx := context.Background()
	_, _ = c.Load(ctx, 0, 10)
	if err := c.ApproveUser(ctx, 3); err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}
	if err := c.RejectUser(ctx, 4); err != nil {
		t.Fatalf("RejectUser: %v", err)
	}
	if len(repo.approved) != 1 || len(repo.rejected) != 1 {
		t.Errorf("approved = %v, rejected = %v", repo.approved, repo.rejected)
	}
	if len(repo.pages) != 3 {
		t.Errorf("list calls = %d, want 3", len(repo.pages))
	}
	if c.UnreadCount() != 4 {
		t.Errorf("UnreadCount = %d, want 4", c.UnreadCount())
	}
}

func TestWatch_Prepends(t *testing.T) {
	b := bus.New()
	defer b.Close()
	c := NewCenter(&mockRepo{})
	release := c.Watch(b)
	defer release()

	b.Notifications.Publish(domain.Notification{ID: 8, Status: domain.StatusUnread})
	b.Notifications.Publish(domain.Notification{ID: 9, Status: domain.StatusRead})
	deadline := time.Now().Add(time.Second)
	for len(c.Notifications()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("notifications = %d, want 2", len(c.Notifications()))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.Notifications()[0].ID != 9 {
		t.Errorf("first = %d, want newest 9", c.Notifications()[0].ID)
	}
	if c.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", c.UnreadCount())
	}
}
