// Package service holds the notification center view-model and the admin notification helpers.
package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/notification/domain"
	"envmonitor/console/internal/notification/repository"
	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/platform/paging"
)

// DefaultPageSize is the page size used when Load gets a non-positive size.
const DefaultPageSize = 10

// Center is the notification center view-model. Safe for concurrent use.
type Center struct {
	repo repository.Repository
	gen  generation.Counter
	now  func() time.Time

	mu     sync.Mutex
	page   paging.Page[domain.Notification]
	unread int
	prefs  *domain.Preferences
	err    error
}

// NewCenter returns an empty notification center.
func NewCenter(repo repository.Repository) *Center {
	return &Center{repo: repo, now: time.Now}
}

// Load fetches one zero-based page. Stale responses are discarded.
func (c *Center) Load(ctx context.Context, page, size int) (*paging.Page[domain.Notification], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	token := c.gen.Next()
	p, err := c.repo.List(ctx, page, size)
	if !c.gen.Current(token) {
		return p, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.Printf("notifications: load page %d: %v", page, err)
		c.err = err
		return nil, err
	}
	c.err = nil
	c.page = *p
	return p, nil
}

// RefreshUnread reads the unread count from the backend.
func (c *Center) RefreshUnread(ctx context.Context) (int, error) {
	n, err := c.repo.UnreadCount(ctx)
	if err != nil {
		return 0, c.fail("unread count", err)
	}
	c.mu.Lock()
	c.unread = n
	c.mu.Unlock()
	return n, nil
}

// Notifications returns the cached page content.
func (c *Center) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.page.Content...)
}

// PageInfo returns the cached zero-based page number and page count.
func (c *Center) PageInfo() (number, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Number, c.page.TotalPages
}

// UnreadCount returns the cached unread count.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// Err returns the last failure, or nil.
func (c *Center) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// MarkRead acknowledges id and flips the cached copy to READ.
func (c *Center) MarkRead(ctx context.Context, id int64) error {
	if err := c.repo.MarkRead(ctx, id); err != nil {
		return c.fail("mark read", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.page.Content {
		n := &c.page.Content[i]
		if n.ID == id && n.Unread() {
			n.MarkRead(c.now())
			if c.unread > 0 {
				c.unread--
			}
		}
	}
	return nil
}

// MarkAllRead acknowledges everything and zeroes the unread count.
func (c *Center) MarkAllRead(ctx context.Context) error {
	if err := c.repo.MarkAllRead(ctx); err != nil {
		return c.fail("mark all read", err)
	}
	at := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.page.Content {
		if c.page.Content[i].Unread() {
			c.page.Content[i].MarkRead(at)
		}
	}
	c.unread = 0
	return nil
}

// Preferences fetches the delivery settings.
func (c *Center) Preferences(ctx context.Context) (*domain.Preferences, error) {
	p, err := c.repo.Preferences(ctx)
	if err != nil {
		return nil, c.fail("preferences", err)
	}
	c.mu.Lock()
	c.prefs = p
	c.mu.Unlock()
	return p, nil
}

// UpdatePreferences saves p.
func (c *Center) UpdatePreferences(ctx context.Context, p domain.Preferences) (*domain.Preferences, error) {
	saved, err := c.repo.UpdatePreferences(ctx, p)
	if err != nil {
		return nil, c.fail("update preferences", err)
	}
	c.mu.Lock()
	c.prefs = saved
	c.mu.Unlock()
	return saved, nil
}

// NotifyNewUser tells admins a registration awaits validation.
func (c *Center) NotifyNewUser(ctx context.Context, userID int64, username, email string) error {
	n := domain.Notification{
		Title:   "Nouveau compte utilisateur",
		Message: fmt.Sprintf("Un nouvel utilisateur (%s) a créé un compte et attend validation", username),
		Type:    domain.TypeNewUser,
		Status:  domain.StatusUnread,
		User:    &domain.UserRef{ID: userID, Username: username, Email: email},
	}
	created, err := c.repo.Create(ctx, repository.EndpointNewUser, n)
	if err != nil {
		return c.fail("notify new user", err)
	}
	c.prepend(*created)
	return nil
}

// NotifyThreshold reports a breached critical threshold.
func (c *Center) NotifyThreshold(ctx context.Context, parameter string, value, limit float64) error {
	n := domain.Notification{
		Title: "Alerte de seuil critique",
		Message: fmt.Sprintf("Le seuil critique a été dépassé pour %s: %s (limite: %s)",
			parameter, formatNumber(value), formatNumber(limit)),
		Type:      domain.TypeCriticalThresholdAlert,
		Status:    domain.StatusUnread,
		Threshold: &domain.ThresholdRef{Type: parameter, Value: value, Limit: limit},
	}
	if _, err := c.repo.Create(ctx, repository.EndpointThresholdAlert, n); err != nil {
		return c.fail("notify threshold", err)
	}
	return nil
}

// ApproveUser approves a registration, then reloads the current page.
func (c *Center) ApproveUser(ctx context.Context, userID int64) error {
	if err := c.repo.ApproveUser(ctx, userID); err != nil {
		return c.fail("approve user "+strconv.FormatInt(userID, 10), err)
	}
	return c.reload(ctx)
}

// RejectUser rejects a registration, then reloads the current page.
func (c *Center) RejectUser(ctx context.Context, userID int64) error {
	if err := c.repo.RejectUser(ctx, userID); err != nil {
		return c.fail("reject user "+strconv.FormatInt(userID, 10), err)
	}
	return c.reload(ctx)
}

func (c *Center) reload(ctx context.Context) error {
	c.mu.Lock()
	number, size := c.page.Number, c.page.Size
	c.mu.Unlock()
	if _, err := c.Load(ctx, number, size); err != nil {
		return err
	}
	_, err := c.RefreshUnread(ctx)
	return err
}

// Push prepends a live notification; UNREAD ones bump the unread count.
func (c *Center) Push(n domain.Notification) {
	c.prepend(n)
}

func (c *Center) prepend(n domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Content = append([]domain.Notification{n}, c.page.Content...)
	c.page.TotalElements++
	if n.Unread() {
		c.unread++
	}
}

// Watch prepends notifications pushed on the bus until release is called.
func (c *Center) Watch(b *bus.Bus) (release func()) {
	return bus.Watch(b.Notifications, bus.DefaultBuffer, c.Push)
}

func (c *Center) fail(op string, err error) error {
	log.Printf("notifications: %s: %v", op, err)
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	return err
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
