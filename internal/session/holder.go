// Package session owns the signed-in state: the bearer token, the cached user, and the
// authenticated-state events other components react to.
package session

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
	"envmonitor/console/internal/platform/rbac"
	"envmonitor/console/internal/security"
	"envmonitor/console/internal/session/domain"
	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/telemetry"
)

// ErrTokenExpired is returned by Establish for a token that is already past its exp claim.
var ErrTokenExpired = errors.New("session token is expired")

const eventSource = "session"

// Disconnector is told to drop realtime connections when the session ends.
type Disconnector interface {
	Disconnect()
}

// Holder is the single owner of session state. Construct one per process and inject it.
type Holder struct {
	store     storage.Store
	authState *bus.Topic[bool]
	emitter   telemetry.EventEmitter
	now       func() time.Time

	mu            sync.RWMutex
	token         string
	user          *domain.User
	disconnectors []Disconnector
}

// NewHolder returns an empty holder. authState and emitter may be nil.
func NewHolder(store storage.Store, authState *bus.Topic[bool], emitter telemetry.EventEmitter) *Holder {
	return &Holder{
		store:     store,
		authState: authState,
		emitter:   emitter,
		now:       time.Now,
	}
}

// OnClear registers d to be disconnected whenever the session is cleared.
func (h *Holder) OnClear(d Disconnector) {
	if d == nil {
		return
	}
	h.mu.Lock()
	h.disconnectors = append(h.disconnectors, d)
	h.mu.Unlock()
}

// Hydrate restores a persisted session at startup. A missing, malformed or expired token, or a
// token without a cached user, clears both keys and leaves the holder signed out.
func (h *Holder) Hydrate(ctx context.Context) error {
	token, ok, err := h.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("session: load token: %w", err)
	}
	var user domain.User
	hasUser, err := storage.GetJSON(ctx, h.store, storage.KeyUserData, &user)
	if err != nil {
		log.Printf("session: cached user unreadable: %v", err)
		hasUser = false
	}

	if !ok || strings.TrimSpace(token) == "" {
		if hasUser {
			return h.wipe(ctx)
		}
		return nil
	}
	if security.IsExpired(token, h.now()) {
		log.Printf("session: stored token expired; clearing")
		telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(telemetry.KindSessionExpired, eventSource, user.DisplayName(), "", nil))
		return h.wipe(ctx)
	}
	if !hasUser || user.Empty() {
		log.Printf("session: token without cached user; clearing")
		return h.wipe(ctx)
	}

	h.mu.Lock()
	h.token = token
	h.user = &user
	h.mu.Unlock()
	h.publish(true)
	return nil
}

// Establish persists a new session and announces it.
func (h *Holder) Establish(ctx context.Context, token string, user domain.User) error {
	s := domain.Session{Token: token, User: user}
	if err := s.Validate(); err != nil {
		return err
	}
	if security.IsExpired(token, h.now()) {
		return ErrTokenExpired
	}
	if err := h.store.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	if err := storage.SetJSON(ctx, h.store, storage.KeyUserData, user); err != nil {
		_ = h.store.Delete(ctx, storage.KeyAuthToken)
		return fmt.Errorf("session: persist user: %w", err)
	}

	h.mu.Lock()
	h.token = token
	h.user = &user
	h.mu.Unlock()

	h.publish(true)
	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		telemetry.KindSessionEstablished, eventSource, user.DisplayName(), strconv.FormatInt(user.ID, 10),
		map[string]string{"role": user.Role},
	))
	return nil
}

// Clear signs out: removes persisted keys, announces false and disconnects realtime channels.
// In-memory state is cleared even when the store fails; the store error is returned.
func (h *Holder) Clear(ctx context.Context) error {
	h.mu.RLock()
	actor := ""
	if h.user != nil {
		actor = h.user.DisplayName()
	}
	h.mu.RUnlock()

	err := h.wipe(ctx)
	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(telemetry.KindSessionCleared, eventSource, actor, "", nil))
	return err
}

// wipe drops state without emitting a business event.
func (h *Holder) wipe(ctx context.Context) error {
	err := h.store.Delete(ctx, storage.KeyAuthToken, storage.KeyUserData)
	if err != nil {
		log.Printf("session: clear store: %v", err)
	}

	h.mu.Lock()
	h.token = ""
	h.user = nil
	ds := append([]Disconnector(nil), h.disconnectors...)
	h.mu.Unlock()

	h.publish(false)
	for _, d := range ds {
		d.Disconnect()
	}
	return err
}

func (h *Holder) publish(authenticated bool) {
	if h.authState != nil {
		h.authState.Publish(authenticated)
	}
}

// Token returns the bearer token, or "" when signed out. An expired token clears the session.
func (h *Holder) Token(ctx context.Context) string {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()
	if token == "" {
		return ""
	}
	if security.IsExpired(token, h.now()) {
		log.Printf("session: token expired; clearing")
		h.mu.RLock()
		actor := ""
		if h.user != nil {
			actor = h.user.DisplayName()
		}
		h.mu.RUnlock()
		telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(telemetry.KindSessionExpired, eventSource, actor, "", nil))
		_ = h.wipe(ctx)
		return ""
	}
	return token
}

// Peek returns the bearer token and whether it has expired, without clearing anything.
func (h *Holder) Peek() (token string, expired bool) {
	h.mu.RLock()
	token = h.token
	h.mu.RUnlock()
	if token == "" {
		return "", false
	}
	return token, security.IsExpired(token, h.now())
}

// User returns the cached profile.
func (h *Holder) User() (domain.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return domain.User{}, false
	}
	return *h.user, true
}

// IsAuthenticated reports whether a live token is held.
func (h *Holder) IsAuthenticated() bool {
	return h.Token(context.Background()) != ""
}

// HasRole compares the cached role case-insensitively. False when signed out.
func (h *Holder) HasRole(role rbac.Role) bool {
	if !h.IsAuthenticated() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user != nil && role.Is(h.user.Role)
}

// IsAdmin is HasRole(ADMIN).
func (h *Holder) IsAdmin() bool {
	return h.HasRole(rbac.RoleAdmin)
}
