// Package audit journals admin mutations performed through the console into the local store.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"envmonitor/console/internal/audit/domain"
	auditrepo "envmonitor/console/internal/audit/repository"
)

// SystemActor is recorded when no user is signed in.
const SystemActor = "_system"

// ActorSource returns the name of the signed-in user, or "".
type ActorSource func() string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional actor source.
type Logger struct {
	repo  auditrepo.Repository
	actor ActorSource
	now   func() time.Time
}

// NewLogger returns a Logger that persists to repo. actor may be nil; then SystemActor is recorded.
func NewLogger(repo auditrepo.Repository, actor ActorSource) *Logger {
	return &Logger{repo: repo, actor: actor, now: time.Now}
}

// LogEvent writes one audit entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	actor := ""
	if l.actor != nil {
		actor = l.actor()
	}
	if actor == "" {
		actor = SystemActor
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// ObserveMutation journals a successful REST mutation. It is meant for api.WithAfterMutation;
// the request path becomes the entry metadata.
func (l *Logger) ObserveMutation(ctx context.Context, method, path string) {
	ar, ok := ParseRequest(method, path)
	if !ok {
		return
	}
	l.LogEvent(ctx, ar.Action, ar.Resource, method+" "+path)
}

// List returns the newest limit entries.
func (l *Logger) List(ctx context.Context, limit int) ([]*domain.Entry, error) {
	return l.repo.List(ctx, limit)
}
