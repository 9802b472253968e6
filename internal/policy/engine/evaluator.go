package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sessiondomain "envmonitor/console/internal/session/domain"
	"envmonitor/console/internal/platform/rbac"
)

// Routes the guard redirects to.
const (
	RouteLogin           = "/auth/login"
	RouteRegister        = "/auth/register"
	RouteUnauthorized    = "/unauthorized"
	RouteWaitingApproval = "/auth/waiting-approval"
	RouteAdminDashboard  = "/admin/dashboard"
	RouteUserDashboard   = "/user/dashboard"
)

// ErrDenied is wrapped by every RedirectError.
var ErrDenied = errors.New("route denied")

// Input is what the route guard decides on.
type Input struct {
	Path          string
	Authenticated bool
	Role          string
	Enabled       bool
}

// Decision is the guard verdict. Redirect is set when Allow is false, and also when an
// authenticated user opens a guest-only page.
type Decision struct {
	Allow    bool
	Redirect string
}

// Evaluator decides whether a route may be opened.
type Evaluator interface {
	EvaluateRoute(ctx context.Context, in Input) Decision
}

// Subject is the session view the guard reads.
type Subject interface {
	IsAuthenticated() bool
	User() (sessiondomain.User, bool)
}

// RedirectError reports a denied route and where to go instead.
type RedirectError struct {
	Path string
	To   string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("route %s denied, redirect to %s", e.Path, e.To)
}

func (e *RedirectError) Unwrap() error { return ErrDenied }

// InputFor builds the guard input for path from the current session.
func InputFor(path string, s Subject) Input {
	in := Input{Path: path, Enabled: true}
	if s == nil || !s.IsAuthenticated() {
		return in
	}
	in.Authenticated = true
	if u, ok := s.User(); ok {
		in.Role = u.Role
		in.Enabled = u.IsEnabled()
	}
	return in
}

// Authorize evaluates path for s and returns a *RedirectError when it is denied.
func Authorize(ctx context.Context, e Evaluator, path string, s Subject) error {
	d := e.EvaluateRoute(ctx, InputFor(path, s))
	if d.Allow {
		return nil
	}
	return &RedirectError{Path: path, To: d.Redirect}
}

// Decide applies the route rules in Go. It is the fallback when Rego evaluation fails and must
// stay in step with routePolicy.
func Decide(in Input) Decision {
	admin := isAdminPath(in.Path)
	user := isUserPath(in.Path)
	guest := in.Path == RouteLogin || in.Path == RouteRegister
	isAdmin := rbac.RoleAdmin.Is(in.Role)

	switch {
	case admin && !in.Authenticated:
		return Decision{Redirect: loginRedirect(in.Path)}
	case admin && !isAdmin:
		return Decision{Redirect: RouteUnauthorized}
	case user && !in.Authenticated:
		return Decision{Redirect: loginRedirect(in.Path)}
	case guest && in.Authenticated:
		return Decision{Redirect: landing(isAdmin, in.Enabled)}
	}
	return Decision{Allow: true}
}

func isAdminPath(p string) bool { return p == "/admin" || strings.HasPrefix(p, "/admin/") }

func isUserPath(p string) bool { return p == "/user" || strings.HasPrefix(p, "/user/") }

func loginRedirect(path string) string {
	return RouteLogin + "?returnUrl=" + url.QueryEscape(path)
}

func landing(isAdmin, enabled bool) string {
	switch {
	case isAdmin:
		return RouteAdminDashboard
	case !enabled:
		return RouteWaitingApproval
	default:
		return RouteUserDashboard
	}
}
