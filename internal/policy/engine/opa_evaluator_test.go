package engine

import (
	"context"
	"errors"
	"testing"

	sessiondomain "envmonitor/console/internal/session/domain"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e := NewOPAEvaluator()
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

var routeCases = []struct {
	name string
	in   Input
	want Decision
}{
	{"admin anonymous", Input{Path: "/admin/users", Enabled: true}, Decision{Redirect: "/auth/login?returnUrl=%2Fadmin%2Fusers"}},
	{"admin root anonymous", Input{Path: "/admin", Enabled: true}, Decision{Redirect: "/auth/login?returnUrl=%2Fadmin"}},
	{"admin as user", Input{Path: "/admin/users", Authenticated: true, Role: "USER", Enabled: true}, Decision{Redirect: "/unauthorized"}},
	{"admin as admin", Input{Path: "/admin/users", Authenticated: true, Role: "ADMIN", Enabled: true}, Decision{Allow: true}},
	{"admin lowercase role", Input{Path: "/admin/dashboard", Authenticated: true, Role: "admin", Enabled: true}, Decision{Allow: true}},
	{"administrator is not admin area", Input{Path: "/administrator", Enabled: true}, Decision{Allow: true}},
	{"user anonymous", Input{Path: "/user/dashboard", Enabled: true}, Decision{Redirect: "/auth/login?returnUrl=%2Fuser%2Fdashboard"}},
	{"user signed in", Input{Path: "/user/dashboard", Authenticated: true, Role: "USER", Enabled: true}, Decision{Allow: true}},
	{"user area as admin", Input{Path: "/user/alerts", Authenticated: true, Role: "ADMIN", Enabled: true}, Decision{Allow: true}},
	{"login anonymous", Input{Path: "/auth/login", Enabled: true}, Decision{Allow: true}},
	{"login as admin", Input{Path: "/auth/login", Authenticated: true, Role: "ADMIN", Enabled: true}, Decision{Redirect: "/admin/dashboard"}},
	{"register as user", Input{Path: "/auth/register", Authenticated: true, Role: "USER", Enabled: true}, Decision{Redirect: "/user/dashboard"}},
	{"login as disabled user", Input{Path: "/auth/login", Authenticated: true, Role: "USER", Enabled: false}, Decision{Redirect: "/auth/waiting-approval"}},
	{"public page", Input{Path: "/weather", Enabled: true}, Decision{Allow: true}},
	{"waiting approval", Input{Path: "/auth/waiting-approval", Authenticated: true, Role: "USER"}, Decision{Allow: true}},
}

func TestOPAEvaluator_EvaluateRoute(t *testing.T) {
	e := NewOPAEvaluator()
	ctx := context.Background()
	for _, tc := range routeCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.evaluate(ctx, tc.in)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tc.want {
				t.Errorf("evaluate(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecide_MatchesPolicy(t *testing.T) {
	for _, tc := range routeCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.in); got != tc.want {
				t.Errorf("Decide(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestOPAEvaluator_FallsBackOnBrokenPolicy(t *testing.T) {
	e := &OPAEvaluator{modules: map[string]string{"broken.rego": "package envmonitor.routes\n\nallow if {"}}
	ctx := context.Background()
	if err := e.HealthCheck(ctx); err == nil {
		t.Fatal("HealthCheck should fail for a policy that does not compile")
	}
	in := Input{Path: "/admin/users", Authenticated: true, Role: "USER", Enabled: true}
	got := e.EvaluateRoute(ctx, in)
	if got != (Decision{Redirect: RouteUnauthorized}) {
		t.Errorf("EvaluateRoute = %+v, want fallback redirect to %q", got, RouteUnauthorized)
	}
}

type mockSubject struct {
	authenticated bool
	user          sessiondomain.User
}

func (m *mockSubject) IsAuthenticated() bool { return m.authenticated }

func (m *mockSubject) User() (sessiondomain.User, bool) {
	return m.user, m.authenticated
}

func TestInputFor(t *testing.T) {
	disabled := false
	if got := InputFor("/user/dashboard", nil); got.Authenticated || !got.Enabled {
		t.Errorf("InputFor(nil) = %+v, want anonymous and enabled", got)
	}
	s := &mockSubject{authenticated: true, user: sessiondomain.User{ID: 1, Username: "amal", Role: "USER", Enabled: &disabled}}
	got := InputFor("/auth/login", s)
	want := Input{Path: "/auth/login", Authenticated: true, Role: "USER", Enabled: false}
	if got != want {
		t.Errorf("InputFor = %+v, want %+v", got, want)
	}
}

func TestAuthorize(t *testing.T) {
	e := NewOPAEvaluator()
	ctx := context.Background()

	admin := &mockSubject{authenticated: true, user: sessiondomain.User{ID: 1, Username: "root", Role: "ADMIN"}}
	if err := Authorize(ctx, e, "/admin/users", admin); err != nil {
		t.Errorf("Authorize admin: %v", err)
	}

	err := Authorize(ctx, e, "/admin/users", &mockSubject{})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("Authorize anonymous: err = %v, want ErrDenied", err)
	}
	var re *RedirectError
	if !errors.As(err, &re) {
		t.Fatalf("Authorize anonymous: err = %T, want *RedirectError", err)
	}
	if re.To != "/auth/login?returnUrl=%2Fadmin%2Fusers" {
		t.Errorf("RedirectError.To = %q, want login with return url", re.To)
	}
}
