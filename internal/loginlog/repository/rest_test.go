package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"envmonitor/console/internal/loginlog/domain"
	"envmonitor/console/internal/platform/api"
)

type tokenStub struct{}

func (tokenStub) Token(context.Context) string { return "tok" }

func newRepo(t *testing.T, h http.HandlerFunc) *RESTRepository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL+"/api", time.Second, tokenStub{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewRESTRepository(c)
}

func TestSearch_SendsFiltersAndPage(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/login-logs/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("username") != "bob" || q.Get("status") != "FAILURE" || q.Get("page") != "1" || q.Get("size") != "20" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if q.Has("ipAddress") {
			t.Error("empty ipAddress should not be sent")
		}
		_, _ = w.Write([]byte(`{"content":[{"id":1,"username":"bob","ipAddress":"1.2.3.4","loginTime":"2024-05-01T10:00:00","status":"FAILURE"}],"totalPages":2,"number":1}`))
	})
	page, err := repo.Search(context.Background(), domain.Filters{Username: "bob", Status: domain.StatusFailure}, 1, 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Status != domain.StatusFailure || page.Number != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestCleanup_ReturnsDeletedCount(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/admin/login-logs/cleanup" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("daysToKeep") != "30" {
			t.Errorf("daysToKeep = %q", r.URL.Query().Get("daysToKeep"))
		}
		_, _ = w.Write([]byte(`{"deletedCount":12}`))
	})
	n, err := repo.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 12 {
		t.Errorf("Cleanup = %d, want 12", n)
	}
}

func TestLastLogin_NullAndNotFound(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/login-logs/user/ghost/last":
			w.WriteHeader(http.StatusNotFound)
		case "/api/admin/login-logs/user/quiet/last":
			_, _ = w.Write([]byte(`null`))
		default:
			_, _ = w.Write([]byte(`{"id":5,"username":"alice","status":"SUCCESS"}`))
		}
	})
	ctx := context.Background()
	for _, name := range []string{"ghost", "quiet"} {
		got, err := repo.LastLogin(ctx, name)
		if err != nil || got != nil {
			t.Errorf("LastLogin(%q) = %+v, %v, want nil, nil", name, got, err)
		}
	}
	got, err := repo.LastLogin(ctx, "alice")
	if err != nil || got == nil || got.ID != 5 {
		t.Errorf("LastLogin(alice) = %+v, %v", got, err)
	}
}

func TestCheckIPAndStats(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/login-logs/security/check-ip":
			if r.URL.Query().Get("ip") != "5.6.7.8" {
				t.Errorf("ip = %q", r.URL.Query().Get("ip"))
			}
			_, _ = w.Write([]byte(`{"suspicious":true,"attemptCount":9}`))
		case "/api/admin/login-logs/stats/active-users":
			_, _ = w.Write([]byte(`[{"username":"a","count":3}]`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})
	ctx := context.Background()
	chk, err := repo.CheckIP(ctx, "5.6.7.8")
	if err != nil || !chk.Suspicious || chk.AttemptCount != 9 {
		t.Errorf("CheckIP = %+v, %v", chk, err)
	}
	rows, err := repo.ActiveUsers(ctx, 10)
	if err != nil || len(rows) != 1 || rows[0]["username"] != "a" {
		t.Errorf("ActiveUsers = %v, %v", rows, err)
	}
}
