package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/sensor/domain"
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

func TestList_PublicAndDecoded(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("GET /capteurs is public")
		}
		_, _ = w.Write([]byte(`[{"id":1,"nom":"T1","type":"temperature","localisation":"MAP:48.85,2.35","statut":"actif"}]`))
	})
	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "T1" || list[0].Status != domain.StatusActive {
		t.Fatalf("list = %+v", list)
	}
	loc := list[0].Loc()
	if !loc.IsMap || loc.X != 48.85 || loc.Y != 2.35 {
		t.Errorf("Loc = %+v", loc)
	}
}

func TestCreate_PrefixesTextLocation(t *testing.T) {
	var mu sync.Mutex
	var got domain.Sensor
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Error("POST /capteurs needs the bearer")
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"id":7,"nom":"H1","localisation":"TEXT:Salle B"}`))
	})
	out, err := repo.Create(context.Background(), domain.Sensor{Name: "H1", Location: "Salle B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got.Location != "TEXT:Salle B" {
		t.Errorf("sent localisation = %q, want TEXT:Salle B", got.Location)
	}
	if out.Loc().Text != "Salle B" {
		t.Errorf("decoded location = %q, want Salle B", out.Loc().Text)
	}
}

func TestHistory_RoundTrip(t *testing.T) {
	var mu sync.Mutex
	var saved map[string]string
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/capteurs/3/history" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method == http.MethodPut {
			mu.Lock()
			_ = json.NewDecoder(r.Body).Decode(&saved)
			mu.Unlock()
			return
		}
		_, _ = w.Write([]byte(`[{"date":"2024-06-01T10:00:00Z","status":"maintenance","comment":"filtre"}]`))
	})
	ctx := context.Background()
	text, err := repo.History(ctx, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	entries := domain.ParseHistory(text)
	if len(entries) != 1 || entries[0].Comment != "filtre" {
		t.Fatalf("entries = %+v", entries)
	}
	if err := repo.SaveHistory(ctx, 3, "[]"); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if saved["history"] != "[]" {
		t.Errorf("saved = %v", saved)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	s, err := repo.Get(context.Background(), 1)
	if s != nil || err != nil {
		t.Errorf("Get = %v, %v; want nil, nil", s, err)
	}
}
