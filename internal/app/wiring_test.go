package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bookloan/internal/catalog"
	"github.com/hitoshi/bookloan/internal/config"
	"github.com/hitoshi/bookloan/internal/middleware"
	"github.com/hitoshi/bookloan/internal/repository/memstore"
)

func newTestHandler(t *testing.T, store *memstore.Store) http.Handler {
	t.Helper()
	cfg := &config.Config{
		LoanPeriod:        7 * 24 * time.Hour,
		PenaltyPerDay:     100,
		RateLimitGeneral:  120,
		RateLimitMutation: 30,
	}
	reg, collector := newRegistry()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation))
	t.Cleanup(rl.Stop)

	return newHandler(cfg, serverDeps{
		stores: stores{
			books:   store.Books(),
			patrons: store.Patrons(),
			loans:   store.Loans(),
			reviews: store.Reviews(),
		},
		registry:    reg,
		collector:   collector,
		rateLimiter: rl,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	if err := seedCatalog(ctx, store.Books(), catalog.DefaultSeed()); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := seedCatalog(ctx, store.Books(), catalog.DefaultSeed()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	books, err := store.Books().ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != len(catalog.DefaultSeed()) {
		t.Errorf("books = %d, want %d", len(books), len(catalog.DefaultSeed()))
	}
}

func TestSeedCatalog_RejectsInvalidEntries(t *testing.T) {
	store := memstore.New()
	err := seedCatalog(context.Background(), store.Books(), []catalog.SeedBook{{Title: "", Category: "General"}})
	if err == nil {
		t.Fatal("expected error for entry without title")
	}
}

// TestNewHandler_WiresServices は組み立てたハンドラーで貸出の一連の操作が通ることを検証する。
func TestNewHandler_WiresServices(t *testing.T) {
	store := memstore.New()
	if err := seedCatalog(context.Background(), store.Books(), catalog.DefaultSeed()); err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/patrons", strings.NewReader(`{"name":"Asha","contact":"Asha@Example.com "}`))
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d: %s", w.Code, w.Body.String())
	}
	var p struct {
		ID      string `json:"id"`
		Contact string `json:"contact"`
	}
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Contact != "asha@example.com" {
		t.Errorf("contact = %q, want normalized", p.Contact)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/books/Automata/borrow", nil)
	req.Header.Set(middleware.PatronIDHeader, p.ID)
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("borrow status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, name := range []string{"bookloan_loans_opened_total 1", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}
