package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/platelog/platelog/internal/core"
	"github.com/platelog/platelog/internal/core/engine"
	apperrors "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/server/handlers"
)

type emptySearcher struct{}

func (emptySearcher) Search(ctx context.Context, query string) []core.ProductCandidate {
	return nil
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestServerRegistersMealRoutes(t *testing.T) {
	meals := handlers.NewMealHandler(&engine.Resolver{Searcher: emptySearcher{}}, nil)
	srv := New(Options{Host: "127.0.0.1", Meals: meals})

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(`{"text": "1 slice bread"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body handlers.ParseResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode parse response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Name != "bread" {
		t.Fatalf("unexpected items: %+v", body.Items)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected page status 200, got %d", rec.Code)
	}
}

func TestServerWithoutMealsSkipsPage(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text": "tea"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestServerAppliesDefaultTimeouts(t *testing.T) {
	srv := New(Options{Port: 8080})

	if srv.opts.ReadTimeout != DefaultReadTimeout || srv.opts.IdleTimeout != DefaultIdleTimeout {
		t.Fatalf("unexpected timeouts: %+v", srv.opts)
	}
	if srv.Port() != 8080 {
		t.Fatalf("expected port 8080, got %d", srv.Port())
	}
}

func TestServerOptionalRoutes(t *testing.T) {
	probe := func(srv *Server, method, path string) int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	quiet := New(Options{DisableHealth: true})
	if code := probe(quiet, http.MethodGet, "/health/live"); code != http.StatusNotFound {
		t.Fatalf("expected health disabled, got %d", code)
	}
	if code := probe(quiet, http.MethodGet, "/debug/pprof/"); code != http.StatusNotFound {
		t.Fatalf("expected pprof off by default, got %d", code)
	}
	if code := probe(quiet, http.MethodPost, "/admin/signal"); code != http.StatusNotFound {
		t.Fatalf("expected admin endpoint off without token, got %d", code)
	}

	debug := New(Options{Pprof: true, AdminToken: "secret"})
	if code := probe(debug, http.MethodGet, "/debug/pprof/"); code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", code)
	}
	if code := probe(debug, http.MethodPost, "/admin/signal"); code == http.StatusNotFound || code < 400 {
		t.Fatalf("expected unauthenticated admin call to be rejected, got %d", code)
	}
}
