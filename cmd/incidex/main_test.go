package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/config"
	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
)

func TestOpenCatalog_Memory(t *testing.T) {
	cfg := &config.CatalogConfig{Backend: config.CatalogMemory, Path: "../../testdata/catalog.yaml"}
	b, err := openCatalog(context.Background(), cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("openCatalog: %v", err)
	}
	defer b.close()

	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	incs, err := b.ListIncidents(context.Background(), incident.Filter{})
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(incs) != 3 {
		t.Errorf("got %d incidents, want 3", len(incs))
	}
	if _, err := b.GetProduct(context.Background(), 42); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("GetProduct(42) error = %v, want ErrProductNotFound", err)
	}
}

func TestOpenCatalog_SQLite(t *testing.T) {
	cfg := &config.CatalogConfig{Backend: config.CatalogSQLite, DSN: filepath.Join(t.TempDir(), "c.db")}
	b, err := openCatalog(context.Background(), cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("openCatalog: %v", err)
	}
	defer b.close()
	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CatalogConfig
		want string
	}{
		{"redis without store", config.CatalogConfig{Backend: config.CatalogRedis}, "requires database.addrs"},
		{"unknown backend", config.CatalogConfig{Backend: "mongo"}, "unknown catalog backend"},
		{"missing dataset", config.CatalogConfig{Backend: config.CatalogMemory, Path: "nope.yaml"}, "load dataset"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := openCatalog(context.Background(), &tc.cfg, nil, zap.NewNop())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"internal_error"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestJSONRecoverer_RepanicsOnAbort(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler { //nolint:errorlint // identity check
			t.Errorf("recovered %v, want http.ErrAbortHandler", rvr)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestWideEventMiddleware_EchoesRequestID(t *testing.T) {
	var called bool
	h := chiMiddleware.RequestID(wideEventMiddleware(zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.Header().Set("X-Oracle-Tokens", "42")
			w.WriteHeader(http.StatusNoContent)
		})))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not called")
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("X-Request-ID = %q, want req-1", got)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}
