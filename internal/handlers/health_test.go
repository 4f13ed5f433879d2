package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opsledger/bizcontext/internal/database"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

// unreachableDB returns a pool that fails on first use. The pool is opened
// lazily, so construction succeeds without a server.
func unreachableDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close pool: %v", err)
		}
	})
	return &database.DB{DB: db}
}

func TestHealthCheckBasic(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(unreachableDB(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	checker.HealthCheck(rr, req)

	// Basic mode reports liveness without touching dependencies.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("expected no checks in basic mode, got %v", resp.Checks)
	}
}

func TestHealthCheckExtendedDatabaseDown(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(unreachableDB(t), stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil)
	rr := httptest.NewRecorder()
	checker.HealthCheck(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", resp.Status)
	}
	if !strings.HasPrefix(resp.Checks["database"], "unhealthy") {
		t.Errorf("expected database check to fail, got %q", resp.Checks["database"])
	}
	if resp.Checks["cache"] != "healthy" {
		t.Errorf("expected cache check to pass, got %q", resp.Checks["cache"])
	}
}

func TestHealthCheckExtendedCacheDown(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(unreachableDB(t), stubPinger{err: errors.New("redis unreachable")})
	req := httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil)
	rr := httptest.NewRecorder()
	checker.HealthCheck(rr, req)

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Checks["cache"], "unhealthy") {
		t.Errorf("expected cache check to fail, got %q", resp.Checks["cache"])
	}
}
