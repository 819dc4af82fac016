// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
)

// mockAPI is a backend that honours the health contract unless told otherwise.
type mockAPI struct {
	unhealthy atomic.Bool
	hits      atomic.Int32
}

func newMockAPI(t *testing.T) (*mockAPI, *httptest.Server) {
	t.Helper()
	m := &mockAPI{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		m.hits.Add(1)
		if m.unhealthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","timestamp":"2026-10-19T12:00:00Z","uptime":42}`))
	})
	r.Options("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready","checks":{"database":"ok"},"timestamp":"2026-10-19T12:00:00Z"}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return m, srv
}

// result of one command execution.
type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the command tree with an optional fake browser launcher.
func run(t *testing.T, launcher browser.Launcher, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), newRootCommand(launcher), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// writeSuite writes a suite file to a temp dir and returns its path.
func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
