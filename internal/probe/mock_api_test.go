// internal/probe/mock_api_test.go
package probe

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockAPI mimics the backend under test. Each field toggles one deviation from
// the contract so tests can break exactly one property at a time.
type mockAPI struct {
	healthBody      string
	readyStatus     int
	readyBody       string
	omitAllowMethod bool
	omitFrameOpts   bool
	failAfter       int32
	throttleAfter   int32

	healthHits  atomic.Int32
	limitedHits atomic.Int32
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		healthBody:  `{"status":"healthy","timestamp":"2026-10-19T12:00:00Z","uptime":1}`,
		readyStatus: http.StatusOK,
		readyBody:   `{"status":"ready","checks":{"database":"ok"},"timestamp":"2026-10-19T12:00:00Z"}`,
		failAfter:   -1,
	}
}

func (m *mockAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			if !m.omitFrameOpts {
				w.Header().Set("X-Frame-Options", "DENY")
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		n := m.healthHits.Add(1)
		if m.failAfter >= 0 && n > m.failAfter {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(m.healthBody))
	})
	r.Options("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if !m.omitAllowMethod {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.readyStatus)
		_, _ = w.Write([]byte(m.readyBody))
	})
	r.Post("/api/scans", func(w http.ResponseWriter, req *http.Request) {
		if m.throttleAfter > 0 && m.limitedHits.Add(1) > m.throttleAfter {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/api/scans", func(w http.ResponseWriter, req *http.Request) {
		if m.throttleAfter > 0 && m.limitedHits.Add(1) > m.throttleAfter {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// start serves the mock and returns a probe aimed at it.
func (m *mockAPI) start(t *testing.T) *Probe {
	t.Helper()
	srv := httptest.NewServer(m.router())
	t.Cleanup(srv.Close)

	p, err := New(Options{BaseURL: srv.URL, Origin: "http://localhost:3000", UserAgent: "scalpel-e2e-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}
