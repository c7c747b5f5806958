package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayumi-support/kiroku-engine/internal/limiter"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates_id_when_absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get("X-Request-ID")
		if len(id) != 16 {
			t.Errorf("request id %q, want 16 hex chars", id)
		}
	})

	t.Run("preserves_caller_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "trace-42")
		rec := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "trace-42" {
			t.Errorf("request id %q", got)
		}
	})
}

func TestBearerAuth(t *testing.T) {
	mw := BearerAuth("secret-token")

	t.Run("valid_token_passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("wrong_token_is_rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer guess")
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("missing_header_is_rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("empty_token_disables_auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BearerAuth("")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status %d", rec.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	t.Run("preflight_short_circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		CORS(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
		if rec.Code != http.StatusNoContent || called {
			t.Errorf("status %d, next called %v", rec.Code, called)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing allow-origin header")
		}
	})
}

func TestRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	Recoverer(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("body %q", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("allows_then_blocks_with_headers", func(t *testing.T) {
		rl := limiter.NewRateLimiter(2, 15*time.Minute)
		h := RateLimit(rl)(okHandler())

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: status %d", i+1, rec.Code)
			}
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status %d", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After")
		}
	})

	t.Run("clients_are_counted_separately", func(t *testing.T) {
		rl := limiter.NewRateLimiter(1, 15*time.Minute)
		h := RateLimit(rl)(okHandler())

		a := httptest.NewRequest(http.MethodGet, "/", nil)
		a.Header.Set("X-Forwarded-For", "10.0.0.1")
		b := httptest.NewRequest(http.MethodGet, "/", nil)
		b.Header.Set("X-Forwarded-For", "10.0.0.2")

		for _, req := range []*http.Request{a, b} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("status %d for %s", rec.Code, req.Header.Get("X-Forwarded-For"))
			}
		}
	})
}

func TestClientKey(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote_addr_host", "192.0.2.10:54321", "", "192.0.2.10"},
		{"forwarded_single", "192.0.2.10:54321", "203.0.113.7", "203.0.113.7"},
		{"forwarded_chain_takes_first", "192.0.2.10:54321", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientKey(req); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
