package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/services/health"
	"pet-triage-backend/internal/shared/auth"
	"pet-triage-backend/internal/shared/config"
)

func newTestRouter(t *testing.T) (http.Handler, *auth.Verifier) {
	t.Helper()
	verifier, err := auth.NewVerifier("test-secret", "", "dev")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	cfg := config.Config{Env: "dev"}
	cfg.RateLimit.AnalyzePerMinute = 6
	cfg.RateLimit.Burst = 3
	r := NewRouter(RouterDeps{
		Config:         cfg,
		Verifier:       verifier,
		Health:         health.NewService(health.Credentials{}),
		RecordsHandler: records.NewHandler(records.NewService(records.NewMemoryRepo()), nil),
	})
	return r, verifier
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	r, verifier := newTestRouter(t)

	tests := []struct {
		name   string
		path   string
		token  bool
		status int
	}{
		{"liveness is public", "/api/v1/health", false, http.StatusOK},
		{"config check is public", "/api/v1/health/config", false, http.StatusServiceUnavailable},
		{"metrics is public", "/metrics", false, http.StatusOK},
		{"history needs a token", "/api/v1/analyses", false, http.StatusUnauthorized},
		{"history with token", "/api/v1/analyses", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token {
				tok, err := verifier.Sign("owner-1", auth.Claims{})
				if err != nil {
					t.Fatalf("Sign: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if w.Header().Get("X-Request-Id") == "" {
				t.Fatalf("missing request id header")
			}
		})
	}
}

func TestRateLimitGroupOnlyCoversSubmissions(t *testing.T) {
	r, verifier := newTestRouter(t)
	tok, _ := verifier.Sign("owner-1", auth.Claims{})
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("history reads must not be rate limited")
		}
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
