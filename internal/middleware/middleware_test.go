package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler(t *testing.T, called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
		assert.NotEmpty(t, trace)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestChain_Auth(t *testing.T) {
	chain := NewChain(config.Settings{AuthToken: "secret"})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/search", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			chain.Wrap(okHandler(t, &called))(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.want == http.StatusNoContent, called)
			assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
		})
	}
}

func TestChain_Bypass(t *testing.T) {
	chain := NewChain(config.Settings{NoAuthBypass: true})
	called := false
	rec := httptest.NewRecorder()
	chain.Wrap(okHandler(t, &called))(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestChain_KeepsCallerTrace(t *testing.T) {
	chain := NewChain(config.Settings{NoAuthBypass: true})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "abc-123")
	rec := httptest.NewRecorder()
	chain.Wrap(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc-123", r.Context().Value(config.TRACE_ID_KEY))
	})(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Trace-Id"))
}

func TestChain_RateLimit(t *testing.T) {
	chain := NewChain(config.Settings{NoAuthBypass: true}).WithLimiter(NewIPRateLimiter(rate.Limit(0.001), 2))
	h := chain.Wrap(func(w http.ResponseWriter, r *http.Request) {})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other addresses have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}
