package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddlewareIP(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		IPRequestsPerSecond:   1,
		IPBurst:               2,
		BlockDuration:         time.Minute,
		CallerWritesPerSecond: 1,
		CallerBurst:           1,
		CleanupInterval:       time.Minute,
		BucketTTL:             time.Hour,
	}, metrics.NewCollector(prometheus.NewRegistry()))
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			require.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{200, 200, 429}, codes)

	// Another IP has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, 1, rl.GetStats().BlockedBuckets)
}

func TestRateLimitMiddlewareCallerWrites(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.CallerBurst = 1
	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(okHandler())
	do := func(method string) int {
		req := httptest.NewRequest(method, "/v1/stake", nil)
		req.Header.Set(CallerHeader, "cosmos1caller")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do(http.MethodPost))
	require.Equal(t, http.StatusTooManyRequests, do(http.MethodPost))
	// Reads are only IP limited
	require.Equal(t, http.StatusOK, do(http.MethodGet))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	defer rl.Stop()

	rl.AllowIP("10.0.0.1")
	rl.AllowCallerWrite("cosmos1caller")
	require.Equal(t, 2, rl.GetStats().TotalBuckets)

	rl.cleanup(time.Now())
	require.Equal(t, 2, rl.GetStats().TotalBuckets)

	rl.cleanup(time.Now().Add(2 * time.Hour))
	require.Equal(t, 0, rl.GetStats().TotalBuckets)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "1.2.3.4"}, "9.9.9.9:1", "1.2.3.4"},
		{"remote", nil, "9.9.9.9:1", "9.9.9.9"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		for k, v := range tt.headers {
			req.Header.Set(k, v)
		}
		if got := GetClientIP(req); got != tt.want {
			t.Errorf("%s: GetClientIP() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRequestIDAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	var seen string
	r := mux.NewRouter()
	r.Use(RequestID, Logging(nil, collector))
	r.HandleFunc("/v1/pools/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/pools/7", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/v1/pools/8", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "fixed", seen)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "stakeledger_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["path"] == "/v1/pools/{id}" && labels["status"] == "404" {
				found = true
				require.Equal(t, float64(2), m.GetCounter().GetValue())
			}
		}
	}
	require.True(t, found)
}
