package web

import (
	"net/http"
	"strconv"
	"time"
)

// statusRecorder captures the response code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrument records request counts and latency per route and logs slow paths.
func (h *Handler) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		if h.Metrics != nil {
			h.Metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			h.Metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		h.Logger.Debug("request", "route", route, "method", r.Method, "status", status, "elapsed", elapsed)
	})
}

// limitDownloads throttles the file download endpoints with a shared token
// bucket. A nil limiter means the limit is disabled.
func (h *Handler) limitDownloads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.downloadLimiter != nil && !h.downloadLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "download rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
