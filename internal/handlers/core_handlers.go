package handlers

import (
	"context"
	"net/http"
	"time"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"status":      "healthy",
			"server_time": time.Now(),
		}
		if s.Metrics != nil {
			payload["metrics"] = s.Metrics.Snapshot()
		}
		s.respondJSON(w, http.StatusOK, payload)
	}
}

// TimeoutMiddleware bounds every request context with the server's store
// timeout, so a stalled database surfaces as a retryable UNAVAILABLE instead
// of hanging the connection. Websocket upgrades are unaffected: the deadline
// stops mattering once the connection is hijacked.
func (s *Server) TimeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware counts requests and records per-route latency
func (s *Server) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		s.Metrics.IncrementRequests()
		next.ServeHTTP(w, r)
		s.Metrics.AddOperationLatency(r.Method+" "+r.URL.Path, time.Since(start))
	})
}
