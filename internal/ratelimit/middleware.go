package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/haulmatch/go-push-service/internal/metrics"
)

// deniedMessage matches what the frontend shows when an update is throttled.
const deniedMessage = "Location update rate limit exceeded. Please wait before sending another update."

// KeyFunc derives the limiter key from a request. Returning "" skips
// limiting for that request (e.g. key material missing; the handler will
// reject it anyway).
type KeyFunc func(r *http.Request) string

// statusRecorder captures the handler's final status so the middleware can
// refund the limiter slot for failed requests.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware gates a handler behind the limiter. Denials answer 429 with a
// JSON body. Only requests that pass through the gate AND complete with a
// 2xx count against the limit; a non-2xx outcome refunds the slot, as does
// the denial's own increment.
func Middleware(limiter *Limiter, keyFn KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "RateLimitMiddleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Check(r.Context(), key)
			if err != nil {
				// Counter store down. Admit rather than turning a cache
				// outage into a tracking outage.
				logger.Error("Rate limit store unavailable; admitting request", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			metrics.ObserveRateLimitDecision(decision.Allowed)
			writeRateHeaders(w, decision)

			if !decision.Allowed {
				if err := limiter.Undo(r.Context(), key); err != nil {
					logger.Warn("Failed to refund denied request", "key", key, "err", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": deniedMessage,
				})
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				if err := limiter.Undo(r.Context(), key); err != nil {
					logger.Warn("Failed to refund failed request", "key", key, "err", err)
				}
			}
		})
	}
}

func writeRateHeaders(w http.ResponseWriter, d Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
