package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/upb/wedding-platform/internal/shared"
	"github.com/upb/wedding-platform/services/ratelimit"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// RateLimiter consumes one request from a caller's budget
type RateLimiter interface {
	Allow(key string) ratelimit.Result
}

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimitMiddleware enforces per-caller request budgets. LimitByClient
// keys on client IP and runs before authentication; Limit keys on the
// authenticated user ID and falls back to client IP.
type RateLimitMiddleware struct {
	limiter  RateLimiter
	recorder RateLimitRecorder
	logger   *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. recorder may be nil.
func NewRateLimitMiddleware(limiter RateLimiter, recorder RateLimitRecorder, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
}

// Limit rejects requests over the caller's budget with 429 and a
// Retry-After header.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return m.limit(next, rateLimitKey)
}

// LimitByClient applies the budget per client IP, so requests with missing
// or forged credentials are throttled too.
func (m *RateLimitMiddleware) LimitByClient(next http.Handler) http.Handler {
	return m.limit(next, clientKey)
}

func (m *RateLimitMiddleware) limit(next http.Handler, keyFor func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := keyFor(r)

		res := m.limiter.Allow(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			if m.recorder != nil {
				m.recorder.RecordRateLimited()
			}
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			m.logger.Warn("request blocked by rate limit",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("key", key))
			_ = utils.WriteTooManyRequests(w, "", map[string]interface{}{
				"retry_after_seconds": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	return clientKey(r)
}

func clientKey(r *http.Request) string {
	if ip := shared.ClientFrom(r.Context()).IPAddress; ip != "" {
		return "ip:" + ip
	}
	return "ip:" + clientIP(r.RemoteAddr)
}
