package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

type rateLimitContextKey struct{}

// rateLimitSlot is filled by handlers and read when headers are written.
type rateLimitSlot struct {
	mu   sync.Mutex
	info *domain.RateLimitInfo
}

// SetRateLimits records the caller's admission budget so
// RateLimitHeadersMiddleware can emit it. No-op without the middleware.
func SetRateLimits(ctx context.Context, info *domain.RateLimitInfo) {
	if slot, ok := ctx.Value(rateLimitContextKey{}).(*rateLimitSlot); ok {
		slot.mu.Lock()
		slot.info = info
		slot.mu.Unlock()
	}
}

// GetRateLimits returns the budget recorded for this request, if any.
func GetRateLimits(ctx context.Context) *domain.RateLimitInfo {
	if slot, ok := ctx.Value(rateLimitContextKey{}).(*rateLimitSlot); ok {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		return slot.info
	}
	return nil
}

// RateLimitHeadersMiddleware writes x-ratelimit-*-requests headers from
// the budget recorded with SetRateLimits, just before the response header
// is sent.
func RateLimitHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := &rateLimitSlot{}
		ctx := context.WithValue(r.Context(), rateLimitContextKey{}, slot)
		wrapped := &rateLimitResponseWriter{ResponseWriter: w, slot: slot}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

type rateLimitResponseWriter struct {
	http.ResponseWriter
	slot         *rateLimitSlot
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	rw.writeRateLimitHeaders()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	rw.writeRateLimitHeaders()
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	if rw.wroteHeaders {
		return
	}
	rw.wroteHeaders = true

	rw.slot.mu.Lock()
	rl := rw.slot.info
	rw.slot.mu.Unlock()
	if rl == nil || rl.Limit <= 0 {
		return
	}

	h := rw.Header()
	h.Set("x-ratelimit-limit-requests", strconv.Itoa(rl.Limit))
	h.Set("x-ratelimit-remaining-requests", strconv.Itoa(rl.Remaining))
	if rl.ResetAt > 0 {
		h.Set("x-ratelimit-reset-requests", time.Unix(rl.ResetAt, 0).UTC().Format(time.RFC3339))
	}
}
