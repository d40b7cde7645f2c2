package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

func TestRateLimitHeadersMiddleware(t *testing.T) {
	reset := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRateLimits(r.Context(), &domain.RateLimitInfo{Limit: 5, Remaining: 0, ResetAt: reset.Unix()})
		w.WriteHeader(http.StatusTooManyRequests)
	})

	rec := httptest.NewRecorder()
	RateLimitHeadersMiddleware(handler).ServeHTTP(rec, httptest.NewRequest("POST", "/v1/interviews", nil))

	checkHeader(t, rec, "x-ratelimit-limit-requests", "5")
	checkHeader(t, rec, "x-ratelimit-remaining-requests", "0")
	checkHeader(t, rec, "x-ratelimit-reset-requests", "2025-01-01T00:01:00Z")
}

func TestRateLimitHeadersMiddleware_NoRateLimits(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	RateLimitHeadersMiddleware(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"x-ratelimit-limit-requests", "x-ratelimit-remaining-requests", "x-ratelimit-reset-requests"} {
		if v := rec.Header().Get(h); v != "" {
			t.Errorf("%s = %q, want unset", h, v)
		}
	}
}

func TestSetRateLimits_WithoutMiddleware(t *testing.T) {
	ctx := context.Background()
	SetRateLimits(ctx, &domain.RateLimitInfo{Limit: 1})
	if got := GetRateLimits(ctx); got != nil {
		t.Errorf("GetRateLimits() = %+v, want nil", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})
	wrapped := RequestIDMiddleware(handler)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request ID context=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec2, httptest.NewRequest("GET", "/", nil))
	if rec2.Header().Get(RequestIDHeader) == seen {
		t.Error("expected unique request IDs")
	}
}

func TestRequestIDMiddleware_Inbound(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"valid uuid", "6f1c2a64-0a3e-4c55-9d0c-2b8f5f3c9e11", true},
		{"not a uuid", "abc; drop table", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			RequestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if (got == tt.inbound) != tt.reuse {
				t.Errorf("X-Request-ID = %q, inbound %q, reuse=%v", got, tt.inbound, tt.reuse)
			}
		})
	}
}

func TestGetRequestID_NotSet(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	cancelled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Error("expected context deadline")
		}
		select {
		case <-r.Context().Done():
			cancelled = true
		case <-time.After(time.Second):
		}
	})

	TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !cancelled {
		t.Error("expected context to be cancelled by timeout")
	}
}

func TestIdentityMiddleware(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"user-42", "user-42"},
		{"  user-42 ", "user-42"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		var got string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = UserID(r.Context())
		})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(UserIDHeader, tt.header)

		IdentityMiddleware(handler).ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("UserID(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "session_id", "sess-1")
		AddLogField(r.Context(), "ignored", "")
		w.WriteHeader(http.StatusNotFound)
	})

	wrapped := RequestIDMiddleware(LoggingMiddleware(logger)(handler))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test-path", nil))

	output := buf.String()
	for _, want := range []string{"request started", "request completed", "/test-path", "status=404", "session_id=sess-1", "level=WARN"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "ignored") {
		t.Error("empty log field should be skipped")
	}
}

func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{201, slog.LevelInfo},
		{400, slog.LevelWarn},
		{429, slog.LevelWarn},
		{500, slog.LevelError},
		{503, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelForStatus(tt.status); got != tt.want {
			t.Errorf("levelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAddLogField_NoContext(t *testing.T) {
	// Should not panic
	AddLogField(context.Background(), "key", "value")
	AddError(context.Background(), nil)
}

func checkHeader(t *testing.T, rec *httptest.ResponseRecorder, name, want string) {
	t.Helper()
	if got := rec.Header().Get(name); got != want {
		t.Errorf("header %s = %q, want %q", name, got, want)
	}
}
