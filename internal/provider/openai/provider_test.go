package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
	"github.com/tjfontaine/interview-gateway/internal/testutil"
)

func TestProvider_Complete(t *testing.T) {
	// Skip if no API key and recording
	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("VCR_MODE") == "record" {
		t.Skip("Skipping test: OPENAI_API_KEY not set")
	}

	recorder, cleanup := testutil.NewVCRRecorder(t, "openai_complete")
	defer cleanup()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = "test-key"
	}

	p := New(apiKey, WithHTTPClient(testutil.VCRHTTPClient(recorder)))

	resp, err := p.Complete(context.Background(), &ports.CompletionRequest{
		System:      "You generate interview questions.",
		User:        "Role: backend developer. Difficulty: medium.",
		MaxTokens:   400,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if !strings.Contains(resp.Content, `"questions"`) {
		t.Errorf("Content = %q, want questions payload", resp.Content)
	}
	if resp.Model != "gpt-4o-mini-2024-07-18" {
		t.Errorf("Model = %q, want gpt-4o-mini-2024-07-18", resp.Model)
	}
	if resp.Usage.TotalTokens != 129 {
		t.Errorf("Usage.TotalTokens = %d, want 129", resp.Usage.TotalTokens)
	}
}

func TestProvider_Complete_Failures(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantReason    string
		wantRetryable bool
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
			wantReason:    "status 500",
			wantRetryable: true,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
			},
			wantReason: "status 400",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"model":"m","choices":[]}`))
			},
			wantReason: "no choices in response",
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"model":"m","choices":[{"message":{"role":"assistant","content":"  "}}]}`))
			},
			wantReason: "empty content",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"model":`))
			},
			wantReason: "request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := New("sk-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := p.Complete(context.Background(), &ports.CompletionRequest{User: "hi"})

			var pe *domain.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *domain.ProviderError", err)
			}
			if pe.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", pe.Reason, tt.wantReason)
			}
			if pe.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", pe.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestProvider_Complete_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := New("sk-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Complete(ctx, &ports.CompletionRequest{User: "hi"})

	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *domain.ProviderError", err)
	}
	if pe.Reason != "timeout" {
		t.Errorf("Reason = %q, want timeout", pe.Reason)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is(err, context.DeadlineExceeded)")
	}
}

func TestProvider_FallsBackToConfiguredModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	p := New("", WithBaseURL(srv.URL), WithModel("llama3"), WithHTTPClient(srv.Client()))
	resp, err := p.Complete(context.Background(), &ports.CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Model != "llama3" {
		t.Errorf("Model = %q, want llama3", resp.Model)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		wantKey string
	}{
		{"openai with key", config.ProviderConfig{Type: "openai", APIKey: "sk"}, ""},
		{"openai without key", config.ProviderConfig{Type: "openai"}, "provider.api_key"},
		{"compatible without key", config.ProviderConfig{Type: "openai-compatible", BaseURL: "http://localhost:11434/v1"}, ""},
		{"compatible without base url", config.ProviderConfig{Type: "openai-compatible"}, "provider.base_url"},
		{"unknown type", config.ProviderConfig{Type: "gemini", APIKey: "k"}, "provider.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("ValidateConfig() error = %v", err)
				}
				return
			}
			var ce *domain.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *domain.ConfigurationError", err)
			}
			if ce.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", ce.Key, tt.wantKey)
			}
		})
	}
}

func TestCreateFromConfig(t *testing.T) {
	p, err := CreateFromConfig(config.ProviderConfig{Type: "openai", APIKey: "sk", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("CreateFromConfig() error = %v", err)
	}
	if got := p.(*Provider).model; got != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", got)
	}
}
