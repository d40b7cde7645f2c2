// Package openai adapts an OpenAI-compatible chat completions endpoint to
// ports.Provider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	openaiapi "github.com/tjfontaine/interview-gateway/internal/api/openai"
	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithModel sets the model requested on every call.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// Provider implements ports.Provider in JSON mode.
type Provider struct {
	client     *openaiapi.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// New creates a new OpenAI provider. The default HTTP client is
// instrumented with otelhttp and carries no timeout of its own; callers
// bound each attempt with a context deadline.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}

	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		p.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	clientOpts := []openaiapi.ClientOption{openaiapi.WithHTTPClient(p.httpClient)}
	if p.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(p.baseURL))
	}

	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

// Complete sends one chat completion. Every failure is a *domain.ProviderError.
func (p *Provider) Complete(ctx context.Context, req *ports.CompletionRequest) (*ports.CompletionResponse, error) {
	temp := req.Temperature
	apiReq := &openaiapi.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaiapi.ChatCompletionMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:      req.MaxTokens,
		Temperature:    &temp,
		ResponseFormat: openaiapi.ResponseFormatJSONObject,
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &domain.ProviderError{Reason: "no choices in response"}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, &domain.ProviderError{Reason: "empty content"}
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return &ports.CompletionResponse{
		Content: content,
		Model:   model,
		Usage: ports.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func classify(ctx context.Context, err error) error {
	var apiErr *openaiapi.APIError
	switch {
	case errors.As(err, &apiErr):
		return &domain.ProviderError{Reason: fmt.Sprintf("status %d", apiErr.StatusCode), Err: err, Retryable: apiErr.Retryable()}
	case ctx.Err() != nil:
		return &domain.ProviderError{Reason: "timeout", Err: ctx.Err(), Retryable: true}
	default:
		return &domain.ProviderError{Reason: "request failed", Err: err}
	}
}
