// Package gateway calls the text-generation provider under a hard timeout
// and falls back to local heuristics whenever that path fails.
//
// Each call makes exactly one provider attempt. The attempt races a timer;
// if the timer wins, the attempt's eventual result is discarded. Provider
// errors, timeouts, and payloads the normalizer rejects all produce a
// fallback result with UsedFallback set. Two conditions are returned as
// errors instead: provider configuration errors, and evaluations whose
// perQuestion length does not match the question count.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/fallback"
	"github.com/tjfontaine/interview-gateway/internal/normalize"
	"github.com/tjfontaine/interview-gateway/internal/tokens"
)

// DefaultTimeout bounds a single provider attempt.
const DefaultTimeout = 9000 * time.Millisecond

const (
	operationQuestions  = "generate_questions"
	operationEvaluation = "evaluate"
)

const tracerName = "github.com/tjfontaine/interview-gateway/internal/gateway"

// initializer is implemented by providers with deferred construction.
type initializer interface {
	Init() (ports.Provider, error)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithFallback sets the heuristic engine.
func WithFallback(e *fallback.Engine) Option {
	return func(c *Client) {
		c.fallback = e
	}
}

// WithTokenCounter sets the prompt token counter.
func WithTokenCounter(counter *tokens.Counter) Option {
	return func(c *Client) {
		c.counter = counter
	}
}

// WithModel sets the model name used for token accounting.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the sampling temperature sent to the provider.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// Client is the resilient gateway to the provider.
type Client struct {
	provider    ports.Provider
	fallback    *fallback.Engine
	counter     *tokens.Counter
	logger      *slog.Logger
	tracer      trace.Tracer
	timeout     time.Duration
	model       string
	temperature float64
}

var _ ports.EvaluationGateway = (*Client)(nil)

// New creates a Client for provider.
func New(provider ports.Provider, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		timeout:     DefaultTimeout,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == nil {
		c.fallback = fallback.New(nil)
	}
	if c.counter == nil {
		c.counter = tokens.NewCounter()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// GenerateQuestions returns five questions for role and difficulty. The
// error is non-nil only for provider configuration errors.
func (c *Client) GenerateQuestions(ctx context.Context, role, difficulty string) (*domain.GatewayResult[domain.QuestionSet], error) {
	d := normalizeDifficulty(difficulty)

	ctx, span := c.tracer.Start(ctx, "gateway.GenerateQuestions", trace.WithAttributes(
		attribute.String("interview.role", role),
		attribute.String("interview.difficulty", string(d)),
	))
	defer span.End()

	p := questionsPrompt(role, d)
	resp, err := c.attempt(ctx, span, p)
	if err == nil {
		var questions domain.QuestionSet
		if questions, err = normalize.Questions(resp.Content); err == nil {
			span.SetAttributes(attribute.Bool("gateway.used_fallback", false), attribute.String("gateway.model", resp.Model))
			return &domain.GatewayResult[domain.QuestionSet]{Payload: questions, ModelIdentifier: resp.Model}, nil
		}
	}

	if isConfigurationError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider configuration")
		return nil, err
	}

	c.logFallback(ctx, operationQuestions, role, d, err)
	span.SetAttributes(attribute.Bool("gateway.used_fallback", true))

	return &domain.GatewayResult[domain.QuestionSet]{
		Payload:      c.fallback.Questions(role, string(d)),
		UsedFallback: true,
	}, nil
}

// Evaluate scores answers against questions. The error is non-nil for
// provider configuration errors, for answers that do not line up with the
// questions, and for provider evaluations with the wrong number of
// perQuestion entries (wrapping domain.ErrPerQuestionMismatch).
func (c *Client) Evaluate(ctx context.Context, role, difficulty string, questions domain.QuestionSet, answers domain.AnswerSet) (*domain.GatewayResult[*domain.Evaluation], error) {
	if len(answers) != len(questions) {
		return nil, &domain.ValidationError{
			Field:  "answers",
			Reason: fmt.Sprintf("got %d answers for %d questions", len(answers), len(questions)),
		}
	}

	d := normalizeDifficulty(difficulty)

	ctx, span := c.tracer.Start(ctx, "gateway.Evaluate", trace.WithAttributes(
		attribute.String("interview.role", role),
		attribute.String("interview.difficulty", string(d)),
		attribute.Int("interview.question_count", len(questions)),
	))
	defer span.End()

	p := evaluationPrompt(role, d, questions, answers)
	resp, err := c.attempt(ctx, span, p)
	if err == nil {
		var eval *domain.Evaluation
		if eval, err = normalize.Evaluation(resp.Content, len(questions)); err == nil {
			span.SetAttributes(attribute.Bool("gateway.used_fallback", false), attribute.String("gateway.model", resp.Model))
			return &domain.GatewayResult[*domain.Evaluation]{Payload: eval, ModelIdentifier: resp.Model}, nil
		}
		if errors.Is(err, domain.ErrPerQuestionMismatch) {
			c.logger.ErrorContext(ctx, "evaluation rejected",
				slog.String("operation", operationEvaluation),
				slog.String("role", role),
				slog.String("difficulty", string(d)),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "per-question mismatch")
			return nil, fmt.Errorf("evaluate: %w", err)
		}
	}

	if isConfigurationError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider configuration")
		return nil, err
	}

	c.logFallback(ctx, operationEvaluation, role, d, err)
	span.SetAttributes(attribute.Bool("gateway.used_fallback", true))

	return &domain.GatewayResult[*domain.Evaluation]{
		Payload:      c.fallback.Evaluation(answers),
		UsedFallback: true,
	}, nil
}

type completion struct {
	resp *ports.CompletionResponse
	err  error
}

// attempt makes the single provider call and races it against the timeout.
func (c *Client) attempt(ctx context.Context, span trace.Span, p prompt) (*ports.CompletionResponse, error) {
	if lazy, ok := c.provider.(initializer); ok {
		if _, err := lazy.Init(); err != nil {
			return nil, err
		}
	}

	count := c.counter.CountPrompt(c.model, p.system, p.user)
	span.SetAttributes(
		attribute.Int("gateway.prompt_tokens", count.Tokens),
		attribute.Bool("gateway.prompt_tokens_estimated", count.Estimated),
		attribute.Int("gateway.max_tokens", p.maxTokens),
	)
	c.logger.DebugContext(ctx, "provider attempt",
		slog.String("provider", c.provider.Name()),
		slog.Int("prompt_tokens", count.Tokens),
		slog.Int("max_tokens", p.maxTokens),
	)

	req := &ports.CompletionRequest{
		System:      p.system,
		User:        p.user,
		MaxTokens:   p.maxTokens,
		Temperature: c.temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Buffered so a late result never blocks the abandoned goroutine.
	done := make(chan completion, 1)
	start := time.Now()
	go func() {
		resp, err := c.provider.Complete(ctx, req)
		done <- completion{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		span.SetAttributes(attribute.Int64("gateway.provider_ms", time.Since(start).Milliseconds()))
		if r.err != nil {
			return nil, r.err
		}
		if r.resp == nil {
			return nil, &domain.ProviderError{Reason: "empty response"}
		}
		usage := r.resp.Usage
		span.SetAttributes(
			attribute.Int("gateway.usage.prompt_tokens", usage.PromptTokens),
			attribute.Int("gateway.usage.completion_tokens", usage.CompletionTokens),
		)
		c.logger.DebugContext(ctx, "provider completed",
			slog.String("model", r.resp.Model),
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Int("total_tokens", usage.TotalTokens),
		)
		return r.resp, nil
	case <-ctx.Done():
		return nil, &domain.ProviderError{Reason: "timeout", Err: ctx.Err(), Retryable: true}
	}
}

func (c *Client) logFallback(ctx context.Context, operation, role string, difficulty domain.Difficulty, err error) {
	c.logger.WarnContext(ctx, "provider path failed, using fallback",
		slog.String("operation", operation),
		slog.String("role", role),
		slog.String("difficulty", string(difficulty)),
		slog.String("reason", failureReason(err)),
		slog.Bool("retryable", retryable(err)),
		slog.String("error", errString(err)),
	)
}

func retryable(err error) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && (pe.Retryable || pe.Reason == "timeout")
}

func failureReason(err error) string {
	var pe *domain.ProviderError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &pe) && pe.Reason == "timeout":
		return "timeout"
	case errors.As(err, &pe):
		return "provider_error"
	case errors.As(err, &ve):
		return "validation_error"
	default:
		return "provider_error"
	}
}

func isConfigurationError(err error) bool {
	var ce *domain.ConfigurationError
	return errors.As(err, &ce)
}

func normalizeDifficulty(s string) domain.Difficulty {
	if d, ok := domain.ParseDifficulty(s); ok {
		return d
	}
	return domain.DifficultyEasy
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
