package ports

import (
	"context"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

// Provider is an external text-generation service.
// Implementations: OpenAI and OpenAI-compatible endpoints.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single-turn JSON-mode generation request.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries the raw text produced by the provider.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AdmissionPolicy gates access to the gateway.
// Implementations: basic (no limits), sliding window per user.
type AdmissionPolicy interface {
	TryAdmit(userID string) bool
	CheckRequest(ctx context.Context, req *PolicyRequest) (*PolicyDecision, error)
}

// PolicyRequest contains request context for admission checks.
type PolicyRequest struct {
	UserID    string
	Operation string
}

// PolicyDecision is the result of an admission check.
type PolicyDecision struct {
	Allow         bool
	Reason        string
	RetryAfter    int // seconds
	RateLimitInfo *domain.RateLimitInfo
}

// EvaluationGateway produces questions and evaluations, falling back to
// local heuristics when the provider path fails.
type EvaluationGateway interface {
	GenerateQuestions(ctx context.Context, role, difficulty string) (*domain.GatewayResult[domain.QuestionSet], error)
	Evaluate(ctx context.Context, role, difficulty string, questions domain.QuestionSet, answers domain.AnswerSet) (*domain.GatewayResult[*domain.Evaluation], error)
}
