// Package interview orchestrates interview sessions on top of the gateway:
// it admits callers, asks for questions, scores submitted answers, and
// persists the outcome.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/interview-gateway/internal/analytics"
	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

const (
	operationStart  = "start_interview"
	operationSubmit = "submit_answers"
)

// persistTimeout bounds writes that happen after the gateway returns.
const persistTimeout = 5 * time.Second

// StartRequest begins a new session.
type StartRequest struct {
	UserID     string `json:"-"`
	Role       string `json:"role"`
	Difficulty string `json:"difficulty"`
}

// SubmitRequest answers an in-progress session.
type SubmitRequest struct {
	UserID    string           `json:"-"`
	SessionID string           `json:"-"`
	Answers   domain.AnswerSet `json:"answers"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides the session ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// Service runs the interview lifecycle.
type Service struct {
	store   ports.SessionStore
	policy  ports.AdmissionPolicy
	gateway ports.EvaluationGateway
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewService wires a Service from its collaborators.
func NewService(store ports.SessionStore, policy ports.AdmissionPolicy, gateway ports.EvaluationGateway, opts ...Option) *Service {
	s := &Service{
		store:   store,
		policy:  policy,
		gateway: gateway,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the request, admits the caller, generates questions and
// stores a new in-progress session.
func (s *Service) Start(ctx context.Context, req StartRequest) (*domain.Session, error) {
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return nil, domain.ErrInvalidRequest("role is required")
	}
	difficulty, ok := domain.ParseDifficulty(req.Difficulty)
	if !ok {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("difficulty must be easy, medium, or hard, got %q", req.Difficulty)).
			WithCode(domain.ErrorCodeInvalidDifficulty)
	}

	if err := s.admit(ctx, req.UserID, operationStart); err != nil {
		return nil, err
	}

	result, err := s.gateway.GenerateQuestions(ctx, role, string(difficulty))
	if err != nil {
		return nil, s.gatewayError(ctx, operationStart, err)
	}

	sess := &domain.Session{
		ID:                s.newID(),
		UserID:            req.UserID,
		Role:              role,
		Difficulty:        difficulty,
		Status:            domain.SessionInProgress,
		Questions:         result.Payload,
		QuestionsFallback: result.UsedFallback,
		QuestionsModel:    result.ModelIdentifier,
		CreatedAt:         s.now(),
	}

	persistCtx, cancel := persistenceContext(ctx)
	defer cancel()
	if err := s.store.CreateSession(persistCtx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to create session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrServer("failed to store session").WithCause(err)
	}

	s.logger.InfoContext(ctx, "interview started",
		slog.String("session_id", sess.ID),
		slog.String("role", role),
		slog.String("difficulty", string(difficulty)),
		slog.Bool("used_fallback", result.UsedFallback),
	)
	return sess, nil
}

// Submit evaluates the answers for an in-progress session and completes it.
// A per-question mismatch from the provider leaves the session in progress
// so the caller may retry.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Session, error) {
	sess, err := s.owned(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionInProgress {
		return nil, domain.ErrConflict("interview already completed")
	}
	if len(req.Answers) != len(sess.Questions) {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("expected %d answers, got %d", len(sess.Questions), len(req.Answers))).
			WithCode(domain.ErrorCodeAnswerCountMismatch)
	}

	if err := s.admit(ctx, req.UserID, operationSubmit); err != nil {
		return nil, err
	}

	result, err := s.gateway.Evaluate(ctx, sess.Role, string(sess.Difficulty), sess.Questions, req.Answers)
	if err != nil {
		return nil, s.gatewayError(ctx, operationSubmit, err)
	}

	eval := result.Payload
	overall := eval.Overall()
	sess.Answers = req.Answers
	sess.Evaluation = eval
	sess.EvaluationFallback = result.UsedFallback
	sess.EvaluationModel = result.ModelIdentifier
	sess.OverallScore = &overall
	sess.BestQuestionIndex, sess.WorstQuestionIndex = bestAndWorst(eval.PerQuestion)
	completedAt := s.now()
	sess.CompletedAt = &completedAt

	persistCtx, cancel := persistenceContext(ctx)
	defer cancel()
	if err := s.store.CompleteSession(persistCtx, sess); err != nil {
		switch {
		case errors.Is(err, ports.ErrSessionNotInProgress):
			return nil, domain.ErrConflict("interview already completed").WithCause(err)
		case errors.Is(err, ports.ErrSessionNotFound):
			return nil, domain.ErrNotFound("interview not found").WithCause(err)
		}
		s.logger.ErrorContext(ctx, "failed to complete session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrServer("failed to store evaluation").WithCause(err)
	}

	s.logger.InfoContext(ctx, "interview completed",
		slog.String("session_id", sess.ID),
		slog.Int("overall_score", overall),
		slog.Bool("used_fallback", result.UsedFallback),
	)
	return sess, nil
}

// Get returns a session owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Session, error) {
	return s.owned(ctx, userID, id)
}

// Analytics summarizes the caller's completed sessions.
func (s *Service) Analytics(ctx context.Context, userID string) (domain.AnalyticsSummary, error) {
	if userID == "" {
		return domain.AnalyticsSummary{}, domain.ErrAuthentication("analytics require a user identity")
	}

	sessions, err := s.store.ListCompletedSessions(ctx, userID)
	if err != nil {
		return domain.AnalyticsSummary{}, domain.ErrServer("failed to load sessions").WithCause(err)
	}

	history := make([]domain.HistoricalSession, len(sessions))
	for i, sess := range sessions {
		history[i] = sess.Historical()
	}
	return analytics.Summarize(history), nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return nil, domain.ErrNotFound("interview not found").WithCause(err)
	}
	if err != nil {
		return nil, domain.ErrServer("failed to load session").WithCause(err)
	}
	if sess.UserID != userID {
		return nil, domain.ErrPermission("interview belongs to another user")
	}
	return sess, nil
}

func (s *Service) admit(ctx context.Context, userID, operation string) error {
	decision, err := s.policy.CheckRequest(ctx, &ports.PolicyRequest{UserID: userID, Operation: operation})
	if err != nil {
		return domain.ErrServer("admission check failed").WithCause(err)
	}
	if decision.Allow {
		return nil
	}

	apiErr := domain.ErrRateLimit(decision.Reason).WithRetryAfter(decision.RetryAfter)
	apiErr.RateLimit = decision.RateLimitInfo
	return apiErr
}

// gatewayError maps the errors the gateway does not absorb into fallback.
func (s *Service) gatewayError(ctx context.Context, operation string, err error) error {
	var (
		configErr *domain.ConfigurationError
		validErr  *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrPerQuestionMismatch):
		return domain.NewAPIError(domain.ErrorTypeEvaluation, "evaluation did not score every answer").
			WithCode(domain.ErrorCodePerQuestionMismatch).
			WithCause(err)
	case errors.As(err, &configErr):
		s.logger.ErrorContext(ctx, "provider not configured",
			slog.String("operation", operation),
			slog.String("key", configErr.Key),
		)
		return domain.NewAPIError(domain.ErrorTypeConfiguration, "evaluation service is not configured").
			WithCode(domain.ErrorCodeMissingCredential).
			WithCause(err)
	case errors.As(err, &validErr):
		return domain.ErrInvalidRequest(validErr.Error()).WithCause(err)
	default:
		s.logger.ErrorContext(ctx, "gateway call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return domain.ErrServer("internal error").WithCause(err)
	}
}

// bestAndWorst returns the indices of the highest and lowest scoring
// answers. The first occurrence wins ties.
func bestAndWorst(scores []domain.PerQuestionScore) (best, worst *int) {
	if len(scores) == 0 {
		return nil, nil
	}
	b, w := 0, 0
	for i := 1; i < len(scores); i++ {
		m := scores[i].Mean()
		if m > scores[b].Mean() {
			b = i
		}
		if m < scores[w].Mean() {
			w = i
		}
	}
	return &b, &w
}

// persistenceContext detaches store writes from request cancellation so a
// client disconnect after evaluation does not drop the result.
func persistenceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
