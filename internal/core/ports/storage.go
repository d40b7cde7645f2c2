package ports

import (
	"context"
	"errors"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

// Store errors.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotInProgress = errors.New("session is not in progress")
)

// SessionStore persists interview sessions.
// Implementations: SQLite (default), in-memory.
type SessionStore interface {
	// CreateSession stores a new in-progress session.
	CreateSession(ctx context.Context, s *domain.Session) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// CompleteSession records answers and the evaluation outcome. It fails
	// with ErrSessionNotInProgress if the session was already completed.
	CompleteSession(ctx context.Context, s *domain.Session) error

	// ListCompletedSessions returns a user's completed sessions, oldest first.
	ListCompletedSessions(ctx context.Context, userID string) ([]*domain.Session, error)

	Close() error
}
