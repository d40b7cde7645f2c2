// Package memory implements ports.SessionStore in process memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// Store is an in-memory implementation of ports.SessionStore. Sessions are
// copied on the way in and out so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

var _ ports.SessionStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
	}
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = domain.SessionInProgress
	}

	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ports.ErrSessionNotFound
	}
	return clone(sess), nil
}

func (s *Store) CompleteSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[sess.ID]
	if !exists {
		return ports.ErrSessionNotFound
	}
	if stored.Status != domain.SessionInProgress {
		return ports.ErrSessionNotInProgress
	}

	completedAt := time.Now()
	if sess.CompletedAt != nil {
		completedAt = *sess.CompletedAt
	}
	sess.Status = domain.SessionCompleted
	sess.CompletedAt = &completedAt

	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *Store) ListCompletedSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == domain.SessionCompleted {
			result = append(result, clone(sess))
		}
	}

	slices.SortFunc(result, func(a, b *domain.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) Close() error {
	return nil
}

func clone(sess *domain.Session) *domain.Session {
	c := *sess
	c.Questions = slices.Clone(sess.Questions)
	c.Answers = slices.Clone(sess.Answers)
	if sess.Evaluation != nil {
		e := *sess.Evaluation
		e.Strengths = slices.Clone(e.Strengths)
		e.AreasForImprovement = slices.Clone(e.AreasForImprovement)
		e.PerQuestion = slices.Clone(e.PerQuestion)
		c.Evaluation = &e
	}
	c.OverallScore = clonePtr(sess.OverallScore)
	c.BestQuestionIndex = clonePtr(sess.BestQuestionIndex)
	c.WorstQuestionIndex = clonePtr(sess.WorstQuestionIndex)
	c.CompletedAt = clonePtr(sess.CompletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
