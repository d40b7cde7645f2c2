// Package sqlite implements ports.SessionStore on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// Store is a SQLite implementation of ports.SessionStore.
type Store struct {
	db *sql.DB
}

var _ ports.SessionStore = (*Store)(nil)

// Pragmas applied to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// New opens (or creates) the database at dbPath. Missing parent
// directories of a file path are created.
func New(dbPath string) (*Store, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func ensureDir(dbPath string) error {
	if dbPath == "" || dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// withPragmas appends _pragma parameters so the driver applies them to each
// new connection rather than only the first.
func withPragmas(dsn string) string {
	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			status TEXT NOT NULL,
			questions TEXT NOT NULL,
			questions_fallback INTEGER NOT NULL DEFAULT 0,
			questions_model TEXT NOT NULL DEFAULT '',
			answers TEXT,
			evaluation TEXT,
			evaluation_fallback INTEGER NOT NULL DEFAULT 0,
			evaluation_model TEXT NOT NULL DEFAULT '',
			overall_score INTEGER,
			best_question_index INTEGER,
			worst_question_index INTEGER,
			created_at INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions(user_id, status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = domain.SessionInProgress
	}

	questions, err := json.Marshal(sess.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `INSERT INTO sessions (id, user_id, role, difficulty, status, questions, questions_fallback, questions_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.Role, string(sess.Difficulty), string(sess.Status),
		string(questions), boolToInt(sess.QuestionsFallback), sess.QuestionsModel,
		sess.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

const selectColumns = `id, user_id, role, difficulty, status, questions, questions_fallback, questions_model,
	answers, evaluation, evaluation_fallback, evaluation_model, overall_score, best_question_index,
	worst_question_index, created_at, completed_at`

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteSession only transitions sessions that are still in progress, so
// two concurrent submissions cannot both complete the same session.
func (s *Store) CompleteSession(ctx context.Context, sess *domain.Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	evaluation, err := json.Marshal(sess.Evaluation)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	completedAt := time.Now()
	if sess.CompletedAt != nil {
		completedAt = *sess.CompletedAt
	}

	query := `UPDATE sessions SET status = ?, answers = ?, evaluation = ?, evaluation_fallback = ?,
		evaluation_model = ?, overall_score = ?, best_question_index = ?, worst_question_index = ?,
		completed_at = ?
		WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, query,
		string(domain.SessionCompleted), string(answers), string(evaluation),
		boolToInt(sess.EvaluationFallback), sess.EvaluationModel,
		nullInt(sess.OverallScore), nullInt(sess.BestQuestionIndex), nullInt(sess.WorstQuestionIndex),
		completedAt.UnixNano(),
		sess.ID, string(domain.SessionInProgress),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetSession(ctx, sess.ID); err != nil {
			return err
		}
		return ports.ErrSessionNotInProgress
	}

	sess.Status = domain.SessionCompleted
	sess.CompletedAt = &completedAt
	return nil
}

func (s *Store) ListCompletedSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sessions WHERE user_id = ? AND status = ? ORDER BY created_at ASC, id ASC`,
		userID, string(domain.SessionCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*domain.Session, error) {
	var (
		sess                            domain.Session
		difficulty, status              string
		questions                       string
		answers, evaluation             sql.NullString
		questionsFallback, evalFallback int
		overall, bestIndex, worstIndex  sql.NullInt64
		createdAt                       int64
		completedAt                     sql.NullInt64
	)

	err := sc.Scan(
		&sess.ID, &sess.UserID, &sess.Role, &difficulty, &status,
		&questions, &questionsFallback, &sess.QuestionsModel,
		&answers, &evaluation, &evalFallback, &sess.EvaluationModel,
		&overall, &bestIndex, &worstIndex, &createdAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Difficulty = domain.Difficulty(difficulty)
	sess.Status = domain.SessionStatus(status)
	sess.QuestionsFallback = questionsFallback != 0
	sess.EvaluationFallback = evalFallback != 0
	sess.CreatedAt = time.Unix(0, createdAt)

	if err := json.Unmarshal([]byte(questions), &sess.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if answers.Valid && answers.String != "null" {
		if err := json.Unmarshal([]byte(answers.String), &sess.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if evaluation.Valid && evaluation.String != "null" {
		var eval domain.Evaluation
		if err := json.Unmarshal([]byte(evaluation.String), &eval); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
		}
		sess.Evaluation = &eval
	}

	sess.OverallScore = intPtr(overall)
	sess.BestQuestionIndex = intPtr(bestIndex)
	sess.WorstQuestionIndex = intPtr(worstIndex)
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		sess.CompletedAt = &t
	}

	return &sess, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
