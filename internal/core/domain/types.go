// Package domain holds the canonical data model shared by the gateway,
// the fallback engine, the admission controller, and analytics.
package domain

import (
	"math"
	"strings"
	"time"
)

// QuestionCount is the fixed size of every QuestionSet.
const QuestionCount = 5

// Difficulty is the interview difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes s to lowercase and reports whether it names a
// known difficulty. Unknown values are returned normalized with ok=false.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return d, false
}

// Skill names one of the three scored dimensions.
type Skill string

const (
	SkillClarity       Skill = "clarity"
	SkillCorrectness   Skill = "correctness"
	SkillCommunication Skill = "communication"
)

// Skills is the fixed enumeration order used for tie-breaking.
var Skills = []Skill{SkillClarity, SkillCorrectness, SkillCommunication}

// Trend describes the direction of a user's scores over time.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// QuestionSet is an ordered list of exactly QuestionCount questions.
type QuestionSet []string

// AnswerSet holds one answer per question, positionally aligned.
type AnswerSet []string

// PerQuestionScore scores a single answer.
type PerQuestionScore struct {
	Clarity       int    `json:"clarity"`
	Correctness   int    `json:"correctness"`
	Communication int    `json:"communication"`
	Feedback      string `json:"feedback"`
}

// Mean returns the unrounded mean of the three sub-scores.
func (p PerQuestionScore) Mean() float64 {
	return float64(p.Clarity+p.Correctness+p.Communication) / 3
}

// Evaluation is the canonical scored result of an answered interview.
// PerQuestion is empty when the evaluation came from the fallback engine.
type Evaluation struct {
	Clarity             int                `json:"clarity"`
	Correctness         int                `json:"correctness"`
	Communication       int                `json:"communication"`
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areasForImprovement"`
	OverallFeedback     string             `json:"overallFeedback"`
	PerQuestion         []PerQuestionScore `json:"perQuestion,omitempty"`
}

// Score returns the named sub-score.
func (e Evaluation) Score(s Skill) int {
	switch s {
	case SkillClarity:
		return e.Clarity
	case SkillCorrectness:
		return e.Correctness
	case SkillCommunication:
		return e.Communication
	}
	return 0
}

// Overall returns round(mean of the three sub-scores).
func (e Evaluation) Overall() int {
	return RoundScore(float64(e.Clarity+e.Correctness+e.Communication) / 3)
}

// GatewayResult is what a single gateway call hands back to its caller.
type GatewayResult[T any] struct {
	Payload         T      `json:"payload"`
	UsedFallback    bool   `json:"usedFallback"`
	ModelIdentifier string `json:"modelIdentifier,omitempty"`
}

// HistoricalSession is the read-only view of a persisted, evaluated session
// consumed by analytics.
type HistoricalSession struct {
	OverallScore int
	Evaluation   *Evaluation
	CreatedAt    time.Time
}

// ScoreEntry is one row of AnalyticsSummary.LastFive.
type ScoreEntry struct {
	Score int       `json:"score"`
	Date  time.Time `json:"date"`
}

// AnalyticsSummary aggregates a user's evaluated sessions.
type AnalyticsSummary struct {
	TotalInterviews int          `json:"totalInterviews"`
	AverageScore    float64      `json:"averageScore"`
	StrongestSkill  *Skill       `json:"strongestSkill"`
	LastFive        []ScoreEntry `json:"lastFive"`
	Trend           Trend        `json:"trend"`
}

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is the persisted interview record produced by the orchestration
// layer from gateway results.
type Session struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"userId,omitempty"`
	Role               string        `json:"role"`
	Difficulty         Difficulty    `json:"difficulty"`
	Status             SessionStatus `json:"status"`
	Questions          QuestionSet   `json:"questions"`
	QuestionsFallback  bool          `json:"questionsUsedFallback"`
	QuestionsModel     string        `json:"questionsModel,omitempty"`
	Answers            AnswerSet     `json:"answers,omitempty"`
	Evaluation         *Evaluation   `json:"evaluation,omitempty"`
	EvaluationFallback bool          `json:"evaluationUsedFallback"`
	EvaluationModel    string        `json:"evaluationModel,omitempty"`
	OverallScore       *int          `json:"overallScore,omitempty"`
	BestQuestionIndex  *int          `json:"bestQuestionIndex,omitempty"`
	WorstQuestionIndex *int          `json:"worstQuestionIndex,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
}

// Historical reduces a completed session to the analytics view.
func (s *Session) Historical() HistoricalSession {
	h := HistoricalSession{Evaluation: s.Evaluation, CreatedAt: s.CreatedAt}
	if s.OverallScore != nil {
		h.OverallScore = *s.OverallScore
	}
	return h
}

// ClampScore clamps v into [0,100] and rounds to the nearest integer.
func ClampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return RoundScore(v)
}

// RoundScore rounds half away from zero.
func RoundScore(v float64) int {
	return int(math.Round(v))
}
