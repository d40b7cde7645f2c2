// Package analytics summarizes a user's completed interviews.
package analytics

import (
	"math"
	"slices"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

const (
	lastFiveSize   = 5
	minTrendCount  = 4
	trendThreshold = 5.0
)

// Summarize computes the summary over sessions, which must be sorted by
// CreatedAt ascending. It does not modify sessions.
func Summarize(sessions []domain.HistoricalSession) domain.AnalyticsSummary {
	summary := domain.AnalyticsSummary{
		TotalInterviews: len(sessions),
		LastFive:        []domain.ScoreEntry{},
		Trend:           domain.TrendStable,
	}
	if len(sessions) == 0 {
		return summary
	}

	summary.AverageScore = roundTo2(meanScore(sessions))
	summary.StrongestSkill = strongestSkill(sessions)
	summary.LastFive = lastFive(sessions)
	summary.Trend = trend(sessions)
	return summary
}

func meanScore(sessions []domain.HistoricalSession) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += float64(s.OverallScore)
	}
	return sum / float64(len(sessions))
}

func strongestSkill(sessions []domain.HistoricalSession) *domain.Skill {
	totals := make([]float64, len(domain.Skills))
	evaluated := 0
	for _, s := range sessions {
		if s.Evaluation == nil {
			continue
		}
		evaluated++
		for i, skill := range domain.Skills {
			totals[i] += float64(s.Evaluation.Score(skill))
		}
	}
	if evaluated == 0 {
		return nil
	}

	// Strict comparison keeps the earliest skill on ties.
	best := 0
	for i := 1; i < len(totals); i++ {
		if totals[i] > totals[best] {
			best = i
		}
	}
	skill := domain.Skills[best]
	return &skill
}

func lastFive(sessions []domain.HistoricalSession) []domain.ScoreEntry {
	sorted := slices.Clone(sessions)
	slices.SortStableFunc(sorted, func(a, b domain.HistoricalSession) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(sorted) > lastFiveSize {
		sorted = sorted[:lastFiveSize]
	}

	out := make([]domain.ScoreEntry, len(sorted))
	for i, s := range sorted {
		out[i] = domain.ScoreEntry{Score: s.OverallScore, Date: s.CreatedAt}
	}
	return out
}

func trend(sessions []domain.HistoricalSession) domain.Trend {
	if len(sessions) < minTrendCount {
		return domain.TrendStable
	}

	mid := len(sessions) / 2
	older := meanScore(sessions[:mid])
	newer := meanScore(sessions[mid:])

	switch {
	case newer > older+trendThreshold:
		return domain.TrendImproving
	case newer < older-trendThreshold:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
