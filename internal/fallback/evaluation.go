// Package fallback produces questions and evaluations without a provider.
//
// Everything here is pure and always succeeds. Evaluation scores depend on
// answer length plus a small random jitter; the random source is injected
// so tests can pin it.
package fallback

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/normalize"
)

const (
	jitter      = 7
	minSubScore = 40
	maxSubScore = 100
	strongScore = 70
)

// Overall bands for feedback selection.
const (
	bandHigh = 80
	bandMid  = 65
)

// Engine scores answer sets heuristically.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Engine. A nil rng is replaced by a time-seeded source.
func New(rng *rand.Rand) *Engine {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Engine{rng: rng}
}

// Questions returns the fallback question set. See the package-level Questions.
func (e *Engine) Questions(role, difficulty string) domain.QuestionSet {
	return Questions(role, difficulty)
}

// AnswerWeight maps a single answer to a quality weight by trimmed length.
func AnswerWeight(answer string) float64 {
	n := len([]rune(strings.TrimSpace(answer)))
	switch {
	case n < 10:
		return 0.3
	case n < 50:
		return 0.5
	case n < 150:
		return 0.75
	default:
		return 0.9
	}
}

// BaseScore is round(50 + mean(weights)*40). An empty answer set scores
// as if every answer were in the lowest band.
func BaseScore(answers domain.AnswerSet) int {
	if len(answers) == 0 {
		return domain.RoundScore(50 + AnswerWeight("")*40)
	}
	var sum float64
	for _, a := range answers {
		sum += AnswerWeight(a)
	}
	return domain.RoundScore(50 + sum/float64(len(answers))*40)
}

// Evaluation scores answers. The result never carries per-question detail.
func (e *Engine) Evaluation(answers domain.AnswerSet) *domain.Evaluation {
	base := BaseScore(answers)

	eval := &domain.Evaluation{
		Clarity:       e.jittered(base),
		Correctness:   e.jittered(base),
		Communication: e.jittered(base),
	}
	overall := eval.Overall()

	eval.Strengths = strengths(eval, overall)
	eval.AreasForImprovement = improvements(eval, overall)
	eval.OverallFeedback = feedback(overall)
	return eval
}

func (e *Engine) jittered(base int) int {
	e.mu.Lock()
	delta := e.rng.IntN(2*jitter+1) - jitter
	e.mu.Unlock()

	v := base + delta
	if v < minSubScore {
		return minSubScore
	}
	if v > maxSubScore {
		return maxSubScore
	}
	return v
}

func strengths(eval *domain.Evaluation, overall int) []string {
	var out []string
	if eval.Clarity >= strongScore {
		out = append(out, "Answers were clearly structured and easy to follow")
	}
	if eval.Correctness >= strongScore {
		out = append(out, "Showed solid command of the subject matter")
	}
	if eval.Communication >= strongScore {
		out = append(out, "Communicated ideas confidently")
	}
	if overall >= bandHigh {
		out = append(out, "Gave thorough, well-developed responses")
	}
	if len(out) == 0 {
		out = []string{normalize.DefaultStrength}
	}
	return out
}

func improvements(eval *domain.Evaluation, overall int) []string {
	var out []string
	if eval.Clarity < strongScore {
		out = append(out, "Organize answers with a clear beginning, middle, and end")
	}
	if eval.Correctness < strongScore {
		out = append(out, "Support answers with concrete examples and specifics")
	}
	if eval.Communication < strongScore {
		out = append(out, "Expand on key points instead of answering briefly")
	}
	if overall < bandMid {
		out = append(out, "Practice answering out loud to build fluency")
	}
	if len(out) == 0 {
		out = []string{normalize.DefaultImprovement}
	}
	return out
}

func feedback(overall int) string {
	switch {
	case overall >= bandHigh:
		return "Strong performance. Your answers were detailed and well reasoned. Keep refining the finer points."
	case overall >= bandMid:
		return "Good effort. Your answers covered the basics; adding more depth and examples will make them stand out."
	default:
		return "You have a foundation to build on. Aim for fuller answers that explain your reasoning step by step."
	}
}
