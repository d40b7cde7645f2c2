package gateway

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

const (
	questionsMaxTokens          = 400
	evaluationBaseMaxTokens     = 600
	evaluationPerQuestionTokens = 150
)

const questionsSystemPrompt = `You are an experienced interviewer preparing a mock interview.
Respond with a single JSON object of the form {"questions": ["...", "...", "...", "...", "..."]}.
The array must contain exactly 5 non-empty questions. Do not include any other text.`

const evaluationSystemPrompt = `You are an experienced interviewer grading a mock interview.
Score each dimension from 0 to 100 and respond with a single JSON object:
{
  "clarity": number,
  "correctness": number,
  "communication": number,
  "strengths": [string],
  "areasForImprovement": [string],
  "overallFeedback": string,
  "perQuestion": [{"clarity": number, "correctness": number, "communication": number, "feedback": string}]
}
"perQuestion" must contain exactly one entry per question, in the order the questions were asked.
Do not include any other text.`

type prompt struct {
	system    string
	user      string
	maxTokens int
}

func questionsPrompt(role string, difficulty domain.Difficulty) prompt {
	user := fmt.Sprintf("Generate %d interview questions for the role %q at %s difficulty.",
		domain.QuestionCount, role, difficulty)
	return prompt{system: questionsSystemPrompt, user: user, maxTokens: questionsMaxTokens}
}

func evaluationPrompt(role string, difficulty domain.Difficulty, questions domain.QuestionSet, answers domain.AnswerSet) prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\nDifficulty: %s\n\n", role, difficulty)
	for i, q := range questions {
		a := ""
		if i < len(answers) {
			a = strings.TrimSpace(answers[i])
		}
		if a == "" {
			a = "(no answer)"
		}
		fmt.Fprintf(&b, "Question %d: %s\nAnswer %d: %s\n\n", i+1, q, i+1, a)
	}
	fmt.Fprintf(&b, "Return exactly %d perQuestion entries.", len(questions))

	return prompt{
		system:    evaluationSystemPrompt,
		user:      b.String(),
		maxTokens: evaluationBaseMaxTokens + evaluationPerQuestionTokens*len(questions),
	}
}
