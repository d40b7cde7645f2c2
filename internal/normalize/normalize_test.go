package normalize

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

func TestQuestions(t *testing.T) {
	five := `["Q1","Q2","Q3","Q4","Q5"]`

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"object", `{"questions":` + five + `}`, false},
		{"bare array", five, false},
		{"fenced", "```json\n{\"questions\":" + five + "}\n```", false},
		{"prose around object", "Here you go:\n{\"questions\":" + five + "}\nGood luck!", false},
		{"fenced then prose", "```json\n{\"questions\":" + five + "}\n```\nHope these help!", false},
		{"padded entries", `{"questions":["  Q1 ","Q2","Q3","Q4","Q5"]}`, false},
		{"four entries", `{"questions":["Q1","Q2","Q3","Q4"]}`, true},
		{"six entries", `{"questions":["Q1","Q2","Q3","Q4","Q5","Q6"]}`, true},
		{"non-string entry", `{"questions":["Q1","Q2",3,"Q4","Q5"]}`, true},
		{"blank entry", `{"questions":["Q1","Q2","   ","Q4","Q5"]}`, true},
		{"missing field", `{"items":` + five + `}`, true},
		{"field not array", `{"questions":"Q1"}`, true},
		{"not json", `I cannot help with that.`, true},
		{"empty", "", true},
		{"scalar", `42`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Questions(tt.raw)
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Questions() error = %v, want *domain.ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Questions() error = %v", err)
			}
			if len(got) != domain.QuestionCount {
				t.Fatalf("len = %d, want %d", len(got), domain.QuestionCount)
			}
			for i, q := range got {
				if q != fmt.Sprintf("Q%d", i+1) {
					t.Errorf("got[%d] = %q, want Q%d", i, q, i+1)
				}
			}
		})
	}
}

func perQuestion(n int) string {
	entries := make([]string, n)
	for i := range entries {
		entries[i] = `{"clarity":70,"correctness":80,"communication":90,"feedback":"ok"}`
	}
	return "[" + strings.Join(entries, ",") + "]"
}

func evalPayload(scores, extra string, pq int) string {
	return `{` + scores + `,"strengths":["Clear structure"],"areasForImprovement":["More depth"],"overallFeedback":"Solid."` + extra + `,"perQuestion":` + perQuestion(pq) + `}`
}

func TestEvaluation_ClampsScores(t *testing.T) {
	tests := []struct {
		name   string
		scores string
		want   [3]int
	}{
		{"in range", `"clarity":70,"correctness":80,"communication":90`, [3]int{70, 80, 90}},
		{"above range", `"clarity":140,"correctness":100.4,"communication":1e3`, [3]int{100, 100, 100}},
		{"below range", `"clarity":-5,"correctness":-0.2,"communication":0`, [3]int{0, 0, 0}},
		{"fractional", `"clarity":72.5,"correctness":72.49,"communication":99.5`, [3]int{73, 72, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluation(evalPayload(tt.scores, "", 5), 5)
			if err != nil {
				t.Fatalf("Evaluation() error = %v", err)
			}
			if g := [3]int{got.Clarity, got.Correctness, got.Communication}; g != tt.want {
				t.Errorf("scores = %v, want %v", g, tt.want)
			}
		})
	}
}

func TestEvaluation_PerQuestionMismatch(t *testing.T) {
	for _, n := range []int{0, 1, 4, 6, 10} {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			_, err := Evaluation(evalPayload(`"clarity":70,"correctness":80,"communication":90`, "", n), 5)
			if !errors.Is(err, domain.ErrPerQuestionMismatch) {
				t.Fatalf("error = %v, want ErrPerQuestionMismatch", err)
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != "perQuestion" {
				t.Errorf("error = %v, want ValidationError on perQuestion", err)
			}
		})
	}
}

func TestEvaluation_MismatchReportedFirst(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing strengths", `{"clarity":70,"correctness":80,"communication":90,"areasForImprovement":[],"perQuestion":` + perQuestion(1) + `}`},
		{"missing scores", `{"strengths":[],"areasForImprovement":[],"perQuestion":` + perQuestion(3) + `}`},
		{"feedback not string", `{"clarity":70,"correctness":80,"communication":90,"strengths":[],"areasForImprovement":[],"overallFeedback":5,"perQuestion":` + perQuestion(6) + `}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluation(tt.raw, 5)
			if !errors.Is(err, domain.ErrPerQuestionMismatch) {
				t.Fatalf("error = %v, want ErrPerQuestionMismatch", err)
			}
		})
	}
}

func TestEvaluation_TrailingProse(t *testing.T) {
	raw := "```json\n" + evalPayload(`"clarity":70,"correctness":80,"communication":90`, "", 5) + "\n```\nLet me know if you need more detail."
	got, err := Evaluation(raw, 5)
	if err != nil {
		t.Fatalf("Evaluation() error = %v", err)
	}
	if got.Clarity != 70 || len(got.PerQuestion) != 5 {
		t.Errorf("Evaluation() = %+v", got)
	}
}

func TestEvaluation_Defaults(t *testing.T) {
	raw := "```json\n" + `{
		"clarity": 60, "correctness": 61, "communication": 62,
		"strengths": ["", "  ", {"x":1}],
		"areasForImprovement": [7, true, " Be concise "],
		"overallFeedback": "   ",
		"perQuestion": [
			{"clarity": 120, "correctness": -3, "communication": 50.5, "feedback": ""},
			{"clarity": 1, "correctness": 2, "communication": 3}
		]
	}` + "\n```"

	got, err := Evaluation(raw, 2)
	if err != nil {
		t.Fatalf("Evaluation() error = %v", err)
	}

	if len(got.Strengths) != 1 || got.Strengths[0] != DefaultStrength {
		t.Errorf("Strengths = %v, want default", got.Strengths)
	}
	wantAreas := []string{"7", "true", "Be concise"}
	if strings.Join(got.AreasForImprovement, "|") != strings.Join(wantAreas, "|") {
		t.Errorf("AreasForImprovement = %v, want %v", got.AreasForImprovement, wantAreas)
	}
	if got.OverallFeedback != DefaultOverallFeedback {
		t.Errorf("OverallFeedback = %q, want default", got.OverallFeedback)
	}

	pq := got.PerQuestion[0]
	if pq.Clarity != 100 || pq.Correctness != 0 || pq.Communication != 51 {
		t.Errorf("PerQuestion[0] = %+v, want clamped 100/0/51", pq)
	}
	for i, p := range got.PerQuestion {
		if p.Feedback != DefaultQuestionFeedback {
			t.Errorf("PerQuestion[%d].Feedback = %q, want default", i, p.Feedback)
		}
	}
}

func TestEvaluation_StructuralErrors(t *testing.T) {
	scores := `"clarity":70,"correctness":80,"communication":90`

	tests := []struct {
		name string
		raw  string
	}{
		{"missing score", evalPayload(`"clarity":70,"correctness":80`, "", 5)},
		{"string score", evalPayload(`"clarity":"70","correctness":80,"communication":90`, "", 5)},
		{"strengths not array", `{` + scores + `,"strengths":"good","areasForImprovement":[],"perQuestion":` + perQuestion(5) + `}`},
		{"feedback not string", `{` + scores + `,"strengths":[],"areasForImprovement":[],"overallFeedback":5,"perQuestion":` + perQuestion(5) + `}`},
		{"perQuestion missing", `{` + scores + `,"strengths":[],"areasForImprovement":[]}`},
		{"perQuestion entry not object", `{` + scores + `,"strengths":[],"areasForImprovement":[],"perQuestion":[1,2,3,4,5]}`},
		{"array payload", `[1,2,3]`},
		{"broken json", `{"clarity":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluation(tt.raw, 5)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *domain.ValidationError", err)
			}
			if errors.Is(err, domain.ErrPerQuestionMismatch) {
				t.Error("structural error must not be reported as a per-question mismatch")
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`noise {"a":1} tail`, `{"a":1}`},
		{`x {"a":"}"} y`, `{"a":"}"}`},
		{`} {"a":{"b":2}}`, `{"a":{"b":2}}`},
		{`{"a":"\"{"}`, `{"a":"\"{"}`},
		{`no braces`, ``},
		{`{"unterminated":1`, ``},
	}

	for _, tt := range tests {
		if got := extractObject(tt.in); got != tt.want {
			t.Errorf("extractObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
