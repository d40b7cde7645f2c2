package fallback

import (
	"strings"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

// Category is the coarse role family used to pick fallback questions.
type Category string

const (
	CategoryTechnical Category = "technical"
	CategoryBusiness  Category = "business"
	CategoryGeneral   Category = "general"
)

var (
	technicalKeywords = []string{"developer", "engineer", "programmer", "software", "technical"}
	businessKeywords  = []string{"manager", "business", "product", "analyst"}
)

// Classify maps a free-text role to a Category by keyword.
func Classify(role string) Category {
	r := strings.ToLower(role)
	for _, kw := range technicalKeywords {
		if strings.Contains(r, kw) {
			return CategoryTechnical
		}
	}
	for _, kw := range businessKeywords {
		if strings.Contains(r, kw) {
			return CategoryBusiness
		}
	}
	return CategoryGeneral
}

type tableKey struct {
	difficulty domain.Difficulty
	category   Category
}

var questionTable = map[tableKey][]string{
	{domain.DifficultyEasy, CategoryTechnical}: {
		"Walk me through a project you built recently and the technologies you chose.",
		"How do you debug a problem you have never seen before?",
		"What is the difference between a process and a thread?",
		"How do you make sure the code you write is easy for others to read?",
		"Describe how you use version control in your daily work.",
	},
	{domain.DifficultyMedium, CategoryTechnical}: {
		"How would you design a REST API for a simple task tracker?",
		"Explain how you would find and fix a slow database query.",
		"What trade-offs do you consider when choosing between SQL and NoSQL storage?",
		"How do you approach writing tests for code that talks to external services?",
		"Describe a time you refactored a large piece of code. How did you keep it safe?",
	},
	{domain.DifficultyHard, CategoryTechnical}: {
		"Design a rate limiter that works across many application servers.",
		"How would you migrate a busy production database to a new schema without downtime?",
		"Explain how you would diagnose intermittent latency spikes in a distributed system.",
		"How do you reason about consistency when a request updates several services?",
		"Describe the hardest production incident you handled and what you changed afterwards.",
	},
	{domain.DifficultyEasy, CategoryBusiness}: {
		"Tell me about a time you had to prioritize several tasks at once.",
		"How do you keep stakeholders informed about progress?",
		"Describe a decision you made using data.",
		"How do you handle a disagreement with a colleague?",
		"What does a successful week look like in your role?",
	},
	{domain.DifficultyMedium, CategoryBusiness}: {
		"How would you decide which of three competing features to build first?",
		"Describe how you would measure the success of a new product launch.",
		"Tell me about a time you had to say no to an important stakeholder.",
		"How do you turn vague requirements into a concrete plan?",
		"Walk me through how you would analyze a sudden drop in a key metric.",
	},
	{domain.DifficultyHard, CategoryBusiness}: {
		"How would you build a strategy to enter a market where a competitor dominates?",
		"Describe how you would restructure a team that keeps missing deadlines.",
		"A major customer threatens to leave. How do you respond in the first week?",
		"How do you balance long-term investment against short-term revenue targets?",
		"Tell me about a high-stakes decision you made with incomplete information.",
	},
	{domain.DifficultyEasy, CategoryGeneral}: {
		"Tell me about yourself and what draws you to this role.",
		"What is an accomplishment you are proud of?",
		"How do you organize your work during a typical day?",
		"Describe a time you learned something new quickly.",
		"What kind of work environment helps you do your best work?",
	},
	{domain.DifficultyMedium, CategoryGeneral}: {
		"Describe a time you received critical feedback. What did you do with it?",
		"Tell me about a project that did not go as planned and how you handled it.",
		"How do you handle competing deadlines from different people?",
		"Give an example of how you improved a process at work.",
		"Describe a situation where you had to persuade someone to change their mind.",
	},
	{domain.DifficultyHard, CategoryGeneral}: {
		"Tell me about a time you had to lead without formal authority.",
		"Describe the most difficult ethical decision you have faced at work.",
		"How would you handle being assigned a goal you believe is unrealistic?",
		"Tell me about a failure that changed how you work.",
		"Describe a situation where you had to rebuild trust with a team or client.",
	},
}

// Questions returns a deterministic question set for role and difficulty.
// Unrecognized difficulties use the easy table.
func Questions(role, difficulty string) domain.QuestionSet {
	d, ok := domain.ParseDifficulty(difficulty)
	if !ok {
		d = domain.DifficultyEasy
	}

	table := questionTable[tableKey{d, Classify(role)}]
	if len(table) > domain.QuestionCount {
		table = table[:domain.QuestionCount]
	}

	out := make(domain.QuestionSet, len(table))
	copy(out, table)
	return out
}
