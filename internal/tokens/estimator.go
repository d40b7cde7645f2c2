package tokens

// Estimator provides token count estimation based on character length.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Estimate returns the approximate token count of text.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(len(text)) / e.CharsPerToken)
}

// EstimatePrompt estimates a system+user prompt including message framing.
func (e *Estimator) EstimatePrompt(system, user string) int {
	total := 0
	for _, text := range []string{system, user} {
		if text == "" {
			continue
		}
		total += e.Estimate(text) + tokensPerMessage + tokensPerRole
	}
	return total
}
