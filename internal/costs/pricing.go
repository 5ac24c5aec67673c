package costs

import "strings"

// Rate is the price of a model in USD per million tokens.
type Rate struct {
	Input  float64
	Output float64
}

var (
	sonnetRate = Rate{Input: 3.00, Output: 15.00}
	opusRate   = Rate{Input: 15.00, Output: 75.00}
	haikuRate  = Rate{Input: 0.80, Output: 4.00}
)

var pricing = map[string]Rate{
	"claude-sonnet-4-20250514":   sonnetRate,
	"claude-opus-4-20250514":     opusRate,
	"claude-3-7-sonnet-20250219": sonnetRate,
	"claude-3-5-haiku-20241022":  haikuRate,
}

// RateFor returns the pricing for a model id. Bedrock inference profile ids
// resolve through their model family; unknown models price at Sonnet rates
// so a gap in the table never hides spend.
func RateFor(model string) Rate {
	if r, ok := pricing[model]; ok {
		return r
	}
	switch {
	case strings.Contains(model, "haiku"):
		return haikuRate
	case strings.Contains(model, "opus"):
		return opusRate
	}
	return sonnetRate
}

// Cost prices a single call in USD, rounded to seven decimal places.
func Cost(model string, tokensIn, tokensOut int64) float64 {
	r := RateFor(model)
	in := float64(tokensIn) / 1_000_000 * r.Input
	out := float64(tokensOut) / 1_000_000 * r.Output
	return round7(in + out)
}
