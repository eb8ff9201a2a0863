package external

import "strings"

// SentimentAnalyzer scores headlines with keyword-weighted polarity. Weights
// are small integers; the aggregate is normalized to [-1, 1].
type SentimentAnalyzer struct {
	positive map[string]int
	negative map[string]int
}

// NewSentimentAnalyzer creates an analyzer with the built-in crypto keyword
// dictionaries.
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{
		positive: map[string]int{
			"surge": 3, "soar": 3, "rally": 3, "breakout": 3, "skyrocket": 3,
			"bullish": 2, "adoption": 2, "partnership": 2, "listing": 2,
			"upgrade": 2, "institutional": 2, "approval": 2, "etf": 2,
			"gain": 1, "rise": 1, "growth": 1, "support": 1, "recover": 1,
			"rebound": 1, "milestone": 1, "launch": 1,
		},
		negative: map[string]int{
			"hack": 3, "exploit": 3, "crash": 3, "collapse": 3, "bankruptcy": 3,
			"rug": 3, "scam": 3,
			"bearish": 2, "lawsuit": 2, "ban": 2, "delisting": 2, "sec": 2,
			"investigation": 2, "liquidation": 2, "selloff": 2,
			"drop": 1, "fall": 1, "decline": 1, "fear": 1, "dump": 1,
			"warning": 1, "risk": 1,
		},
	}
}

// Analyze returns the normalized polarity of a set of headlines in [-1, 1].
// Returns 0 when no keyword matches.
func (sa *SentimentAnalyzer) Analyze(headlines []string) float64 {
	posScore, negScore := 0, 0
	for _, headline := range headlines {
		text := strings.ToLower(headline)
		for word, weight := range sa.positive {
			if strings.Contains(text, word) {
				posScore += weight
			}
		}
		for word, weight := range sa.negative {
			if strings.Contains(text, word) {
				negScore += weight
			}
		}
	}
	total := posScore + negScore
	if total == 0 {
		return 0
	}
	return float64(posScore-negScore) / float64(total)
}
