package engine

import (
	"fmt"
	"strings"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/pattern"
)

// BuildRationale assembles the human-readable narrative for a signal from the
// scoring breakdown. Pure presentation over data the scoring layer produced.
func BuildRationale(res ScoreResult, sig Signal, patterns []pattern.Pattern, est HorizonEstimate) string {
	var b strings.Builder

	switch sig.Direction {
	case Long:
		b.WriteString(fmt.Sprintf("LONG bias with %d bullish vs %d bearish points (%.0f%% confidence). ",
			res.Bullish, res.Bearish, res.Confidence))
	case Short:
		b.WriteString(fmt.Sprintf("SHORT bias with %d bearish vs %d bullish points (%.0f%% confidence). ",
			res.Bearish, res.Bullish, res.Confidence))
	default:
		b.WriteString(fmt.Sprintf("No clear edge: %d bullish vs %d bearish points, below the signal gates. ",
			res.Bullish, res.Bearish))
		return b.String()
	}

	if drivers := topComponents(res, sig.Direction, 3); len(drivers) > 0 {
		b.WriteString("Key drivers: " + strings.Join(drivers, ", ") + ". ")
	}

	if len(patterns) > 0 {
		labels := make([]string, len(patterns))
		for i, p := range patterns {
			labels[i] = strings.ReplaceAll(string(p), "_", " ")
		}
		b.WriteString("Chart patterns: " + strings.Join(labels, ", ") + ". ")
	}

	if est.Days > 0 {
		b.WriteString(fmt.Sprintf("Estimated %.1f days to the primary target (%s horizon, %.0f%% estimate confidence). ",
			est.Days, est.Label, est.Confidence))
	}

	b.WriteString(fmt.Sprintf("Entry %.6g, stop %.6g, targets %.6g / %.6g / %.6g (R/R %.2f).",
		sig.Entry, sig.StopLoss, sig.TP1, sig.TP2, sig.TP3, sig.RiskReward))
	return b.String()
}

// topComponents lists the highest-weighted rule names that fired for the
// chosen side.
func topComponents(res ScoreResult, side Direction, limit int) []string {
	var names []string
	for points := 3; points >= 1 && len(names) < limit; points-- {
		for _, c := range res.Components {
			if c.Side == side && c.Points == points && len(names) < limit {
				names = append(names, strings.ReplaceAll(c.Name, "_", " "))
			}
		}
	}
	return names
}
