package pattern

import (
	"math"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
)

// Pattern labels a detected chart shape.
type Pattern string

const (
	DoubleTop         Pattern = "double_top"
	DoubleBottom      Pattern = "double_bottom"
	AscendingTriangle Pattern = "ascending_triangle"
	HeadAndShoulders  Pattern = "head_and_shoulders"
	Breakout          Pattern = "breakout"
	SupportBounce     Pattern = "support_bounce"
	VWAPBreakout      Pattern = "vwap_breakout"
	VWAPBounce        Pattern = "vwap_bounce"
	VWAPRejection     Pattern = "vwap_rejection"
)

// Bullish reports whether a pattern leans bullish.
func (p Pattern) Bullish() bool {
	switch p {
	case DoubleBottom, AscendingTriangle, Breakout, SupportBounce, VWAPBreakout, VWAPBounce:
		return true
	}
	return false
}

const (
	minBars        = 20
	lookback       = 30
	extremaTol     = 0.015 // near-equal extrema tolerance
	shouldersTol   = 0.05
	breakoutMargin = 0.01
	bounceMargin   = 0.005
)

// Detect scans the tail of a candle series for chart patterns. Checks run
// independently, so multiple patterns may co-fire. Series shorter than 20
// bars return an empty set.
func Detect(candles []market.Candle, vwap float64) []Pattern {
	if len(candles) < minBars {
		return nil
	}
	window := candles
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}

	var found []Pattern
	if p, ok := detectDoubleExtreme(window); ok {
		found = append(found, p)
	}
	if detectAscendingTriangle(window) {
		found = append(found, AscendingTriangle)
	}
	if detectHeadAndShoulders(window) {
		found = append(found, HeadAndShoulders)
	}
	found = append(found, detectBreakoutBounce(window)...)
	found = append(found, detectVWAP(window, vwap)...)
	return found
}

// detectDoubleExtreme looks for two near-equal highs (double top) or lows
// (double bottom) at least 5 bars apart.
func detectDoubleExtreme(window []market.Candle) (Pattern, bool) {
	peaks := localExtrema(window, true)
	if p1, p2, ok := matchedPair(window, peaks, true); ok && p2-p1 >= 5 {
		return DoubleTop, true
	}
	troughs := localExtrema(window, false)
	if p1, p2, ok := matchedPair(window, troughs, false); ok && p2-p1 >= 5 {
		return DoubleBottom, true
	}
	return "", false
}

// matchedPair finds the two most recent extrema whose prices are within
// tolerance of each other.
func matchedPair(window []market.Candle, idx []int, highs bool) (int, int, bool) {
	for i := len(idx) - 1; i > 0; i-- {
		for j := i - 1; j >= 0; j-- {
			a := extremeValue(window[idx[j]], highs)
			b := extremeValue(window[idx[i]], highs)
			if a > 0 && math.Abs(a-b)/a < extremaTol {
				return idx[j], idx[i], true
			}
		}
	}
	return 0, 0, false
}

func extremeValue(c market.Candle, high bool) float64 {
	if high {
		return c.High
	}
	return c.Low
}

// localExtrema returns indices that are strict local maxima (or minima) over
// a two-bar neighborhood.
func localExtrema(window []market.Candle, highs bool) []int {
	var out []int
	for i := 2; i < len(window)-2; i++ {
		v := extremeValue(window[i], highs)
		isExtreme := true
		for _, j := range []int{i - 2, i - 1, i + 1, i + 2} {
			n := extremeValue(window[j], highs)
			if (highs && n >= v) || (!highs && n <= v) {
				isExtreme = false
				break
			}
		}
		if isExtreme {
			out = append(out, i)
		}
	}
	return out
}

// detectAscendingTriangle checks for flat recent highs (variance under 1% of
// their mean) combined with rising lows.
func detectAscendingTriangle(window []market.Candle) bool {
	n := len(window)
	recent := window[n-10:]

	mean := 0.0
	for _, c := range recent {
		mean += c.High
	}
	mean /= float64(len(recent))
	if mean <= 0 {
		return false
	}

	variance := 0.0
	for _, c := range recent {
		d := c.High - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(recent)))
	if stdDev/mean >= 0.01 {
		return false
	}

	rising := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Low >= recent[i-1].Low {
			rising++
		}
	}
	return recent[len(recent)-1].Low > recent[0].Low && rising >= len(recent)*2/3
}

// detectHeadAndShoulders checks for three peaks where the middle exceeds both
// outer peaks and the outer two are within 5% of each other.
func detectHeadAndShoulders(window []market.Candle) bool {
	peaks := localExtrema(window, true)
	if len(peaks) < 3 {
		return false
	}
	p := peaks[len(peaks)-3:]
	left := window[p[0]].High
	head := window[p[1]].High
	right := window[p[2]].High

	if head <= left || head <= right || left <= 0 {
		return false
	}
	return math.Abs(left-right)/left < shouldersTol
}

// detectBreakoutBounce compares the latest close against the prior run's
// extremes: a close more than 1% above the prior high is a breakout, a close
// sitting within 0.5% above the prior low is a support bounce.
func detectBreakoutBounce(window []market.Candle) []Pattern {
	n := len(window)
	prior := window[:n-1]
	current := window[n-1].Close

	priorHigh := prior[0].High
	priorLow := prior[0].Low
	for _, c := range prior[1:] {
		priorHigh = math.Max(priorHigh, c.High)
		priorLow = math.Min(priorLow, c.Low)
	}

	var found []Pattern
	if priorHigh > 0 && current > priorHigh*(1+breakoutMargin) {
		found = append(found, Breakout)
	}
	if priorLow > 0 && current >= priorLow && current <= priorLow*(1+bounceMargin) {
		found = append(found, SupportBounce)
	}
	return found
}

// detectVWAP classifies the latest bar's interaction with VWAP, requiring
// directional confirmation from the prior bar.
func detectVWAP(window []market.Candle, vwap float64) []Pattern {
	if vwap <= 0 || len(window) < 2 {
		return nil
	}
	prev := window[len(window)-2]
	last := window[len(window)-1]

	var found []Pattern
	switch {
	case prev.Close < vwap && last.Close > vwap && last.Close > last.Open:
		found = append(found, VWAPBreakout)
	case prev.Close > vwap && last.Close < vwap && last.Close < last.Open:
		found = append(found, VWAPRejection)
	case last.Close > vwap && last.Low <= vwap && last.Close > last.Open:
		found = append(found, VWAPBounce)
	}
	return found
}
