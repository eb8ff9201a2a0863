package engine

import (
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/indicator"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/pattern"
)

// Direction is the resolved trade direction.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// SignalPolicy selects how scoring ties and weak readings resolve.
type SignalPolicy int

const (
	// ForceDirection always resolves to LONG or SHORT, breaking ties with the
	// daily master trend. This is the canonical policy.
	ForceDirection SignalPolicy = iota
	// AllowNeutral returns NEUTRAL when neither side clears the minimum score
	// or confidence gate.
	AllowNeutral
)

// TimeframeSet bundles indicator snapshots across the analysis timeframes.
type TimeframeSet struct {
	H1 indicator.Snapshot `json:"h1"`
	H4 indicator.Snapshot `json:"h4"`
	D1 indicator.Snapshot `json:"d1"`
}

// ScoreComponent records one rule that fired, for the rationale layer.
type ScoreComponent struct {
	Name   string    `json:"name"`
	Side   Direction `json:"side"`
	Points int       `json:"points"`
}

// ScoreResult holds the accumulated bullish/bearish point totals.
// Confidence is max(bullish,bearish)/(bullish+bearish)*100, 50 when both are 0.
type ScoreResult struct {
	Bullish    int              `json:"bullish"`
	Bearish    int              `json:"bearish"`
	Confidence float64          `json:"confidence"`
	Components []ScoreComponent `json:"components"`
}

// Scorer converts indicator readings into weighted point totals using a
// deterministic tiered rule table. The tier weights are hand-tuned defaults,
// not a fitted model; tests assert ordering of effects, not exact totals.
type Scorer struct {
	policy SignalPolicy
}

// NewScorer creates a scorer with the given direction policy.
func NewScorer(policy SignalPolicy) *Scorer {
	return &Scorer{policy: policy}
}

// Score evaluates the rule table against the 1h snapshot, with the 4h and
// daily snapshots contributing the multi-timeframe alignment bonus.
func (s *Scorer) Score(tf TimeframeSet, patterns []pattern.Pattern, params AnalysisParameters) ScoreResult {
	params = params.Normalize()
	snap := tf.H1
	var res ScoreResult

	add := func(name string, side Direction, points int) {
		if side == Long {
			res.Bullish += points
		} else {
			res.Bearish += points
		}
		res.Components = append(res.Components, ScoreComponent{Name: name, Side: side, Points: points})
	}

	// RSI tiers around the learned oversold/overbought thresholds.
	switch {
	case snap.RSI14 < params.RSIOversold-5:
		add("rsi_deep_oversold", Long, 3)
	case snap.RSI14 < params.RSIOversold:
		add("rsi_oversold", Long, 2)
	case snap.RSI14 < params.RSIOversold+10:
		add("rsi_near_oversold", Long, 1)
	}
	switch {
	case snap.RSI14 > params.RSIOverbought+5:
		add("rsi_deep_overbought", Short, 3)
	case snap.RSI14 > params.RSIOverbought:
		add("rsi_overbought", Short, 2)
	case snap.RSI14 > params.RSIOverbought-10:
		add("rsi_near_overbought", Short, 1)
	}

	// Stochastic RSI extremes.
	if snap.StochRSI < 20 {
		add("stoch_rsi_oversold", Long, 2)
	} else if snap.StochRSI > 80 {
		add("stoch_rsi_overbought", Short, 2)
	}

	// MACD polarity, stronger when the MACD line itself agrees.
	macd := snap.MACD
	if macd.Histogram > 0 && macd.MACD > macd.Signal {
		if macd.MACD > 0 {
			add("macd_bullish", Long, 3)
		} else {
			add("macd_cross_up", Long, 2)
		}
	} else if macd.Histogram < 0 && macd.MACD < macd.Signal {
		if macd.MACD < 0 {
			add("macd_bearish", Short, 3)
		} else {
			add("macd_cross_down", Short, 2)
		}
	}

	// MACD momentum: histogram expanding in its own direction.
	if macd.Histogram > 0 && macd.Histogram > macd.PrevHistogram {
		add("macd_momentum_up", Long, 1)
	} else if macd.Histogram < 0 && macd.Histogram < macd.PrevHistogram {
		add("macd_momentum_down", Short, 1)
	}

	// Bollinger band position.
	if snap.Bollinger.Upper > snap.Bollinger.Lower {
		pos := snap.Bollinger.Position(snap.Price)
		switch {
		case pos < 0.10:
			add("bollinger_lower_extreme", Long, 3)
		case pos < 0.25:
			add("bollinger_lower", Long, 2)
		case pos > 0.90:
			add("bollinger_upper_extreme", Short, 3)
		case pos > 0.75:
			add("bollinger_upper", Short, 2)
		}
	}

	// Moving-average stack.
	if snap.SMA200 > 0 && snap.Price > snap.SMA20 && snap.SMA20 > snap.SMA50 && snap.SMA50 > snap.SMA200 {
		add("ma_stack_full_bull", Long, 3)
	} else if snap.SMA50 > 0 && snap.Price > snap.SMA20 && snap.SMA20 > snap.SMA50 {
		add("ma_stack_bull", Long, 2)
	} else if snap.SMA200 > 0 && snap.Price < snap.SMA20 && snap.SMA20 < snap.SMA50 && snap.SMA50 < snap.SMA200 {
		add("ma_stack_full_bear", Short, 3)
	} else if snap.SMA50 > 0 && snap.Price < snap.SMA20 && snap.SMA20 < snap.SMA50 {
		add("ma_stack_bear", Short, 2)
	}

	// EMA cross.
	if snap.EMA12 > 0 && snap.EMA26 > 0 {
		if snap.EMA12 > snap.EMA26 {
			add("ema_cross_bull", Long, 2)
		} else {
			add("ema_cross_bear", Short, 2)
		}
	}

	// ADX trend-strength bonus goes to the side the short-term trend favors.
	if snap.ADX > 25 && snap.EMA12 > 0 && snap.EMA26 > 0 {
		if snap.EMA12 > snap.EMA26 {
			add("adx_strong_trend", Long, 1)
		} else {
			add("adx_strong_trend", Short, 1)
		}
	}

	// Multi-timeframe alignment across 1h/4h/1d.
	if bias, ok := alignedBias(tf); ok {
		add("timeframe_alignment", bias, 3)
	}

	// Volume spike with directional price move.
	if snap.AvgVolume20 > 0 && snap.Volume > snap.AvgVolume20*1.5 {
		if snap.Price > snap.PrevClose {
			add("volume_spike_up", Long, 2)
		} else if snap.Price < snap.PrevClose {
			add("volume_spike_down", Short, 2)
		}
	}

	// Detected chart patterns, capped at 2 points per side.
	bullPat, bearPat := 0, 0
	for _, p := range patterns {
		if p.Bullish() && bullPat < 2 {
			bullPat++
			add("pattern_"+string(p), Long, 1)
		} else if !p.Bullish() && bearPat < 2 {
			bearPat++
			add("pattern_"+string(p), Short, 1)
		}
	}

	res.Confidence = confidence(res.Bullish, res.Bearish)
	return res
}

// alignedBias reports the shared EMA bias when all three timeframes agree.
func alignedBias(tf TimeframeSet) (Direction, bool) {
	snaps := []indicator.Snapshot{tf.H1, tf.H4, tf.D1}
	bull, bear := 0, 0
	for _, s := range snaps {
		if s.EMA12 <= 0 || s.EMA26 <= 0 {
			return Neutral, false
		}
		if s.EMA12 > s.EMA26 {
			bull++
		} else {
			bear++
		}
	}
	if bull == len(snaps) {
		return Long, true
	}
	if bear == len(snaps) {
		return Short, true
	}
	return Neutral, false
}

func confidence(bullish, bearish int) float64 {
	total := bullish + bearish
	if total == 0 {
		return 50
	}
	maxSide := bullish
	if bearish > maxSide {
		maxSide = bearish
	}
	return float64(maxSide) / float64(total) * 100
}

// Resolve turns a score into a direction. Under ForceDirection ties break on
// the daily master trend, so the result is always LONG or SHORT. Under
// AllowNeutral weak scores below the user's gates return NEUTRAL.
func (s *Scorer) Resolve(res ScoreResult, daily indicator.Snapshot, params AnalysisParameters) Direction {
	params = params.Normalize()

	if s.policy == AllowNeutral {
		maxSide := res.Bullish
		if res.Bearish > maxSide {
			maxSide = res.Bearish
		}
		if maxSide < params.MinBullishScore || res.Confidence < params.ConfidenceThreshold {
			return Neutral
		}
	}

	switch {
	case res.Bullish > res.Bearish:
		return Long
	case res.Bearish > res.Bullish:
		return Short
	default:
		return masterTrend(daily)
	}
}

// masterTrend breaks exact ties using the daily price-vs-EMA relationship.
func masterTrend(daily indicator.Snapshot) Direction {
	ref := daily.EMA26
	if ref <= 0 {
		ref = daily.SMA20
	}
	if ref <= 0 || daily.Price >= ref {
		return Long
	}
	return Short
}
