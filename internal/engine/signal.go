package engine

import "math"

// Signal is the composed trade signal: direction, entry, multi-level exits
// and the risk/reward computed against the primary target (TP2).
type Signal struct {
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TP1        float64   `json:"tp1"`
	TP2        float64   `json:"tp2"`
	TP3        float64   `json:"tp3"`
	RiskReward float64   `json:"risk_reward"`
	Horizon    Horizon   `json:"horizon"`
}

// horizonCoef scales ATR multiples per horizon: tighter exits for scalps,
// wider for position trades.
type horizonCoef struct {
	tp1, tp2, tp3, sl float64
}

var horizonCoefs = map[Horizon]horizonCoef{
	HorizonScalp:    {tp1: 0.4, tp2: 0.7, tp3: 1.1, sl: 0.6},
	HorizonIntraday: {tp1: 0.6, tp2: 1.0, tp3: 1.5, sl: 0.8},
	HorizonSwing:    {tp1: 0.9, tp2: 1.5, tp3: 2.2, sl: 1.0},
	HorizonPosition: {tp1: 1.2, tp2: 2.0, tp3: 3.0, sl: 1.3},
}

// ComposeSignal builds the exit ladder as ATR multiples scaled by the horizon
// coefficients and the user's learned TP/SL multipliers. A zero ATR falls
// back to 1% of entry so degenerate series still produce ordered levels.
func ComposeSignal(dir Direction, entry, atr float64, horizon Horizon, params AnalysisParameters) Signal {
	params = params.Normalize()
	coef, ok := horizonCoefs[horizon]
	if !ok {
		coef = horizonCoefs[HorizonIntraday]
	}
	if atr <= 0 {
		atr = entry * 0.01
	}

	sign := 1.0
	if dir == Short {
		sign = -1.0
	}

	tpUnit := atr * params.ATRMultiplierTP
	slUnit := atr * params.ATRMultiplierSL

	sig := Signal{
		Direction: dir,
		Entry:     entry,
		TP1:       entry + sign*tpUnit*coef.tp1,
		TP2:       entry + sign*tpUnit*coef.tp2,
		TP3:       entry + sign*tpUnit*coef.tp3,
		StopLoss:  entry - sign*slUnit*coef.sl,
		Horizon:   horizon,
	}

	riskDist := math.Abs(sig.Entry - sig.StopLoss)
	if riskDist > 0 {
		sig.RiskReward = math.Abs(sig.TP2-sig.Entry) / riskDist
	}
	return sig
}
