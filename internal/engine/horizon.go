package engine

import "math"

// Horizon classifies the intended trade duration; it drives TP/SL width and
// the leverage scaling.
type Horizon string

const (
	HorizonScalp    Horizon = "scalp"
	HorizonIntraday Horizon = "intraday"
	HorizonSwing    Horizon = "swing"
	HorizonPosition Horizon = "position"
)

// HorizonFromDuration maps an explicit target duration to a horizon class.
func HorizonFromDuration(minutes int) Horizon {
	switch {
	case minutes < 90:
		return HorizonScalp
	case minutes < 24*60:
		return HorizonIntraday
	case minutes < 7*24*60:
		return HorizonSwing
	default:
		return HorizonPosition
	}
}

// HorizonFromTradeType maps a user-supplied trade type label to a horizon,
// defaulting to intraday on unknown input.
func HorizonFromTradeType(tradeType string) (Horizon, bool) {
	switch Horizon(tradeType) {
	case HorizonScalp, HorizonIntraday, HorizonSwing, HorizonPosition:
		return Horizon(tradeType), true
	}
	return HorizonIntraday, false
}

// maxEstimateDays caps the days-to-target estimate.
const maxEstimateDays = 28

// HorizonEstimate is the volatility-based days-to-target estimate produced
// when no explicit duration is given.
type HorizonEstimate struct {
	Days         float64 `json:"days"`
	Label        string  `json:"label"`
	Horizon      Horizon `json:"horizon"`
	Confidence   float64 `json:"confidence"`
	VolumeFactor float64 `json:"volume_factor"`
}

// EstimateHorizon estimates how long price needs to travel from entry to the
// primary target, dividing the target distance by historical daily-return
// volatility and shortening the estimate for high 24h turnover. The attached
// confidence reflects how consistent that volatility has been.
func EstimateHorizon(dailyCloses []float64, entry, target, quoteVolume24h float64) HorizonEstimate {
	est := HorizonEstimate{Days: maxEstimateDays, VolumeFactor: 1.0, Confidence: 30}

	volPct, dispersion := dailyVolatility(dailyCloses)
	if entry > 0 && volPct > 0 {
		distancePct := math.Abs(target-entry) / entry * 100

		// Higher 24h volume shortens the estimate, bounded to [0.7, 1.5].
		est.VolumeFactor = clamp(1.5-0.8*(quoteVolume24h/1e9), 0.7, 1.5)
		est.Days = math.Min(distancePct/volPct*est.VolumeFactor, maxEstimateDays)

		// Lower dispersion in historical volatility means a steadier estimate.
		est.Confidence = clamp(95-40*dispersion, 30, 95)
	}

	switch {
	case est.Days < 1:
		est.Label = "intraday"
		est.Horizon = HorizonIntraday
	case est.Days < 7:
		est.Label = "short-term"
		est.Horizon = HorizonSwing
	case est.Days < 21:
		est.Label = "swing"
		est.Horizon = HorizonSwing
	default:
		est.Label = "long-term"
		est.Horizon = HorizonPosition
	}
	return est
}

// dailyVolatility returns the mean absolute daily return in percent and the
// coefficient of variation of those returns.
func dailyVolatility(closes []float64) (volPct, dispersion float64) {
	if len(closes) < 3 {
		return 0, 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, math.Abs(closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(returns) == 0 {
		return 0, 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	if mean == 0 {
		return 0, 0
	}

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	return mean, stdDev / mean
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
