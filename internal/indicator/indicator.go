package indicator

import (
	"math"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
)

// Every function in this package degrades to a neutral value when the series
// is shorter than the indicator's period. None of them return NaN or error.

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average of closes over the last period bars.
func SMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closes, seeded from the SMA
// of the first period points with smoothing constant 2/(period+1).
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	return lastEMA(market.Closes(candles), period)
}

func lastEMA(values []float64, period int) float64 {
	series := emaSeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// emaSeries returns EMA values aligned to the input: index i is valid for
// i >= period-1, earlier slots are zero.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// ============================================================================
// RSI / STOCHASTIC RSI
// ============================================================================

// RSI calculates the Relative Strength Index over the last period deltas.
// Returns 50 on insufficient history and 100 when there are no down moves.
func RSI(candles []market.Candle, period int) float64 {
	return rsiFromCloses(market.Closes(candles), period)
}

func rsiFromCloses(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// stochRSIWindow is the number of trailing RSI values the latest reading is
// normalized against.
const stochRSIWindow = 14

// StochRSI normalizes the latest RSI against the min/max of the last 14 RSI
// readings, scaled to 0-100. Returns 50 on degenerate or insufficient data.
func StochRSI(candles []market.Candle, period int) float64 {
	closes := market.Closes(candles)
	if period <= 0 || len(closes) < period+stochRSIWindow {
		return 50.0
	}

	rsis := make([]float64, stochRSIWindow)
	for i := 0; i < stochRSIWindow; i++ {
		end := len(closes) - stochRSIWindow + 1 + i
		rsis[i] = rsiFromCloses(closes[:end], period)
	}

	minRSI, maxRSI := rsis[0], rsis[0]
	for _, v := range rsis[1:] {
		minRSI = math.Min(minRSI, v)
		maxRSI = math.Max(maxRSI, v)
	}
	if maxRSI == minRSI {
		return 50.0
	}
	return (rsis[stochRSIWindow-1] - minRSI) / (maxRSI - minRSI) * 100
}

// ============================================================================
// MACD
// ============================================================================

// MACDResult holds MACD line, signal line and histogram values for the latest
// bar, plus the previous histogram for momentum checks.
type MACDResult struct {
	MACD          float64 `json:"macd"`
	Signal        float64 `json:"signal"`
	Histogram     float64 `json:"histogram"`
	PrevHistogram float64 `json:"prev_histogram"`
}

// MACD calculates the MACD line (fast EMA - slow EMA), its signal line as an
// EMA over the reconstructed MACD series, and the histogram.
func MACD(candles []market.Candle, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	closes := market.Closes(candles)
	if len(closes) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)

	// MACD series is valid from the slow period onward.
	macd := make([]float64, 0, len(closes)-slowPeriod+1)
	for i := slowPeriod - 1; i < len(closes); i++ {
		macd = append(macd, fast[i]-slow[i])
	}

	signal := emaSeries(macd, signalPeriod)
	n := len(macd) - 1

	result := MACDResult{
		MACD:      macd[n],
		Signal:    signal[n],
		Histogram: macd[n] - signal[n],
	}
	if n >= 1 && signal[n-1] != 0 {
		result.PrevHistogram = macd[n-1] - signal[n-1]
	}
	return result
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerResult holds Bollinger Band values.
type BollingerResult struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger calculates Bollinger Bands with the middle band as SMA and the
// outer bands at stdDevMult population standard deviations.
func Bollinger(candles []market.Candle, period int, stdDevMult float64) BollingerResult {
	if period <= 0 || len(candles) < period {
		return BollingerResult{}
	}

	middle := SMA(candles, period)
	variance := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Upper:  middle + stdDev*stdDevMult,
		Middle: middle,
		Lower:  middle - stdDev*stdDevMult,
	}
}

// Position returns where price sits inside the band as a 0-1 fraction.
// Returns 0.5 when the band has no width.
func (b BollingerResult) Position(price float64) float64 {
	width := b.Upper - b.Lower
	if width <= 0 {
		return 0.5
	}
	return (price - b.Lower) / width
}

// ============================================================================
// ATR / ADX
// ============================================================================

// ATR calculates the Average True Range as the simple average of true ranges
// over the last period bars.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		trSum += trueRange(candles[i], candles[i-1].Close)
	}
	return trSum / float64(period)
}

func trueRange(c market.Candle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(
		math.Abs(c.High-prevClose),
		math.Abs(c.Low-prevClose),
	))
}

// ADX derives a 0-100 trend-strength score from the spread between positive
// and negative directional movement relative to true range over the window.
// Above 25 conventionally signals a strong trend.
func ADX(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	var plusDM, minusDM, trSum float64
	for i := len(candles) - period; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
		trSum += trueRange(candles[i], candles[i-1].Close)
	}
	if trSum == 0 {
		return 0
	}

	adx := math.Abs(plusDM-minusDM) / trSum * 100
	return math.Min(adx, 100)
}

// ============================================================================
// VOLUME
// ============================================================================

// OBV calculates On-Balance Volume as the cumulative signed volume sum.
func OBV(candles []market.Candle) float64 {
	obv := 0.0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv
}

// VWAP calculates the Volume-Weighted Average Price over the window using the
// typical price (high+low+close)/3. Returns 0 when total volume is zero.
func VWAP(candles []market.Candle) float64 {
	var pvSum, volSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		volSum += c.Volume
	}
	if volSum == 0 {
		return 0
	}
	return pvSum / volSum
}

// AverageVolume calculates the average volume over the last period bars, or
// over the whole series when shorter.
func AverageVolume(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		period = len(candles)
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

// IsVolumeSpike reports whether the latest volume exceeds the trailing average
// by the given multiplier.
func IsVolumeSpike(candles []market.Candle, period int, multiplier float64) bool {
	if len(candles) < period+1 {
		return false
	}
	avg := AverageVolume(candles[:len(candles)-1], period)
	return avg > 0 && candles[len(candles)-1].Volume >= avg*multiplier
}

// ============================================================================
// SUPERTREND
// ============================================================================

// SupertrendResult holds supertrend band values and direction.
type SupertrendResult struct {
	Upper   float64 `json:"upper"`
	Lower   float64 `json:"lower"`
	Bullish bool    `json:"bullish"`
}

// Supertrend places bands at hl2 +/- multiplier*ATR. Direction flips bullish
// when price exceeds the upper band, bearish when it drops below the lower
// band, and otherwise follows which side of hl2 price sits on.
func Supertrend(candles []market.Candle, period int, multiplier float64) SupertrendResult {
	if len(candles) == 0 {
		return SupertrendResult{}
	}
	last := candles[len(candles)-1]
	hl2 := (last.High + last.Low) / 2
	atr := ATR(candles, period)

	result := SupertrendResult{
		Upper:   hl2 + multiplier*atr,
		Lower:   hl2 - multiplier*atr,
		Bullish: last.Close >= hl2,
	}
	if last.Close > result.Upper {
		result.Bullish = true
	} else if last.Close < result.Lower {
		result.Bullish = false
	}
	return result
}
