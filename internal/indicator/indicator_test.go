package indicator

import (
	"math"
	"testing"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
)

// candlesFromCloses builds a series with highs/lows spread around each close.
func candlesFromCloses(spread float64, closes ...float64) []market.Candle {
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			OpenTime: int64(i) * 3600000,
			Open:     c,
			High:     c + spread,
			Low:      c - spread,
			Close:    c,
			Volume:   1000,
		}
	}
	return candles
}

func rampCloses(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSMAInsufficientData(t *testing.T) {
	candles := candlesFromCloses(1, 100, 101, 102)
	if got := SMA(candles, 20); got != 0 {
		t.Errorf("SMA on short series = %f, want 0", got)
	}
}

func TestSMA(t *testing.T) {
	candles := candlesFromCloses(1, 10, 20, 30)
	if got := SMA(candles, 3); got != 20 {
		t.Errorf("SMA = %f, want 20", got)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	candles := candlesFromCloses(1, closes...)
	if got := EMA(candles, 12); math.Abs(got-100) > 1e-9 {
		t.Errorf("EMA of constant series = %f, want 100", got)
	}
}

func TestRSINeutralOnShortSeries(t *testing.T) {
	candles := candlesFromCloses(1, 100, 101)
	if got := RSI(candles, 14); got != 50 {
		t.Errorf("RSI on short series = %f, want 50", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 1, 30)...)
	if got := RSI(candles, 14); got != 100 {
		t.Errorf("RSI of monotonic rise = %f, want 100", got)
	}
}

func TestRSIBounds(t *testing.T) {
	closes := []float64{100, 103, 99, 104, 98, 105, 101, 97, 102, 100, 106, 99, 103, 98, 104, 101, 100}
	candles := candlesFromCloses(1, closes...)
	got := RSI(candles, 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI out of bounds: %f", got)
	}
}

func TestStochRSIBounds(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	candles := candlesFromCloses(1, closes...)
	got := StochRSI(candles, 14)
	if got < 0 || got > 100 {
		t.Errorf("StochRSI out of bounds: %f", got)
	}
}

func TestStochRSINeutralOnShortSeries(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 1, 10)...)
	if got := StochRSI(candles, 14); got != 50 {
		t.Errorf("StochRSI on short series = %f, want 50", got)
	}
}

func TestMACDInsufficientData(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 1, 20)...)
	got := MACD(candles, 12, 26, 9)
	if got.MACD != 0 || got.Signal != 0 || got.Histogram != 0 {
		t.Errorf("MACD on short series = %+v, want zero result", got)
	}
}

func TestMACDUptrendPositive(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 2, 80)...)
	got := MACD(candles, 12, 26, 9)
	if got.MACD <= 0 {
		t.Errorf("MACD line in steady uptrend = %f, want > 0", got.MACD)
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 250
	}
	candles := candlesFromCloses(1, closes...)
	bb := Bollinger(candles, 20, 2)
	if bb.Upper != 250 || bb.Middle != 250 || bb.Lower != 250 {
		t.Errorf("Bollinger of constant series = %+v, want all bands at 250", bb)
	}
	if pos := bb.Position(250); pos != 0.5 {
		t.Errorf("Position on zero-width band = %f, want 0.5", pos)
	}
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := []float64{100, 102, 98, 103, 97, 105, 99, 101, 104, 96, 100, 102, 98, 103, 97, 105, 99, 101, 104, 96, 100}
	candles := candlesFromCloses(1, closes...)
	bb := Bollinger(candles, 20, 2)
	if !(bb.Lower < bb.Middle && bb.Middle < bb.Upper) {
		t.Errorf("band ordering violated: %+v", bb)
	}
}

func TestATRPositive(t *testing.T) {
	candles := candlesFromCloses(2, rampCloses(100, 0.5, 20)...)
	if got := ATR(candles, 14); got <= 0 {
		t.Errorf("ATR = %f, want > 0", got)
	}
}

func TestADXLowVolatilityDrift(t *testing.T) {
	// Slow strictly-increasing drift inside wide bars: directional movement is
	// tiny relative to true range, so trend strength stays below 25.
	candles := candlesFromCloses(2, rampCloses(100, 0.1, 30)...)
	if got := ADX(candles, 14); got >= 25 {
		t.Errorf("ADX of low-volatility drift = %f, want < 25", got)
	}
}

func TestADXStrongTrend(t *testing.T) {
	// Large one-sided moves with narrow bars read as a strong trend.
	candles := candlesFromCloses(0.1, rampCloses(100, 3, 30)...)
	if got := ADX(candles, 14); got <= 25 {
		t.Errorf("ADX of strong trend = %f, want > 25", got)
	}
}

func TestOBVSign(t *testing.T) {
	up := candlesFromCloses(1, rampCloses(100, 1, 10)...)
	if got := OBV(up); got <= 0 {
		t.Errorf("OBV of rising series = %f, want > 0", got)
	}
	down := candlesFromCloses(1, rampCloses(100, -1, 10)...)
	if got := OBV(down); got >= 0 {
		t.Errorf("OBV of falling series = %f, want < 0", got)
	}
}

func TestVWAPZeroVolume(t *testing.T) {
	candles := candlesFromCloses(1, 100, 101, 102)
	for i := range candles {
		candles[i].Volume = 0
	}
	if got := VWAP(candles); got != 0 {
		t.Errorf("VWAP with zero volume = %f, want 0", got)
	}
}

func TestVWAPConstantPrice(t *testing.T) {
	candles := candlesFromCloses(0, 100, 100, 100)
	if got := VWAP(candles); math.Abs(got-100) > 1e-9 {
		t.Errorf("VWAP of constant price = %f, want 100", got)
	}
}

func TestIsVolumeSpike(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 0.5, 25)...)
	candles[len(candles)-1].Volume = 5000
	if !IsVolumeSpike(candles, 20, 1.5) {
		t.Error("expected volume spike at 5x the trailing average")
	}
	candles[len(candles)-1].Volume = 1000
	if IsVolumeSpike(candles, 20, 1.5) {
		t.Error("unexpected volume spike at average volume")
	}
}

func TestSupertrendDirection(t *testing.T) {
	up := candlesFromCloses(0.5, rampCloses(100, 2, 30)...)
	if st := Supertrend(up, 14, 3); !st.Bullish && up[len(up)-1].Close > st.Upper {
		t.Errorf("expected bullish supertrend in uptrend: %+v", st)
	}
	if st := Supertrend(up, 14, 3); st.Upper <= st.Lower {
		t.Errorf("supertrend band ordering violated: %+v", st)
	}
}

func TestComputeSnapshotEmpty(t *testing.T) {
	snap := ComputeSnapshot(nil)
	if snap.RSI14 != 50 || snap.StochRSI != 50 {
		t.Errorf("empty snapshot RSI=%f StochRSI=%f, want neutral 50", snap.RSI14, snap.StochRSI)
	}
	if snap.Price != 0 {
		t.Errorf("empty snapshot price = %f, want 0", snap.Price)
	}
}

func TestComputeSnapshotPopulated(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 0.5, 250)...)
	snap := ComputeSnapshot(candles)

	last := candles[len(candles)-1]
	if snap.Price != last.Close {
		t.Errorf("snapshot price = %f, want %f", snap.Price, last.Close)
	}
	if snap.PrevClose != candles[len(candles)-2].Close {
		t.Errorf("snapshot prev close = %f, want %f", snap.PrevClose, candles[len(candles)-2].Close)
	}
	if snap.SMA200 == 0 {
		t.Error("SMA200 should be populated on a 250-bar series")
	}
	if snap.ATR14 <= 0 {
		t.Errorf("ATR = %f, want > 0", snap.ATR14)
	}
}

func TestVolatilityPercent(t *testing.T) {
	snap := Snapshot{Price: 200, ATR14: 4}
	if got := snap.VolatilityPercent(); math.Abs(got-2) > 1e-9 {
		t.Errorf("VolatilityPercent = %f, want 2", got)
	}
	zero := Snapshot{}
	if got := zero.VolatilityPercent(); got != 0 {
		t.Errorf("VolatilityPercent on zero price = %f, want 0", got)
	}
}

func TestSnapshotAvgVolumeExcludesCurrentBar(t *testing.T) {
	candles := candlesFromCloses(1, rampCloses(100, 0.1, 21)...)
	candles[len(candles)-1].Volume = 10000

	snap := ComputeSnapshot(candles)
	if snap.Volume != 10000 {
		t.Fatalf("snapshot volume = %f, want 10000", snap.Volume)
	}
	// Baseline over the prior bars only; the live bar's own surge must not
	// lift it above 1000.
	if math.Abs(snap.AvgVolume20-1000) > 1e-9 {
		t.Errorf("avg volume = %f, want 1000", snap.AvgVolume20)
	}
	if snap.Volume < snap.AvgVolume20*1.5 {
		t.Error("surge bar should register as a spike against the trailing baseline")
	}
}
