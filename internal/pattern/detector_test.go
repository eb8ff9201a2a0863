package pattern

import (
	"testing"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
)

func flatCandles(n int, price float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime: int64(i) * 3600000,
			Open:     price,
			High:     price + 0.5,
			Low:      price - 0.5,
			Close:    price,
			Volume:   1000,
		}
	}
	return candles
}

func TestDetectShortSeries(t *testing.T) {
	if got := Detect(flatCandles(19, 100), 100); got != nil {
		t.Errorf("Detect on <20 bars = %v, want nil", got)
	}
}

func TestBullishClassification(t *testing.T) {
	bullish := []Pattern{DoubleBottom, AscendingTriangle, Breakout, SupportBounce, VWAPBreakout, VWAPBounce}
	for _, p := range bullish {
		if !p.Bullish() {
			t.Errorf("%s should be bullish", p)
		}
	}
	bearish := []Pattern{DoubleTop, HeadAndShoulders, VWAPRejection}
	for _, p := range bearish {
		if p.Bullish() {
			t.Errorf("%s should be bearish", p)
		}
	}
}

func TestDetectBreakout(t *testing.T) {
	candles := flatCandles(25, 100)
	// Last close clears the prior high by more than 1%.
	candles[len(candles)-1].Close = 102
	candles[len(candles)-1].High = 102.5

	found := Detect(candles, 0)
	if !contains(found, Breakout) {
		t.Errorf("expected breakout in %v", found)
	}
}

func TestDetectDoubleTop(t *testing.T) {
	candles := flatCandles(30, 100)
	// Two isolated near-equal peaks more than 5 bars apart.
	candles[10].High = 110
	candles[10].Close = 108
	candles[20].High = 110.5
	candles[20].Close = 108

	found := Detect(candles, 0)
	if !contains(found, DoubleTop) {
		t.Errorf("expected double top in %v", found)
	}
}

func TestDetectDoubleBottom(t *testing.T) {
	candles := flatCandles(30, 100)
	candles[8].Low = 90
	candles[8].Close = 92
	candles[18].Low = 90.3
	candles[18].Close = 92

	found := Detect(candles, 0)
	if !contains(found, DoubleBottom) {
		t.Errorf("expected double bottom in %v", found)
	}
}

func TestDetectVWAPBreakout(t *testing.T) {
	candles := flatCandles(25, 100)
	n := len(candles)
	// Prior bar below VWAP, latest green bar closing above it.
	candles[n-2].Close = 99
	candles[n-1].Open = 99.5
	candles[n-1].Close = 101
	candles[n-1].High = 101.5

	found := Detect(candles, 100)
	if !contains(found, VWAPBreakout) {
		t.Errorf("expected vwap breakout in %v", found)
	}
}

func TestDetectVWAPRejection(t *testing.T) {
	candles := flatCandles(25, 100)
	n := len(candles)
	candles[n-2].Close = 101
	candles[n-1].Open = 100.5
	candles[n-1].Close = 99
	candles[n-1].Low = 98.5

	found := Detect(candles, 100)
	if !contains(found, VWAPRejection) {
		t.Errorf("expected vwap rejection in %v", found)
	}
}

func TestDetectAscendingTriangle(t *testing.T) {
	candles := flatCandles(30, 100)
	n := len(candles)
	// Flat highs with steadily rising lows over the last 10 bars.
	for i := 0; i < 10; i++ {
		c := &candles[n-10+i]
		c.High = 105
		c.Low = 95 + float64(i)*0.8
		c.Close = c.Low + 0.5
		c.Open = c.Low + 0.2
	}
	found := Detect(candles, 0)
	if !contains(found, AscendingTriangle) {
		t.Errorf("expected ascending triangle in %v", found)
	}
}

func contains(patterns []Pattern, want Pattern) bool {
	for _, p := range patterns {
		if p == want {
			return true
		}
	}
	return false
}
