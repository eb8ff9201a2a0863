package indicator

import (
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
)

// Snapshot is an immutable record of all indicator values for the latest bar
// of one candle series. Built fresh per analysis call, never mutated.
type Snapshot struct {
	Price       float64          `json:"price"`
	PrevClose   float64          `json:"prev_close"`
	Volume      float64          `json:"volume"`
	AvgVolume20 float64          `json:"avg_volume_20"`
	RSI14       float64          `json:"rsi_14"`
	StochRSI    float64          `json:"stoch_rsi"`
	SMA20       float64          `json:"sma_20"`
	SMA50       float64          `json:"sma_50"`
	SMA200      float64          `json:"sma_200"`
	EMA12       float64          `json:"ema_12"`
	EMA26       float64          `json:"ema_26"`
	MACD        MACDResult       `json:"macd"`
	Bollinger   BollingerResult  `json:"bollinger"`
	ATR14       float64          `json:"atr_14"`
	OBV         float64          `json:"obv"`
	ADX         float64          `json:"adx"`
	VWAP        float64          `json:"vwap"`
	Supertrend  SupertrendResult `json:"supertrend"`
}

// ComputeSnapshot evaluates the full indicator battery for a candle series.
// Individual indicators degrade to neutral values on short series.
func ComputeSnapshot(candles []market.Candle) Snapshot {
	if len(candles) == 0 {
		return Snapshot{RSI14: 50, StochRSI: 50}
	}
	last := candles[len(candles)-1]
	prevClose := last.Close
	if len(candles) > 1 {
		prevClose = candles[len(candles)-2].Close
	}

	return Snapshot{
		Price:       last.Close,
		PrevClose:   prevClose,
		Volume:      last.Volume,
		// Trailing average excludes the live bar so a spike does not lift
		// its own baseline.
		AvgVolume20: AverageVolume(candles[:len(candles)-1], 20),
		RSI14:       RSI(candles, 14),
		StochRSI:    StochRSI(candles, 14),
		SMA20:       SMA(candles, 20),
		SMA50:       SMA(candles, 50),
		SMA200:      SMA(candles, 200),
		EMA12:       EMA(candles, 12),
		EMA26:       EMA(candles, 26),
		MACD:        MACD(candles, 12, 26, 9),
		Bollinger:   Bollinger(candles, 20, 2),
		ATR14:       ATR(candles, 14),
		OBV:         OBV(candles),
		ADX:         ADX(candles, 14),
		VWAP:        VWAP(candles),
		Supertrend:  Supertrend(candles, 14, 3),
	}
}

// VolatilityPercent returns ATR as a percentage of price, the volatility
// measure the leverage advisor keys off.
func (s Snapshot) VolatilityPercent() float64 {
	if s.Price <= 0 {
		return 0
	}
	return s.ATR14 / s.Price * 100
}
