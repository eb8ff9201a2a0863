package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/risk"
)

type fakeSource struct {
	failCandles bool
	failHigher  bool
}

func (f *fakeSource) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if f.failCandles {
		return nil, market.ErrNoData
	}
	if f.failHigher && timeframe != "1h" {
		return nil, market.ErrNoData
	}
	candles := make([]market.Candle, limit)
	price := 100.0
	for i := range candles {
		price += 0.3
		candles[i] = market.Candle{
			OpenTime: int64(i) * 3600000,
			Open:     price - 0.3,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
			Volume:   1000,
		}
	}
	return candles, nil
}

func (f *fakeSource) GetTicker24h(ctx context.Context, symbol string) (*market.Ticker24h, error) {
	return &market.Ticker24h{Symbol: symbol, LastPrice: 150, QuoteVolume: 5e8}, nil
}

func (f *fakeSource) ListSymbols(ctx context.Context, quoteAsset string) ([]string, error) {
	return []string{"BTCUSDT"}, nil
}

type fakeLosses struct {
	loss float64
	err  error
}

func (f *fakeLosses) DailyRealizedLoss(ctx context.Context, userID string) (float64, error) {
	return f.loss, f.err
}

func newTestEngine(data market.DataSource, losses LossTracker, cfg Config) *Engine {
	return New(data, risk.NewSizer(zerolog.Nop()), nil, losses, cfg, zerolog.Nop())
}

func TestAnalyzeForceDirectionAlwaysDirectional(t *testing.T) {
	e := newTestEngine(&fakeSource{}, nil, Config{Policy: ForceDirection})

	res, err := e.Analyze(context.Background(), AnalyzeRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Direction != Long && res.Direction != Short {
		t.Errorf("direction = %s, want LONG or SHORT", res.Direction)
	}
	if res.Signal.Entry <= 0 {
		t.Errorf("signal entry = %f, want > 0", res.Signal.Entry)
	}
	if res.Position == nil {
		t.Fatal("expected a sized position")
	}
	if res.Position.Leverage < 1 {
		t.Errorf("leverage = %d, want >= 1", res.Position.Leverage)
	}
	if res.Rationale == "" {
		t.Error("rationale missing")
	}
	if res.Confidence < 30 || res.Confidence > 95 {
		t.Errorf("confidence = %f, want within [30, 95]", res.Confidence)
	}
}

func TestAnalyzeSignalOrdering(t *testing.T) {
	e := newTestEngine(&fakeSource{}, nil, Config{Policy: ForceDirection})

	res, err := e.Analyze(context.Background(), AnalyzeRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	sig := res.Signal
	switch res.Direction {
	case Long:
		if !(sig.StopLoss < sig.Entry && sig.Entry < sig.TP1 && sig.TP1 < sig.TP2 && sig.TP2 < sig.TP3) {
			t.Errorf("LONG ordering violated: %+v", sig)
		}
	case Short:
		if !(sig.StopLoss > sig.Entry && sig.Entry > sig.TP1 && sig.TP1 > sig.TP2 && sig.TP2 > sig.TP3) {
			t.Errorf("SHORT ordering violated: %+v", sig)
		}
	}
}

func TestAnalyzeNoData(t *testing.T) {
	e := newTestEngine(&fakeSource{failCandles: true}, nil, Config{Policy: ForceDirection})

	if _, err := e.Analyze(context.Background(), AnalyzeRequest{Symbol: "NOPEUSDT"}); !errors.Is(err, market.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestAnalyzeHigherTimeframesDegrade(t *testing.T) {
	e := newTestEngine(&fakeSource{failHigher: true}, nil, Config{Policy: ForceDirection})

	res, err := e.Analyze(context.Background(), AnalyzeRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("missing higher timeframes must not fail the analysis: %v", err)
	}
	if res.Direction == Neutral {
		t.Errorf("direction = %s, want directional", res.Direction)
	}
}

func TestAnalyzeDailyLossGate(t *testing.T) {
	losses := &fakeLosses{loss: 490}
	e := newTestEngine(&fakeSource{}, losses, Config{Policy: ForceDirection, MaxDailyLoss: 500})

	req := AnalyzeRequest{Symbol: "BTCUSDT", UserID: "user-1", Capital: 10000, RiskPercent: 1}
	if _, err := e.Analyze(context.Background(), req); !errors.Is(err, risk.ErrDailyLossLimit) {
		t.Errorf("expected ErrDailyLossLimit, got %v", err)
	}

	losses.loss = 0
	if _, err := e.Analyze(context.Background(), req); err != nil {
		t.Errorf("zero realized loss should analyze cleanly, got %v", err)
	}
}

func TestAnalyzeExplicitTradeType(t *testing.T) {
	e := newTestEngine(&fakeSource{}, nil, Config{Policy: ForceDirection})

	res, err := e.Analyze(context.Background(), AnalyzeRequest{Symbol: "BTCUSDT", TradeType: "scalp"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Signal.Horizon != HorizonScalp {
		t.Errorf("horizon = %s, want scalp", res.Signal.Horizon)
	}
}

func TestCompositeScore(t *testing.T) {
	r := AnalysisResult{Confidence: 70, Score: ScoreResult{Bullish: 12, Bearish: 4}}
	if got := r.CompositeScore(); got != 82 {
		t.Errorf("composite score = %f, want 82", got)
	}
}
