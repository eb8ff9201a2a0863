package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
)

type fakeTrades struct {
	trades []TradeOutcome
	err    error
}

func (f *fakeTrades) ClosedTradesSince(ctx context.Context, userID string, since time.Time) ([]TradeOutcome, error) {
	return f.trades, f.err
}

type fakeParams struct {
	current  engine.AnalysisParameters
	upserted *engine.AnalysisParameters
	getErr   error
}

func (f *fakeParams) GetParameters(ctx context.Context, userID string) (engine.AnalysisParameters, error) {
	return f.current, f.getErr
}

func (f *fakeParams) UpsertParameters(ctx context.Context, userID string, params engine.AnalysisParameters) error {
	f.upserted = &params
	return nil
}

func makeTrades(n int, resultPercent float64, direction string, leverage int) []TradeOutcome {
	trades := make([]TradeOutcome, n)
	for i := range trades {
		trades[i] = TradeOutcome{
			Direction:     direction,
			Leverage:      leverage,
			ResultPercent: resultPercent,
			ResultAmount:  resultPercent * 10,
			ClosedAt:      time.Now().AddDate(0, 0, -i),
		}
	}
	return trades
}

func TestRunInsufficientData(t *testing.T) {
	trades := &fakeTrades{trades: makeTrades(9, 2, "LONG", 5)}
	params := &fakeParams{current: engine.DefaultParameters()}
	l := NewEngine(trades, params, zerolog.Nop())

	report, err := l.Run(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("insufficient data should not error, got %v", err)
	}
	if report.Applied {
		t.Error("report applied with only 9 trades")
	}
	if params.upserted != nil {
		t.Error("parameters were written despite insufficient data")
	}
	if len(report.Insights) == 0 {
		t.Error("expected an insufficient-data insight")
	}
}

func TestRunAppliesAtThreshold(t *testing.T) {
	trades := &fakeTrades{trades: makeTrades(10, 2, "LONG", 5)}
	params := &fakeParams{current: engine.DefaultParameters()}
	l := NewEngine(trades, params, zerolog.Nop())

	report, err := l.Run(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.Applied {
		t.Error("report not applied with 10 trades")
	}
	if params.upserted == nil {
		t.Fatal("parameters were not written")
	}
}

func TestRunTradeSourceError(t *testing.T) {
	trades := &fakeTrades{err: errors.New("db down")}
	l := NewEngine(trades, &fakeParams{}, zerolog.Nop())
	if _, err := l.Run(context.Background(), "user-1"); err == nil {
		t.Error("expected error when trade source fails")
	}
}

func TestComputeStats(t *testing.T) {
	trades := append(makeTrades(6, 3, "LONG", 5), makeTrades(4, -2, "SHORT", 10)...)
	s := computeStats(trades)

	if s.Trades != 10 || s.Wins != 6 || s.Losses != 4 {
		t.Errorf("counts = %d/%d/%d, want 10/6/4", s.Trades, s.Wins, s.Losses)
	}
	if s.WinRate != 0.6 {
		t.Errorf("win rate = %f, want 0.6", s.WinRate)
	}
	if s.AvgWinPercent != 3 || s.AvgLossPercent != 2 {
		t.Errorf("avg win/loss = %f/%f, want 3/2", s.AvgWinPercent, s.AvgLossPercent)
	}
	if s.PayoffRatio != 1.5 {
		t.Errorf("payoff = %f, want 1.5", s.PayoffRatio)
	}
	// 0.6*3 - 0.4*2 = 1.0
	if s.Expectancy != 1.0 {
		t.Errorf("expectancy = %f, want 1.0", s.Expectancy)
	}
	if s.LongWinRate != 1 || s.ShortWinRate != 0 {
		t.Errorf("direction win rates = %f/%f, want 1/0", s.LongWinRate, s.ShortWinRate)
	}
	if s.BestLeverage != 5 {
		t.Errorf("best leverage = %d, want 5", s.BestLeverage)
	}
}

func TestBestLeverageBucketMinimumSize(t *testing.T) {
	// Two trades at 20x outperform, but the bucket is too small to trust.
	trades := append(makeTrades(5, 1, "LONG", 5), makeTrades(2, 10, "LONG", 20)...)
	best, _ := bestLeverageBucket(trades)
	if best != 5 {
		t.Errorf("best leverage = %d, want 5 (20x bucket below minimum)", best)
	}
}

func TestAdjustTightensOnLowWinRate(t *testing.T) {
	p := engine.DefaultParameters()
	s := Stats{WinRate: 0.4, PayoffRatio: 2, Expectancy: 0.5}

	adjusted, insights := adjust(p, s)
	if adjusted.ConfidenceThreshold != p.ConfidenceThreshold+5 {
		t.Errorf("confidence threshold = %f, want %f", adjusted.ConfidenceThreshold, p.ConfidenceThreshold+5)
	}
	if adjusted.MinBullishScore != p.MinBullishScore+1 {
		t.Errorf("min score = %d, want %d", adjusted.MinBullishScore, p.MinBullishScore+1)
	}
	if len(insights) == 0 {
		t.Error("expected a win-rate insight")
	}
}

func TestAdjustConfidenceThresholdCap(t *testing.T) {
	p := engine.DefaultParameters()
	p.ConfidenceThreshold = 79
	s := Stats{WinRate: 0.3, PayoffRatio: 2, Expectancy: 0.1}

	adjusted, _ := adjust(p, s)
	if adjusted.ConfidenceThreshold > 80 {
		t.Errorf("confidence threshold = %f, want cap at 80", adjusted.ConfidenceThreshold)
	}
}

func TestAdjustWidensTPOnLowPayoff(t *testing.T) {
	p := engine.DefaultParameters()
	s := Stats{WinRate: 0.6, PayoffRatio: 1.0, Expectancy: 0.5}

	adjusted, _ := adjust(p, s)
	if adjusted.ATRMultiplierTP != p.ATRMultiplierTP+0.25 {
		t.Errorf("TP multiplier = %f, want %f", adjusted.ATRMultiplierTP, p.ATRMultiplierTP+0.25)
	}

	p.ATRMultiplierTP = 3.9
	adjusted, _ = adjust(p, s)
	if adjusted.ATRMultiplierTP > 4 {
		t.Errorf("TP multiplier = %f, want cap at 4", adjusted.ATRMultiplierTP)
	}
}

func TestAdjustNegativeExpectancyReducesLeverage(t *testing.T) {
	p := engine.DefaultParameters() // MaxLeverage 10
	s := Stats{WinRate: 0.6, PayoffRatio: 2, Expectancy: -0.5}

	adjusted, _ := adjust(p, s)
	if adjusted.MaxLeverage != 5 {
		t.Errorf("max leverage = %d, want 5", adjusted.MaxLeverage)
	}

	p.MaxLeverage = 3
	adjusted, _ = adjust(p, s)
	if adjusted.MaxLeverage != 2 {
		t.Errorf("low max leverage = %d, want floor at 2", adjusted.MaxLeverage)
	}
}

func TestAdjustPreferredSignal(t *testing.T) {
	p := engine.DefaultParameters()
	s := Stats{WinRate: 0.6, PayoffRatio: 2, Expectancy: 1, LongTrades: 5, ShortTrades: 5, LongWinRate: 0.8, ShortWinRate: 0.4}

	adjusted, _ := adjust(p, s)
	if adjusted.PreferredSignal != "LONG" {
		t.Errorf("preferred signal = %q, want LONG", adjusted.PreferredSignal)
	}

	s.LongWinRate, s.ShortWinRate = 0.3, 0.7
	adjusted, _ = adjust(p, s)
	if adjusted.PreferredSignal != "SHORT" {
		t.Errorf("preferred signal = %q, want SHORT", adjusted.PreferredSignal)
	}
}
