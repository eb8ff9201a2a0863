package learning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
)

const (
	// minTrades is the smallest closed-trade sample the engine will learn from.
	minTrades = 10
	// windowDays is the trailing history window.
	windowDays = 90
	// minBucketTrades is the smallest leverage bucket considered meaningful.
	minBucketTrades = 3
)

// TradeOutcome is one closed trade consumed by the learning pass.
type TradeOutcome struct {
	Direction     string    `json:"direction"`
	Leverage      int       `json:"leverage"`
	ResultPercent float64   `json:"result_percent"`
	ResultAmount  float64   `json:"result_amount"`
	ClosedAt      time.Time `json:"closed_at"`
}

// TradeSource supplies closed trades for a user.
type TradeSource interface {
	ClosedTradesSince(ctx context.Context, userID string, since time.Time) ([]TradeOutcome, error)
}

// ParamsStore reads and overwrites the user's analysis parameters.
type ParamsStore interface {
	GetParameters(ctx context.Context, userID string) (engine.AnalysisParameters, error)
	UpsertParameters(ctx context.Context, userID string, params engine.AnalysisParameters) error
}

// Stats aggregates closed-trade performance.
type Stats struct {
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"` // 0-1
	AvgWinPercent  float64 `json:"avg_win_percent"`
	AvgLossPercent float64 `json:"avg_loss_percent"` // magnitude
	PayoffRatio    float64 `json:"payoff_ratio"`
	Expectancy     float64 `json:"expectancy"`
	LongTrades     int     `json:"long_trades"`
	ShortTrades    int     `json:"short_trades"`
	LongWinRate    float64 `json:"long_win_rate"`
	ShortWinRate   float64 `json:"short_win_rate"`
	BestLeverage   int     `json:"best_leverage"`
	BestLevReturn  float64 `json:"best_leverage_avg_return"`
}

// Report is the output of one learning pass.
type Report struct {
	UserID      string                    `json:"user_id"`
	Stats       Stats                     `json:"stats"`
	Insights    []string                  `json:"insights"`
	Adjustments engine.AnalysisParameters `json:"adjustments"`
	Applied     bool                      `json:"applied"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Engine is the adaptive-parameter feedback loop: it aggregates closed-trade
// statistics and rewrites the scoring thresholds the forward pass reads.
type Engine struct {
	trades TradeSource
	params ParamsStore
	logger zerolog.Logger
}

// NewEngine creates a learning engine.
func NewEngine(trades TradeSource, params ParamsStore, logger zerolog.Logger) *Engine {
	return &Engine{
		trades: trades,
		params: params,
		logger: logger.With().Str("component", "learning").Logger(),
	}
}

// Run executes one learning pass for a user. With fewer than 10 closed trades
// in the 90-day window it reports Applied=false and changes nothing; that is
// a normal result, not an error.
func (l *Engine) Run(ctx context.Context, userID string) (*Report, error) {
	since := time.Now().AddDate(0, 0, -windowDays)
	trades, err := l.trades.ClosedTradesSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("learning: loading trades for %s: %w", userID, err)
	}

	report := &Report{UserID: userID, GeneratedAt: time.Now().UTC()}
	if len(trades) < minTrades {
		report.Insights = append(report.Insights,
			fmt.Sprintf("insufficient data: %d closed trades in the last %d days, need %d", len(trades), windowDays, minTrades))
		return report, nil
	}

	report.Stats = computeStats(trades)

	current, err := l.params.GetParameters(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("learning: loading parameters for %s: %w", userID, err)
	}
	report.Adjustments, report.Insights = adjust(current.Normalize(), report.Stats)

	if err := l.params.UpsertParameters(ctx, userID, report.Adjustments); err != nil {
		return nil, fmt.Errorf("learning: saving parameters for %s: %w", userID, err)
	}
	report.Applied = true

	l.logger.Info().Str("user", userID).Int("trades", report.Stats.Trades).
		Float64("win_rate", report.Stats.WinRate).Float64("expectancy", report.Stats.Expectancy).
		Msg("learning pass applied")
	return report, nil
}

func computeStats(trades []TradeOutcome) Stats {
	var s Stats
	s.Trades = len(trades)

	var winSum, lossSum float64
	var longWins, shortWins int
	for _, t := range trades {
		if t.ResultPercent > 0 {
			s.Wins++
			winSum += t.ResultPercent
		} else {
			s.Losses++
			lossSum += -t.ResultPercent
		}
		switch t.Direction {
		case "LONG":
			s.LongTrades++
			if t.ResultPercent > 0 {
				longWins++
			}
		case "SHORT":
			s.ShortTrades++
			if t.ResultPercent > 0 {
				shortWins++
			}
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWinPercent = winSum / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPercent = lossSum / float64(s.Losses)
	}
	if s.AvgLossPercent > 0 {
		s.PayoffRatio = s.AvgWinPercent / s.AvgLossPercent
	} else {
		s.PayoffRatio = s.AvgWinPercent
	}
	s.Expectancy = s.WinRate*s.AvgWinPercent - (1-s.WinRate)*s.AvgLossPercent

	if s.LongTrades > 0 {
		s.LongWinRate = float64(longWins) / float64(s.LongTrades)
	}
	if s.ShortTrades > 0 {
		s.ShortWinRate = float64(shortWins) / float64(s.ShortTrades)
	}

	s.BestLeverage, s.BestLevReturn = bestLeverageBucket(trades)
	return s
}

// bestLeverageBucket finds the leverage with the highest average return,
// requiring at least 3 trades per bucket. Returns 0 when no bucket qualifies.
func bestLeverageBucket(trades []TradeOutcome) (int, float64) {
	buckets := make(map[int][]float64)
	for _, t := range trades {
		if t.Leverage > 0 {
			buckets[t.Leverage] = append(buckets[t.Leverage], t.ResultPercent)
		}
	}

	levels := make([]int, 0, len(buckets))
	for lev := range buckets {
		levels = append(levels, lev)
	}
	sort.Ints(levels)

	best, bestAvg := 0, math.Inf(-1)
	for _, lev := range levels {
		returns := buckets[lev]
		if len(returns) < minBucketTrades {
			continue
		}
		sum := 0.0
		for _, r := range returns {
			sum += r
		}
		if avg := sum / float64(len(returns)); avg > bestAvg {
			best, bestAvg = lev, avg
		}
	}
	if best == 0 {
		return 0, 0
	}
	return best, bestAvg
}

// adjust derives the next parameter record from performance. The record fully
// overwrites the previous one.
func adjust(p engine.AnalysisParameters, s Stats) (engine.AnalysisParameters, []string) {
	var insights []string

	if s.WinRate < 0.5 {
		p.ConfidenceThreshold = math.Min(80, p.ConfidenceThreshold+5)
		if p.MinBullishScore < 12 {
			p.MinBullishScore++
		}
		insights = append(insights, fmt.Sprintf("win rate %.0f%% below 50%%: tightening confidence and score gates", s.WinRate*100))
	}

	if s.PayoffRatio < 1.5 {
		p.ATRMultiplierTP = math.Min(4, p.ATRMultiplierTP+0.25)
		insights = append(insights, fmt.Sprintf("payoff ratio %.2f below 1.5: widening take-profit multiplier", s.PayoffRatio))
	}

	if s.BestLeverage > 0 {
		p.MaxLeverage = s.BestLeverage
		insights = append(insights, fmt.Sprintf("leverage %dx performed best (%.2f%% avg return)", s.BestLeverage, s.BestLevReturn))
	}

	if s.Expectancy < 0 {
		if p.MaxLeverage > 7 {
			p.MaxLeverage -= 5
		} else if p.MaxLeverage > 2 {
			p.MaxLeverage = 2
		}
		p.ConfidenceThreshold = math.Min(85, p.ConfidenceThreshold+5)
		insights = append(insights, fmt.Sprintf("negative expectancy %.2f: reducing leverage and raising confidence gate", s.Expectancy))
	}

	switch {
	case s.LongTrades > 0 && s.LongWinRate > s.ShortWinRate:
		p.PreferredSignal = "LONG"
		insights = append(insights, fmt.Sprintf("LONG trades win more often (%.0f%% vs %.0f%%)", s.LongWinRate*100, s.ShortWinRate*100))
	case s.ShortTrades > 0 && s.ShortWinRate > s.LongWinRate:
		p.PreferredSignal = "SHORT"
		insights = append(insights, fmt.Sprintf("SHORT trades win more often (%.0f%% vs %.0f%%)", s.ShortWinRate*100, s.LongWinRate*100))
	}

	return p, insights
}
