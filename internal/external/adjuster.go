package external

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/indicator"
)

// Confidence after external adjustment is clamped to this band.
const (
	minAdjusted = 30
	maxAdjusted = 95
)

// eventCategoryWeights are per-category confidence deltas; negative
// categories carry deliberately large penalties.
var eventCategoryWeights = map[string]float64{
	"listing":     8,
	"upgrade":     7,
	"partnership": 6,
	"airdrop":     4,
	"conference":  2,
	"regulation":  -6,
	"delisting":   -10,
	"hack":        -12,
	"exploit":     -12,
}

// Adjustment breaks down the external confidence correction.
type Adjustment struct {
	Base             float64  `json:"base"`
	Adjusted         float64  `json:"adjusted"`
	EventDelta       float64  `json:"event_delta"`
	FundamentalDelta float64  `json:"fundamental_delta"`
	NewsDelta        float64  `json:"news_delta"`
	CoherencePenalty float64  `json:"coherence_penalty"`
	Notes            []string `json:"notes,omitempty"`
}

// Adjuster blends calendar events, fundamentals and news sentiment into the
// scoring confidence, then subtracts coherence penalties when the chosen
// direction contradicts the engine's own sub-indicators. Lookups fan out
// concurrently; a failed or slow lookup contributes zero.
type Adjuster struct {
	events       EventProvider
	fundamentals FundamentalsProvider
	news         NewsProvider
	sentiment    *SentimentAnalyzer
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewAdjuster creates an adjuster. Nil providers are allowed and contribute
// zero.
func NewAdjuster(events EventProvider, fundamentals FundamentalsProvider, news NewsProvider, timeout time.Duration, logger zerolog.Logger) *Adjuster {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Adjuster{
		events:       events,
		fundamentals: fundamentals,
		news:         news,
		sentiment:    NewSentimentAnalyzer(),
		timeout:      timeout,
		logger:       logger.With().Str("component", "external").Logger(),
	}
}

// Adjust computes the adjusted confidence for a signal. direction is "LONG"
// or "SHORT"; oversold/overbought are the user's RSI thresholds used by the
// coherence check.
func (a *Adjuster) Adjust(ctx context.Context, symbol, direction string, snap indicator.Snapshot, oversold, overbought, base float64) Adjustment {
	adj := Adjustment{Base: base}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		adj.EventDelta = a.eventDelta(lookupCtx, symbol)
	}()
	go func() {
		defer wg.Done()
		adj.FundamentalDelta = a.fundamentalDelta(lookupCtx, symbol)
	}()
	go func() {
		defer wg.Done()
		adj.NewsDelta = a.newsDelta(lookupCtx, symbol)
	}()
	wg.Wait()

	adj.CoherencePenalty, adj.Notes = coherencePenalty(direction, snap, oversold, overbought)

	adj.Adjusted = math.Max(minAdjusted, math.Min(maxAdjusted,
		base+adj.EventDelta+adj.FundamentalDelta+adj.NewsDelta-adj.CoherencePenalty))
	return adj
}

// eventDelta weights calendar events by category and time proximity: within
// 7 days x1.5, within 30 days x1.2. The total is clamped to +/-15.
func (a *Adjuster) eventDelta(ctx context.Context, symbol string) float64 {
	if a.events == nil {
		return 0
	}
	events, err := a.events.UpcomingEvents(ctx, symbol)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("event lookup failed, contributing zero")
		return 0
	}

	now := time.Now()
	delta := 0.0
	for _, ev := range events {
		weight, ok := eventCategoryWeights[ev.Category]
		if !ok {
			continue
		}
		until := ev.Date.Sub(now)
		if until < 0 || until > 60*24*time.Hour {
			continue
		}
		switch {
		case until <= 7*24*time.Hour:
			weight *= 1.5
		case until <= 30*24*time.Hour:
			weight *= 1.2
		}
		delta += weight
	}
	return math.Max(-15, math.Min(15, delta))
}

// fundamentalDelta rescales the 0-100 composite to a contribution spanning
// 25 confidence points, centered so a neutral score of 50 contributes zero.
func (a *Adjuster) fundamentalDelta(ctx context.Context, symbol string) float64 {
	if a.fundamentals == nil {
		return 0
	}
	score, err := a.fundamentals.FundamentalScore(ctx, symbol)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("fundamentals lookup failed, contributing zero")
		return 0
	}
	return (math.Max(0, math.Min(100, score)) - 50) * 0.25
}

// newsDelta converts keyword sentiment polarity into a confidence delta,
// amplified by 1.5x.
func (a *Adjuster) newsDelta(ctx context.Context, symbol string) float64 {
	if a.news == nil {
		return 0
	}
	headlines, err := a.news.Headlines(ctx, symbol)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("news lookup failed, contributing zero")
		return 0
	}
	return a.sentiment.Analyze(headlines) * 10 * 1.5
}

// coherencePenalty charges fixed penalties when the chosen direction
// contradicts RSI extremes, MACD polarity or Bollinger position. This keeps
// the engine from reporting high confidence in a signal its own
// sub-indicators disagree with.
func coherencePenalty(direction string, snap indicator.Snapshot, oversold, overbought float64) (float64, []string) {
	penalty := 0.0
	var notes []string
	bbPos := snap.Bollinger.Position(snap.Price)

	if direction == "LONG" {
		if snap.RSI14 > overbought {
			penalty += 5
			notes = append(notes, "long against overbought RSI")
		}
		if snap.MACD.Histogram < 0 {
			penalty += 4
			notes = append(notes, "long against negative MACD histogram")
		}
		if bbPos > 0.9 {
			penalty += 4
			notes = append(notes, "long at upper Bollinger extreme")
		}
	} else if direction == "SHORT" {
		if snap.RSI14 < oversold {
			penalty += 5
			notes = append(notes, "short against oversold RSI")
		}
		if snap.MACD.Histogram > 0 {
			penalty += 4
			notes = append(notes, "short against positive MACD histogram")
		}
		if bbPos < 0.1 {
			penalty += 4
			notes = append(notes, "short at lower Bollinger extreme")
		}
	}
	return penalty, notes
}
