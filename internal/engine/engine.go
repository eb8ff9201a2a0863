package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/external"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/indicator"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/pattern"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/risk"
)

// Candle window sizes per timeframe.
const (
	windowH1 = 500
	windowH4 = 200
	windowD1 = 100
)

// LossTracker reports the user's realized loss for the current day. The
// persistence layer owns the daily reset; the engine only reads it.
type LossTracker interface {
	DailyRealizedLoss(ctx context.Context, userID string) (float64, error)
}

// Config holds engine defaults applied when a request leaves them unset.
type Config struct {
	Policy             SignalPolicy `json:"-"`
	DefaultCapital     float64      `json:"default_capital"`
	DefaultRiskPercent float64      `json:"default_risk_percent"`
	MaxDailyLoss       float64      `json:"max_daily_loss"`
}

// AnalyzeRequest describes one analysis call. Params, when nil, resolve to
// defaults; the caller is expected to inject the user's learned parameters.
type AnalyzeRequest struct {
	Symbol                string              `json:"symbol"`
	UserID                string              `json:"user_id"`
	TradeType             string              `json:"trade_type,omitempty"`
	TargetDurationMinutes int                 `json:"target_duration_minutes,omitempty"`
	CapitalPercent        float64             `json:"capital_percent,omitempty"`
	Capital               float64             `json:"capital,omitempty"`
	RiskPercent           float64             `json:"risk_percent,omitempty"`
	MaxDailyLoss          float64             `json:"max_daily_loss,omitempty"`
	Params                *AnalysisParameters `json:"params,omitempty"`
}

// AnalysisResult is the full output of one analysis pass.
type AnalysisResult struct {
	Symbol          string              `json:"symbol"`
	Direction       Direction           `json:"direction"`
	BaseConfidence  float64             `json:"base_confidence"`
	Confidence      float64             `json:"confidence"`
	Score           ScoreResult         `json:"score"`
	Signal          Signal              `json:"signal"`
	Snapshot        indicator.Snapshot  `json:"snapshot"`
	Patterns        []pattern.Pattern   `json:"patterns"`
	HorizonEstimate HorizonEstimate     `json:"horizon_estimate"`
	Position        *risk.Position      `json:"position,omitempty"`
	Adjustment      external.Adjustment `json:"adjustment"`
	Rationale       string              `json:"rationale"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// CompositeScore ranks results for the market scan: the dominant point total
// on top of the adjusted confidence.
func (r *AnalysisResult) CompositeScore() float64 {
	maxSide := r.Score.Bullish
	if r.Score.Bearish > maxSide {
		maxSide = r.Score.Bearish
	}
	return r.Confidence + float64(maxSide)
}

// Engine runs the full candles -> indicators -> score -> signal -> sizing ->
// adjustment pipeline. Stateless per invocation; safe for concurrent use.
type Engine struct {
	data     market.DataSource
	sizer    *risk.Sizer
	adjuster *external.Adjuster
	losses   LossTracker
	scorer   *Scorer
	cfg      Config
	logger   zerolog.Logger
}

// New creates an analysis engine. adjuster and losses may be nil, disabling
// external adjustment and the daily-loss gate respectively.
func New(data market.DataSource, sizer *risk.Sizer, adjuster *external.Adjuster, losses LossTracker, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.DefaultCapital <= 0 {
		cfg.DefaultCapital = 10000
	}
	if cfg.DefaultRiskPercent <= 0 {
		cfg.DefaultRiskPercent = 1
	}
	return &Engine{
		data:     data,
		sizer:    sizer,
		adjuster: adjuster,
		losses:   losses,
		scorer:   NewScorer(cfg.Policy),
		cfg:      cfg,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Analyze runs one full analysis for a symbol. Returns market.ErrNoData when
// the primary candle series cannot be fetched and risk.ErrDailyLossLimit when
// the projected trade would breach the user's daily loss cap.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	params := DefaultParameters()
	if req.Params != nil {
		params = req.Params.Normalize()
	}

	h1, err := e.data.GetCandles(ctx, req.Symbol, "1h", windowH1)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", req.Symbol, err)
	}

	// Higher timeframes degrade to empty snapshots; only the primary series
	// is required.
	var h4, d1 []market.Candle
	if h4, err = e.data.GetCandles(ctx, req.Symbol, "4h", windowH4); err != nil {
		e.logger.Debug().Err(err).Str("symbol", req.Symbol).Msg("4h series unavailable")
	}
	if d1, err = e.data.GetCandles(ctx, req.Symbol, "1d", windowD1); err != nil {
		e.logger.Debug().Err(err).Str("symbol", req.Symbol).Msg("1d series unavailable")
	}

	tf := TimeframeSet{
		H1: indicator.ComputeSnapshot(h1),
		H4: indicator.ComputeSnapshot(h4),
		D1: indicator.ComputeSnapshot(d1),
	}
	patterns := pattern.Detect(h1, tf.H1.VWAP)

	score := e.scorer.Score(tf, patterns, params)
	direction := e.scorer.Resolve(score, tf.D1, params)

	result := &AnalysisResult{
		Symbol:         req.Symbol,
		Direction:      direction,
		BaseConfidence: score.Confidence,
		Confidence:     score.Confidence,
		Score:          score,
		Snapshot:       tf.H1,
		Patterns:       patterns,
		GeneratedAt:    time.Now().UTC(),
	}

	if direction == Neutral {
		result.Signal = Signal{Direction: Neutral, Entry: tf.H1.Price}
		result.Rationale = BuildRationale(score, result.Signal, patterns, HorizonEstimate{})
		return result, nil
	}

	entry := tf.H1.Price
	var quoteVolume float64
	if ticker, err := e.data.GetTicker24h(ctx, req.Symbol); err == nil {
		if ticker.LastPrice > 0 {
			entry = ticker.LastPrice
		}
		quoteVolume = ticker.QuoteVolume
	} else {
		e.logger.Debug().Err(err).Str("symbol", req.Symbol).Msg("ticker unavailable, using last close")
	}

	horizon, est := e.resolveHorizon(req, direction, entry, tf.H1.ATR14, market.Closes(d1), params, quoteVolume)
	result.HorizonEstimate = est
	result.Signal = ComposeSignal(direction, entry, tf.H1.ATR14, horizon, params)

	// Matching the learned preferred direction earns a small confidence edge.
	if params.PreferredSignal == string(direction) {
		result.BaseConfidence = clamp(result.BaseConfidence+3, 0, 100)
	}

	if e.adjuster != nil {
		result.Adjustment = e.adjuster.Adjust(ctx, req.Symbol, string(direction), tf.H1,
			params.RSIOversold, params.RSIOverbought, result.BaseConfidence)
	} else {
		result.Adjustment = external.Adjustment{Base: result.BaseConfidence, Adjusted: clamp(result.BaseConfidence, 30, 95)}
	}
	result.Confidence = result.Adjustment.Adjusted

	position, err := e.size(ctx, req, result, params)
	if err != nil {
		return nil, err
	}
	result.Position = position

	result.Rationale = BuildRationale(score, result.Signal, patterns, est)
	return result, nil
}

// resolveHorizon prefers an explicit trade type, then an explicit duration,
// and finally the volatility-based estimate against a provisional TP2.
func (e *Engine) resolveHorizon(req AnalyzeRequest, dir Direction, entry, atr float64, dailyCloses []float64, params AnalysisParameters, quoteVolume float64) (Horizon, HorizonEstimate) {
	if req.TradeType != "" {
		if h, ok := HorizonFromTradeType(req.TradeType); ok {
			return h, HorizonEstimate{Horizon: h, Label: string(h), VolumeFactor: 1}
		}
	}
	if req.TargetDurationMinutes > 0 {
		h := HorizonFromDuration(req.TargetDurationMinutes)
		return h, HorizonEstimate{Horizon: h, Label: string(h), VolumeFactor: 1}
	}

	provisional := ComposeSignal(dir, entry, atr, HorizonIntraday, params)
	est := EstimateHorizon(dailyCloses, entry, provisional.TP2, quoteVolume)
	return est.Horizon, est
}

func (e *Engine) size(ctx context.Context, req AnalyzeRequest, result *AnalysisResult, params AnalysisParameters) (*risk.Position, error) {
	if e.sizer == nil {
		return nil, nil
	}

	capital := req.Capital
	if capital <= 0 {
		capital = e.cfg.DefaultCapital
	}
	riskPercent := req.RiskPercent
	if riskPercent <= 0 {
		riskPercent = e.cfg.DefaultRiskPercent
	}
	capitalFraction := req.CapitalPercent / 100
	if capitalFraction <= 0 || capitalFraction > 1 {
		capitalFraction = 1
	}
	maxDailyLoss := req.MaxDailyLoss
	if maxDailyLoss <= 0 {
		maxDailyLoss = e.cfg.MaxDailyLoss
	}

	var dailyLoss float64
	if e.losses != nil && req.UserID != "" {
		loss, err := e.losses.DailyRealizedLoss(ctx, req.UserID)
		if err != nil {
			e.logger.Warn().Err(err).Str("user", req.UserID).Msg("daily loss lookup failed")
		} else {
			dailyLoss = loss
		}
	}

	return e.sizer.Size(risk.SizeRequest{
		Capital:          capital,
		RiskPercent:      riskPercent,
		CapitalFraction:  capitalFraction,
		Entry:            result.Signal.Entry,
		StopLoss:         result.Signal.StopLoss,
		TakeProfits:      []float64{result.Signal.TP1, result.Signal.TP2, result.Signal.TP3},
		Confidence:       result.Confidence,
		ADX:              result.Snapshot.ADX,
		VolatilityPct:    result.Snapshot.VolatilityPercent(),
		Horizon:          string(result.Signal.Horizon),
		MaxLeverage:      params.MaxLeverage,
		CurrentDailyLoss: dailyLoss,
		MaxDailyLoss:     maxDailyLoss,
	})
}
