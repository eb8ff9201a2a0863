package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/learning"
)

// Repository provides data access methods. It satisfies learning.TradeSource,
// learning.ParamsStore and engine.LossTracker.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// CreateTrade inserts a new open trade.
func (r *Repository) CreateTrade(ctx context.Context, trade *Trade) error {
	if trade.Status == "" {
		trade.Status = TradeStatusOpen
	}
	query := `
		INSERT INTO trades (user_id, symbol, direction, entry_price, quantity, leverage, stop_loss, take_profit, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		trade.UserID, trade.Symbol, trade.Direction, trade.EntryPrice, trade.Quantity,
		trade.Leverage, trade.StopLoss, trade.TakeProfit, trade.Status, trade.OpenedAt,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
}

// CloseTrade records the exit of a trade and its realized result.
func (r *Repository) CloseTrade(ctx context.Context, id int64, exitPrice, resultAmount, resultPercent float64, closedAt time.Time) error {
	query := `
		UPDATE trades
		SET exit_price = $2, result_amount = $3, result_percent = $4,
		    closed_at = $5, status = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.Pool.Exec(ctx, query, id, exitPrice, resultAmount, resultPercent, closedAt, TradeStatusClosed)
	return err
}

// GetTradeByID retrieves a single trade.
func (r *Repository) GetTradeByID(ctx context.Context, id int64) (*Trade, error) {
	query := `
		SELECT id, user_id, symbol, direction, entry_price, exit_price, quantity, leverage,
		       stop_loss, take_profit, result_amount, result_percent, status, opened_at, closed_at,
		       created_at, updated_at
		FROM trades
		WHERE id = $1
	`
	trade := &Trade{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&trade.ID, &trade.UserID, &trade.Symbol, &trade.Direction, &trade.EntryPrice,
		&trade.ExitPrice, &trade.Quantity, &trade.Leverage, &trade.StopLoss, &trade.TakeProfit,
		&trade.ResultAmount, &trade.ResultPercent, &trade.Status, &trade.OpenedAt, &trade.ClosedAt,
		&trade.CreatedAt, &trade.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// ClosedTradesSince returns closed-trade outcomes for the learning engine.
func (r *Repository) ClosedTradesSince(ctx context.Context, userID string, since time.Time) ([]learning.TradeOutcome, error) {
	query := `
		SELECT direction, leverage, result_percent, result_amount, closed_at
		FROM trades
		WHERE user_id = $1 AND status = $2 AND closed_at >= $3
		ORDER BY closed_at
	`
	rows, err := r.db.Pool.Query(ctx, query, userID, TradeStatusClosed, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []learning.TradeOutcome
	for rows.Next() {
		var o learning.TradeOutcome
		if err := rows.Scan(&o.Direction, &o.Leverage, &o.ResultPercent, &o.ResultAmount, &o.ClosedAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// DailyRealizedLoss sums today's realized losses for a user, as a positive
// number. Winning trades do not offset it.
func (r *Repository) DailyRealizedLoss(ctx context.Context, userID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(-result_amount), 0)
		FROM trades
		WHERE user_id = $1 AND status = $2
		  AND closed_at >= date_trunc('day', CURRENT_TIMESTAMP)
		  AND result_amount < 0
	`
	var loss float64
	err := r.db.Pool.QueryRow(ctx, query, userID, TradeStatusClosed).Scan(&loss)
	return loss, err
}

// GetParameters loads the user's analysis parameters, falling back to
// defaults when no record exists.
func (r *Repository) GetParameters(ctx context.Context, userID string) (engine.AnalysisParameters, error) {
	query := `
		SELECT rsi_oversold_threshold, rsi_overbought_threshold, atr_multiplier_tp, atr_multiplier_sl,
		       confidence_threshold, min_bullish_score, preferred_signal, max_leverage
		FROM analysis_parameters
		WHERE user_id = $1
	`
	var p engine.AnalysisParameters
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.RSIOversold, &p.RSIOverbought, &p.ATRMultiplierTP, &p.ATRMultiplierSL,
		&p.ConfidenceThreshold, &p.MinBullishScore, &p.PreferredSignal, &p.MaxLeverage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.DefaultParameters(), nil
	}
	if err != nil {
		return engine.AnalysisParameters{}, err
	}
	return p.Normalize(), nil
}

// UpsertParameters overwrites the user's parameter record.
func (r *Repository) UpsertParameters(ctx context.Context, userID string, p engine.AnalysisParameters) error {
	query := `
		INSERT INTO analysis_parameters (user_id, rsi_oversold_threshold, rsi_overbought_threshold,
			atr_multiplier_tp, atr_multiplier_sl, confidence_threshold, min_bullish_score,
			preferred_signal, max_leverage, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			rsi_oversold_threshold = EXCLUDED.rsi_oversold_threshold,
			rsi_overbought_threshold = EXCLUDED.rsi_overbought_threshold,
			atr_multiplier_tp = EXCLUDED.atr_multiplier_tp,
			atr_multiplier_sl = EXCLUDED.atr_multiplier_sl,
			confidence_threshold = EXCLUDED.confidence_threshold,
			min_bullish_score = EXCLUDED.min_bullish_score,
			preferred_signal = EXCLUDED.preferred_signal,
			max_leverage = EXCLUDED.max_leverage,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.Pool.Exec(ctx, query,
		userID, p.RSIOversold, p.RSIOverbought, p.ATRMultiplierTP, p.ATRMultiplierSL,
		p.ConfidenceThreshold, p.MinBullishScore, p.PreferredSignal, p.MaxLeverage,
	)
	return err
}

// SaveSignal persists a generated signal for audit.
func (r *Repository) SaveSignal(ctx context.Context, rec *SignalRecord) error {
	query := `
		INSERT INTO signals (user_id, symbol, direction, entry_price, stop_loss, tp1, tp2, tp3,
			confidence, leverage, horizon, rationale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(ctx, query,
		rec.UserID, rec.Symbol, rec.Direction, rec.EntryPrice, rec.StopLoss,
		rec.TP1, rec.TP2, rec.TP3, rec.Confidence, rec.Leverage, rec.Horizon, rec.Rationale,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// RecentSignals returns the latest persisted signals, newest first.
func (r *Repository) RecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, symbol, direction, entry_price, stop_loss, tp1, tp2, tp3,
		       confidence, leverage, horizon, rationale, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Symbol, &rec.Direction, &rec.EntryPrice, &rec.StopLoss,
			&rec.TP1, &rec.TP2, &rec.TP3, &rec.Confidence, &rec.Leverage, &rec.Horizon,
			&rec.Rationale, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
