package storage

import "time"

// Trade statuses.
const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// Trade is one position lifecycle row.
type Trade struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	Symbol        string     `json:"symbol"`
	Direction     string     `json:"direction"`
	EntryPrice    float64    `json:"entry_price"`
	ExitPrice     *float64   `json:"exit_price,omitempty"`
	Quantity      float64    `json:"quantity"`
	Leverage      int        `json:"leverage"`
	StopLoss      *float64   `json:"stop_loss,omitempty"`
	TakeProfit    *float64   `json:"take_profit,omitempty"`
	ResultAmount  *float64   `json:"result_amount,omitempty"`
	ResultPercent *float64   `json:"result_percent,omitempty"`
	Status        string     `json:"status"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SignalRecord is one persisted signal row.
type SignalRecord struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TP1        float64   `json:"tp1"`
	TP2        float64   `json:"tp2"`
	TP3        float64   `json:"tp3"`
	Confidence float64   `json:"confidence"`
	Leverage   int       `json:"leverage"`
	Horizon    string    `json:"horizon"`
	Rationale  string    `json:"rationale"`
	CreatedAt  time.Time `json:"created_at"`
}
