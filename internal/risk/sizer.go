package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// ErrDailyLossLimit is returned when a projected trade would push the user's
// realized daily loss past their configured cap. This is a hard stop, not a
// warning: no sizing result is produced.
var ErrDailyLossLimit = errors.New("risk: daily loss limit exceeded")

// marginCapFraction bounds margin at 95% of capital so over-leveraged inputs
// can never produce an unfundable position.
const marginCapFraction = 0.95

// exitPlan is the partial-exit split across TP1/TP2/TP3.
var exitPlan = []float64{0.5, 0.3, 0.2}

// SizeRequest carries everything the sizer needs for one trade.
type SizeRequest struct {
	Capital          float64
	RiskPercent      float64
	CapitalFraction  float64 // fraction of capital deployed, 0-1
	Entry            float64
	StopLoss         float64
	TakeProfits      []float64
	Confidence       float64
	ADX              float64
	VolatilityPct    float64 // ATR as percent of price
	Horizon          string  // scalp, intraday, swing, position
	MaxLeverage      int
	CurrentDailyLoss float64
	MaxDailyLoss     float64 // 0 disables the gate
}

// Position is the sizing result.
type Position struct {
	Size       float64   `json:"size"`
	Value      float64   `json:"value"`
	Margin     float64   `json:"margin"`
	Leverage   int       `json:"leverage"`
	RiskAmount float64   `json:"risk_amount"`
	TPProfits  []float64 `json:"tp_profits"`
	ExitPlan   []float64 `json:"exit_plan"`
	Capped     bool      `json:"capped"`
}

// Sizer converts a risk budget into position size, margin and a leverage
// suggestion.
type Sizer struct {
	logger zerolog.Logger
}

// NewSizer creates a position sizer.
func NewSizer(logger zerolog.Logger) *Sizer {
	return &Sizer{logger: logger.With().Str("component", "risk").Logger()}
}

// Size computes the position for a trade. The daily-loss gate is enforced
// before any result is returned.
func (s *Sizer) Size(req SizeRequest) (*Position, error) {
	if req.Capital <= 0 || req.Entry <= 0 {
		return nil, fmt.Errorf("risk: invalid capital %.2f or entry %.4f", req.Capital, req.Entry)
	}
	stopDist := math.Abs(req.Entry - req.StopLoss)
	if stopDist == 0 {
		return nil, errors.New("risk: stop loss equals entry")
	}
	if req.RiskPercent <= 0 {
		req.RiskPercent = 1
	}

	riskAmount := req.Capital * req.RiskPercent / 100

	if req.MaxDailyLoss > 0 && req.CurrentDailyLoss+riskAmount > req.MaxDailyLoss {
		return nil, fmt.Errorf("%w: current loss %.2f + projected risk %.2f exceeds cap %.2f",
			ErrDailyLossLimit, req.CurrentDailyLoss, riskAmount, req.MaxDailyLoss)
	}

	leverage := s.SuggestLeverage(req)

	pos := &Position{
		Size:       riskAmount / stopDist,
		Leverage:   leverage,
		RiskAmount: riskAmount,
		ExitPlan:   exitPlan,
	}
	pos.Value = pos.Size * req.Entry
	pos.Margin = pos.Value / float64(leverage)

	// Shrink the position when margin would exceed 95% of capital.
	if maxMargin := req.Capital * marginCapFraction; pos.Margin > maxMargin {
		scale := maxMargin / pos.Margin
		pos.Size *= scale
		pos.Value *= scale
		pos.Margin = maxMargin
		pos.RiskAmount = pos.Size * stopDist
		pos.Capped = true
		s.logger.Debug().Float64("scale", scale).Msg("position shrunk to margin cap")
	}

	pos.TPProfits = make([]float64, len(req.TakeProfits))
	for i, tp := range req.TakeProfits {
		fraction := 0.0
		if i < len(exitPlan) {
			fraction = exitPlan[i]
		}
		pos.TPProfits[i] = pos.Size * fraction * math.Abs(tp-req.Entry)
	}
	return pos, nil
}

// SuggestLeverage picks a base leverage tier from volatility, confidence and
// trend strength, then scales it by horizon, capital fraction and declared
// risk, clamped to [1, MaxLeverage].
func (s *Sizer) SuggestLeverage(req SizeRequest) int {
	base := baseLeverageTier(req.VolatilityPct, req.Confidence)
	if req.ADX >= 25 {
		base += 2
	}

	lev := float64(base)
	switch req.Horizon {
	case "scalp":
		lev *= 1.3
	case "intraday":
		lev *= 1.1
	case "swing":
		lev *= 0.8
	case "position":
		lev *= 0.6
	}

	// Deploying a smaller slice of capital calls for a more conservative lever.
	switch {
	case req.CapitalFraction > 0 && req.CapitalFraction < 0.25:
		lev *= 0.8
	case req.CapitalFraction > 0 && req.CapitalFraction < 0.5:
		lev *= 0.9
	}

	// Higher declared per-trade risk lowers leverage.
	switch {
	case req.RiskPercent > 3:
		lev *= 0.7
	case req.RiskPercent > 2:
		lev *= 0.85
	}

	maxLev := req.MaxLeverage
	if maxLev <= 0 {
		maxLev = 10
	}
	result := int(math.Round(lev))
	if result < 1 {
		result = 1
	}
	if result > maxLev {
		result = maxLev
	}
	return result
}

func baseLeverageTier(volatilityPct, confidence float64) int {
	switch {
	case volatilityPct > 0 && volatilityPct < 1 && confidence >= 80:
		return 20
	case volatilityPct < 1.5 && confidence >= 70:
		return 15
	case volatilityPct < 2.5 && confidence >= 60:
		return 10
	case volatilityPct < 4:
		return 7
	default:
		return 5
	}
}
