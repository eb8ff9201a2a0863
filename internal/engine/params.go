package engine

// AnalysisParameters is the per-user tunable state the scoring and sizing
// layers read. The learning engine is the only writer; every analysis call
// receives an immutable copy resolved once by the caller.
type AnalysisParameters struct {
	RSIOversold         float64 `json:"rsi_oversold_threshold"`
	RSIOverbought       float64 `json:"rsi_overbought_threshold"`
	ATRMultiplierTP     float64 `json:"atr_multiplier_tp"`
	ATRMultiplierSL     float64 `json:"atr_multiplier_sl"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	MinBullishScore     int     `json:"min_bullish_score"`
	PreferredSignal     string  `json:"preferred_signal"`
	MaxLeverage         int     `json:"max_leverage"`
}

// DefaultParameters returns the parameter set used when a user has no learned
// record yet.
func DefaultParameters() AnalysisParameters {
	return AnalysisParameters{
		RSIOversold:         30,
		RSIOverbought:       70,
		ATRMultiplierTP:     2.0,
		ATRMultiplierSL:     1.5,
		ConfidenceThreshold: 60,
		MinBullishScore:     8,
		PreferredSignal:     "",
		MaxLeverage:         10,
	}
}

// Normalize fills zero-valued fields with defaults so partially populated
// records never disable a threshold.
func (p AnalysisParameters) Normalize() AnalysisParameters {
	def := DefaultParameters()
	if p.RSIOversold <= 0 {
		p.RSIOversold = def.RSIOversold
	}
	if p.RSIOverbought <= 0 {
		p.RSIOverbought = def.RSIOverbought
	}
	if p.ATRMultiplierTP <= 0 {
		p.ATRMultiplierTP = def.ATRMultiplierTP
	}
	if p.ATRMultiplierSL <= 0 {
		p.ATRMultiplierSL = def.ATRMultiplierSL
	}
	if p.ConfidenceThreshold <= 0 {
		p.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if p.MinBullishScore <= 0 {
		p.MinBullishScore = def.MinBullishScore
	}
	if p.MaxLeverage <= 0 {
		p.MaxLeverage = def.MaxLeverage
	}
	return p
}
