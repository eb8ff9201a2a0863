package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/pattern"
)

// Config holds market-scan configuration.
type Config struct {
	Enabled           bool          `json:"enabled"`
	Interval          time.Duration `json:"interval"`
	Workers           int           `json:"workers"`
	MaxSymbols        int           `json:"max_symbols"`
	MaxResults        int           `json:"max_results"`
	ScoreThreshold    float64       `json:"score_threshold"`
	ReferenceSymbol   string        `json:"reference_symbol"`
	QuoteAsset        string        `json:"quote_asset"`
	SafetyMovePercent float64       `json:"safety_move_percent"`
}

// Opportunity is one qualifying symbol from a market scan.
type Opportunity struct {
	Symbol     string            `json:"symbol"`
	Direction  engine.Direction  `json:"direction"`
	Score      float64           `json:"score"`
	Confidence float64           `json:"confidence"`
	Price      float64           `json:"price"`
	Signal     engine.Signal     `json:"signal"`
	Patterns   []pattern.Pattern `json:"patterns,omitempty"`
	Rationale  string            `json:"rationale"`
}

// ScanResult is the outcome of one scan cycle.
type ScanResult struct {
	ScanID             string        `json:"scan_id"`
	StartTime          time.Time     `json:"start_time"`
	Duration           time.Duration `json:"duration"`
	SymbolsScanned     int           `json:"symbols_scanned"`
	SymbolsSkipped     int           `json:"symbols_skipped"`
	SafetyMode         bool          `json:"safety_mode"`
	EffectiveThreshold float64       `json:"effective_threshold"`
	Opportunities      []Opportunity `json:"opportunities"`
}

// Analyzer runs the signal pipeline for one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.AnalyzeRequest) (*engine.AnalysisResult, error)
}

// Scanner evaluates the signal pipeline across many symbols concurrently and
// ranks the qualifying ones. A single symbol's failure never aborts the batch.
type Scanner struct {
	data     market.DataSource
	analyzer Analyzer
	cfg      Config
	logger   zerolog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu         sync.RWMutex
	lastResult *ScanResult
	onResult   func(*ScanResult)
}

// New creates a market scanner.
func New(data market.DataSource, analyzer Analyzer, cfg Config, logger zerolog.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.ReferenceSymbol == "" {
		cfg.ReferenceSymbol = "BTCUSDT"
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.SafetyMovePercent <= 0 {
		cfg.SafetyMovePercent = 10
	}
	return &Scanner{
		data:     data,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger.With().Str("component", "scanner").Logger(),
		stopChan: make(chan struct{}),
	}
}

// OnResult registers a callback invoked after every background scan cycle.
// Must be called before Start.
func (sc *Scanner) OnResult(fn func(*ScanResult)) {
	sc.onResult = fn
}

// Start begins the background scan loop.
func (sc *Scanner) Start() {
	if !sc.cfg.Enabled {
		sc.logger.Info().Msg("market scanner disabled")
		return
	}
	sc.wg.Add(1)
	go sc.runLoop()
	sc.logger.Info().Dur("interval", sc.cfg.Interval).Msg("market scanner started")
}

// Stop shuts down the background loop and waits for it to exit.
func (sc *Scanner) Stop() {
	close(sc.stopChan)
	sc.wg.Wait()
}

func (sc *Scanner) runLoop() {
	defer sc.wg.Done()

	interval := sc.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sc.runOnce()
	for {
		select {
		case <-ticker.C:
			sc.runOnce()
		case <-sc.stopChan:
			sc.logger.Info().Msg("market scanner stopped")
			return
		}
	}
}

func (sc *Scanner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := sc.Scan(ctx, sc.cfg.MaxResults, sc.cfg.ScoreThreshold, "", nil)
	if err != nil {
		sc.logger.Error().Err(err).Msg("scan cycle failed")
		return
	}
	sc.mu.Lock()
	sc.lastResult = result
	sc.mu.Unlock()

	if sc.onResult != nil {
		sc.onResult(result)
	}
}

// ScoreThreshold returns the configured minimum composite score.
func (sc *Scanner) ScoreThreshold() float64 {
	return sc.cfg.ScoreThreshold
}

// LastResult returns the most recent background scan result, or nil when no
// cycle has completed yet.
func (sc *Scanner) LastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}

// Scan evaluates the configured symbol universe and returns up to limit
// opportunities above the score threshold, best first. When the reference
// asset's 24h move exceeds the safety bound, the effective threshold is
// raised by 10.
func (sc *Scanner) Scan(ctx context.Context, limit int, threshold float64, userID string, params *engine.AnalysisParameters) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{
		ScanID:             uuid.NewString(),
		StartTime:          start.UTC(),
		EffectiveThreshold: threshold,
	}
	if limit <= 0 {
		limit = sc.cfg.MaxResults
	}

	symbols, err := sc.data.ListSymbols(ctx, sc.cfg.QuoteAsset)
	if err != nil {
		return nil, err
	}
	if sc.cfg.MaxSymbols > 0 && len(symbols) > sc.cfg.MaxSymbols {
		symbols = symbols[:sc.cfg.MaxSymbols]
	}
	result.SymbolsScanned = len(symbols)

	if ref, err := sc.data.GetTicker24h(ctx, sc.cfg.ReferenceSymbol); err == nil {
		if abs(ref.PriceChangePercent) > sc.cfg.SafetyMovePercent {
			result.SafetyMode = true
			result.EffectiveThreshold = threshold + 10
			sc.logger.Warn().Float64("reference_move", ref.PriceChangePercent).
				Msg("reference asset volatile, raising scan threshold")
		}
	}

	symbolChan := make(chan string, len(symbols))
	oppChan := make(chan Opportunity, len(symbols))
	var skipped int
	var skipMu sync.Mutex

	var workers sync.WaitGroup
	for i := 0; i < sc.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for symbol := range symbolChan {
				if ctx.Err() != nil {
					return
				}
				opp, ok := sc.evaluate(ctx, symbol, userID, params, result.EffectiveThreshold)
				if !ok {
					skipMu.Lock()
					skipped++
					skipMu.Unlock()
					continue
				}
				if opp != nil {
					oppChan <- *opp
				}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	workers.Wait()
	close(oppChan)

	for opp := range oppChan {
		result.Opportunities = append(result.Opportunities, opp)
	}
	sort.Slice(result.Opportunities, func(i, j int) bool {
		return result.Opportunities[i].Score > result.Opportunities[j].Score
	})
	if len(result.Opportunities) > limit {
		result.Opportunities = result.Opportunities[:limit]
	}

	result.SymbolsSkipped = skipped
	result.Duration = time.Since(start)
	sc.logger.Info().Str("scan_id", result.ScanID).Int("symbols", result.SymbolsScanned).
		Int("opportunities", len(result.Opportunities)).Dur("took", result.Duration).
		Msg("scan completed")
	return result, nil
}

// evaluate runs the pipeline for one symbol. The bool is false when the
// symbol failed and was skipped; a nil opportunity with true means it did not
// qualify.
func (sc *Scanner) evaluate(ctx context.Context, symbol, userID string, params *engine.AnalysisParameters, threshold float64) (*Opportunity, bool) {
	res, err := sc.analyzer.Analyze(ctx, engine.AnalyzeRequest{
		Symbol: symbol,
		UserID: userID,
		Params: params,
	})
	if err != nil {
		sc.logger.Debug().Err(err).Str("symbol", symbol).Msg("symbol skipped")
		return nil, false
	}
	if res.Direction == engine.Neutral {
		return nil, true
	}

	score := res.CompositeScore()
	if score < threshold {
		return nil, true
	}
	return &Opportunity{
		Symbol:     symbol,
		Direction:  res.Direction,
		Score:      score,
		Confidence: res.Confidence,
		Price:      res.Signal.Entry,
		Signal:     res.Signal,
		Patterns:   res.Patterns,
		Rationale:  res.Rationale,
	}, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
