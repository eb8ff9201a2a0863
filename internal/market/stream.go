package market

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StreamConfig holds kline stream configuration.
type StreamConfig struct {
	URL        string   `json:"url"`
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
	WindowSize int      `json:"window_size"`
}

// Stream maintains bounded rolling candle windows per symbol and timeframe,
// fed by the exchange kline websocket. Analyze and scan calls read a warm
// window instead of paying a REST round trip for tracked symbols.
type Stream struct {
	cfg    StreamConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	windows map[string][]Candle

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream creates a kline stream for the configured symbols and timeframes.
func NewStream(cfg StreamConfig, logger zerolog.Logger) *Stream {
	if cfg.URL == "" {
		cfg.URL = "wss://stream.binance.com:9443/stream"
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 500
	}
	return &Stream{
		cfg:     cfg,
		logger:  logger.With().Str("component", "market-stream").Logger(),
		windows: make(map[string][]Candle),
		done:    make(chan struct{}),
	}
}

// Start connects and begins consuming kline updates. Reconnects with backoff
// until Stop is called.
func (s *Stream) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("stream disconnected, reconnecting")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

// Stop closes the stream and waits for the read loop to exit.
func (s *Stream) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Window returns a copy of the rolling window for symbol/timeframe, or nil
// when the stream has not accumulated data for it yet.
func (s *Stream) Window(symbol, timeframe string) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := s.windows[windowKey(symbol, timeframe)]
	if len(window) == 0 {
		return nil
	}
	out := make([]Candle, len(window))
	copy(out, window)
	return out
}

func (s *Stream) run(ctx context.Context) error {
	streams := make([]string, 0, len(s.cfg.Symbols)*len(s.cfg.Timeframes))
	for _, symbol := range s.cfg.Symbols {
		for _, tf := range s.cfg.Timeframes {
			streams = append(streams, strings.ToLower(symbol)+"@kline_"+tf)
		}
	}
	if len(streams) == 0 {
		<-ctx.Done()
		return nil
	}

	endpoint := s.cfg.URL + "?streams=" + strings.Join(streams, "/")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Info().Int("streams", len(streams)).Msg("kline stream connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(data)
	}
}

type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Kline struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Open      string `json:"o"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Close     string `json:"c"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (s *Stream) handleMessage(data []byte) {
	var ev klineEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	parts := strings.Split(ev.Stream, "@kline_")
	if len(parts) != 2 {
		return
	}
	key := windowKey(strings.ToUpper(parts[0]), parts[1])

	candle := Candle{
		OpenTime:  ev.Data.Kline.OpenTime,
		CloseTime: ev.Data.Kline.CloseTime,
		Open:      parseF(ev.Data.Kline.Open),
		High:      parseF(ev.Data.Kline.High),
		Low:       parseF(ev.Data.Kline.Low),
		Close:     parseF(ev.Data.Kline.Close),
		Volume:    parseF(ev.Data.Kline.Volume),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	window := s.windows[key]
	if n := len(window); n > 0 && window[n-1].OpenTime == candle.OpenTime {
		window[n-1] = candle
	} else {
		window = append(window, candle)
		if len(window) > s.cfg.WindowSize {
			window = window[len(window)-s.cfg.WindowSize:]
		}
	}
	s.windows[key] = window
}

// StreamSource serves candle reads from the stream's rolling windows when a
// tracked series has accumulated enough bars, falling back to the wrapped
// source otherwise. Ticker and symbol lookups always go to the inner source.
type StreamSource struct {
	stream *Stream
	inner  DataSource
}

// NewStreamSource wraps inner with warm reads from stream.
func NewStreamSource(stream *Stream, inner DataSource) *StreamSource {
	return &StreamSource{stream: stream, inner: inner}
}

func (s *StreamSource) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	if limit > 0 {
		if window := s.stream.Window(symbol, timeframe); len(window) >= limit {
			return window[len(window)-limit:], nil
		}
	}
	return s.inner.GetCandles(ctx, symbol, timeframe, limit)
}

func (s *StreamSource) GetTicker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	return s.inner.GetTicker24h(ctx, symbol)
}

func (s *StreamSource) ListSymbols(ctx context.Context, quoteAsset string) ([]string, error) {
	return s.inner.ListSymbols(ctx, quoteAsset)
}

func windowKey(symbol, timeframe string) string {
	return symbol + ":" + timeframe
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
