package market

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func klineFrame(stream string, openTime int64, close, volume float64) []byte {
	return []byte(fmt.Sprintf(
		`{"stream":%q,"data":{"k":{"t":%d,"T":%d,"o":"%.2f","h":"%.2f","l":"%.2f","c":"%.2f","v":"%.2f","x":true}}}`,
		stream, openTime, openTime+3599999, close, close+1, close-1, close, volume))
}

func TestStreamWindowBounded(t *testing.T) {
	s := NewStream(StreamConfig{WindowSize: 3}, zerolog.Nop())
	for i := 0; i < 5; i++ {
		s.handleMessage(klineFrame("btcusdt@kline_1h", int64(i)*3600000, 100+float64(i), 1000))
	}

	window := s.Window("BTCUSDT", "1h")
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	if window[0].Close != 102 || window[2].Close != 104 {
		t.Errorf("window kept wrong bars: %+v", window)
	}
}

func TestStreamWindowUpdatesOpenBar(t *testing.T) {
	s := NewStream(StreamConfig{}, zerolog.Nop())
	s.handleMessage(klineFrame("ethusdt@kline_15m", 0, 3000, 500))
	s.handleMessage(klineFrame("ethusdt@kline_15m", 0, 3010, 750))

	window := s.Window("ETHUSDT", "15m")
	if len(window) != 1 {
		t.Fatalf("window length = %d, want 1 after in-place update", len(window))
	}
	if window[0].Close != 3010 || window[0].Volume != 750 {
		t.Errorf("open bar not updated: %+v", window[0])
	}
}

func TestStreamWindowUntracked(t *testing.T) {
	s := NewStream(StreamConfig{}, zerolog.Nop())
	if window := s.Window("BTCUSDT", "1h"); window != nil {
		t.Errorf("untracked window = %v, want nil", window)
	}
}

type innerSource struct {
	candles []Candle
	err     error
	calls   int
}

func (s *innerSource) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	s.calls++
	return s.candles, s.err
}

func (s *innerSource) GetTicker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	return &Ticker24h{Symbol: symbol, LastPrice: 42}, nil
}

func (s *innerSource) ListSymbols(ctx context.Context, quoteAsset string) ([]string, error) {
	return []string{"BTCUSDT"}, nil
}

func TestStreamSourceServesWarmWindow(t *testing.T) {
	stream := NewStream(StreamConfig{}, zerolog.Nop())
	for i := 0; i < 5; i++ {
		stream.handleMessage(klineFrame("btcusdt@kline_1h", int64(i)*3600000, 100+float64(i), 1000))
	}
	inner := &innerSource{err: errors.New("rest should not be hit")}
	src := NewStreamSource(stream, inner)

	candles, err := src.GetCandles(context.Background(), "BTCUSDT", "1h", 3)
	if err != nil {
		t.Fatalf("warm read failed: %v", err)
	}
	if len(candles) != 3 || candles[2].Close != 104 {
		t.Errorf("warm read = %+v, want last 3 bars ending at 104", candles)
	}
	if inner.calls != 0 {
		t.Errorf("inner source called %d times for a warm series", inner.calls)
	}
}

func TestStreamSourceFallsBack(t *testing.T) {
	stream := NewStream(StreamConfig{}, zerolog.Nop())
	stream.handleMessage(klineFrame("btcusdt@kline_1h", 0, 100, 1000))

	inner := &innerSource{candles: []Candle{{Close: 1}, {Close: 2}}}
	src := NewStreamSource(stream, inner)

	// Window too short for the requested limit.
	candles, err := src.GetCandles(context.Background(), "BTCUSDT", "1h", 10)
	if err != nil {
		t.Fatalf("fallback read failed: %v", err)
	}
	if len(candles) != 2 || inner.calls != 1 {
		t.Errorf("fallback not delegated: candles=%d calls=%d", len(candles), inner.calls)
	}

	// Untracked series.
	if _, err := src.GetCandles(context.Background(), "SOLUSDT", "4h", 1); err != nil {
		t.Fatalf("untracked read failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}

	ticker, err := src.GetTicker24h(context.Background(), "BTCUSDT")
	if err != nil || ticker.LastPrice != 42 {
		t.Errorf("ticker not delegated: %+v, %v", ticker, err)
	}
}
