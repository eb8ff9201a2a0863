package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestGetCandlesParsesKlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s", got)
		}
		// Binance kline rows: numbers arrive as JSON strings except timestamps.
		_, _ = w.Write([]byte(`[
			[1700000000000, "100.5", "101.2", "99.8", "100.9", "1234.5", 1700003599999],
			[1700003600000, "100.9", "102.0", "100.1", "101.7", "2345.6", 1700007199999]
		]`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL}, zerolog.Nop())
	candles, err := c.GetCandles(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("GetCandles returned error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	if candles[0].Close != 100.9 || candles[1].High != 102.0 {
		t.Errorf("parsed values wrong: %+v", candles)
	}
	if candles[0].OpenTime != 1700000000000 {
		t.Errorf("open time = %d", candles[0].OpenTime)
	}
}

func TestGetCandlesEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL}, zerolog.Nop())
	if _, err := c.GetCandles(context.Background(), "NOPEUSDT", "1h", 10); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGetTicker24hStringFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"symbol":             "ETHUSDT",
			"lastPrice":          "3000.50",
			"priceChangePercent": "-2.35",
			"quoteVolume":        "123456789.0",
			"highPrice":          "3100.0",
			"lowPrice":           "2950.0",
		})
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL}, zerolog.Nop())
	ticker, err := c.GetTicker24h(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("GetTicker24h returned error: %v", err)
	}
	if ticker.LastPrice != 3000.50 || ticker.PriceChangePercent != -2.35 {
		t.Errorf("parsed ticker wrong: %+v", ticker)
	}
}

func TestListSymbolsFiltersQuoteAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbols": [
			{"symbol": "BTCUSDT", "status": "TRADING", "quoteAsset": "USDT"},
			{"symbol": "DEADUSDT", "status": "BREAK", "quoteAsset": "USDT"},
			{"symbol": "ETHBTC", "status": "TRADING", "quoteAsset": "BTC"}
		]}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL}, zerolog.Nop())
	symbols, err := c.ListSymbols(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("ListSymbols returned error: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "BTCUSDT" {
		t.Errorf("symbols = %v, want [BTCUSDT]", symbols)
	}
}

func TestGetCandlesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL}, zerolog.Nop())
	if _, err := c.GetCandles(context.Background(), "BTCUSDT", "1h", 10); err == nil {
		t.Error("expected error on 429 response")
	}
}

func TestCloses(t *testing.T) {
	candles := []Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	closes := Closes(candles)
	if len(closes) != 3 || closes[0] != 1 || closes[2] != 3 {
		t.Errorf("Closes = %v", closes)
	}
}
