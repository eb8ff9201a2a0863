package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CacheConfig holds Redis cache configuration.
type CacheConfig struct {
	Enabled   bool          `json:"enabled"`
	Address   string        `json:"address"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	CandleTTL time.Duration `json:"candle_ttl"`
	TickerTTL time.Duration `json:"ticker_ttl"`
}

// CachedSource wraps a DataSource with a Redis cache. Redis outages degrade to
// direct REST fetches, never to a hard failure.
type CachedSource struct {
	source DataSource
	client *redis.Client
	cfg    CacheConfig
	logger zerolog.Logger
}

// NewCachedSource creates a caching layer over the given source. When Redis is
// disabled or unreachable the underlying source is used as-is.
func NewCachedSource(source DataSource, cfg CacheConfig, logger zerolog.Logger) *CachedSource {
	cs := &CachedSource{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "market-cache").Logger(),
	}
	if cfg.CandleTTL <= 0 {
		cs.cfg.CandleTTL = time.Minute
	}
	if cfg.TickerTTL <= 0 {
		cs.cfg.TickerTTL = 30 * time.Second
	}
	if !cfg.Enabled {
		return cs
	}

	cs.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cs.client.Ping(ctx).Err(); err != nil {
		cs.logger.Warn().Err(err).Msg("redis unavailable, running without cache")
		cs.client = nil
	}
	return cs
}

// GetCandles returns cached candles when fresh, otherwise fetches and caches.
func (cs *CachedSource) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	key := fmt.Sprintf("candles:%s:%s:%d", symbol, timeframe, limit)

	if cs.client != nil {
		if data, err := cs.client.Get(ctx, key).Bytes(); err == nil {
			var candles []Candle
			if err := json.Unmarshal(data, &candles); err == nil && len(candles) > 0 {
				return candles, nil
			}
		}
	}

	candles, err := cs.source.GetCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}

	if cs.client != nil {
		if data, err := json.Marshal(candles); err == nil {
			if err := cs.client.Set(ctx, key, data, cs.cfg.CandleTTL).Err(); err != nil {
				cs.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return candles, nil
}

// GetTicker24h returns a cached ticker when fresh, otherwise fetches and caches.
func (cs *CachedSource) GetTicker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	key := "ticker:" + symbol

	if cs.client != nil {
		if data, err := cs.client.Get(ctx, key).Bytes(); err == nil {
			var ticker Ticker24h
			if err := json.Unmarshal(data, &ticker); err == nil && ticker.LastPrice > 0 {
				return &ticker, nil
			}
		}
	}

	ticker, err := cs.source.GetTicker24h(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if cs.client != nil {
		if data, err := json.Marshal(ticker); err == nil {
			if err := cs.client.Set(ctx, key, data, cs.cfg.TickerTTL).Err(); err != nil {
				cs.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return ticker, nil
}

// ListSymbols delegates to the underlying source.
func (cs *CachedSource) ListSymbols(ctx context.Context, quoteAsset string) ([]string, error) {
	return cs.source.ListSymbols(ctx, quoteAsset)
}

// Close releases the Redis connection.
func (cs *CachedSource) Close() error {
	if cs.client != nil {
		return cs.client.Close()
	}
	return nil
}
