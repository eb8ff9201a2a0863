package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Event is a calendar entry for an asset.
type Event struct {
	Category string    `json:"category"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
}

// EventProvider supplies upcoming calendar events for a symbol.
type EventProvider interface {
	UpcomingEvents(ctx context.Context, symbol string) ([]Event, error)
}

// FundamentalsProvider supplies a 0-100 tokenomics/activity/liquidity
// composite for a symbol.
type FundamentalsProvider interface {
	FundamentalScore(ctx context.Context, symbol string) (float64, error)
}

// NewsProvider supplies recent headlines for a symbol.
type NewsProvider interface {
	Headlines(ctx context.Context, symbol string) ([]string, error)
}

// ProviderConfig holds the external-factor service endpoints. Empty URLs
// disable the corresponding lookup.
type ProviderConfig struct {
	EventsURL       string        `json:"events_url"`
	FundamentalsURL string        `json:"fundamentals_url"`
	NewsURL         string        `json:"news_url"`
	Timeout         time.Duration `json:"timeout"`
}

// HTTPProviders implements all three provider interfaces over simple JSON
// endpoints.
type HTTPProviders struct {
	cfg    ProviderConfig
	client *http.Client
}

// NewHTTPProviders creates providers for the configured endpoints.
func NewHTTPProviders(cfg ProviderConfig) *HTTPProviders {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &HTTPProviders{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// UpcomingEvents fetches calendar events for the symbol.
func (p *HTTPProviders) UpcomingEvents(ctx context.Context, symbol string) ([]Event, error) {
	if p.cfg.EventsURL == "" {
		return nil, nil
	}
	var events []Event
	if err := p.getJSON(ctx, p.cfg.EventsURL, symbol, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FundamentalScore fetches the fundamental composite for the symbol.
func (p *HTTPProviders) FundamentalScore(ctx context.Context, symbol string) (float64, error) {
	if p.cfg.FundamentalsURL == "" {
		return 50, nil
	}
	var payload struct {
		Score float64 `json:"score"`
	}
	if err := p.getJSON(ctx, p.cfg.FundamentalsURL, symbol, &payload); err != nil {
		return 0, err
	}
	return payload.Score, nil
}

// Headlines fetches recent headlines for the symbol.
func (p *HTTPProviders) Headlines(ctx context.Context, symbol string) ([]string, error) {
	if p.cfg.NewsURL == "" {
		return nil, nil
	}
	var payload struct {
		Headlines []string `json:"headlines"`
	}
	if err := p.getJSON(ctx, p.cfg.NewsURL, symbol, &payload); err != nil {
		return nil, err
	}
	return payload.Headlines, nil
}

func (p *HTTPProviders) getJSON(ctx context.Context, endpoint, symbol string, out interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("external lookup %s: status %d", u.Host, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
