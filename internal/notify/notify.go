package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Type classifies a notification message.
type Type string

const (
	TypeSignal   Type = "signal"
	TypeScan     Type = "scan"
	TypeLearning Type = "learning"
	TypeError    Type = "error"
)

// Notification is one outbound message.
type Notification struct {
	Type      Type                   `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Symbol    string                 `json:"symbol,omitempty"`
	Price     float64                `json:"price,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Notifier delivers a notification to one provider.
type Notifier interface {
	Send(ctx context.Context, n *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans a notification out to all enabled providers. Provider failures
// are logged and the last error returned; one provider never blocks another's
// delivery.
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    zerolog.Logger
}

// NewManager creates a notification manager.
func NewManager(enabled bool, logger zerolog.Logger) *Manager {
	return &Manager{
		enabled: enabled,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// AddNotifier registers a provider.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers the notification to every enabled provider.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if !m.enabled {
		return nil
	}
	var lastErr error
	for _, notifier := range m.notifiers {
		if !notifier.IsEnabled() {
			continue
		}
		if err := notifier.Send(ctx, n); err != nil {
			m.logger.Warn().Err(err).Str("provider", notifier.Name()).Msg("notification delivery failed")
			lastErr = err
		}
	}
	return lastErr
}

// SendSignal publishes a trading signal above the confidence gate.
func (m *Manager) SendSignal(ctx context.Context, symbol, direction string, entry, stopLoss, tp1 float64, confidence float64, rationale string) error {
	return m.Send(ctx, &Notification{
		Type:      TypeSignal,
		Title:     fmt.Sprintf("%s signal: %s", direction, symbol),
		Message:   fmt.Sprintf("%s %s @ %.6g (%.0f%% confidence)\nSL: %.6g | TP1: %.6g\n%s", direction, symbol, entry, confidence, stopLoss, tp1, rationale),
		Symbol:    symbol,
		Price:     entry,
		Timestamp: time.Now().UTC(),
		Extra: map[string]interface{}{
			"direction":   direction,
			"stop_loss":   stopLoss,
			"take_profit": tp1,
			"confidence":  confidence,
		},
	})
}

// WebhookConfig holds webhook notifier settings.
type WebhookConfig struct {
	Enabled bool          `json:"enabled"`
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint.
type WebhookNotifier struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the provider.
func (w *WebhookNotifier) Name() string { return "webhook" }

// IsEnabled reports whether the provider should receive notifications.
func (w *WebhookNotifier) IsEnabled() bool { return w.cfg.Enabled && w.cfg.URL != "" }

// Send POSTs the notification payload.
func (w *WebhookNotifier) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("webhook: encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}
