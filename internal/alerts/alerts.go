package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// Alert events raised by the pipeline.
const (
	EventPnLDrop     = "PnLDrop"
	EventScoreTooLow = "ScoreTooLow"
)

// Notifier delivers one alert to a channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// Manager fans alerts out to every configured channel
// ⭐ SSOT: 알림 발송은 매니저를 통해서만
type Manager struct {
	cfg       strategyconfig.Alerts
	logger    *logger.Logger
	notifiers []Notifier

	throttle Throttle
	lastSent map[string]time.Time
	mu       sync.Mutex
	now      func() time.Time
}

// NewManager creates a manager with the channels the config enables.
// A channel that fails to initialize is logged and skipped so the
// remaining ones still deliver.
func NewManager(cfg strategyconfig.Alerts, log *logger.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   log,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
	if !cfg.Enabled {
		return m
	}

	if cfg.Telegram.Configured() {
		tg, err := NewTelegram(cfg.Telegram, log)
		if err != nil {
			log.WithError(err).Warn("Telegram alert channel unavailable")
		} else {
			m.notifiers = append(m.notifiers, tg)
		}
	}
	if cfg.Email.Configured() {
		m.notifiers = append(m.notifiers, NewMailer(cfg.Email, log))
	}

	return m
}

// AddNotifier attaches an extra delivery channel.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetThrottle replaces the in-process throttle map with a shared one.
func (m *Manager) SetThrottle(t Throttle) {
	m.throttle = t
}

// Send delivers an event to all channels, at most once per throttle
// window per event/symbol pair. Delivery failures are logged, never
// propagated: alerting must not take the pipeline down.
func (m *Manager) Send(ctx context.Context, event string, payload map[string]interface{}) {
	if !m.cfg.Enabled {
		return
	}

	key := throttleKey(event, payload)
	if !m.claim(ctx, key) {
		m.logger.WithField("key", key).Debug("Alert throttled")
		return
	}

	subject := fmt.Sprintf("[Alert] %s", event)
	body := formatBody(event, payload)

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, subject, body); err != nil {
			m.logger.WithError(err).WithField("channel", n.Name()).Error("Alert delivery failed")
		}
	}
}

// claim reserves the throttle window for a key. The shared throttle
// wins when set, otherwise the in-process map decides.
func (m *Manager) claim(ctx context.Context, key string) bool {
	if m.throttle != nil {
		return m.throttle.Allow(ctx, key, m.cfg.Throttle())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	last, seen := m.lastSent[key]
	now := m.now()
	if seen && now.Sub(last) < m.cfg.Throttle() {
		return false
	}
	m.lastSent[key] = now
	return true
}

// throttleKey scopes throttling to the event and symbol. Payloads
// without a symbol share the "*" bucket.
func throttleKey(event string, payload map[string]interface{}) string {
	symbol := "*"
	if s, ok := payload["symbol"].(string); ok && s != "" {
		symbol = s
	}
	return fmt.Sprintf("%s:%s", event, symbol)
}

// formatBody renders the alert text: event tag line plus the payload
// as indented JSON.
func formatBody(event string, payload map[string]interface{}) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("[%s]\n%v", event, payload)
	}
	return fmt.Sprintf("[%s]\n%s", event, data)
}
