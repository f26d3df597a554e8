package alerts

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/config"
	"github.com/wonny/futuquant/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
	})
}

// stubNotifier records every delivery.
type stubNotifier struct {
	name     string
	subjects []string
	bodies   []string
	err      error
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(ctx context.Context, subject, body string) error {
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, body)
	return s.err
}

func testManager(cfg strategyconfig.Alerts, notifiers ...Notifier) *Manager {
	m := NewManager(cfg, testLogger())
	for _, n := range notifiers {
		m.AddNotifier(n)
	}
	return m
}

func TestSendDisabled(t *testing.T) {
	stub := &stubNotifier{name: "stub"}
	m := testManager(strategyconfig.Alerts{Enabled: false}, stub)

	m.Send(context.Background(), EventPnLDrop, map[string]interface{}{"symbol": "HK.00700"})

	if len(stub.bodies) != 0 {
		t.Errorf("disabled manager delivered %d alerts", len(stub.bodies))
	}
}

func TestSendThrottle(t *testing.T) {
	stub := &stubNotifier{name: "stub"}
	m := testManager(strategyconfig.Alerts{Enabled: true, ThrottleSeconds: 60}, stub)

	clock := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	payload := map[string]interface{}{"symbol": "HK.00700", "pnl": -120.5}

	m.Send(context.Background(), EventPnLDrop, payload)
	m.Send(context.Background(), EventPnLDrop, payload)
	if len(stub.bodies) != 1 {
		t.Fatalf("delivered %d alerts inside throttle window, want 1", len(stub.bodies))
	}

	// Past the window the same key fires again.
	clock = clock.Add(61 * time.Second)
	m.Send(context.Background(), EventPnLDrop, payload)
	if len(stub.bodies) != 2 {
		t.Fatalf("delivered %d alerts after window, want 2", len(stub.bodies))
	}
}

func TestSendThrottlePerSymbol(t *testing.T) {
	stub := &stubNotifier{name: "stub"}
	m := testManager(strategyconfig.Alerts{Enabled: true, ThrottleSeconds: 60}, stub)

	m.Send(context.Background(), EventScoreTooLow, map[string]interface{}{"symbol": "HK.00700"})
	m.Send(context.Background(), EventScoreTooLow, map[string]interface{}{"symbol": "US.AAPL"})

	if len(stub.bodies) != 2 {
		t.Errorf("different symbols delivered %d alerts, want 2", len(stub.bodies))
	}
}

func TestSendAllChannels(t *testing.T) {
	a := &stubNotifier{name: "a"}
	b := &stubNotifier{name: "b"}
	m := testManager(strategyconfig.Alerts{Enabled: true, ThrottleSeconds: 60}, a, b)

	m.Send(context.Background(), EventPnLDrop, map[string]interface{}{"symbol": "HK.00700"})

	if len(a.bodies) != 1 || len(b.bodies) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.bodies), len(b.bodies))
	}
	if a.subjects[0] != "[Alert] PnLDrop" {
		t.Errorf("subject = %q, want [Alert] PnLDrop", a.subjects[0])
	}
}

func TestSendChannelFailureDoesNotBlockOthers(t *testing.T) {
	failing := &stubNotifier{name: "failing", err: context.DeadlineExceeded}
	healthy := &stubNotifier{name: "healthy"}
	m := testManager(strategyconfig.Alerts{Enabled: true, ThrottleSeconds: 60}, failing, healthy)

	m.Send(context.Background(), EventPnLDrop, map[string]interface{}{"symbol": "HK.00700"})

	if len(healthy.bodies) != 1 {
		t.Errorf("healthy channel delivered %d alerts, want 1", len(healthy.bodies))
	}
}

func TestThrottleKey(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload map[string]interface{}
		want    string
	}{
		{"with symbol", "PnLDrop", map[string]interface{}{"symbol": "HK.00700"}, "PnLDrop:HK.00700"},
		{"no symbol", "PnLDrop", map[string]interface{}{"pnl": -1.0}, "PnLDrop:*"},
		{"empty symbol", "PnLDrop", map[string]interface{}{"symbol": ""}, "PnLDrop:*"},
		{"non-string symbol", "PnLDrop", map[string]interface{}{"symbol": 7}, "PnLDrop:*"},
		{"nil payload", "ScoreTooLow", nil, "ScoreTooLow:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := throttleKey(tt.event, tt.payload); got != tt.want {
				t.Errorf("throttleKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBody(t *testing.T) {
	body := formatBody(EventPnLDrop, map[string]interface{}{"symbol": "HK.00700", "pnl": -120.5})

	want := "[PnLDrop]\n{\n  \"pnl\": -120.5,\n  \"symbol\": \"HK.00700\"\n}"
	if body != want {
		t.Errorf("formatBody() = %q, want %q", body, want)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("quant@example.com", []string{"a@example.com", "b@example.com"},
		"[Alert] PnLDrop", "[PnLDrop]\n{}"))

	for _, want := range []string{
		"From: quant@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: [Alert] PnLDrop\r\n",
		"\r\n\r\n[PnLDrop]\n{}",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestMailerNotify(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	mailer := NewMailer(strategyconfig.Email{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "quant",
		Password: "secret",
		FromAddr: "quant@example.com",
		ToAddrs:  []string{"ops@example.com"},
	}, testLogger())
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := mailer.Notify(context.Background(), "[Alert] PnLDrop", "body"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %s, want smtp.example.com:587", gotAddr)
	}
	if gotFrom != "quant@example.com" {
		t.Errorf("from = %s", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ops@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(string(gotMsg), "Subject: [Alert] PnLDrop") {
		t.Error("message missing subject header")
	}
}

func TestNewManagerChannels(t *testing.T) {
	// Disabled config builds no channels even when both are configured.
	cfg := strategyconfig.Alerts{
		Enabled: false,
		Email: strategyconfig.Email{
			SMTPHost: "smtp.example.com", SMTPPort: 587,
			Username: "u", Password: "p",
			FromAddr: "f@example.com", ToAddrs: []string{"t@example.com"},
		},
	}
	if m := NewManager(cfg, testLogger()); len(m.notifiers) != 0 {
		t.Errorf("disabled manager built %d channels", len(m.notifiers))
	}

	// Enabled with email only: one channel.
	cfg.Enabled = true
	if m := NewManager(cfg, testLogger()); len(m.notifiers) != 1 {
		t.Errorf("email-only manager built %d channels, want 1", len(m.notifiers))
	}
}
