package futu

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

const (
	// Limits
	MaxSubscriptionsPerSession = 100

	// Timing
	PingInterval          = 30 * time.Second
	ReconnectInitialDelay = 1 * time.Second
	ReconnectMaxDelay     = 30 * time.Second
	MaxReconnectAttempts  = 10
)

// WSClient handles the OpenD gateway push connection
type WSClient struct {
	cfg    strategyconfig.Futu
	logger *logger.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	subscriptions map[string]bool
	subMu         sync.RWMutex

	// Callbacks
	onQuote      func(*contracts.Quote)
	onError      func(error)
	onConnected  func()
	onDisconnect func()

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWSClient creates a new push client
func NewWSClient(cfg strategyconfig.Futu, log *logger.Logger) *WSClient {
	return &WSClient{
		cfg:           cfg,
		logger:        log,
		subscriptions: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}
}

// Callback setters
func (c *WSClient) OnQuote(fn func(*contracts.Quote)) { c.onQuote = fn }
func (c *WSClient) OnError(fn func(error))            { c.onError = fn }
func (c *WSClient) OnConnected(fn func())             { c.onConnected = fn }
func (c *WSClient) OnDisconnect(fn func())            { c.onDisconnect = fn }

// Connect establishes the push connection
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Start read loop
	c.wg.Add(1)
	go c.readLoop()

	// Start ping loop
	c.wg.Add(1)
	go c.pingLoop()

	c.logger.Info("OpenD push connection established")
	return nil
}

// connect dials the gateway
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	wsURL := fmt.Sprintf("ws://%s:%d/ws", c.cfg.Host, c.cfg.Port)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true

	if c.onConnected != nil {
		c.onConnected()
	}

	return nil
}

// Disconnect closes the connection
func (c *WSClient) Disconnect() error {
	close(c.stopCh)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.connected = false
	}
	c.connMu.Unlock()

	c.wg.Wait()

	if c.onDisconnect != nil {
		c.onDisconnect()
	}

	c.logger.Info("OpenD push connection closed")
	return nil
}

// IsConnected returns connection status
func (c *WSClient) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// Subscribe subscribes to quote pushes for symbols
func (c *WSClient) Subscribe(symbols ...string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, symbol := range symbols {
		if c.subscriptions[symbol] {
			continue
		}

		if len(c.subscriptions) >= MaxSubscriptionsPerSession {
			return fmt.Errorf("max subscriptions reached (%d)", MaxSubscriptionsPerSession)
		}

		if err := c.sendOp("sub", symbol); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}

		c.subscriptions[symbol] = true
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
		}).Debug("Subscribed to quote pushes")
	}

	return nil
}

// Unsubscribe removes symbol subscriptions
func (c *WSClient) Unsubscribe(symbols ...string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, symbol := range symbols {
		if !c.subscriptions[symbol] {
			continue
		}

		if err := c.sendOp("unsub", symbol); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", symbol, err)
		}

		delete(c.subscriptions, symbol)
	}

	return nil
}

// sendOp sends a subscription control message
func (c *WSClient) sendOp(op, symbol string) error {
	msg := wsRequest{
		Op:      op,
		Code:    symbol,
		SubType: "QUOTE",
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// GetSubscriptions returns current subscriptions
func (c *WSClient) GetSubscriptions() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	symbols := make([]string, 0, len(c.subscriptions))
	for symbol := range c.subscriptions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// SubscriptionCount returns number of subscriptions
func (c *WSClient) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// readLoop handles incoming messages
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if c.onError != nil {
				c.onError(fmt.Errorf("read error: %w", err))
			}
			c.handleDisconnect()
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage processes an incoming push frame
func (c *WSClient) handleMessage(data []byte) {
	var push wsPush
	if err := json.Unmarshal(data, &push); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Dropping malformed push frame")
		return
	}

	switch push.Type {
	case "quote":
		var q wireQuote
		if err := json.Unmarshal(push.Data, &q); err != nil {
			c.logger.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Warn("Dropping malformed quote push")
			return
		}
		if c.onQuote != nil {
			c.onQuote(q.toQuote())
		}
	case "error":
		if c.onError != nil {
			c.onError(fmt.Errorf("gateway error: %s", string(push.Data)))
		}
	default:
		// Subscription acks and pongs carry no payload we act on
	}
}

// pingLoop sends periodic pings
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.connMu.Unlock()
					if c.onError != nil {
						c.onError(fmt.Errorf("ping error: %w", err))
					}
					c.handleDisconnect()
					return
				}
			}
			c.connMu.Unlock()
		}
	}
}

// handleDisconnect handles connection loss
func (c *WSClient) handleDisconnect() {
	c.connMu.Lock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}

// Reconnect attempts to reconnect with exponential backoff
func (c *WSClient) Reconnect(ctx context.Context) error {
	delay := ReconnectInitialDelay

	for attempt := 1; attempt <= MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
		}).Info("Attempting push reconnection")

		if err := c.connect(ctx); err != nil {
			delay = delay * 2
			if delay > ReconnectMaxDelay {
				delay = ReconnectMaxDelay
			}
			continue
		}

		// Restore subscriptions
		c.subMu.RLock()
		symbols := make([]string, 0, len(c.subscriptions))
		for symbol := range c.subscriptions {
			symbols = append(symbols, symbol)
		}
		c.subMu.RUnlock()

		// Clear and resubscribe
		c.subMu.Lock()
		c.subscriptions = make(map[string]bool)
		c.subMu.Unlock()

		for _, symbol := range symbols {
			c.Subscribe(symbol)
		}

		// Restart loops
		c.stopCh = make(chan struct{})
		c.wg.Add(2)
		go c.readLoop()
		go c.pingLoop()

		c.logger.Info("Push connection restored")
		return nil
	}

	return fmt.Errorf("max reconnect attempts reached")
}

// Internal message types
type wsRequest struct {
	Op      string `json:"op"`
	Code    string `json:"code"`
	SubType string `json:"subtype"`
}

type wsPush struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
