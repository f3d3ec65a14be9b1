package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
// One subscription per mentioned address; on reconnect all active
// subscriptions are replayed.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps server subscription ID to notification channel
	subs   map[int64]chan LogNotification
	subsMu sync.Mutex

	// mentions stores the address per subscription for resubscription
	mentions map[int64]string

	// pending maps request ID to channel waiting for the subscription ID
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[int64]chan LogNotification),
		mentions: make(map[int64]string),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// wsRequest is a JSON-RPC 2.0 subscription request.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both subscription confirmations and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string      `json:"signature"`
				Logs      []string    `json:"logs"`
				Err       interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// SubscribeLogs subscribes to logs mentioning the given address.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, mentions string) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	subID, err := c.sendSubscribe(ctx, mentions)
	if err != nil {
		return nil, err
	}

	ch := make(chan LogNotification, 64)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.mentions[subID] = mentions
	c.subsMu.Unlock()

	return ch, nil
}

// sendSubscribe issues a logsSubscribe request and waits for the server to
// assign a subscription ID.
func (c *WSClientImpl) sendSubscribe(ctx context.Context, mentions string) (int64, error) {
	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{mentions}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}

	wait := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = wait
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	if err := c.writeJSON(req); err != nil {
		return 0, fmt.Errorf("send subscribe: %w", err)
	}

	select {
	case subID := <-wait:
		return subID, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	}
}

func (c *WSClientImpl) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop consumes messages until shutdown, reconnecting on read errors.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			// Reconnect must run off the read loop: replaying a
			// subscription waits for a confirmation that only this
			// goroutine can read. Resume reading as soon as the new
			// connection is up, while the replay is still in flight.
			ready := make(chan struct{})
			go c.reconnect(ready)
			select {
			case <-ready:
				continue
			case <-c.done:
				return
			}
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.Method == "logsNotification" && msg.Params != nil:
			c.dispatch(msg)
		case msg.ID != 0 && msg.Result != nil:
			var subID int64
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				continue
			}
			c.pendingMu.Lock()
			if wait, ok := c.pending[msg.ID]; ok {
				wait <- subID
			}
			c.pendingMu.Unlock()
		}
	}
}

// dispatch forwards a notification to its subscription channel.
// A full channel drops the notification - follow mode only needs a signal
// that new venue activity exists, not every message.
func (c *WSClientImpl) dispatch(msg wsMessage) {
	c.subsMu.Lock()
	ch, ok := c.subs[msg.Params.Subscription]
	c.subsMu.Unlock()
	if !ok {
		return
	}

	n := LogNotification{
		Signature: msg.Params.Result.Value.Signature,
		Slot:      msg.Params.Result.Context.Slot,
		Logs:      msg.Params.Result.Value.Logs,
		Err:       msg.Params.Result.Value.Err,
	}

	select {
	case ch <- n:
	default:
	}
}

// reconnect re-establishes the connection with capped backoff, closes ready
// once the new connection is installed so the read loop resumes, and then
// replays active subscriptions. The order matters: replay confirmations
// arrive over the new connection and need an active reader.
func (c *WSClientImpl) reconnect(ready chan struct{}) {
	delay := c.config.ReconnectDelay

	for {
		select {
		case <-c.done:
			close(ready)
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.connect(ctx)
		cancel()
		if err != nil {
			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
			continue
		}

		close(ready)
		c.resubscribe()
		return
	}
}

// resubscribe replays all active subscriptions on a fresh connection,
// remapping server subscription IDs onto the existing channels.
func (c *WSClientImpl) resubscribe() {
	c.subsMu.Lock()
	old := make(map[int64]string, len(c.mentions))
	channels := make(map[int64]chan LogNotification, len(c.subs))
	for id, addr := range c.mentions {
		old[id] = addr
		channels[id] = c.subs[id]
	}
	c.subs = make(map[int64]chan LogNotification)
	c.mentions = make(map[int64]string)
	c.subsMu.Unlock()

	for oldID, addr := range old {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		subID, err := c.sendSubscribe(ctx, addr)
		cancel()
		if err != nil {
			// The subscription did not survive the reconnect; close its
			// channel so consumers stop waiting on it.
			close(channels[oldID])
			continue
		}
		c.subsMu.Lock()
		c.subs[subID] = channels[oldID]
		c.mentions[subID] = addr
		c.subsMu.Unlock()
	}
}

// pingLoop keeps the connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Close closes the WebSocket connection and all subscription channels.
func (c *WSClientImpl) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
		delete(c.mentions, id)
	}
	c.subsMu.Unlock()

	return nil
}

// Compile-time interface check.
var _ WSClient = (*WSClientImpl)(nil)
