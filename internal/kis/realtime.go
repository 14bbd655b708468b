package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// RealtimeEndpoint is the production realtime gateway.
const RealtimeEndpoint = "ws://ops.koreainvestment.com:21000"

// Realtime transaction ID for domestic execution prices.
const trIDExecution = "H0STCNT0"

// Execution messages carry caret-separated fields per tick. Only the
// leading fields are decoded; the payload carries many more.
const (
	fieldCode       = 0
	fieldTime       = 1
	fieldPrice      = 2
	fieldTickVolume = 12
	minFieldCount   = 13
)

// Quote is a single realtime execution tick.
type Quote struct {
	Code   string
	Time   string // HHMMSS
	Price  float64
	Volume int64 // volume of this execution, not cumulative
}

// RealtimeConfig configures realtime client behavior.
type RealtimeConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultRealtimeConfig returns default realtime configuration.
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// RealtimeClient streams execution prices over the KIS realtime gateway.
type RealtimeClient struct {
	endpoint    string
	approvalKey string
	config      RealtimeConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps stock code to subscriber channel; codes double as
	// the resubscription set after a reconnect.
	subs   map[string]chan Quote
	subsMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewRealtimeClient creates a realtime client and connects to the endpoint.
// approvalKey comes from Client.ApprovalKey.
func NewRealtimeClient(ctx context.Context, endpoint, approvalKey string, config *RealtimeConfig) (*RealtimeClient, error) {
	cfg := DefaultRealtimeConfig()
	if config != nil {
		cfg = *config
	}

	c := &RealtimeClient{
		endpoint:    endpoint,
		approvalKey: approvalKey,
		config:      cfg,
		subs:        make(map[string]chan Quote),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the websocket connection.
func (c *RealtimeClient) connect(ctx context.Context) error {
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

// realtimeRequest is the subscribe/unsubscribe frame.
type realtimeRequest struct {
	Header realtimeHeader `json:"header"`
	Body   realtimeBody   `json:"body"`
}

type realtimeHeader struct {
	ApprovalKey string `json:"approval_key,omitempty"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"` // "1" subscribe, "2" unsubscribe
	ContentType string `json:"content-type"`
	TrID        string `json:"tr_id,omitempty"`
}

type realtimeBody struct {
	Input realtimeInput `json:"input"`
}

type realtimeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

// SubscribeQuotes subscribes to execution prices for a stock code.
// The gateway starts pushing ticks once the market trades the code;
// there is no per-subscription confirmation to wait for.
func (c *RealtimeClient) SubscribeQuotes(ctx context.Context, code string) (<-chan Quote, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	c.subsMu.RLock()
	_, exists := c.subs[code]
	c.subsMu.RUnlock()
	if exists {
		return nil, fmt.Errorf("already subscribed to %s", code)
	}

	if err := c.writeSubscribe(code, true); err != nil {
		return nil, err
	}

	// Buffer absorbs bursts; dispatch blocks rather than drop ticks
	ch := make(chan Quote, 10000)
	c.subsMu.Lock()
	c.subs[code] = ch
	c.subsMu.Unlock()

	return ch, nil
}

// Unsubscribe stops the stream for a code and closes its channel.
func (c *RealtimeClient) Unsubscribe(code string) error {
	c.subsMu.Lock()
	ch, ok := c.subs[code]
	if ok {
		delete(c.subs, code)
		close(ch)
	}
	c.subsMu.Unlock()

	if !ok {
		return fmt.Errorf("not subscribed to %s", code)
	}
	return c.writeSubscribe(code, false)
}

func (c *RealtimeClient) writeSubscribe(code string, subscribe bool) error {
	trType := "1"
	if !subscribe {
		trType = "2"
	}
	req := realtimeRequest{
		Header: realtimeHeader{
			ApprovalKey: c.approvalKey,
			CustType:    "P",
			TrType:      trType,
			ContentType: "utf-8",
		},
		Body: realtimeBody{
			Input: realtimeInput{TrID: trIDExecution, TrKey: code},
		},
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the websocket connection and all subscriber channels.
func (c *RealtimeClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for code, ch := range c.subs {
		close(ch)
		delete(c.subs, code)
	}
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads frames and dispatches quotes to subscribers.
func (c *RealtimeClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *RealtimeClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-sends subscribe frames for every active code.
func (c *RealtimeClient) resubscribeAll() {
	c.subsMu.RLock()
	codes := make([]string, 0, len(c.subs))
	for code := range c.subs {
		codes = append(codes, code)
	}
	c.subsMu.RUnlock()

	for _, code := range codes {
		// Failed codes stay registered and recover on the next reconnect
		_ = c.writeSubscribe(code, true)
	}
}

// handleMessage processes one incoming frame. Data frames are
// pipe-delimited plaintext starting with "0" (plain) or "1" (encrypted);
// everything else is a JSON control frame.
func (c *RealtimeClient) handleMessage(message []byte) {
	if len(message) == 0 {
		return
	}

	if message[0] == '0' || message[0] == '1' {
		c.handleDataFrame(string(message))
		return
	}

	var ctrl struct {
		Header struct {
			TrID string `json:"tr_id"`
		} `json:"header"`
	}
	if err := json.Unmarshal(message, &ctrl); err != nil {
		return
	}

	// Gateway health check: echo the frame back
	if ctrl.Header.TrID == "PINGPONG" {
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.TextMessage, message)
		}
		c.connMu.Unlock()
	}
	// Subscribe acks are ignored
}

// handleDataFrame parses "flag|tr_id|count|payload" execution frames.
func (c *RealtimeClient) handleDataFrame(frame string) {
	parts := strings.Split(frame, "|")
	if len(parts) < 4 || parts[1] != trIDExecution {
		return
	}

	fields := strings.Split(parts[3], "^")
	if len(fields) < minFieldCount {
		return
	}

	price, err := strconv.ParseFloat(fields[fieldPrice], 64)
	if err != nil {
		return
	}
	volume, err := strconv.ParseInt(fields[fieldTickVolume], 10, 64)
	if err != nil {
		return
	}

	quote := Quote{
		Code:   fields[fieldCode],
		Time:   fields[fieldTime],
		Price:  price,
		Volume: volume,
	}

	c.subsMu.RLock()
	ch, ok := c.subs[quote.Code]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop ticks
		select {
		case ch <- quote:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *RealtimeClient) pingLoop() {
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
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
