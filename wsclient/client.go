// Package wsclient provides the WebSocket transport of a DungeonLab session.
//
// A Client owns at most one live connection. Connect, Send and Close never
// block on the network and never return errors: results are reported as
// events (connected, closed, message, error). Events are not delivered on
// network goroutines; they are enqueued on a dispatch.Queue and run when the
// owner drains it.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/dglab-ws/dispatch"
	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/gorilla/websocket"
)

// ErrSendBufferFull is reported through the error event when Send outpaces
// the connection's writer.
var ErrSendBufferFull = errors.New("send buffer full")

// State is the lifecycle state of a Client.
type State int

const (
	Disconnected State = iota // No connection and no dial in progress
	Connecting                // Handshake in progress
	Connected                 // Connection open
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Config holds transport settings.
type Config struct {
	// ReadBufferSize is the websocket read buffer size in bytes.
	ReadBufferSize int
	// WriteBufferSize is the websocket write buffer size in bytes.
	WriteBufferSize int
	// MaxMessageSize limits inbound messages; 0 means no limit.
	MaxMessageSize int64
	// SendBufferSize is the number of outbound messages queued per connection.
	SendBufferSize int
	// HandshakeTimeout bounds the opening handshake; 0 means no timeout.
	HandshakeTimeout time.Duration
	// WriteWait bounds a single write; 0 means no timeout.
	WriteWait time.Duration
	// CloseTimeout is how long Close waits for the peer's close frame.
	CloseTimeout time.Duration
	// PingInterval enables keep-alive pings when positive.
	PingInterval time.Duration
}

// DefaultConfig returns the transport defaults: 8 KiB buffers, 256 queued
// sends, no handshake timeout, 10s write wait, 5s close wait, no pings.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
		MaxMessageSize:   0,
		SendBufferSize:   256,
		HandshakeTimeout: 0,
		WriteWait:        10 * time.Second,
		CloseTimeout:     5 * time.Second,
		PingInterval:     0,
	}
}

// link is one live connection. It is replaced, never reused, on reconnect.
type link struct {
	conn     *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	send     chan []byte
	readDone chan struct{}
	released atomic.Bool
	gen      uint64
}

// Client is the WebSocket transport. It is safe for concurrent use; event
// handlers run only inside dispatch.Queue.Drain.
type Client struct {
	config Config
	dialer *websocket.Dialer
	queue  *dispatch.Queue
	log    logger.Logger

	mu         sync.Mutex
	state      State
	link       *link
	dialCancel context.CancelFunc
	gen        uint64 // bumped by every Connect that starts a dial

	onConnected []func()
	onClosed    []func()
	onMessage   []func(string)
	onError     []func(error)

	wg sync.WaitGroup
}

// New creates a disconnected Client that reports events on queue.
//
// Parameters:
//   - config: Transport settings (e.g. from DefaultConfig)
//   - queue: Queue every event is enqueued on
//   - log: Logger; nil discards output
//
// Returns:
//   - A new *Client in Disconnected state
func New(config Config, queue *dispatch.Queue, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}

	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 1
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		queue: queue,
		log:   log.With(logger.Field{Key: "component", Value: "wsclient"}),
		state: Disconnected,
	}
}

// OnConnected subscribes handler to successful connects.
func (c *Client) OnConnected(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = append(c.onConnected, handler)
}

// OnClosed subscribes handler to connection shutdowns, local or remote.
func (c *Client) OnClosed(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = append(c.onClosed, handler)
}

// OnMessage subscribes handler to inbound text.
func (c *Client) OnMessage(handler func(message string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = append(c.onMessage, handler)
}

// OnError subscribes handler to connect, send, receive and close failures.
func (c *Client) OnError(handler func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, handler)
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether a connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

// Connect starts dialing uri in the background. It is a no-op while a
// connection is open or a dial is in progress. The outcome is reported as a
// connected or error event; there is no retry.
//
// Parameters:
//   - uri: WebSocket URI, e.g. "ws://192.168.1.20:4503"
func (c *Client) Connect(uri string) {
	c.mu.Lock()
	if c.state != Disconnected {
		state := c.state
		c.mu.Unlock()
		c.log.Debug("connect ignored", logger.Field{Key: "state", Value: state.String()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.state = Connecting
	c.dialCancel = cancel
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.wg.Add(1)
	go c.dial(ctx, cancel, uri, gen)
}

// Send queues message for writing as a text frame. It is silently dropped
// unless the client is connected. Write failures arrive as error events.
//
// Parameters:
//   - message: UTF-8 text to send
func (c *Client) Send(message string) {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		c.log.Debug("send dropped, not connected")
		return
	}

	select {
	case <-l.ctx.Done():
	case l.send <- []byte(message):
	default:
		c.emitError(ErrSendBufferFull)
	}
}

// Close shuts the connection down. The client is Disconnected when Close
// returns; the close handshake runs in the background and ends with a closed
// event, unless Connect is called again first: events of a superseded
// connection are never delivered. Close cancels a dial in progress without
// any event and is a no-op when disconnected.
func (c *Client) Close() {
	c.mu.Lock()
	switch c.state {
	case Disconnected:
		c.mu.Unlock()
		return
	case Connecting:
		cancel := c.dialCancel
		c.dialCancel = nil
		c.state = Disconnected
		c.mu.Unlock()
		cancel()
		c.log.Debug("pending connect cancelled")
		return
	}

	l := c.link
	c.link = nil
	c.state = Disconnected
	c.mu.Unlock()

	if !l.released.CompareAndSwap(false, true) {
		return
	}

	l.cancel()
	c.wg.Add(1)
	go c.shutdown(l)
}

// Wait blocks until every background goroutine started by the client has
// exited. Call it after Close when the owner is shutting down.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, uri string, gen uint64) {
	defer c.wg.Done()

	conn, _, err := c.dialer.DialContext(ctx, uri, nil)

	c.mu.Lock()
	if ctx.Err() != nil {
		// Close abandoned this attempt
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		cancel()
		return
	}

	if err != nil {
		c.state = Disconnected
		c.dialCancel = nil
		c.mu.Unlock()
		cancel()
		c.log.Warn("connect failed", logger.Field{Key: "uri", Value: uri}, logger.Err(err))
		c.emitError(fmt.Errorf("connect %s: %w", uri, err))
		return
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	l := &link{
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, c.config.SendBufferSize),
		readDone: make(chan struct{}),
		gen:      gen,
	}
	c.state = Connected
	c.link = l
	c.dialCancel = nil
	c.mu.Unlock()

	c.log.Info("connected", logger.Field{Key: "uri", Value: uri})
	c.emitConnected()

	c.wg.Add(2)
	go c.readLoop(l)
	go c.writeLoop(l)
}

func (c *Client) readLoop(l *link) {
	defer c.wg.Done()
	defer close(l.readDone)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}

			// 1006 is never sent by a peer; it marks a dropped connection
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				c.log.Info("closed by peer", logger.Field{Key: "code", Value: closeErr.Code}, logger.Field{Key: "reason", Value: closeErr.Text})
				c.release(l, nil)
				return
			}

			c.log.Warn("receive failed", logger.Err(err))
			c.release(l, fmt.Errorf("receive: %w", err))
			return
		}

		// keep reading after a local Close so the peer's close frame is consumed
		if l.ctx.Err() != nil {
			continue
		}

		c.emitMessage(string(data))
	}
}

func (c *Client) writeLoop(l *link) {
	defer c.wg.Done()

	var ping <-chan time.Time
	if c.config.PingInterval > 0 {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-l.ctx.Done():
			return
		case msg := <-l.send:
			_ = l.conn.SetWriteDeadline(c.deadline(c.config.WriteWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if l.ctx.Err() == nil {
					c.log.Warn("send failed", logger.Err(err))
					c.release(l, fmt.Errorf("send: %w", err))
				}
				return
			}
		case <-ping:
			if err := l.conn.WriteControl(websocket.PingMessage, nil, c.deadline(c.config.WriteWait)); err != nil {
				if l.ctx.Err() == nil {
					c.release(l, fmt.Errorf("ping: %w", err))
				}
				return
			}
		}
	}
}

// shutdown performs the client side of the close handshake for a link
// already detached by Close.
func (c *Client) shutdown(l *link) {
	defer c.wg.Done()
	defer l.conn.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Closed by client")
	err := l.conn.WriteControl(websocket.CloseMessage, msg, c.deadline(c.config.WriteWait))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.log.Warn("close handshake failed", logger.Err(err))
		c.emitLinkClosed(l, fmt.Errorf("close: %w", err))
		return
	}

	timer := time.NewTimer(c.config.CloseTimeout)
	defer timer.Stop()

	select {
	case <-l.readDone:
	case <-timer.C:
		c.log.Debug("peer did not answer close frame")
	}

	c.log.Info("closed")
	c.emitLinkClosed(l, nil)
}

// release tears down a link after a remote close or an I/O failure. Only the
// first caller for a link has any effect.
func (c *Client) release(l *link, cause error) {
	if !l.released.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	if c.link == l {
		c.link = nil
		c.state = Disconnected
	}
	c.enqueueLinkClosedLocked(l, cause)
	c.mu.Unlock()

	l.cancel()
	_ = l.conn.Close()
}

// emitLinkClosed reports the end of l: an error event for cause when it is
// non-nil, then a closed event.
func (c *Client) emitLinkClosed(l *link, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueueLinkClosedLocked(l, cause)
}

// enqueueLinkClosedLocked must be called with c.mu held. Enqueueing under the
// lock orders these events ahead of any event of a link started afterwards.
// Nothing is enqueued once a newer Connect has been made.
func (c *Client) enqueueLinkClosedLocked(l *link, cause error) {
	if l.gen != c.gen {
		c.log.Debug("superseded link events dropped", logger.Field{Key: "generation", Value: l.gen})
		return
	}

	if cause != nil {
		errHandlers := slices.Clone(c.onError)
		c.queue.Enqueue(func() {
			for _, h := range errHandlers {
				h(cause)
			}
		})
	}

	closedHandlers := slices.Clone(c.onClosed)
	c.queue.Enqueue(func() {
		for _, h := range closedHandlers {
			h()
		}
	})
}

func (c *Client) deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}

	return time.Now().Add(d)
}

func (c *Client) emitConnected() {
	c.mu.Lock()
	handlers := slices.Clone(c.onConnected)
	c.mu.Unlock()

	c.queue.Enqueue(func() {
		for _, h := range handlers {
			h()
		}
	})
}

func (c *Client) emitMessage(message string) {
	c.mu.Lock()
	handlers := slices.Clone(c.onMessage)
	c.mu.Unlock()

	c.queue.Enqueue(func() {
		for _, h := range handlers {
			h(message)
		}
	})
}

func (c *Client) emitError(err error) {
	c.mu.Lock()
	handlers := slices.Clone(c.onError)
	c.mu.Unlock()

	c.queue.Enqueue(func() {
		for _, h := range handlers {
			h(err)
		}
	})
}
