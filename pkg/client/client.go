package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/session"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

var (
	// ErrClosed is returned when sending on a closed client.
	ErrClosed = errors.New("client: closed")

	// ErrQueueFull is returned when the inbound queue is full and a frame
	// is dropped.
	ErrQueueFull = errors.New("client: inbound queue full")
)

// Config holds client connection settings.
type Config struct {
	// URL is the relay WebSocket URL.
	URL string

	// Header is sent with the upgrade request.
	Header http.Header

	// QueueSize is the length of the inbound frame queue.
	// Default: 1024.
	QueueSize int

	// PingInterval is how often PingLoop measures latency. Zero disables
	// PingLoop.
	PingInterval time.Duration

	// WriteTimeout bounds each WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		QueueSize:    1024,
		PingInterval: 5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records decode and drop metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for per-frame spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithDialer sets the WebSocket dialer. Default: websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// Client is a connection to a relay that keeps a Session up to date.
//
// Frames are read on one goroutine and applied on another, in arrival
// order, through a bounded queue. Senders may be called from any goroutine.
type Client struct {
	cfg  Config
	conn *websocket.Conn
	sess *session.Session

	queue chan []byte // closed by ReadLoop
	wmu   sync.Mutex  // serializes writes

	closed   atomic.Bool
	started  atomic.Bool
	stop     chan struct{} // closed by Close
	done     chan struct{} // closed once the queue is drained
	doneOnce sync.Once

	pingSent atomic.Int64 // unix nanos of the unanswered ping, or 0
	latency  atomic.Int64

	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// newClient builds a client around an established connection.
func newClient(conn *websocket.Conn, cfg Config, sess *session.Session, opts ...Option) *Client {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		conn:   conn,
		sess:   sess,
		queue:  make(chan []byte, cfg.QueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		dialer: websocket.DefaultDialer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer("")
	}
	c.logger = c.logger.With("component", "client", "url", cfg.URL)
	return c
}

// Dial connects to the relay at cfg.URL. Frames received are applied to
// sess once Start is called.
func Dial(ctx context.Context, cfg Config, sess *session.Session, opts ...Option) (*Client, error) {
	c := newClient(nil, cfg, sess, opts...)

	conn, resp, err := c.dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("client: dial %s: %w (status %d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("client: dial %s: %w", cfg.URL, err)
	}
	c.conn = conn
	c.logger.Debug("connected")
	return c, nil
}

// Session returns the session the client updates.
func (c *Client) Session() *session.Session {
	return c.sess
}

// Start starts the read, event and ping loops.
func (c *Client) Start() {
	c.started.Store(true)
	go c.ReadLoop()
	go c.EventLoop()
	if c.cfg.PingInterval > 0 {
		go c.PingLoop()
	}
}

// ReadLoop reads frames from the connection and queues them for EventLoop.
// It blocks until the connection fails, then closes the queue and the
// client. ReadLoop is the only sender on the queue.
func (c *Client) ReadLoop() {
	defer c.Close()
	defer close(c.queue)

	for {
		mt, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		c.queueFrame(msg)
	}
}

// queueFrame queues a frame for EventLoop. If the queue is full the frame
// is dropped and ErrQueueFull returned.
func (c *Client) queueFrame(frame []byte) error {
	select {
	case c.queue <- frame:
		return nil
	default:
		c.metrics.RecordDropped(telemetry.DropQueueFull)
		c.logger.Warn("inbound queue full, dropping frame", "len", len(frame))
		return ErrQueueFull
	}
}

// EventLoop applies queued frames to the session in arrival order. It
// returns once ReadLoop has stopped and every queued frame is applied, and
// only then closes the Closed channel.
func (c *Client) EventLoop() {
	defer c.finish()
	for frame := range c.queue {
		c.handleFrame(frame)
	}
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// handleFrame decodes and applies one frame. Malformed frames are dropped.
func (c *Client) handleFrame(frame []byte) {
	ev, err := protocol.DecodeFrame(frame)
	if err != nil {
		c.metrics.RecordMalformed()
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}
	c.metrics.RecordDecoded(ev.Tag())

	_, span := telemetry.StartSpan(context.Background(), c.tracer, "client.apply", ev)
	if _, ok := ev.(protocol.Pong); ok {
		c.recordPong()
	}
	_, err = c.sess.Apply(ev)
	telemetry.EndSpan(span, err)
}

// PingLoop sends a Ping every PingInterval until the client is closed.
func (c *Client) PingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				return
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Client) recordPong() {
	sent := c.pingSent.Swap(0)
	if sent == 0 {
		return
	}
	c.latency.Store(time.Now().UnixNano() - sent)
}

// Latency returns the round trip of the last answered Ping, or zero.
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load())
}

// Ping asks the relay for a Pong.
func (c *Client) Ping() error {
	c.pingSent.CompareAndSwap(0, time.Now().UnixNano())
	return c.write(protocol.ClientPing())
}

// Init starts a new message. The relay assigns its id.
func (c *Client) Init(color uint8, name string) error {
	return c.write(protocol.ClientInit(color, name))
}

// Append inserts text at a byte offset of the current message.
func (c *Client) Append(offset uint16, text string) error {
	return c.write(protocol.ClientAppend(offset, text))
}

// Delete removes the byte before a 1-based offset of the current message.
func (c *Client) Delete(offset uint16) error {
	return c.write(protocol.ClientDelete(offset))
}

// Done publishes the current message.
func (c *Client) Done() error {
	return c.write(protocol.ClientDone())
}

func (c *Client) write(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.closed.Load() || c.conn == nil {
		return ErrClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("client: write: %w", err)
	}
	return nil
}

// Close closes the connection and stops the loops. It is safe to call more
// than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.stop)
	if !c.started.Load() {
		// No EventLoop will drain the queue.
		c.finish()
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.logger.Debug("closed")
	return err
}

// Closed returns a channel that's closed when the client has shut down and
// every frame received before that has been applied to the session.
func (c *Client) Closed() <-chan struct{} {
	return c.done
}
