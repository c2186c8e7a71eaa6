package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

// maxTopicLen is the longest topic that fits in one SetTopic frame.
const maxTopicLen = protocol.MaxFrameSize - protocol.HeaderSize

// inbound is a client frame, or the end of a connection when closed is set.
// Both travel on one channel so a disconnect is handled after every frame
// the connection sent before it.
type inbound struct {
	conn   *conn
	frame  protocol.ClientFrame
	closed bool
}

// Hub relays frames between connections and assigns participant ids.
//
// All hub state is owned by the Run goroutine. Connection goroutines talk to
// it over channels, so frames are broadcast in the order the hub receives
// them and every connection sees the same order.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader

	register chan *conn
	inbound  chan inbound
	topics   chan string

	// Owned by Run.
	conns  map[*conn]struct{}
	lastID uint32

	topic   atomic.Pointer[string]
	clients atomic.Int64
	running atomic.Bool
	done    chan struct{}

	logger   *slog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	gatherer prometheus.Gatherer
}

// NewHub creates a hub. Call Run to start it.
func NewHub(cfg Config, opts ...Option) *Hub {
	cfg.applyDefaults()

	h := &Hub{
		cfg:      cfg,
		register: make(chan *conn),
		inbound:  make(chan inbound, cfg.SendQueue),
		topics:   make(chan string),
		conns:    make(map[*conn]struct{}),
		done:     make(chan struct{}),
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tracer == nil {
		h.tracer = telemetry.Tracer("")
	}
	h.logger = h.logger.With("component", "relay")
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	topic := cfg.Topic
	h.topic.Store(&topic)
	return h
}

// Topic returns the current topic.
func (h *Hub) Topic() string {
	return *h.topic.Load()
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	return int(h.clients.Load())
}

// Done returns a channel that's closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run serves the hub until ctx is cancelled, then closes every connection
// and returns nil. Run may only be called once.
func (h *Hub) Run(ctx context.Context) error {
	if h.running.Swap(true) {
		return errors.New("relay: hub already running")
	}
	defer close(h.done)

	h.logger.Info("relay started", "path", h.cfg.Path, "topic", h.Topic())
	for {
		select {
		case c := <-h.register:
			h.add(c)

		case in := <-h.inbound:
			if in.closed {
				h.remove(in.conn)
				continue
			}
			h.handle(ctx, in)

		case topic := <-h.topics:
			h.setTopic(topic)

		case <-ctx.Done():
			for c := range h.conns {
				h.drop(c)
			}
			h.logger.Info("relay stopped")
			return nil
		}
	}
}

// SetTopic replaces the topic and broadcasts it to every connection. It
// blocks until Run accepts the change, ctx is done, or Run has returned.
func (h *Hub) SetTopic(ctx context.Context, text string) error {
	if len(text) > maxTopicLen {
		return ErrTopicTooLong
	}
	select {
	case h.topics <- text:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) setTopic(text string) {
	h.topic.Store(&text)
	h.broadcast(protocol.EncodeSetTopic(text), nil)
	h.logger.Info("topic changed", "topic", text)
}

// add registers c and queues the welcome frame.
func (h *Hub) add(c *conn) {
	h.conns[c] = struct{}{}
	h.clients.Store(int64(len(h.conns)))
	h.metrics.ConnOpened()
	c.logger.Debug("connection registered")

	if !c.enqueue(protocol.EncodeSetTopic(h.Topic())) {
		h.evict(c)
	}
}

// drop unregisters c and closes its send queue. It reports whether c was
// registered.
func (h *Hub) drop(c *conn) bool {
	if _, ok := h.conns[c]; !ok {
		return false
	}
	delete(h.conns, c)
	h.clients.Store(int64(len(h.conns)))
	h.metrics.ConnClosed()
	close(c.send)
	return true
}

// remove drops c and publishes the message it was still typing.
func (h *Hub) remove(c *conn) {
	if !h.drop(c) {
		return
	}
	c.logger.Debug("connection closed", "participant", c.participant, "typing", c.hasID)
	if c.hasID {
		c.hasID = false
		h.broadcast(protocol.EncodeDone(c.participant), nil)
	}
}

// evict removes a connection that cannot keep up.
func (h *Hub) evict(c *conn) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	h.metrics.RecordSlowConsumer()
	c.logger.Warn("closing slow consumer", "error", ErrSlowConsumer, "queue", cap(c.send))
	h.remove(c)
}

// broadcast queues frame on every connection. The author, if any, gets the
// echo copy. Connections with a full queue are evicted afterwards so the
// Done they trigger follows frame everywhere.
func (h *Hub) broadcast(frame []byte, author *conn) {
	var slow []*conn
	for c := range h.conns {
		f := frame
		if c == author {
			f = protocol.EchoFrame(frame)
		}
		if !c.enqueue(f) {
			slow = append(slow, c)
		}
	}
	if tag, ok := protocol.PeekTag(frame); ok {
		h.metrics.RecordRelayed(tag)
	}
	for _, c := range slow {
		h.evict(c)
	}
}

// handle routes one client frame inside a span.
func (h *Hub) handle(ctx context.Context, in inbound) {
	c := in.conn
	if _, ok := h.conns[c]; !ok {
		return
	}

	_, span := telemetry.StartSpan(ctx, h.tracer, "relay."+in.frame.Tag.String(), nil)
	frame, err := h.route(c, in.frame)
	if frame != nil {
		if ev, derr := protocol.DecodeFrame(frame); derr == nil {
			telemetry.Annotate(span, ev)
		}
	}
	if err != nil {
		reason := telemetry.DropNoID
		if errors.Is(err, ErrIDHeld) {
			reason = telemetry.DropHeldID
		}
		h.metrics.RecordDropped(reason)
		c.logger.Debug("frame dropped", "kind", in.frame.Tag, "error", err)
	}
	telemetry.EndSpan(span, err)
}

// route applies the id rules to a client frame and delivers the resulting
// server frame. It returns the frame it sent, or the reason it sent none.
func (h *Hub) route(c *conn, cf protocol.ClientFrame) ([]byte, error) {
	switch cf.Tag {
	case protocol.TagPing:
		pong := protocol.EncodePong()
		if !c.enqueue(pong) {
			h.evict(c)
		}
		return pong, nil

	case protocol.TagInit:
		if c.hasID {
			return nil, ErrIDHeld
		}
		h.lastID++
		c.participant, c.hasID = h.lastID, true
		frame := protocol.ServerFrame(c.participant, cf.Raw)
		frame[protocol.OffsetPayload] = 0 // only the relay sets echo
		h.broadcast(frame, c)
		return frame, nil

	case protocol.TagDone:
		if !c.hasID {
			return nil, ErrNoID
		}
		c.hasID = false
		frame := protocol.ServerFrame(c.participant, cf.Raw)
		h.broadcast(frame, nil)
		return frame, nil

	default:
		if !c.hasID {
			return nil, ErrNoID
		}
		frame := protocol.ServerFrame(c.participant, cf.Raw)
		h.broadcast(frame, nil)
		return frame, nil
	}
}
