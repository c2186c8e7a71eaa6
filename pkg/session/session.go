package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

// Listener is called with each newly published snapshot.
type Listener func(Snapshot)

// Option configures a Session.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
	topic   string
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records apply timings and rejections.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTopic sets the topic of the initial snapshot. Default: DefaultTopic.
func WithTopic(topic string) Option {
	return func(c *config) {
		c.topic = topic
	}
}

// Session holds the live state of one connection: the topic and every
// participant message, in the order they were created.
//
// Events are applied one at a time. Current may be called from any goroutine.
type Session struct {
	mu      sync.Mutex // serializes Apply and listener notification
	current atomic.Pointer[Snapshot]

	lmu       sync.Mutex
	listeners []listenerEntry
	nextID    uint64

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// New creates a session with no messages.
func New(opts ...Option) *Session {
	cfg := config{
		logger: slog.Default(),
		topic:  DefaultTopic,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		logger:  cfg.logger.With("component", "session"),
		metrics: cfg.metrics,
	}
	s.current.Store(&Snapshot{Topic: cfg.topic})
	return s
}

// Current returns the latest snapshot.
func (s *Session) Current() Snapshot {
	return *s.current.Load()
}

// OnChange registers fn to be called after every effective update, in
// registration order, on the goroutine that called Apply. Events that leave
// the state unchanged do not notify. fn must not call Apply.
//
// The returned function unregisters fn; calling it more than once is safe.
func (s *Session) OnChange(fn Listener) func() {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Apply applies one event and returns the resulting snapshot.
//
// Events naming a participant that does not exist are ignored. An Init for
// an id already present returns an error matching ErrDuplicateID and leaves
// the state unchanged.
func (s *Session) Apply(ev protocol.Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	prev := s.current.Load()
	next, err := reduce(prev, ev)
	if ev != nil {
		s.metrics.RecordApply(ev.Tag(), time.Since(start))
	}

	if err != nil {
		if errors.Is(err, ErrDuplicateID) {
			s.metrics.RecordApplyError("duplicate_id")
		}
		s.logger.Warn("event rejected", "kind", ev.Tag(), "error", err)
		return *prev, err
	}
	if next == prev {
		return *prev, nil
	}

	s.current.Store(next)
	s.notify(*next)
	return *next, nil
}

// ApplyFrame decodes one frame and applies it. A malformed frame returns
// the decode error and leaves the state unchanged.
func (s *Session) ApplyFrame(frame []byte) (Snapshot, error) {
	ev, err := protocol.DecodeFrame(frame)
	if err != nil {
		s.metrics.RecordMalformed()
		return s.Current(), err
	}
	s.metrics.RecordDecoded(ev.Tag())
	return s.Apply(ev)
}

func (s *Session) notify(snap Snapshot) {
	s.lmu.Lock()
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
}

// reduce computes the snapshot that follows prev. It returns prev itself
// when the event has no effect.
func reduce(prev *Snapshot, ev protocol.Event) (*Snapshot, error) {
	switch ev := ev.(type) {
	case protocol.SetTopic:
		return &Snapshot{Topic: ev.Text, Messages: prev.Messages}, nil

	case protocol.Init:
		if prev.index(ev.ID) >= 0 {
			return prev, &DuplicateIDError{ID: ev.ID}
		}
		msgs := make([]Message, len(prev.Messages), len(prev.Messages)+1)
		copy(msgs, prev.Messages)
		msgs = append(msgs, Message{
			ID:     ev.ID,
			Color:  ev.Color,
			Name:   ev.Name,
			Active: true,
			Mine:   ev.Echo,
		})
		return &Snapshot{Topic: prev.Topic, Messages: msgs}, nil

	case protocol.Done:
		i := prev.index(ev.ID)
		if i < 0 || !prev.Messages[i].Active {
			return prev, nil
		}
		m := prev.Messages[i]
		m.Active = false
		return &Snapshot{Topic: prev.Topic, Messages: replace(prev.Messages, i, m)}, nil

	case protocol.Append:
		i := prev.index(ev.ID)
		if i < 0 || ev.Text == "" {
			return prev, nil
		}
		m := prev.Messages[i]
		at := min(int(ev.Offset), len(m.Text))
		m.Text = m.Text[:at] + ev.Text + m.Text[at:]
		return &Snapshot{Topic: prev.Topic, Messages: replace(prev.Messages, i, m)}, nil

	case protocol.Delete:
		i := prev.index(ev.ID)
		if i < 0 {
			return prev, nil
		}
		m := prev.Messages[i]
		at := int(ev.Offset)
		if at == 0 || at > len(m.Text) {
			return prev, nil
		}
		m.Text = m.Text[:at-1] + m.Text[at:]
		return &Snapshot{Topic: prev.Topic, Messages: replace(prev.Messages, i, m)}, nil

	default:
		// Pong, Unknown and nil change nothing.
		return prev, nil
	}
}
