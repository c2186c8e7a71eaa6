// Package loadgen generates a deterministic stream of typing traffic.
//
// A Generator draws one step at a time from a fixed distribution that
// mimics a busy chat: mostly keystrokes, some new and finished messages,
// occasional topic changes and short pauses. The same seed always yields
// the same frames, so generated traffic can drive reproducible tests and
// benchmarks.
package loadgen

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/typewire-dev/typewire/pkg/protocol"
)

// DefaultPause is the length of a pause step.
const DefaultPause = 20 * time.Millisecond

// Kind is the kind of a generated step.
type Kind int

const (
	KindPause  Kind = iota // Wait before the next step
	KindAppend             // One printable byte at offset 0
	KindInit               // A new participant
	KindDone               // A participant finishes
	KindTopic              // A new topic
	KindSkip               // An Append or Done drawn while nobody was typing
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPause:
		return "pause"
	case KindAppend:
		return "append"
	case KindInit:
		return "init"
	case KindDone:
		return "done"
	case KindTopic:
		return "topic"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Step is one generated step. Event and Frame are nil for pauses and skips.
type Step struct {
	Kind  Kind
	Event protocol.Event
	Frame []byte
	Pause time.Duration
}

// Stats counts generated steps by kind.
type Stats struct {
	Steps    int
	Pauses   int
	Appends  int
	Inits    int
	Dones    int
	Topics   int
	Skipped  int
	Messages uint32 // Participant ids handed out
}

// Option configures a Generator.
type Option func(*Generator)

// WithoutPauses makes Run skip pause steps instead of sleeping.
func WithoutPauses() Option {
	return func(g *Generator) {
		g.pauses = false
	}
}

// WithPause sets the pause length. Default: DefaultPause.
func WithPause(d time.Duration) Option {
	return func(g *Generator) {
		g.pause = d
	}
}

// Generator produces steps. It is not safe for concurrent use.
type Generator struct {
	rng     *rand.Rand
	nextID  uint32
	actives []uint32
	stats   Stats
	pauses  bool
	pause   time.Duration
}

// New creates a generator seeded with seed.
func New(seed uint64, opts ...Option) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		pauses: true,
		pause:  DefaultPause,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stats returns the counts of steps generated so far.
func (g *Generator) Stats() Stats {
	return g.stats
}

// Active returns the ids of participants that have not finished.
func (g *Generator) Active() []uint32 {
	return append([]uint32(nil), g.actives...)
}

// Next draws the next step.
func (g *Generator) Next() Step {
	g.stats.Steps++
	r := g.rng.Float64()

	switch {
	case r < 0.006:
		g.stats.Pauses++
		return Step{Kind: KindPause, Pause: g.pause}

	case r < 0.5:
		if len(g.actives) == 0 {
			g.stats.Skipped++
			return Step{Kind: KindSkip}
		}
		id := g.actives[g.rng.IntN(len(g.actives))]
		ch := byte(32 + g.rng.IntN(126-32+1))
		ev := protocol.Append{ID: id, Offset: 0, Text: string([]byte{ch})}
		g.stats.Appends++
		return g.step(KindAppend, ev)

	case r < 0.7:
		id := g.nextID
		g.nextID++
		g.actives = append(g.actives, id)
		ev := protocol.Init{
			ID:    id,
			Color: uint8(g.rng.IntN(256)),
			Name:  g.number(),
		}
		g.stats.Inits++
		g.stats.Messages = g.nextID
		return g.step(KindInit, ev)

	case r < 0.9:
		if len(g.actives) == 0 {
			g.stats.Skipped++
			return Step{Kind: KindSkip}
		}
		i := g.rng.IntN(len(g.actives))
		id := g.actives[i]
		g.actives = lo.DropByIndex(g.actives, i)
		g.stats.Dones++
		return g.step(KindDone, protocol.Done{ID: id})

	default:
		g.stats.Topics++
		return g.step(KindTopic, protocol.SetTopic{Text: g.number()})
	}
}

// Run generates n steps, passing each step that carries a frame to sink.
// Pause steps sleep unless WithoutPauses was given. Run stops early when
// ctx is done or sink returns an error.
func (g *Generator) Run(ctx context.Context, n int, sink func(Step) error) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := g.Next()
		if step.Kind == KindPause {
			if g.pauses {
				if err := sleep(ctx, step.Pause); err != nil {
					return err
				}
			}
			continue
		}
		if step.Frame == nil {
			continue
		}
		if err := sink(step); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) step(kind Kind, ev protocol.Event) Step {
	return Step{Kind: kind, Event: ev, Frame: protocol.EncodeEvent(ev)}
}

// number returns a random float in decimal form, like "0.4471".
func (g *Generator) number() string {
	return strconv.FormatFloat(g.rng.Float64(), 'f', -1, 64)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
