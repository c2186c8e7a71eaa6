package session

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

func quietSession(opts ...Option) *Session {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func mustApply(t *testing.T, s *Session, ev protocol.Event) Snapshot {
	t.Helper()
	snap, err := s.Apply(ev)
	if err != nil {
		t.Fatalf("Apply(%#v) error = %v", ev, err)
	}
	return snap
}

func TestNewSession(t *testing.T) {
	s := quietSession()
	snap := s.Current()
	if snap.Topic != DefaultTopic || snap.Len() != 0 {
		t.Errorf("initial snapshot = %+v", snap)
	}

	s = quietSession(WithTopic("lobby"))
	if got := s.Current().Topic; got != "lobby" {
		t.Errorf("Topic = %q, want lobby", got)
	}
}

func TestEndToEndFrames(t *testing.T) {
	s := quietSession()
	frames := [][]byte{
		protocol.EncodeInit(5, 9, "Al", false),
		protocol.EncodeAppend(5, 0, "Hi"),
		protocol.EncodeDone(5),
	}

	for _, f := range frames {
		snap, err := s.ApplyFrame(f)
		if err != nil {
			t.Fatalf("ApplyFrame() error = %v", err)
		}
		if snap.Topic != DefaultTopic {
			t.Fatalf("Topic = %q, want %q", snap.Topic, DefaultTopic)
		}
	}

	snap := s.Current()
	want := Message{ID: 5, Color: 9, Name: "Al", Text: "Hi", Active: false}
	if snap.Len() != 1 || snap.Messages[0] != want {
		t.Errorf("Messages = %+v, want [%+v]", snap.Messages, want)
	}
}

func TestSetTopicOverwrites(t *testing.T) {
	s := quietSession()
	for _, topic := range []string{"a", "b", "b", ""} {
		snap := mustApply(t, s, protocol.SetTopic{Text: topic})
		if snap.Topic != topic {
			t.Errorf("Topic = %q, want %q", snap.Topic, topic)
		}
	}
}

func TestAppendAndDelete(t *testing.T) {
	tests := []struct {
		name string
		text string
		ev   protocol.Event
		want string
	}{
		{"append_middle", "hello", protocol.Append{ID: 1, Offset: 2, Text: "XY"}, "heXYllo"},
		{"append_start", "hello", protocol.Append{ID: 1, Offset: 0, Text: ">"}, ">hello"},
		{"append_end", "hello", protocol.Append{ID: 1, Offset: 5, Text: "!"}, "hello!"},
		{"append_clamps", "hello", protocol.Append{ID: 1, Offset: 99, Text: "!"}, "hello!"},
		{"delete_middle", "heXYllo", protocol.Delete{ID: 1, Offset: 3}, "heYllo"},
		{"delete_first", "abc", protocol.Delete{ID: 1, Offset: 1}, "bc"},
		{"delete_last", "abc", protocol.Delete{ID: 1, Offset: 3}, "ab"},
		{"delete_zero_ignored", "abc", protocol.Delete{ID: 1, Offset: 0}, "abc"},
		{"delete_past_end_ignored", "abc", protocol.Delete{ID: 1, Offset: 4}, "abc"},
		{"delete_empty_ignored", "", protocol.Delete{ID: 1, Offset: 1}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := quietSession()
			mustApply(t, s, protocol.Init{ID: 1})
			if tc.text != "" {
				mustApply(t, s, protocol.Append{ID: 1, Text: tc.text})
			}
			snap := mustApply(t, s, tc.ev)
			m, ok := snap.Message(1)
			if !ok {
				t.Fatal("message 1 missing")
			}
			if m.Text != tc.want {
				t.Errorf("Text = %q, want %q", m.Text, tc.want)
			}
		})
	}
}

func TestDoneIsIdempotent(t *testing.T) {
	s := quietSession()
	mustApply(t, s, protocol.Init{ID: 3, Name: "c"})

	notified := 0
	s.OnChange(func(Snapshot) { notified++ })

	first := mustApply(t, s, protocol.Done{ID: 3})
	second := mustApply(t, s, protocol.Done{ID: 3})

	if first.Messages[0].Active || second.Messages[0].Active {
		t.Error("message still active after Done")
	}
	if notified != 1 {
		t.Errorf("listener called %d times, want 1", notified)
	}

	// Edits after Done still land; only activity is frozen.
	snap := mustApply(t, s, protocol.Append{ID: 3, Text: "late"})
	if m, _ := snap.Message(3); m.Text != "late" || m.Active {
		t.Errorf("message = %+v", m)
	}
}

func TestDuplicateInitRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := quietSession(WithMetrics(telemetry.NewMetrics(telemetry.WithRegistry(reg))))
	mustApply(t, s, protocol.Init{ID: 7, Color: 1, Name: "first"})
	before := s.Current()

	snap, err := s.Apply(protocol.Init{ID: 7, Color: 2, Name: "second"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Apply() error = %v, want ErrDuplicateID", err)
	}
	var dup *DuplicateIDError
	if !errors.As(err, &dup) || dup.ID != 7 {
		t.Errorf("error = %#v, want DuplicateIDError{ID: 7}", err)
	}
	if snap.Len() != 1 || snap.Messages[0] != before.Messages[0] {
		t.Errorf("snapshot changed: %+v", snap)
	}
}

func TestUnknownReferencesAreNoOps(t *testing.T) {
	s := quietSession()
	mustApply(t, s, protocol.Init{ID: 1, Name: "a"})
	before := s.Current()

	notified := false
	s.OnChange(func(Snapshot) { notified = true })

	events := []protocol.Event{
		protocol.Done{ID: 2},
		protocol.Append{ID: 2, Text: "x"},
		protocol.Delete{ID: 2, Offset: 1},
		protocol.Append{ID: 1, Text: ""},
		protocol.Pong{},
		protocol.Unknown{Kind: 99, ID: 1},
		nil,
	}
	for _, ev := range events {
		mustApply(t, s, ev)
	}

	if notified {
		t.Error("listener notified for a no-op")
	}
	after := s.Current()
	if after.Topic != before.Topic || after.Len() != 1 || after.Messages[0] != before.Messages[0] {
		t.Errorf("state changed: %+v", after)
	}
}

func TestUnknownTagFrame(t *testing.T) {
	s := quietSession()
	snap, err := s.ApplyFrame([]byte{0, 0, 0, 0, 1, 42, 'x'})
	if err != nil {
		t.Fatalf("ApplyFrame() error = %v", err)
	}
	if snap.Len() != 0 || snap.Topic != DefaultTopic {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestMalformedFrame(t *testing.T) {
	s := quietSession()
	_, err := s.ApplyFrame([]byte{0, 0, 0, 0, 1, byte(protocol.TagInit), 0})
	if !errors.Is(err, protocol.ErrMalformedFrame) {
		t.Fatalf("ApplyFrame() error = %v, want ErrMalformedFrame", err)
	}
	if s.Current().Len() != 0 {
		t.Error("malformed frame changed the session")
	}
}

func TestMessagesNeverDisappear(t *testing.T) {
	s := quietSession()
	events := []protocol.Event{
		protocol.Init{ID: 1}, protocol.Init{ID: 2}, protocol.Append{ID: 1, Text: "a"},
		protocol.Done{ID: 1}, protocol.SetTopic{Text: "t"}, protocol.Delete{ID: 1, Offset: 1},
		protocol.Init{ID: 3}, protocol.Done{ID: 2}, protocol.Done{ID: 3},
	}

	prev := 0
	for _, ev := range events {
		snap := mustApply(t, s, ev)
		want := prev
		if _, ok := ev.(protocol.Init); ok {
			want++
		}
		if snap.Len() != want {
			t.Fatalf("after %#v: %d messages, want %d", ev, snap.Len(), want)
		}
		prev = snap.Len()
	}

	ids := []uint32{1, 2, 3}
	for i, m := range s.Current().Messages {
		if m.ID != ids[i] {
			t.Errorf("Messages[%d].ID = %d, want %d", i, m.ID, ids[i])
		}
	}
	if active := s.Current().Active(); len(active) != 0 {
		t.Errorf("Active() = %+v, want none", active)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := quietSession()
	mustApply(t, s, protocol.Init{ID: 1, Name: "a"})
	old := s.Current()

	mustApply(t, s, protocol.Append{ID: 1, Text: "new"})
	mustApply(t, s, protocol.Done{ID: 1})

	if old.Messages[0].Text != "" || !old.Messages[0].Active {
		t.Errorf("earlier snapshot was modified: %+v", old.Messages[0])
	}
}

func TestEchoMarksMine(t *testing.T) {
	s := quietSession()
	mustApply(t, s, protocol.Init{ID: 1, Echo: true})
	mustApply(t, s, protocol.Init{ID: 2})

	snap := s.Current()
	if !snap.Messages[0].Mine || snap.Messages[1].Mine {
		t.Errorf("Mine flags = %v, %v", snap.Messages[0].Mine, snap.Messages[1].Mine)
	}
}

func TestOnChange(t *testing.T) {
	s := quietSession()

	var order []string
	var last Snapshot
	stopA := s.OnChange(func(snap Snapshot) {
		order = append(order, "a")
		last = snap
	})
	s.OnChange(func(Snapshot) { order = append(order, "b") })

	mustApply(t, s, protocol.SetTopic{Text: "x"})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
	if last.Topic != "x" {
		t.Errorf("listener saw topic %q", last.Topic)
	}

	stopA()
	stopA()
	order = nil
	mustApply(t, s, protocol.SetTopic{Text: "y"})
	if len(order) != 1 || order[0] != "b" {
		t.Errorf("after unsubscribe order = %v, want [b]", order)
	}
}

func TestConcurrentReaders(t *testing.T) {
	s := quietSession()
	mustApply(t, s, protocol.Init{ID: 1})

	var wg sync.WaitGroup
	done := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					snap := s.Current()
					if m, ok := snap.Message(1); ok && len(m.Text) > 200 {
						t.Error("text grew past the appended length")
						return
					}
				}
			}
		}()
	}

	for range 200 {
		mustApply(t, s, protocol.Append{ID: 1, Text: "x"})
	}
	close(done)
	wg.Wait()

	if m, _ := s.Current().Message(1); len(m.Text) != 200 {
		t.Errorf("len(Text) = %d, want 200", len(m.Text))
	}
}
