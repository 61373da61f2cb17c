package events

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/config"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

// fakeStream mimics a consumer group: delivered but unacked messages stay
// pending and come back on pending reads. It cancels the consumer once the
// stream is drained.
type fakeStream struct {
	mu      sync.Mutex
	queue   []Message
	pending []Message
	acked   []string
	dead    []Message
	cancel  context.CancelFunc
}

func newFakeStream(payloads ...string) *fakeStream {
	s := &fakeStream{}
	for i, p := range payloads {
		s.queue = append(s.queue, Message{ID: fmt.Sprintf("%d-0", i+1), Payload: []byte(p)})
	}
	return s
}

func (s *fakeStream) Name() string { return "test.stream" }

func (s *fakeStream) EnsureGroup(ctx context.Context) error { return nil }

func (s *fakeStream) Read(ctx context.Context, pending bool) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending {
		for i := range s.pending {
			s.pending[i].Deliveries++
		}
		return append([]Message(nil), s.pending...), nil
	}
	if len(s.queue) == 0 {
		s.cancel()
		return nil, nil
	}
	batch := s.queue
	s.queue = nil
	for i := range batch {
		batch[i].Deliveries = 1
	}
	s.pending = append(s.pending, batch...)
	return append([]Message(nil), batch...), nil
}

func (s *fakeStream) Ack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, id)
	for i, m := range s.pending {
		if m.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStream) DeadLetter(ctx context.Context, msg Message, reason error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, msg)
	return nil
}

func runConsumer(t *testing.T, stream *fakeStream, handle Handler, maxDeliveries int) {
	t.Helper()
	runConsumerWithLogger(t, stream, handle, maxDeliveries, logger.Discard())
}

func runConsumerWithLogger(t *testing.T, stream *fakeStream, handle Handler, maxDeliveries int, log *logger.Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream.cancel = cancel

	c := NewConsumer(stream, handle, maxDeliveries, 0, log)
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatal("consumer did not drain the stream in time")
	}
}

func TestConsumerAcksInOrder(t *testing.T) {
	stream := newFakeStream("a", "b", "c")
	var seen []string

	runConsumer(t, stream, func(ctx context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		return nil
	}, 3)

	if fmt.Sprint(seen) != "[a b c]" {
		t.Errorf("expected in-order processing, got %v", seen)
	}
	if len(stream.acked) != 3 || len(stream.pending) != 0 {
		t.Errorf("expected all messages acked, acked=%v pending=%d", stream.acked, len(stream.pending))
	}
}

func TestConsumerAcksDataIntegrityErrors(t *testing.T) {
	stream := newFakeStream("unknown-update", "next")
	var seen []string

	runConsumer(t, stream, func(ctx context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		if string(payload) == "unknown-update" {
			return fmt.Errorf("update for unknown identity: %w", services.ErrDataIntegrity)
		}
		return nil
	}, 3)

	if fmt.Sprint(seen) != "[unknown-update next]" {
		t.Errorf("expected loop to continue past integrity error, got %v", seen)
	}
	if len(stream.acked) != 2 || len(stream.dead) != 0 {
		t.Errorf("expected both acked and nothing dead-lettered, acked=%v dead=%d", stream.acked, len(stream.dead))
	}
}

func TestConsumerRedeliversTransientFailures(t *testing.T) {
	stream := newFakeStream("flaky", "after")
	var seen []string
	failures := 2

	runConsumer(t, stream, func(ctx context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		if string(payload) == "flaky" && failures > 0 {
			failures--
			return fmt.Errorf("store down: %w", services.ErrTransient)
		}
		return nil
	}, 5)

	if fmt.Sprint(seen) != "[flaky flaky flaky after]" {
		t.Errorf("expected redelivery before moving on, got %v", seen)
	}
	if fmt.Sprint(stream.acked) != "[1-0 2-0]" {
		t.Errorf("expected each message acked once in order, got %v", stream.acked)
	}
}

func TestConsumerDeadLettersPoisonMessages(t *testing.T) {
	stream := newFakeStream("garbage", "good")
	attempts := 0

	runConsumer(t, stream, func(ctx context.Context, payload []byte) error {
		if string(payload) == "garbage" {
			attempts++
			return fmt.Errorf("%w: not json", ErrMalformed)
		}
		return nil
	}, 3)

	if attempts != 3 {
		t.Errorf("expected 3 attempts before giving up, got %d", attempts)
	}
	if len(stream.dead) != 1 || stream.dead[0].ID != "1-0" {
		t.Errorf("expected poison message dead-lettered, got %+v", stream.dead)
	}
	if fmt.Sprint(stream.acked) != "[1-0 2-0]" {
		t.Errorf("expected both messages acked, got %v", stream.acked)
	}
}

func TestConsumerLogsEventKind(t *testing.T) {
	stream := newFakeStream("ok", "bad")
	stream.queue[0].Kind = string(IdentityCreated)
	stream.queue[1].Kind = string(IdentityDeleted)

	var buf bytes.Buffer
	log := logger.NewWithWriter(config.Logging{Level: "debug", Format: "text"}, &buf)

	runConsumerWithLogger(t, stream, func(ctx context.Context, payload []byte) error {
		if string(payload) == "bad" {
			return fmt.Errorf("%w: not json", ErrMalformed)
		}
		return nil
	}, 1, log)

	out := buf.String()
	if !strings.Contains(out, "msg=\"event projected\"") || !strings.Contains(out, "kind=CREATED") {
		t.Errorf("expected projected event logged with its kind, got:\n%s", out)
	}
	if !strings.Contains(out, "kind=DELETED") {
		t.Errorf("expected failed event logged with its kind, got:\n%s", out)
	}
	if strings.Contains(out, "kind= ") || strings.Contains(out, "kind=\"\"") {
		t.Errorf("expected no empty kind in logs, got:\n%s", out)
	}
	if len(stream.dead) != 1 || stream.dead[0].Kind != string(IdentityDeleted) {
		t.Errorf("expected dead letter to keep the kind, got %+v", stream.dead)
	}
}

func TestFieldOf(t *testing.T) {
	values := map[string]any{
		PayloadField: `{"kind":"CREATED"}`,
		KindField:    []byte("CREATED"),
	}
	if got := string(fieldOf(values, PayloadField)); got != `{"kind":"CREATED"}` {
		t.Errorf("unexpected payload %q", got)
	}
	if got := string(fieldOf(values, KindField)); got != "CREATED" {
		t.Errorf("unexpected kind %q", got)
	}
	if got := fieldOf(values, "missing"); got != nil {
		t.Errorf("expected nil for a missing field, got %q", got)
	}
}
