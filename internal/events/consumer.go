package events

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

// Message is one stream entry as delivered to this consumer
type Message struct {
	ID         string
	Kind       string
	Payload    []byte
	Deliveries int64
}

// Stream is a durable at-least-once queue with consumer-group semantics.
// Read with pending=true returns messages already delivered to this consumer
// but never acknowledged; with pending=false it waits for new ones.
type Stream interface {
	Name() string
	EnsureGroup(ctx context.Context) error
	Read(ctx context.Context, pending bool) ([]Message, error)
	Ack(ctx context.Context, id string) error
	DeadLetter(ctx context.Context, msg Message, reason error) error
}

// Handler processes one payload. A nil error acknowledges the message.
type Handler func(ctx context.Context, payload []byte) error

// Consumer drains one stream, one message at a time
type Consumer struct {
	stream        Stream
	handle        Handler
	maxDeliveries int64
	retryDelay    time.Duration
	log           *logger.Logger

	// local attempt counts, in case the stream does not count redeliveries
	attempts map[string]int64
}

func NewConsumer(stream Stream, handle Handler, maxDeliveries int, retryDelay time.Duration, log *logger.Logger) *Consumer {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}
	return &Consumer{
		stream:        stream,
		handle:        handle,
		maxDeliveries: int64(maxDeliveries),
		retryDelay:    retryDelay,
		log:           log.WithComponent("consumer").WithFields("stream", stream.Name()),
		attempts:      make(map[string]int64),
	}
}

// Run consumes until ctx is cancelled. It starts by replaying this consumer's
// pending list so messages left unacknowledged by a previous run come first.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.stream.EnsureGroup(ctx); err != nil {
		return err
	}
	c.log.Info("consumer started")

	pending := true
	for ctx.Err() == nil {
		msgs, err := c.stream.Read(ctx, pending)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Warn("stream read failed", "error", err)
			c.wait(ctx)
			continue
		}

		if len(msgs) == 0 {
			pending = false
			continue
		}

		settled := true
		for _, msg := range msgs {
			if !c.process(ctx, msg) {
				settled = false
				break
			}
		}
		if !settled {
			// later messages of this batch are already in the pending list
			pending = true
			c.wait(ctx)
		}
	}

	c.log.Info("consumer stopped")
	return nil
}

// process reports whether the message was acknowledged
func (c *Consumer) process(ctx context.Context, msg Message) bool {
	attempt := max(msg.Deliveries, c.attempts[msg.ID]+1)
	c.attempts[msg.ID] = attempt

	err := c.handle(ctx, msg.Payload)
	switch {
	case err == nil:
		c.log.LogEventOutcome(c.stream.Name(), msg.ID, msg.Kind, nil)
		return c.ack(ctx, msg)

	case errors.Is(err, services.ErrDataIntegrity):
		c.log.LogEventOutcome(c.stream.Name(), msg.ID, msg.Kind, err)
		return c.ack(ctx, msg)

	case attempt >= c.maxDeliveries:
		c.log.Error("giving up on message",
			"message_id", msg.ID,
			"kind", msg.Kind,
			"deliveries", attempt,
			"error", err)
		if dlErr := c.stream.DeadLetter(ctx, msg, err); dlErr != nil {
			c.log.Error("dead letter failed", "message_id", msg.ID, "error", dlErr)
			return false
		}
		return c.ack(ctx, msg)

	default:
		c.log.Warn("message will be redelivered",
			"message_id", msg.ID,
			"kind", msg.Kind,
			"deliveries", attempt,
			"malformed", errors.Is(err, ErrMalformed),
			"error", err)
		return false
	}
}

func (c *Consumer) ack(ctx context.Context, msg Message) bool {
	if err := c.stream.Ack(ctx, msg.ID); err != nil {
		c.log.Warn("ack failed", "message_id", msg.ID, "error", err)
		return false
	}
	delete(c.attempts, msg.ID)
	return true
}

func (c *Consumer) wait(ctx context.Context) {
	if c.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
