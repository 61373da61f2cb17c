package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const deadLetterSuffix = ".dead"

// RedisStreamConfig names a stream and the consumer group reading it
type RedisStreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	Batch    int64
	Block    time.Duration
}

// RedisStream implements Stream on a Redis stream with a consumer group
type RedisStream struct {
	client redis.Cmdable
	cfg    RedisStreamConfig
}

func NewRedisStream(client redis.Cmdable, cfg RedisStreamConfig) *RedisStream {
	if cfg.Batch < 1 {
		cfg.Batch = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &RedisStream{client: client, cfg: cfg}
}

func (s *RedisStream) Name() string { return s.cfg.Stream }

// EnsureGroup creates the stream and group on first use
func (s *RedisStream) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", s.cfg.Group, s.cfg.Stream, err)
	}
	return nil
}

func (s *RedisStream) Read(ctx context.Context, pending bool) ([]Message, error) {
	args := &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.Batch,
		Block:    s.cfg.Block,
	}
	if pending {
		args.Streams[1] = "0"
		args.Block = -1
	}

	res, err := s.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []Message
	for _, stream := range res {
		for _, m := range stream.Messages {
			msgs = append(msgs, Message{
				ID:         m.ID,
				Kind:       string(fieldOf(m.Values, KindField)),
				Payload:    fieldOf(m.Values, PayloadField),
				Deliveries: 1,
			})
		}
	}

	if pending && len(msgs) > 0 {
		if err := s.fillDeliveries(ctx, msgs); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// fillDeliveries reads the delivery counters Redis keeps for pending entries
func (s *RedisStream) fillDeliveries(ctx context.Context, msgs []Message) error {
	entries, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Start:    msgs[0].ID,
		End:      msgs[len(msgs)-1].ID,
		Count:    int64(len(msgs)),
		Consumer: s.cfg.Consumer,
	}).Result()
	if err != nil {
		return fmt.Errorf("pending info for %s: %w", s.cfg.Stream, err)
	}

	counts := make(map[string]int64, len(entries))
	for _, e := range entries {
		counts[e.ID] = e.RetryCount
	}
	for i := range msgs {
		if n, ok := counts[msgs[i].ID]; ok {
			msgs[i].Deliveries = n
		}
	}
	return nil
}

func (s *RedisStream) Ack(ctx context.Context, id string) error {
	return s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err()
}

// DeadLetter copies the message to <stream>.dead with the failure reason
func (s *RedisStream) DeadLetter(ctx context.Context, msg Message, reason error) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Stream + deadLetterSuffix,
		Values: map[string]any{
			PayloadField: string(msg.Payload),
			KindField:    msg.Kind,
			"source_id":  msg.ID,
			"deliveries": msg.Deliveries,
			"error":      reason.Error(),
		},
	}).Err()
}

func fieldOf(values map[string]any, field string) []byte {
	switch v := values[field].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}
