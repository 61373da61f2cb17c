package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends lifecycle events to the streams. The owning services
// publish in production; this is used for replays and local testing.
type Publisher struct {
	client           redis.Cmdable
	identityStream   string
	friendshipStream string
	now              func() time.Time
}

func NewPublisher(client redis.Cmdable, identityStream, friendshipStream string) *Publisher {
	return &Publisher{
		client:           client,
		identityStream:   identityStream,
		friendshipStream: friendshipStream,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// PublishIdentity validates and appends the event, returning the stream entry id
func (p *Publisher) PublishIdentity(ctx context.Context, evt IdentityLifecycle) (string, error) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = p.now()
	}
	return p.publish(ctx, p.identityStream, string(evt.Kind), &evt)
}

func (p *Publisher) PublishFriendship(ctx context.Context, evt FriendshipLifecycle) (string, error) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = p.now()
	}
	return p.publish(ctx, p.friendshipStream, string(evt.Kind), &evt)
}

func (p *Publisher) publish(ctx context.Context, stream, kind string, evt any) (string, error) {
	if err := validate.Validate(evt); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			PayloadField: string(data),
			KindField:    kind,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", stream, err)
	}
	return id, nil
}
