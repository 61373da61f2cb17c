package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/social/validators"
)

const (
	// PayloadField is the stream entry field that carries the JSON body
	PayloadField = "payload"
	// KindField mirrors the event kind outside the payload for inspection
	KindField = "kind"
)

type IdentityKind string

const (
	IdentityCreated IdentityKind = "CREATED"
	IdentityUpdated IdentityKind = "UPDATED"
	IdentityDeleted IdentityKind = "DELETED"
)

type FriendshipKind string

const (
	FriendshipFriend   FriendshipKind = "FRIEND"
	FriendshipUnfriend FriendshipKind = "UNFRIEND"
)

// ErrMalformed marks payloads that cannot be decoded or fail validation
var ErrMalformed = errors.New("malformed event")

// IdentityLifecycle is published by the profile service whenever a profile
// is created, edited or removed.
type IdentityLifecycle struct {
	ExternalID  string       `json:"externalId" validate:"required,max=128"`
	ProfileID   string       `json:"profileId" validate:"required_unless=Kind DELETED,max=36"`
	DisplayName string       `json:"displayName,omitempty"`
	AvatarRef   string       `json:"avatarRef,omitempty"`
	Kind        IdentityKind `json:"kind" validate:"required,oneof=CREATED UPDATED DELETED"`
	Timestamp   time.Time    `json:"timestamp"`
}

// FriendshipLifecycle is published when two profiles become friends or stop being friends
type FriendshipLifecycle struct {
	ProfileIDA string         `json:"profileIdA" validate:"required,max=36"`
	ProfileIDB string         `json:"profileIdB" validate:"required,max=36,nefield=ProfileIDA"`
	Kind       FriendshipKind `json:"kind" validate:"required,oneof=FRIEND UNFRIEND"`
	Timestamp  time.Time      `json:"timestamp"`
}

var validate = validators.NewValidator()

func DecodeIdentity(data []byte) (*IdentityLifecycle, error) {
	var evt IdentityLifecycle
	if err := decode(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

func DecodeFriendship(data []byte) (*FriendshipLifecycle, error) {
	var evt FriendshipLifecycle
	if err := decode(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validate.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
