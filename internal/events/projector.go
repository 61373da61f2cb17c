package events

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

// Projector applies lifecycle events to the local identity and friendship
// projection. Every operation is idempotent so redelivery is safe.
type Projector struct {
	mappings    repositories.ProfileMappingRepository
	friendships repositories.FriendshipRepository
	log         *logger.Logger
}

func NewProjector(
	mappings repositories.ProfileMappingRepository,
	friendships repositories.FriendshipRepository,
	log *logger.Logger,
) *Projector {
	return &Projector{
		mappings:    mappings,
		friendships: friendships,
		log:         log.WithComponent("projector"),
	}
}

// ApplyIdentity returns services.ErrDataIntegrity for an update of an unknown
// identity and services.ErrTransient for store failures.
func (p *Projector) ApplyIdentity(ctx context.Context, evt *IdentityLifecycle) error {
	switch evt.Kind {
	case IdentityCreated:
		err := p.mappings.UpsertByExternalID(ctx, &models.ProfileMapping{
			ExternalID: evt.ExternalID,
			ProfileID:  evt.ProfileID,
			Nickname:   evt.DisplayName,
			AvatarRef:  evt.AvatarRef,
		})
		if err != nil {
			return fmt.Errorf("upsert mapping %s: %w: %w", evt.ExternalID, services.ErrTransient, err)
		}

	case IdentityUpdated:
		found, err := p.mappings.UpdateDisplay(ctx, evt.ExternalID, evt.DisplayName, evt.AvatarRef)
		if err != nil {
			return fmt.Errorf("update mapping %s: %w: %w", evt.ExternalID, services.ErrTransient, err)
		}
		if !found {
			return fmt.Errorf("update for unknown identity %s: %w", evt.ExternalID, services.ErrDataIntegrity)
		}

	case IdentityDeleted:
		if err := p.mappings.DeleteByExternalID(ctx, evt.ExternalID); err != nil {
			return fmt.Errorf("delete mapping %s: %w: %w", evt.ExternalID, services.ErrTransient, err)
		}

	default:
		return fmt.Errorf("%w: identity kind %q", ErrMalformed, evt.Kind)
	}

	p.log.Debug("identity projected", "external_id", evt.ExternalID, "kind", evt.Kind)
	return nil
}

func (p *Projector) ApplyFriendship(ctx context.Context, evt *FriendshipLifecycle) error {
	if evt.ProfileIDA == evt.ProfileIDB {
		return fmt.Errorf("%w: self friendship for %s", ErrMalformed, evt.ProfileIDA)
	}

	switch evt.Kind {
	case FriendshipFriend:
		if err := p.friendships.InsertEdge(ctx, evt.ProfileIDA, evt.ProfileIDB); err != nil {
			return fmt.Errorf("insert edge %s: %w: %w", models.EdgeKey(evt.ProfileIDA, evt.ProfileIDB), services.ErrTransient, err)
		}
	case FriendshipUnfriend:
		if err := p.friendships.DeleteEdge(ctx, evt.ProfileIDA, evt.ProfileIDB); err != nil {
			return fmt.Errorf("delete edge %s: %w: %w", models.EdgeKey(evt.ProfileIDA, evt.ProfileIDB), services.ErrTransient, err)
		}
	default:
		return fmt.Errorf("%w: friendship kind %q", ErrMalformed, evt.Kind)
	}

	p.log.Debug("friendship projected",
		"edge", models.EdgeKey(evt.ProfileIDA, evt.ProfileIDB),
		"kind", evt.Kind)
	return nil
}

// IdentityHandler decodes identity stream payloads and projects them
func (p *Projector) IdentityHandler() Handler {
	return func(ctx context.Context, payload []byte) error {
		evt, err := DecodeIdentity(payload)
		if err != nil {
			return err
		}
		return p.ApplyIdentity(ctx, evt)
	}
}

// FriendshipHandler decodes friendship stream payloads and projects them
func (p *Projector) FriendshipHandler() Handler {
	return func(ctx context.Context, payload []byte) error {
		evt, err := DecodeFriendship(payload)
		if err != nil {
			return err
		}
		return p.ApplyFriendship(ctx, evt)
	}
}
