package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"github.com/google/uuid"
)

// ReactionService keeps one reaction per (post, profile) and the post reaction counter
type ReactionService struct {
	reactions  repositories.ReactionRepository
	posts      repositories.PostRepository
	identities *IdentityResolver
	log        *logger.Logger
	now        func() time.Time
}

func NewReactionService(
	reactions repositories.ReactionRepository,
	posts repositories.PostRepository,
	identities *IdentityResolver,
	log *logger.Logger,
) *ReactionService {
	return &ReactionService{
		reactions:  reactions,
		posts:      posts,
		identities: identities,
		log:        log.WithComponent("reactions"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UpsertReaction sets the caller's reaction on a post. Changing the type of an
// existing reaction replaces it in place and leaves the counter alone.
func (s *ReactionService) UpsertReaction(ctx context.Context, postID, reactorExternalID string, reactionType models.ReactionType) (*models.UserReactionResponse, error) {
	if !reactionType.Valid() {
		return nil, fmt.Errorf("reaction type %q: %w", reactionType, ErrInvalidInput)
	}

	reactorID, err := s.identities.Resolve(ctx, reactorExternalID)
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, storageErr("load post", err)
	}

	existing, err := s.reactions.GetReaction(ctx, postID, reactorID)
	switch {
	case err == nil:
		existing.Type = reactionType
		existing.LastUpdatedAt = s.now()
		if err := s.reactions.SaveReaction(ctx, existing); err != nil {
			return nil, storageErr("replace reaction", err)
		}
		return toUserReaction(existing, false), nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storageErr("load reaction", err)
	}

	now := s.now()
	reaction := &models.Reaction{
		ID:            uuid.NewString(),
		PostID:        postID,
		ProfileID:     reactorID,
		Type:          reactionType,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.reactions.CreateReaction(ctx, reaction); err != nil {
		return nil, storageErr("create reaction", err)
	}
	if err := s.posts.IncrementReactionsCount(ctx, postID); err != nil {
		if _, delErr := s.reactions.DeleteReaction(context.WithoutCancel(ctx), reaction.ID); delErr != nil {
			s.log.Error("failed to roll back reaction after counter failure",
				"reaction_id", reaction.ID,
				"cause", err,
				"error", delErr)
		}
		return nil, storageErr("increment reaction count", err)
	}
	return toUserReaction(reaction, true), nil
}

// RemoveReaction deletes the caller's reaction and lowers the counter
func (s *ReactionService) RemoveReaction(ctx context.Context, postID, reactorExternalID string) error {
	reactorID, err := s.identities.Resolve(ctx, reactorExternalID)
	if err != nil {
		return fmt.Errorf("reactor: %w", err)
	}

	reaction, err := s.reactions.GetReaction(ctx, postID, reactorID)
	if err != nil {
		return storageErr("load reaction", err)
	}

	cascadeCtx := context.WithoutCancel(ctx)
	deleted, err := s.reactions.DeleteReaction(cascadeCtx, reaction.ID)
	if err != nil {
		return storageErr("delete reaction", err)
	}
	if deleted == 0 {
		// removed concurrently; that caller owns the decrement
		return nil
	}

	if err := s.posts.DecrementReactionsCount(cascadeCtx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		s.log.Error("reaction counter not decremented", "post_id", postID, "error", err)
		return storageErr("decrement reaction count", err)
	}
	return nil
}

// ReactionCounts returns a count for every declared reaction type, zero when absent
func (s *ReactionService) ReactionCounts(ctx context.Context, postID string) (map[models.ReactionType]int64, error) {
	counts, err := s.reactions.CountByType(ctx, postID)
	if err != nil {
		return nil, storageErr("count reactions", err)
	}
	complete := make(map[models.ReactionType]int64, len(models.ReactionTypes))
	for _, t := range models.ReactionTypes {
		complete[t] = counts[t]
	}
	return complete, nil
}

// ListReactions returns every reaction on a post
func (s *ReactionService) ListReactions(ctx context.Context, postID string) ([]models.Reaction, error) {
	reactions, err := s.reactions.ListByPostID(ctx, postID)
	if err != nil {
		return nil, storageErr("list reactions", err)
	}
	return reactions, nil
}

// GetUserReaction returns the caller's reaction on a post, ErrNotFound if none
func (s *ReactionService) GetUserReaction(ctx context.Context, postID, reactorExternalID string) (*models.UserReactionResponse, error) {
	reactorID, err := s.identities.Resolve(ctx, reactorExternalID)
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}
	reaction, err := s.reactions.GetReaction(ctx, postID, reactorID)
	if err != nil {
		return nil, storageErr("load reaction", err)
	}
	return toUserReaction(reaction, false), nil
}

func toUserReaction(r *models.Reaction, isNew bool) *models.UserReactionResponse {
	return &models.UserReactionResponse{
		PostID:    r.PostID,
		ProfileID: r.ProfileID,
		Type:      r.Type,
		ReactedAt: r.LastUpdatedAt,
		IsNew:     isNew,
	}
}
