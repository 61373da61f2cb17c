package services

import (
	"context"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
)

// VisibilityEngine decides whether a viewer may read a post
type VisibilityEngine struct {
	friendships repositories.FriendshipRepository
}

func NewVisibilityEngine(friendships repositories.FriendshipRepository) *VisibilityEngine {
	return &VisibilityEngine{friendships: friendships}
}

// IsVisible performs at most one friendship lookup. An empty viewer is
// neither the author nor anyone's friend.
func (v *VisibilityEngine) IsVisible(ctx context.Context, viewerProfileID string, post *models.Post) (bool, error) {
	if post.Visibility != models.VisibilityFriends || viewerProfileID == "" || viewerProfileID == post.ProfileID {
		return canView(viewerProfileID, post, false), nil
	}
	friends, err := v.friendships.EdgeExists(ctx, viewerProfileID, post.ProfileID)
	if err != nil {
		return false, storageErr("check friendship", err)
	}
	return canView(viewerProfileID, post, friends), nil
}

// Filter keeps the posts of a single author that the viewer may read,
// resolving the friendship once for the whole batch.
func (v *VisibilityEngine) Filter(ctx context.Context, viewerProfileID, authorProfileID string, posts []models.Post) ([]models.Post, error) {
	friends := false
	if viewerProfileID != "" && viewerProfileID != authorProfileID && hasVisibility(posts, models.VisibilityFriends) {
		var err error
		friends, err = v.friendships.EdgeExists(ctx, viewerProfileID, authorProfileID)
		if err != nil {
			return nil, storageErr("check friendship", err)
		}
	}

	visible := make([]models.Post, 0, len(posts))
	for i := range posts {
		if canView(viewerProfileID, &posts[i], friends) {
			visible = append(visible, posts[i])
		}
	}
	return visible, nil
}

func canView(viewerProfileID string, post *models.Post, friends bool) bool {
	isAuthor := viewerProfileID != "" && viewerProfileID == post.ProfileID
	switch post.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityFriends:
		return isAuthor || (viewerProfileID != "" && friends)
	case models.VisibilityPrivate:
		return isAuthor
	default:
		return false
	}
}

func hasVisibility(posts []models.Post, v models.Visibility) bool {
	for i := range posts {
		if posts[i].Visibility == v {
			return true
		}
	}
	return false
}
