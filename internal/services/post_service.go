package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

// PostPage is one page of an author's posts as seen by a viewer
type PostPage struct {
	Items []models.Post `json:"items"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Total int           `json:"total"`
}

// PostService handles the author-facing post lifecycle
type PostService struct {
	posts      repositories.PostRepository
	comments   repositories.CommentRepository
	reactions  repositories.ReactionRepository
	identities *IdentityResolver
	visibility *VisibilityEngine
	log        *logger.Logger
}

func NewPostService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	reactions repositories.ReactionRepository,
	identities *IdentityResolver,
	visibility *VisibilityEngine,
	log *logger.Logger,
) *PostService {
	return &PostService{
		posts:      posts,
		comments:   comments,
		reactions:  reactions,
		identities: identities,
		visibility: visibility,
		log:        log.WithComponent("posts"),
	}
}

// CreatePost publishes a post for the caller with zeroed counters
func (s *PostService) CreatePost(ctx context.Context, authorExternalID string, req models.CreatePostRequest) (*models.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("post content is empty: %w", ErrInvalidInput)
	}
	if !req.Visibility.Valid() {
		return nil, fmt.Errorf("visibility %q: %w", req.Visibility, ErrInvalidInput)
	}

	authorID, err := s.identities.Resolve(ctx, authorExternalID)
	if err != nil {
		return nil, fmt.Errorf("post author: %w", err)
	}

	post := &models.Post{
		ProfileID:  authorID,
		Content:    content,
		Visibility: req.Visibility,
		Tags:       req.Tags,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, storageErr("create post", err)
	}
	return post, nil
}

// GetPost returns a post if the viewer may see it. Hidden posts are reported
// as ErrNotFound so their existence does not leak.
func (s *PostService) GetPost(ctx context.Context, viewerExternalID, postID string) (*models.Post, error) {
	viewerID, err := s.identities.ResolveViewer(ctx, viewerExternalID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storageErr("load post", err)
	}
	visible, err := s.visibility.IsVisible(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return post, nil
}

// ListPostsByAuthor pages through an author's posts, newest first, keeping
// only those the viewer may see. Filtering happens after the fetch, so Total
// counts visible posts.
func (s *PostService) ListPostsByAuthor(ctx context.Context, viewerExternalID, authorProfileID string, page, size int) (*PostPage, error) {
	if page < 0 || size < 1 {
		return nil, fmt.Errorf("page %d size %d: %w", page, size, ErrInvalidInput)
	}

	viewerID, err := s.identities.ResolveViewer(ctx, viewerExternalID)
	if err != nil {
		return nil, err
	}

	all, err := s.posts.GetPostsByProfileID(ctx, authorProfileID, 0, 0)
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	visible, err := s.visibility.Filter(ctx, viewerID, authorProfileID, all)
	if err != nil {
		return nil, err
	}

	result := &PostPage{Items: []models.Post{}, Page: page, Size: size, Total: len(visible)}
	start := page * size
	if start >= len(visible) {
		return result, nil
	}
	end := min(start+size, len(visible))
	result.Items = visible[start:end]
	return result, nil
}

// UpdatePost edits content, visibility or tags. Only the author may edit and
// at least one field must change.
func (s *PostService) UpdatePost(ctx context.Context, postID, requestorExternalID string, req models.UpdatePostRequest) (*models.Post, error) {
	if req.Empty() {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	}

	post, err := s.loadOwned(ctx, postID, requestorExternalID)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return nil, fmt.Errorf("post content is empty: %w", ErrInvalidInput)
		}
		post.Content = content
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			return nil, fmt.Errorf("visibility %q: %w", *req.Visibility, ErrInvalidInput)
		}
		post.Visibility = *req.Visibility
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	post.IsEdited = true

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, storageErr("update post", err)
	}
	return post, nil
}

// DeletePost removes the reactions, then the comments, then the post itself.
// Every step runs even if an earlier one failed; failures are logged and
// returned together. Nothing is rolled back.
func (s *PostService) DeletePost(ctx context.Context, postID, requestorExternalID string) error {
	if _, err := s.loadOwned(ctx, postID, requestorExternalID); err != nil {
		return err
	}

	cascadeCtx := context.WithoutCancel(ctx)
	var errs []error

	if n, err := s.reactions.DeleteByPostID(cascadeCtx, postID); err != nil {
		s.log.Error("failed to delete post reactions", "post_id", postID, "error", err)
		errs = append(errs, storageErr("delete reactions", err))
	} else {
		s.log.Debug("post reactions deleted", "post_id", postID, "count", n)
	}

	if n, err := s.comments.DeleteByPostID(cascadeCtx, postID); err != nil {
		s.log.Error("failed to delete post comments", "post_id", postID, "error", err)
		errs = append(errs, storageErr("delete comments", err))
	} else {
		s.log.Debug("post comments deleted", "post_id", postID, "count", n)
	}

	if err := s.posts.DeletePost(cascadeCtx, postID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		s.log.Error("failed to delete post", "post_id", postID, "error", err)
		errs = append(errs, storageErr("delete post", err))
	}

	return errors.Join(errs...)
}

func (s *PostService) loadOwned(ctx context.Context, postID, requestorExternalID string) (*models.Post, error) {
	requestorID, err := s.identities.Resolve(ctx, requestorExternalID)
	if err != nil {
		return nil, fmt.Errorf("post requestor: %w", err)
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storageErr("load post", err)
	}
	if post.ProfileID != requestorID {
		return nil, fmt.Errorf("profile %s does not own post %s: %w", requestorID, postID, ErrForbidden)
	}
	return post, nil
}
