package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"github.com/google/uuid"
)

// CommentService manages comment threads and keeps the post comment counter in step
type CommentService struct {
	comments   repositories.CommentRepository
	posts      repositories.PostRepository
	identities *IdentityResolver
	log        *logger.Logger
	now        func() time.Time
}

func NewCommentService(
	comments repositories.CommentRepository,
	posts repositories.PostRepository,
	identities *IdentityResolver,
	log *logger.Logger,
) *CommentService {
	return &CommentService{
		comments:   comments,
		posts:      posts,
		identities: identities,
		log:        log.WithComponent("comments"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateComment adds a comment to a post, optionally as a reply. If the
// counter increment fails the comment is removed again.
func (s *CommentService) CreateComment(ctx context.Context, postID string, parentCommentID *string, authorExternalID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is empty: %w", ErrInvalidInput)
	}

	authorID, err := s.identities.Resolve(ctx, authorExternalID)
	if err != nil {
		return nil, fmt.Errorf("comment author: %w", err)
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, storageErr("load post", err)
	}

	now := s.now()
	comment := &models.Comment{
		ID:              uuid.NewString(),
		PostID:          postID,
		ProfileID:       authorID,
		ParentCommentID: parentCommentID,
		Content:         content,
		CreatedAt:       now,
		LastUpdatedAt:   now,
	}
	if comment.IsTopLevel() {
		comment.ParentCommentID = nil
	} else {
		parent, err := s.comments.GetCommentByID(ctx, *comment.ParentCommentID)
		if err != nil {
			return nil, storageErr("load parent comment", err)
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("parent comment %s is not on post %s: %w", parent.ID, postID, ErrNotFound)
		}
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, storageErr("create comment", err)
	}

	if err := s.posts.IncrementCommentsCount(ctx, postID, 1); err != nil {
		s.compensateCreate(ctx, comment.ID, err)
		return nil, storageErr("increment comment count", err)
	}

	return comment, nil
}

func (s *CommentService) compensateCreate(ctx context.Context, commentID string, cause error) {
	if _, err := s.comments.DeleteByIDs(context.WithoutCancel(ctx), []string{commentID}); err != nil {
		s.log.Error("failed to roll back comment after counter failure",
			"comment_id", commentID,
			"cause", cause,
			"error", err)
		return
	}
	s.log.Warn("comment rolled back after counter failure", "comment_id", commentID, "cause", cause)
}

// GetComment returns a single comment
func (s *CommentService) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, storageErr("load comment", err)
	}
	return comment, nil
}

// GetTopLevelComments returns the direct comments of a post with their direct
// reply counts. Replies are never expanded here.
func (s *CommentService) GetTopLevelComments(ctx context.Context, postID string) ([]models.CommentNode, error) {
	comments, err := s.comments.ListTopLevel(ctx, postID)
	if err != nil {
		return nil, storageErr("list top-level comments", err)
	}
	if len(comments) == 0 {
		return []models.CommentNode{}, nil
	}

	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	counts, err := s.comments.CountRepliesByParentIDs(ctx, ids)
	if err != nil {
		return nil, storageErr("count replies", err)
	}

	sortComments(comments)
	nodes := make([]models.CommentNode, len(comments))
	for i := range comments {
		nodes[i] = models.CommentNode{
			Comment:    comments[i],
			ReplyCount: counts[comments[i].ID],
			Replies:    []models.CommentNode{},
		}
	}
	return nodes, nil
}

// GetCommentThread returns every descendant of the root comment as nested
// nodes. The result is rooted at the root's direct children.
func (s *CommentService) GetCommentThread(ctx context.Context, rootCommentID string) ([]models.CommentNode, error) {
	if _, err := s.comments.GetCommentByID(ctx, rootCommentID); err != nil {
		return nil, storageErr("load comment", err)
	}

	descendants, err := s.collectDescendants(ctx, rootCommentID)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]models.Comment, len(descendants))
	for _, c := range descendants {
		if c.IsTopLevel() {
			continue
		}
		parent := *c.ParentCommentID
		children[parent] = append(children[parent], c)
	}
	for _, siblings := range children {
		sortComments(siblings)
	}
	return buildNodes(rootCommentID, children), nil
}

// collectDescendants expands the tree breadth first, one query per level.
// The visited set stops corrupt parent links from looping forever.
func (s *CommentService) collectDescendants(ctx context.Context, rootCommentID string) ([]models.Comment, error) {
	visited := map[string]struct{}{rootCommentID: {}}
	frontier := []string{rootCommentID}
	var all []models.Comment

	for len(frontier) > 0 {
		level, err := s.comments.ListByParentIDs(ctx, frontier)
		if err != nil {
			return nil, storageErr("list replies", err)
		}

		next := make([]string, 0, len(level))
		for _, c := range level {
			if _, seen := visited[c.ID]; seen {
				continue
			}
			visited[c.ID] = struct{}{}
			all = append(all, c)
			next = append(next, c.ID)
		}
		frontier = next
	}
	return all, nil
}

func buildNodes(parentID string, children map[string][]models.Comment) []models.CommentNode {
	siblings := children[parentID]
	nodes := make([]models.CommentNode, 0, len(siblings))
	for _, c := range siblings {
		replies := buildNodes(c.ID, children)
		nodes = append(nodes, models.CommentNode{
			Comment:    c,
			ReplyCount: len(replies),
			Replies:    replies,
		})
	}
	return nodes
}

// sortComments orders by creation time, falling back to id for a stable order
func sortComments(comments []models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
}

// UpdateComment changes the text of a comment. Only its author may do so.
func (s *CommentService) UpdateComment(ctx context.Context, commentID, requestorExternalID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is empty: %w", ErrInvalidInput)
	}

	comment, requestorID, err := s.loadOwned(ctx, commentID, requestorExternalID)
	if err != nil {
		return nil, err
	}
	if comment.ProfileID != requestorID {
		return nil, fmt.Errorf("profile %s cannot edit comment %s: %w", requestorID, commentID, ErrForbidden)
	}

	comment.Content = content
	comment.IsEdited = true
	comment.LastUpdatedAt = s.now()
	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		return nil, storageErr("update comment", err)
	}
	return comment, nil
}

// DeleteComment removes a comment and its whole subtree, then lowers the post
// counter by the number of rows removed. It returns that number.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, requestorExternalID string) (int, error) {
	comment, requestorID, err := s.loadOwned(ctx, commentID, requestorExternalID)
	if err != nil {
		return 0, err
	}
	if comment.ProfileID != requestorID {
		return 0, fmt.Errorf("profile %s cannot delete comment %s: %w", requestorID, commentID, ErrForbidden)
	}

	descendants, err := s.collectDescendants(ctx, commentID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(descendants)+1)
	ids = append(ids, commentID)
	for _, c := range descendants {
		ids = append(ids, c.ID)
	}

	cascadeCtx := context.WithoutCancel(ctx)
	deleted, err := s.comments.DeleteByIDs(cascadeCtx, ids)
	if err != nil {
		return 0, storageErr("delete comments", err)
	}
	if deleted == 0 {
		return 0, nil
	}

	if err := s.posts.DecrementCommentsCount(cascadeCtx, comment.PostID, int(deleted)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("post gone while deleting comments", "post_id", comment.PostID, "deleted", deleted)
			return int(deleted), nil
		}
		s.log.Error("comment counter not decremented",
			"post_id", comment.PostID,
			"deleted", deleted,
			"error", err)
		return int(deleted), storageErr("decrement comment count", err)
	}
	return int(deleted), nil
}

func (s *CommentService) loadOwned(ctx context.Context, commentID, requestorExternalID string) (*models.Comment, string, error) {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, "", storageErr("load comment", err)
	}
	requestorID, err := s.identities.Resolve(ctx, requestorExternalID)
	if err != nil {
		return nil, "", fmt.Errorf("comment requestor: %w", err)
	}
	return comment, requestorID, nil
}
