package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/social/internal/middleware"
	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments. Reads go through
// the post service first so hidden posts stay hidden.
type CommentHandler struct {
	comments *services.CommentService
	posts    *services.PostService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService, posts *services.PostService) *CommentHandler {
	return &CommentHandler{comments: comments, posts: posts}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetTopLevelComments)
	g.GET("/comments/:comment_id/replies", h.GetCommentThread)
	g.PUT("/comments/:comment_id", h.UpdateComment)
	g.DELETE("/comments/:comment_id", h.DeleteComment)
}

// CreateComment adds a comment or a reply to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), postID); err != nil {
		return toHTTPError(c, err)
	}

	comment, err := h.comments.CreateComment(ctx, postID, req.ParentCommentID, middleware.ExternalID(c), req.Content)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetTopLevelComments lists the direct comments of a post with reply counts
func (h *CommentHandler) GetTopLevelComments(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), postID); err != nil {
		return toHTTPError(c, err)
	}
	nodes, err := h.comments.GetTopLevelComments(ctx, postID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, nodes)
}

// GetCommentThread returns every reply below a comment, nested
func (h *CommentHandler) GetCommentThread(c echo.Context) error {
	ctx := c.Request().Context()
	commentID := c.Param("comment_id")

	root, err := h.comments.GetComment(ctx, commentID)
	if err != nil {
		return toHTTPError(c, err)
	}
	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), root.PostID); err != nil {
		return toHTTPError(c, err)
	}

	nodes, err := h.comments.GetCommentThread(ctx, commentID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, nodes)
}

// UpdateComment edits the caller's own comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.UpdateComment(c.Request().Context(), c.Param("comment_id"), middleware.ExternalID(c), req.Content)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment removes the caller's comment and all replies below it
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	deleted, err := h.comments.DeleteComment(c.Request().Context(), c.Param("comment_id"), middleware.ExternalID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}
