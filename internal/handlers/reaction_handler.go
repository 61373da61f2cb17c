package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/social/internal/middleware"
	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/labstack/echo/v4"
)

// ReactionHandler handles HTTP requests related to reactions
type ReactionHandler struct {
	reactions *services.ReactionService
	posts     *services.PostService
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactions *services.ReactionService, posts *services.PostService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, posts: posts}
}

// RegisterReactionRoutes registers reaction-related routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.PUT("/posts/:post_id/reactions", h.React)
	g.DELETE("/posts/:post_id/reactions", h.RemoveReaction)
	g.GET("/posts/:post_id/reactions", h.GetReactions)
	g.GET("/posts/:post_id/reactions/counts", h.GetReactionCounts)
	g.GET("/posts/:post_id/reactions/me", h.GetMyReaction)
}

// React adds the caller's reaction or changes its type
func (h *ReactionHandler) React(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	var req models.ReactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), postID); err != nil {
		return toHTTPError(c, err)
	}

	res, err := h.reactions.UpsertReaction(ctx, postID, middleware.ExternalID(c), req.Type)
	if err != nil {
		return toHTTPError(c, err)
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

// RemoveReaction deletes the caller's reaction
func (h *ReactionHandler) RemoveReaction(c echo.Context) error {
	if err := h.reactions.RemoveReaction(c.Request().Context(), c.Param("post_id"), middleware.ExternalID(c)); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetReactions lists every reaction on a post
func (h *ReactionHandler) GetReactions(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), postID); err != nil {
		return toHTTPError(c, err)
	}
	reactions, err := h.reactions.ListReactions(ctx, postID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, reactions)
}

// GetReactionCounts returns a count for every reaction type
func (h *ReactionHandler) GetReactionCounts(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	if _, err := h.posts.GetPost(ctx, middleware.ExternalID(c), postID); err != nil {
		return toHTTPError(c, err)
	}
	counts, err := h.reactions.ReactionCounts(ctx, postID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// GetMyReaction returns the caller's reaction on a post
func (h *ReactionHandler) GetMyReaction(c echo.Context) error {
	res, err := h.reactions.GetUserReaction(c.Request().Context(), c.Param("post_id"), middleware.ExternalID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
