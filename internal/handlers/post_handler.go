package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/social/internal/middleware"
	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/profiles/:profile_id/posts", h.GetPostsByProfile)
}

// CreatePost creates a new post for the caller
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.posts.CreatePost(c.Request().Context(), middleware.ExternalID(c), req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post the caller is allowed to see
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.GetPost(c.Request().Context(), middleware.ExternalID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetPostsByProfile lists an author's posts, newest first, filtered by visibility.
// Pages are zero based.
func (h *PostHandler) GetPostsByProfile(c echo.Context) error {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "size", defaultPageSize)
	if err != nil {
		return err
	}
	size = min(size, maxPageSize)

	result, err := h.posts.ListPostsByAuthor(c.Request().Context(), middleware.ExternalID(c), c.Param("profile_id"), page, size)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// UpdatePost updates an existing post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.posts.UpdatePost(c.Request().Context(), c.Param("id"), middleware.ExternalID(c), req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post together with its comments and reactions
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.posts.DeletePost(c.Request().Context(), c.Param("id"), middleware.ExternalID(c)); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return n, nil
}
