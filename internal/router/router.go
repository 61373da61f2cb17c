package router

import (
	"log/slog"

	"github.com/anonto42/nano-midea/social/internal/handlers"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// Services groups everything the HTTP layer calls into
type Services struct {
	Posts     *services.PostService
	Comments  *services.CommentService
	Reactions *services.ReactionService
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, log *logger.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
			}
			log.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.Any("error", v.Error),
			)
			return nil
		},
	}))
	log.Debug("global middleware configured")
}

// SetupRoutes registers every route. auth guards the /api/v1 group.
func SetupRoutes(e *echo.Echo, svc Services, health *handlers.HealthHandler, auth echo.MiddlewareFunc, log *logger.Logger) {
	// Health check - always accessible
	health.RegisterHealthRoutes(e)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(auth)

	postHandler := handlers.NewPostHandler(svc.Posts)
	postHandler.RegisterPostRoutes(api)

	commentHandler := handlers.NewCommentHandler(svc.Comments, svc.Posts)
	commentHandler.RegisterCommentRoutes(api)

	reactionHandler := handlers.NewReactionHandler(svc.Reactions, svc.Posts)
	reactionHandler.RegisterReactionRoutes(api)

	log.Info("all routes configured", "routes", len(e.Routes()))
}
