// Package app wires repositories and services on top of open store connections.
package app

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/social/internal/events"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/internal/router"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/config"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"gorm.io/gorm"
)

// Stores are the repositories behind the services
type Stores struct {
	Posts       repositories.PostRepository
	Comments    repositories.CommentRepository
	Reactions   repositories.ReactionRepository
	Mappings    repositories.ProfileMappingRepository
	Friendships repositories.FriendshipRepository
}

// NewStores builds the relational repositories on db and uses posts for the post documents
func NewStores(db *gorm.DB, posts repositories.PostRepository) Stores {
	return Stores{
		Posts:       posts,
		Comments:    repositories.NewPostgresCommentRepository(db),
		Reactions:   repositories.NewPostgresReactionRepository(db),
		Mappings:    repositories.NewPostgresProfileMappingRepository(db),
		Friendships: repositories.NewPostgresFriendshipRepository(db),
	}
}

// App holds the constructed services
type App struct {
	Posts     *services.PostService
	Comments  *services.CommentService
	Reactions *services.ReactionService
	Repairer  *services.Repairer
	Projector *events.Projector
}

// New builds every service from the given stores
func New(st Stores, cfg *config.Config, log *logger.Logger) *App {
	identities := services.NewIdentityResolver(st.Mappings)
	visibility := services.NewVisibilityEngine(st.Friendships)

	return &App{
		Posts:     services.NewPostService(st.Posts, st.Comments, st.Reactions, identities, visibility, log),
		Comments:  services.NewCommentService(st.Comments, st.Posts, identities, log),
		Reactions: services.NewReactionService(st.Reactions, st.Posts, identities, log),
		Repairer:  services.NewRepairer(st.Posts, st.Comments, st.Reactions, cfg.Repair.BatchSize, log),
		Projector: events.NewProjector(st.Mappings, st.Friendships, log),
	}
}

// Services returns the subset the HTTP router needs
func (a *App) Services() router.Services {
	return router.Services{
		Posts:     a.Posts,
		Comments:  a.Comments,
		Reactions: a.Reactions,
	}
}

// Open connects to every store, migrates the relational schema and prepares
// the post collection indexes
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*config.DB, *App, error) {
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := repositories.Migrate(ctx, db.SQL, db.Driver); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	posts := repositories.NewMongoPostRepository(db.Database)
	if err := posts.EnsureIndexes(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure post indexes: %w", err)
	}

	log.Info("stores ready", "driver", db.Driver, "mongo_database", cfg.MongoDatabase)
	return db, New(NewStores(db.SQL, posts), cfg, log), nil
}
