package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/internal/repositories/repotest"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

type testEnv struct {
	posts       *repotest.PostRepository
	mappings    *repositories.PostgresProfileMappingRepository
	friendships *repositories.PostgresFriendshipRepository
	comments    *repositories.PostgresCommentRepository
	reactions   *repositories.PostgresReactionRepository

	identities *IdentityResolver
	visibility *VisibilityEngine
	postSvc    *PostService
	commentSvc *CommentService
	reactSvc   *ReactionService
	repairer   *Repairer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repositories.OpenSQLite(filepath.Join(t.TempDir(), "social.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := repositories.Migrate(context.Background(), db, repositories.DriverSQLite); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logger.Discard()
	env := &testEnv{
		posts:       repotest.NewPostRepository(),
		mappings:    repositories.NewPostgresProfileMappingRepository(db),
		friendships: repositories.NewPostgresFriendshipRepository(db),
		comments:    repositories.NewPostgresCommentRepository(db),
		reactions:   repositories.NewPostgresReactionRepository(db),
	}
	env.identities = NewIdentityResolver(env.mappings)
	env.visibility = NewVisibilityEngine(env.friendships)
	env.postSvc = NewPostService(env.posts, env.comments, env.reactions, env.identities, env.visibility, log)
	env.commentSvc = NewCommentService(env.comments, env.posts, env.identities, log)
	env.reactSvc = NewReactionService(env.reactions, env.posts, env.identities, log)
	env.repairer = NewRepairer(env.posts, env.comments, env.reactions, 2, log)

	// strictly increasing creation times keep sibling order deterministic
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env.commentSvc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return env
}

func (e *testEnv) addIdentity(t *testing.T, externalID, profileID string) {
	t.Helper()
	err := e.mappings.UpsertByExternalID(context.Background(), &models.ProfileMapping{
		ExternalID: externalID,
		ProfileID:  profileID,
		Nickname:   externalID,
	})
	if err != nil {
		t.Fatalf("failed to add identity %s: %v", externalID, err)
	}
}

func (e *testEnv) addPost(t *testing.T, authorExternalID string, visibility models.Visibility) *models.Post {
	t.Helper()
	post, err := e.postSvc.CreatePost(context.Background(), authorExternalID, models.CreatePostRequest{
		Content:    "hello",
		Visibility: visibility,
	})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return post
}

func (e *testEnv) comment(t *testing.T, postID string, parentID *string, authorExternalID string) *models.Comment {
	t.Helper()
	c, err := e.commentSvc.CreateComment(context.Background(), postID, parentID, authorExternalID, "reply")
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	return c
}

func (e *testEnv) post(t *testing.T, id string) *models.Post {
	t.Helper()
	p, err := e.posts.GetPostByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load post %s: %v", id, err)
	}
	return p
}
