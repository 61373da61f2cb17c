package services

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/nano-midea/social/internal/models"
)

func TestUpsertReactionTwiceCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	first, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionLike)
	if err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if !first.IsNew {
		t.Error("expected first reaction to be new")
	}

	second, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionLike)
	if err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if second.IsNew {
		t.Error("expected repeated reaction to be an update")
	}

	rows, err := env.reactSvc.ListReactions(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListReactions failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected exactly one reaction row, got %d", len(rows))
	}
	if got := env.post(t, post.ID).ReactionCount; got != 1 {
		t.Errorf("expected reaction count 1, got %d", got)
	}
}

func TestUpsertReactionReplacesType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionLike); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionLove); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}

	counts, err := env.reactSvc.ReactionCounts(ctx, post.ID)
	if err != nil {
		t.Fatalf("ReactionCounts failed: %v", err)
	}
	if counts[models.ReactionLike] != 0 || counts[models.ReactionLove] != 1 {
		t.Errorf("expected LIKE=0 LOVE=1, got %v", counts)
	}

	mine, err := env.reactSvc.GetUserReaction(ctx, post.ID, "u1")
	if err != nil {
		t.Fatalf("GetUserReaction failed: %v", err)
	}
	if mine.Type != models.ReactionLove {
		t.Errorf("expected LOVE, got %s", mine.Type)
	}
}

func TestUpsertReactionRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	tests := []struct {
		name     string
		postID   string
		reactor  string
		kind     models.ReactionType
		expected error
	}{
		{"undeclared type", post.ID, "u1", models.ReactionType("MEH"), ErrInvalidInput},
		{"unknown reactor", post.ID, "ghost", models.ReactionLike, ErrNotFound},
		{"missing post", "missing", "u1", models.ReactionLike, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reactSvc.UpsertReaction(ctx, tt.postID, tt.reactor, tt.kind)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestReactionCountsAreComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	env.addIdentity(t, "u2", "p2")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	counts, err := env.reactSvc.ReactionCounts(ctx, post.ID)
	if err != nil {
		t.Fatalf("ReactionCounts failed: %v", err)
	}
	if len(counts) != len(models.ReactionTypes) {
		t.Fatalf("expected %d types, got %d", len(models.ReactionTypes), len(counts))
	}
	for _, rt := range models.ReactionTypes {
		if v, ok := counts[rt]; !ok || v != 0 {
			t.Errorf("expected %s to be present with 0, got %d (present=%v)", rt, v, ok)
		}
	}

	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionWow); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u2", models.ReactionWow); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}

	counts, err = env.reactSvc.ReactionCounts(ctx, post.ID)
	if err != nil {
		t.Fatalf("ReactionCounts failed: %v", err)
	}
	if counts[models.ReactionWow] != 2 || counts[models.ReactionSad] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if got := env.post(t, post.ID).ReactionCount; got != 2 {
		t.Errorf("expected two reactors to converge on 2, got %d", got)
	}
}

func TestRemoveReaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	if err := env.reactSvc.RemoveReaction(ctx, post.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a reaction, got %v", err)
	}

	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionHaha); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if err := env.reactSvc.RemoveReaction(ctx, post.ID, "u1"); err != nil {
		t.Fatalf("RemoveReaction failed: %v", err)
	}

	if got := env.post(t, post.ID).ReactionCount; got != 0 {
		t.Errorf("expected reaction count 0, got %d", got)
	}
	if _, err := env.reactSvc.GetUserReaction(ctx, post.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected reaction to be gone, got %v", err)
	}
}

func TestUpsertReactionRollsBackWhenCounterFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addIdentity(t, "u1", "p1")
	post := env.addPost(t, "u1", models.VisibilityPublic)

	env.posts.FailIncrement = errors.New("mongo unavailable")
	if _, err := env.reactSvc.UpsertReaction(ctx, post.ID, "u1", models.ReactionLike); !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	rows, err := env.reactSvc.ListReactions(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListReactions failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected reaction to be rolled back, got %d rows", len(rows))
	}
}
