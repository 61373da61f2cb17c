package services

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/anonto42/nano-midea/social/pkg/logger"
)

// RepairResult reports the counters of one post before and after repair
type RepairResult struct {
	PostID           string `json:"post_id"`
	OldCommentCount  int    `json:"old_comment_count"`
	OldReactionCount int    `json:"old_reaction_count"`
	CommentCount     int    `json:"comment_count"`
	ReactionCount    int    `json:"reaction_count"`
	Changed          bool   `json:"changed"`
}

// RepairSummary aggregates a full repair pass
type RepairSummary struct {
	Scanned  int           `json:"scanned"`
	Fixed    int           `json:"fixed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Repairer recomputes the denormalized post counters from the comment and
// reaction tables. It is the only writer besides the increment paths.
type Repairer struct {
	posts     repositories.PostRepository
	comments  repositories.CommentRepository
	reactions repositories.ReactionRepository
	batchSize int
	log       *logger.Logger
}

func NewRepairer(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	reactions repositories.ReactionRepository,
	batchSize int,
	log *logger.Logger,
) *Repairer {
	if batchSize < 1 {
		batchSize = 200
	}
	return &Repairer{
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		batchSize: batchSize,
		log:       log.WithComponent("repair"),
	}
}

// RepairPost overwrites one post's counters with the recomputed values when they differ
func (r *Repairer) RepairPost(ctx context.Context, postID string) (*RepairResult, error) {
	post, err := r.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storageErr("load post", err)
	}
	comments, err := r.comments.CountByPostID(ctx, postID)
	if err != nil {
		return nil, storageErr("count comments", err)
	}
	reactions, err := r.reactions.CountByPostID(ctx, postID)
	if err != nil {
		return nil, storageErr("count reactions", err)
	}

	result := &RepairResult{
		PostID:           postID,
		OldCommentCount:  post.CommentCount,
		OldReactionCount: post.ReactionCount,
		CommentCount:     int(comments),
		ReactionCount:    int(reactions),
	}
	if result.CommentCount == post.CommentCount && result.ReactionCount == post.ReactionCount {
		if r.log.IsDebugEnabled() {
			r.log.Debug("post counters consistent",
				"post_id", postID,
				"comments", result.CommentCount,
				"reactions", result.ReactionCount)
		}
		return result, nil
	}

	start := time.Now()
	err = r.posts.SetCounts(ctx, postID, result.CommentCount, result.ReactionCount)
	r.log.LogStorageOperation("posts.set_counts", time.Since(start), err)
	if err != nil {
		return nil, storageErr("set counts", err)
	}
	result.Changed = true
	r.log.Info("post counters repaired",
		"post_id", postID,
		"comments_before", post.CommentCount,
		"comments_after", result.CommentCount,
		"reactions_before", post.ReactionCount,
		"reactions_after", result.ReactionCount)
	return result, nil
}

// RepairAll walks every post in id order. A failure on one post is logged and
// the pass continues; only a failure to list posts aborts it.
func (r *Repairer) RepairAll(ctx context.Context) (*RepairSummary, error) {
	start := time.Now()
	summary := &RepairSummary{}

	after := ""
	for {
		listStart := time.Now()
		ids, err := r.posts.ListPostIDs(ctx, after, int64(r.batchSize))
		r.log.LogStorageOperation("posts.list_ids", time.Since(listStart), err)
		if err != nil {
			return summary, storageErr("list posts", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Scanned++
			res, err := r.RepairPost(ctx, id)
			if err != nil {
				summary.Failed++
				r.log.Error("post repair failed", "post_id", id, "error", err)
				continue
			}
			if res.Changed {
				summary.Fixed++
			}
		}
		if len(ids) < r.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	summary.Duration = time.Since(start)
	r.log.Info("counter repair finished",
		"scanned", summary.Scanned,
		"fixed", summary.Fixed,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds())
	return summary, nil
}

// Run repairs all posts every interval until ctx is done
func (r *Repairer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("counter repair scheduled", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RepairAll(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("counter repair pass aborted", "error", err)
			}
		}
	}
}
