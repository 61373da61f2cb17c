package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.PostRepository = (*PostRepository)(nil)

// PostRepository is an in-memory repositories.PostRepository for tests.
// Creation times advance one second per post so ordering is deterministic.
type PostRepository struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	clock time.Time

	// FailIncrement, when set, is returned by both increment methods
	FailIncrement error
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts: make(map[string]*models.Post),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	r.clock = r.clock.Add(time.Second)
	post.CreatedAt = r.clock
	post.LastUpdatedAt = r.clock
	if post.Tags == nil {
		post.Tags = []string{}
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *PostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PostRepository) GetPostsByProfileID(ctx context.Context, profileID string, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		if p.ProfileID == profileID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= int64(len(out)) {
		return []models.Post{}, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (r *PostRepository) ListPostIDs(ctx context.Context, afterID string, limit int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.posts {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && limit < int64(len(ids)) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *PostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[post.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Content = post.Content
	p.Visibility = post.Visibility
	p.Tags = post.Tags
	p.IsEdited = post.IsEdited
	p.LastUpdatedAt = time.Now().UTC()
	return nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *PostRepository) adjust(postID string, fn func(p *models.Post)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(p)
	return nil
}

func (r *PostRepository) IncrementCommentsCount(ctx context.Context, postID string, n int) error {
	if r.FailIncrement != nil {
		return r.FailIncrement
	}
	return r.adjust(postID, func(p *models.Post) { p.CommentCount += n })
}

func (r *PostRepository) DecrementCommentsCount(ctx context.Context, postID string, n int) error {
	return r.adjust(postID, func(p *models.Post) { p.CommentCount = max(0, p.CommentCount-n) })
}

func (r *PostRepository) IncrementReactionsCount(ctx context.Context, postID string) error {
	if r.FailIncrement != nil {
		return r.FailIncrement
	}
	return r.adjust(postID, func(p *models.Post) { p.ReactionCount++ })
}

func (r *PostRepository) DecrementReactionsCount(ctx context.Context, postID string) error {
	return r.adjust(postID, func(p *models.Post) { p.ReactionCount = max(0, p.ReactionCount-1) })
}

func (r *PostRepository) SetCounts(ctx context.Context, postID string, comments, reactions int) error {
	return r.adjust(postID, func(p *models.Post) {
		p.CommentCount = comments
		p.ReactionCount = reactions
	})
}
