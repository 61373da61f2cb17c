package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/social/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	ListTopLevel(ctx context.Context, postID string) ([]models.Comment, error)
	ListByParentIDs(ctx context.Context, parentIDs []string) ([]models.Comment, error)
	CountRepliesByParentIDs(ctx context.Context, parentIDs []string) (map[string]int, error)
	CountByPostID(ctx context.Context, postID string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteByPostID(ctx context.Context, postID string) (int64, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetCommentByID retrieves a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// UpdateComment writes the editable fields of an existing comment. It never
// inserts: a comment deleted in the meantime yields ErrNotFound.
func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]any{
			"content":         comment.Content,
			"is_edited":       comment.IsEdited,
			"last_updated_at": comment.LastUpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTopLevel retrieves the comments of a post that have no parent, oldest first
func (r *PostgresCommentRepository) ListTopLevel(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByParentIDs retrieves every direct child of the given comments
func (r *PostgresCommentRepository) ListByParentIDs(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("parent_comment_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CountRepliesByParentIDs returns the number of direct replies per parent id.
// Parents without replies are absent from the map.
func (r *PostgresCommentRepository) CountRepliesByParentIDs(ctx context.Context, parentIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ParentCommentID string
		Total           int
	}
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_comment_id, COUNT(*) AS total").
		Where("parent_comment_id IN ?", parentIDs).
		Group("parent_comment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ParentCommentID] = row.Total
	}
	return counts, nil
}

// CountByPostID counts every comment of a post regardless of depth
func (r *PostgresCommentRepository) CountByPostID(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// DeleteByIDs deletes the given comments in one statement
func (r *PostgresCommentRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

// DeleteByPostID deletes every comment of a post
func (r *PostgresCommentRepository) DeleteByPostID(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}
