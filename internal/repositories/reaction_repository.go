package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/social/internal/models"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction data operations
type ReactionRepository interface {
	CreateReaction(ctx context.Context, reaction *models.Reaction) error
	SaveReaction(ctx context.Context, reaction *models.Reaction) error
	GetReaction(ctx context.Context, postID, profileID string) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, id string) (int64, error)
	ListByPostID(ctx context.Context, postID string) ([]models.Reaction, error)
	CountByType(ctx context.Context, postID string) (map[models.ReactionType]int64, error)
	CountByPostID(ctx context.Context, postID string) (int64, error)
	DeleteByPostID(ctx context.Context, postID string) (int64, error)
}

// PostgresReactionRepository implements ReactionRepository for PostgreSQL
type PostgresReactionRepository struct {
	db *gorm.DB
}

// NewPostgresReactionRepository creates a new PostgresReactionRepository
func NewPostgresReactionRepository(db *gorm.DB) *PostgresReactionRepository {
	return &PostgresReactionRepository{db: db}
}

// CreateReaction creates a new reaction in PostgreSQL
func (r *PostgresReactionRepository) CreateReaction(ctx context.Context, reaction *models.Reaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

// SaveReaction replaces the type of an existing reaction. It never inserts:
// a reaction removed in the meantime yields ErrNotFound.
func (r *PostgresReactionRepository) SaveReaction(ctx context.Context, reaction *models.Reaction) error {
	res := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("id = ?", reaction.ID).
		Updates(map[string]any{
			"type":            reaction.Type,
			"last_updated_at": reaction.LastUpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReaction retrieves the reaction a profile left on a post
func (r *PostgresReactionRepository) GetReaction(ctx context.Context, postID, profileID string) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND profile_id = ?", postID, profileID).
		Order("created_at ASC").
		First(&reaction).Error; err != nil {
		return nil, translate(err)
	}
	return &reaction, nil
}

// DeleteReaction deletes a reaction by ID
func (r *PostgresReactionRepository) DeleteReaction(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}

// ListByPostID retrieves all reactions for a post
func (r *PostgresReactionRepository) ListByPostID(ctx context.Context, postID string) ([]models.Reaction, error) {
	var reactions []models.Reaction
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&reactions).Error; err != nil {
		return nil, err
	}
	return reactions, nil
}

// CountByType groups the reactions of a post by type. Types without
// reactions are absent from the map.
func (r *PostgresReactionRepository) CountByType(ctx context.Context, postID string) (map[models.ReactionType]int64, error) {
	var rows []struct {
		Type  models.ReactionType
		Total int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("type, COUNT(*) AS total").
		Where("post_id = ?", postID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.ReactionType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Total
	}
	return counts, nil
}

// CountByPostID counts the reactions of a post
func (r *PostgresReactionRepository) CountByPostID(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// DeleteByPostID deletes every reaction of a post
func (r *PostgresReactionRepository) DeleteByPostID(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}
