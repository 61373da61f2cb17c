package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/social/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendshipRepository defines the interface for the friendship edge projection
type FriendshipRepository interface {
	InsertEdge(ctx context.Context, profileA, profileB string) error
	DeleteEdge(ctx context.Context, profileA, profileB string) error
	EdgeExists(ctx context.Context, profileA, profileB string) (bool, error)
	ListFriendIDs(ctx context.Context, profileID string) ([]string, error)
}

// PostgresFriendshipRepository implements FriendshipRepository with GORM
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// InsertEdge stores the canonical edge for the pair; an existing edge is left as is
func (r *PostgresFriendshipRepository) InsertEdge(ctx context.Context, profileA, profileB string) error {
	edge := models.NewFriendshipEdge(profileA, profileB)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

// DeleteEdge removes the canonical edge for the pair; a missing edge is not an error
func (r *PostgresFriendshipRepository) DeleteEdge(ctx context.Context, profileA, profileB string) error {
	return r.db.WithContext(ctx).
		Where("edge_key = ?", models.EdgeKey(profileA, profileB)).
		Delete(&models.FriendshipEdge{}).Error
}

// EdgeExists checks whether the two profiles are friends
func (r *PostgresFriendshipRepository) EdgeExists(ctx context.Context, profileA, profileB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FriendshipEdge{}).
		Where("edge_key = ?", models.EdgeKey(profileA, profileB)).
		Count(&count).Error
	return count > 0, err
}

// ListFriendIDs returns the profile ids on the other side of every edge touching profileID
func (r *PostgresFriendshipRepository) ListFriendIDs(ctx context.Context, profileID string) ([]string, error) {
	var edges []models.FriendshipEdge
	if err := r.db.WithContext(ctx).
		Where("profile_id_a = ? OR profile_id_b = ?", profileID, profileID).
		Order("edge_key").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	friends := make([]string, 0, len(edges))
	for _, e := range edges {
		if e.ProfileIDA == profileID {
			friends = append(friends, e.ProfileIDB)
		} else {
			friends = append(friends, e.ProfileIDA)
		}
	}
	return friends, nil
}
