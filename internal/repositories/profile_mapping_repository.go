package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileMappingRepository defines the interface for the identity projection
type ProfileMappingRepository interface {
	UpsertByExternalID(ctx context.Context, mapping *models.ProfileMapping) error
	UpdateDisplay(ctx context.Context, externalID, nickname, avatarRef string) (bool, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
	GetByExternalID(ctx context.Context, externalID string) (*models.ProfileMapping, error)
	GetByProfileID(ctx context.Context, profileID string) (*models.ProfileMapping, error)
}

// PostgresProfileMappingRepository implements ProfileMappingRepository with GORM
type PostgresProfileMappingRepository struct {
	db *gorm.DB
}

// NewPostgresProfileMappingRepository creates a new PostgresProfileMappingRepository
func NewPostgresProfileMappingRepository(db *gorm.DB) *PostgresProfileMappingRepository {
	return &PostgresProfileMappingRepository{db: db}
}

// UpsertByExternalID inserts the mapping or overwrites every field of an
// existing mapping with the same external id
func (r *PostgresProfileMappingRepository) UpsertByExternalID(ctx context.Context, mapping *models.ProfileMapping) error {
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_id", "nickname", "avatar_ref", "updated_at"}),
	}).Create(mapping).Error
}

// UpdateDisplay changes nickname and avatar of an existing mapping.
// It reports false when no mapping exists for externalID.
func (r *PostgresProfileMappingRepository) UpdateDisplay(ctx context.Context, externalID, nickname, avatarRef string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProfileMapping{}).
		Where("external_id = ?", externalID).
		Updates(map[string]any{
			"nickname":   nickname,
			"avatar_ref": avatarRef,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByExternalID removes the mapping; a missing mapping is not an error
func (r *PostgresProfileMappingRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	return r.db.WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.ProfileMapping{}).Error
}

// GetByExternalID retrieves a mapping by external identity
func (r *PostgresProfileMappingRepository) GetByExternalID(ctx context.Context, externalID string) (*models.ProfileMapping, error) {
	var mapping models.ProfileMapping
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// GetByProfileID retrieves a mapping by internal profile id
func (r *PostgresProfileMappingRepository) GetByProfileID(ctx context.Context, profileID string) (*models.ProfileMapping, error) {
	var mapping models.ProfileMapping
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
