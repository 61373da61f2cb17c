package models

import "time"

// ReactionType is the kind of reaction a profile leaves on a post
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionHaha  ReactionType = "HAHA"
	ReactionWow   ReactionType = "WOW"
	ReactionSad   ReactionType = "SAD"
	ReactionAngry ReactionType = "ANGRY"
)

// ReactionTypes lists every declared reaction type in display order
var ReactionTypes = []ReactionType{
	ReactionLike,
	ReactionLove,
	ReactionHaha,
	ReactionWow,
	ReactionSad,
	ReactionAngry,
}

// Valid reports whether t is a declared reaction type
func (t ReactionType) Valid() bool {
	for _, declared := range ReactionTypes {
		if t == declared {
			return true
		}
	}
	return false
}

// Reaction represents a profile's reaction to a post (PostgreSQL).
// At most one row exists per (post, profile); the service enforces this by
// find-then-replace rather than a unique index.
type Reaction struct {
	ID            string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID        string       `json:"post_id" gorm:"type:varchar(36);not null;index:idx_reaction_post_profile"`
	ProfileID     string       `json:"profile_id" gorm:"type:varchar(36);not null;index:idx_reaction_post_profile"`
	Type          ReactionType `json:"type" gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time    `json:"created_at"`
	LastUpdatedAt time.Time    `json:"last_updated_at" gorm:"autoUpdateTime"`
}

func (Reaction) TableName() string { return "reactions" }

// ReactRequest defines the request body for adding or changing a reaction
type ReactRequest struct {
	Type ReactionType `json:"type" validate:"required,oneof=LIKE LOVE HAHA WOW SAD ANGRY"`
}

// UserReactionResponse is returned after a reaction upsert
type UserReactionResponse struct {
	PostID    string       `json:"post_id"`
	ProfileID string       `json:"profile_id"`
	Type      ReactionType `json:"type"`
	ReactedAt time.Time    `json:"reacted_at"`
	IsNew     bool         `json:"is_new"`
}
