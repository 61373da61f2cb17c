package models

import "time"

// ProfileMapping links an external identity (auth subject) to the internal
// profile id owned by the profile service. It is a projection: only the event
// projector writes it.
type ProfileMapping struct {
	ExternalID string    `json:"external_id" gorm:"primaryKey;type:varchar(128)"`
	ProfileID  string    `json:"profile_id" gorm:"type:varchar(36);not null;index"`
	Nickname   string    `json:"nickname"`
	AvatarRef  string    `json:"avatar_ref"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ProfileMapping) TableName() string { return "profile_mappings" }
