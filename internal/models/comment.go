package models

import "time"

// Comment represents a comment on a post (PostgreSQL).
// ParentCommentID is nil for top-level comments.
type Comment struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID          string    `json:"post_id" gorm:"type:varchar(36);not null;index"`
	ProfileID       string    `json:"profile_id" gorm:"type:varchar(36);not null;index"`
	ParentCommentID *string   `json:"parent_comment_id,omitempty" gorm:"type:varchar(36);index"`
	Content         string    `json:"content" gorm:"not null"`
	IsEdited        bool      `json:"is_edited" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
	LastUpdatedAt   time.Time `json:"last_updated_at" gorm:"autoUpdateTime"`
}

func (Comment) TableName() string { return "comments" }

// IsTopLevel reports whether the comment hangs directly off the post
func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil || *c.ParentCommentID == ""
}

// CommentNode is a comment with its nested replies, used for thread reads.
// On top-level listings Replies is always empty and ReplyCount holds the
// number of direct replies only.
type CommentNode struct {
	Comment
	ReplyCount int           `json:"reply_count"`
	Replies    []CommentNode `json:"replies"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	ParentCommentID *string `json:"parent_comment_id,omitempty" validate:"omitempty,uuid"`
	Content         string  `json:"content" validate:"required,min=1,max=500"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
