package models

import "time"

// Visibility controls who may read a post
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityFriends Visibility = "FRIENDS"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Valid reports whether v is one of the declared visibilities
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// Post represents a social post stored in MongoDB.
// CommentCount and ReactionCount are denormalized caches maintained by the
// comment and reaction services; the author-facing update path never writes them.
type Post struct {
	ID            string     `json:"id" bson:"_id"`
	ProfileID     string     `json:"profile_id" bson:"profile_id"`
	Content       string     `json:"content" bson:"content"`
	Visibility    Visibility `json:"visibility" bson:"visibility"`
	Tags          []string   `json:"tags" bson:"tags"`
	CommentCount  int        `json:"comment_count" bson:"comment_count"`
	ReactionCount int        `json:"reaction_count" bson:"reaction_count"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at" bson:"last_updated_at"`
	IsEdited      bool       `json:"is_edited" bson:"is_edited"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content    string     `json:"content" validate:"required,min=1,max=2000"`
	Visibility Visibility `json:"visibility" validate:"required,oneof=PUBLIC FRIENDS PRIVATE"`
	Tags       []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// UpdatePostRequest defines the request body for updating an existing post.
// Nil fields are left untouched.
type UpdatePostRequest struct {
	Content    *string     `json:"content,omitempty" validate:"omitempty,min=1,max=2000"`
	Visibility *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=PUBLIC FRIENDS PRIVATE"`
	Tags       []string    `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// Empty reports whether the request changes nothing
func (r UpdatePostRequest) Empty() bool {
	return r.Content == nil && r.Visibility == nil && r.Tags == nil
}
