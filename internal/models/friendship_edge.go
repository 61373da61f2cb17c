package models

import (
	"strconv"
	"strings"
	"time"
)

// FriendshipEdge is an undirected friendship between two profiles.
// EdgeKey is order independent, so (A,B) and (B,A) share one row.
type FriendshipEdge struct {
	EdgeKey    string    `json:"edge_key" gorm:"primaryKey;type:varchar(80)"`
	ProfileIDA string    `json:"profile_id_a" gorm:"column:profile_id_a;type:varchar(36);not null;index"`
	ProfileIDB string    `json:"profile_id_b" gorm:"column:profile_id_b;type:varchar(36);not null;index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (FriendshipEdge) TableName() string { return "friendship_edges" }

// EdgeKey builds the canonical key for the unordered pair (a, b). The first
// id is length prefixed ("<len>:<a>:<b>") so distinct pairs never share a key,
// whatever characters the ids contain.
func EdgeKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return edgeKey(a, b)
}

func edgeKey(a, b string) string {
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}

// NewFriendshipEdge returns the canonical edge for the pair, with the profile
// ids stored in key order
func NewFriendshipEdge(a, b string) FriendshipEdge {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return FriendshipEdge{EdgeKey: edgeKey(a, b), ProfileIDA: a, ProfileIDB: b}
}
