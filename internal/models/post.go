package models

import (
	"time"
)

// Deletion roles recorded on a soft-deleted post. "author" is used when the
// author removes their own post regardless of their account role.
const (
	DeletedByAuthor = "author"
	DeletedByAdmin  = "admin"
	DeletedByOwner  = "owner"
)

// Post represents a post on the wall. Posts are soft-deleted: DeletedAt is
// set and the row is excluded from all default read queries, but the record
// survives until its author is hard-deleted.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"image_url"`
	// LikesCount is persisted and recomputed from the likes table inside the
	// same transaction as every like mutation, so it always equals the true
	// cardinality of the like set.
	LikesCount int64 `gorm:"not null;default:0" json:"likes_count"`
	// Liked indicates whether the requesting user liked this post (computed).
	Liked         bool       `gorm:"-" json:"liked"`
	DeletedAt     *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	DeletedByID   *uint      `json:"deleted_by,omitempty"`
	DeletedByRole string     `json:"deleted_by_role,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Deleted reports whether the post has been soft-deleted.
func (p *Post) Deleted() bool {
	return p.DeletedAt != nil
}

// Like records that a user liked a post. The unique (post_id, user_id) index
// makes the like set a set, not a multiset, and settles concurrent duplicate
// likes deterministically.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_like_edge" json:"post_id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_like_edge" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
