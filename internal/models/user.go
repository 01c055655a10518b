// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account in the Mural application.
//
// Relationship edges (follows, blocks) live in their own join tables rather
// than on the user row, so a symmetric edge is a single record and cannot
// drift out of sync between two documents.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"unique;not null" json:"username"`
	Email          string    `gorm:"unique;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	Role           Role      `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Follow is a directed follow edge: Follower follows Followee.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follow_edge" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;index;uniqueIndex:idx_follow_edge" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserBlock is a directed block edge: Blocker has blocked Blocked.
// Visibility rules treat the edge as symmetric regardless of direction.
type UserBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"not null;index;uniqueIndex:idx_block_edge" json:"blocker_id"`
	BlockedID uint      `gorm:"not null;index;uniqueIndex:idx_block_edge" json:"blocked_id"`
	Blocked   *User     `gorm:"foreignKey:BlockedID" json:"blocked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is a user together with its hydrated relationship id sets,
// returned by profile endpoints.
type UserProfile struct {
	User
	FollowerIDs  []uint `json:"followers"`
	FollowingIDs []uint `json:"following"`
	BlockedIDs   []uint `json:"blocked_users"`
}

// UserWithPostCount is a user row annotated with the number of non-deleted
// posts they authored. Used by the admin user listing.
type UserWithPostCount struct {
	User
	PostCount int64 `json:"post_count"`
}
