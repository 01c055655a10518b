package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActionType enumerates the actions recorded on the activity wall.
type ActionType string

const (
	ActionPostCreated    ActionType = "POST_CREATED"
	ActionPostLiked      ActionType = "POST_LIKED"
	ActionPostUnliked    ActionType = "POST_UNLIKED"
	ActionUserFollowed   ActionType = "USER_FOLLOWED"
	ActionUserUnfollowed ActionType = "USER_UNFOLLOWED"
	ActionPostDeleted    ActionType = "POST_DELETED"
	ActionUserDeleted    ActionType = "USER_DELETED"
	ActionAdminCreated   ActionType = "ADMIN_CREATED"
	ActionAdminDeleted   ActionType = "ADMIN_DELETED"
)

// Target kinds for activities that reference another entity.
const (
	TargetUser = "User"
	TargetPost = "Post"
)

// ActivityMeta holds denormalized snapshots taken at record time, so feed
// messages survive deletion of the actor or target.
type ActivityMeta struct {
	PostContent    string `json:"post_content,omitempty"`
	TargetUsername string `json:"target_username,omitempty"`
	DeletedByRole  string `json:"deleted_by_role,omitempty"`
}

// Activity is one append-only record of a user action. Activities are never
// mutated or deleted by normal flows.
type Activity struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	ActorID uint `gorm:"not null;index" json:"actor_id"`
	// ActorUsername is a snapshot; the live actor record may be gone by the
	// time the feed is read.
	ActorUsername string                                `gorm:"not null" json:"actor_username"`
	ActionType    ActionType                            `gorm:"type:varchar(32);not null;index" json:"action_type"`
	TargetID      *uint                                 `gorm:"index" json:"target_id,omitempty"`
	TargetKind    string                                `gorm:"type:varchar(8)" json:"target_kind,omitempty"`
	Metadata      datatypes.JSONType[ActivityMeta]      `json:"metadata"`
	CreatedAt     time.Time                             `gorm:"index" json:"created_at"`
}

// FeedActor is the hydrated actor summary attached to a feed entry.
type FeedActor struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// FeedEntry is a projected, display-ready activity record.
type FeedEntry struct {
	ID         uint       `json:"id"`
	Actor      FeedActor  `json:"actor"`
	ActionType ActionType `json:"action_type"`
	Message    string     `json:"message"`
	// Target is the hydrated target: a user summary, a post summary, or nil
	// when the target no longer resolves.
	Target    any       `json:"target,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedUserTarget is the hydrated shape of a User target.
type FeedUserTarget struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// FeedPostTarget is the hydrated shape of a Post target.
type FeedPostTarget struct {
	ID      uint            `json:"id"`
	Content string          `json:"content"`
	Image   string          `json:"image,omitempty"`
	Author  *FeedUserTarget `json:"author,omitempty"`
}
