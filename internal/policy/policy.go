// Package policy holds every visibility and permission decision in the
// application as pure functions. Handlers and services call in here; no other
// package compares roles or inspects block state.
package policy

import (
	"mural/internal/models"
)

// Actor identifies the authenticated user a decision is made for.
type Actor struct {
	ID   uint
	Role models.Role
}

// BlockState captures the block relationship between the actor and another
// user, in both directions.
type BlockState struct {
	ActorBlockedOther bool
	OtherBlockedActor bool
}

// Blocked reports whether a block exists in either direction.
func (b BlockState) Blocked() bool {
	return b.ActorBlockedOther || b.OtherBlockedActor
}

// IsModerator reports whether the role may bypass block filtering and act on
// other users' content.
func IsModerator(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleOwner
}

// CanViewUser reports whether the actor may see the target user's profile.
// Blocks hide in both directions; moderators bypass block filtering.
func CanViewUser(actor Actor, blocks BlockState) bool {
	if IsModerator(actor.Role) {
		return true
	}
	return !blocks.Blocked()
}

// CanViewPost reports whether the actor may see (and act on) a post written
// by authorID. Deleted posts are invisible to everyone, moderators included.
func CanViewPost(actor Actor, authorID uint, deleted bool, blocks BlockState) bool {
	if deleted {
		return false
	}
	if actor.ID == authorID {
		return true
	}
	if IsModerator(actor.Role) {
		return true
	}
	return !blocks.Blocked()
}

// CanDeletePost reports whether the actor may soft-delete a post written by
// authorID: the author themselves, or any moderator.
func CanDeletePost(actor Actor, authorID uint) bool {
	return actor.ID == authorID || IsModerator(actor.Role)
}

// CanRemoveLike reports whether the actor may forcibly remove another user's
// like from a post. Moderation-only.
func CanRemoveLike(actor Actor) bool {
	return IsModerator(actor.Role)
}

// CanDeleteUser decides whether the actor may hard-delete the target account.
// Owners may delete anyone but themselves; admins may delete only plain users.
// The reason is returned for the denial message and is empty when allowed.
func CanDeleteUser(actor, target Actor) (bool, string) {
	if actor.ID == target.ID {
		return false, "Cannot delete yourself"
	}
	switch actor.Role {
	case models.RoleOwner:
		return true, ""
	case models.RoleAdmin:
		if target.Role == models.RoleOwner {
			return false, "Admins cannot delete owners"
		}
		if target.Role == models.RoleAdmin {
			return false, "Admins cannot delete other admins"
		}
		return true, ""
	default:
		return false, "Admin or Owner access required"
	}
}

// IsOwner reports whether the role holds the single top-level account.
func IsOwner(role models.Role) bool {
	return role == models.RoleOwner
}

// CanManageAdmins reports whether the actor may create or delete admins.
func CanManageAdmins(actor Actor) bool {
	return IsOwner(actor.Role)
}

// DeletionRole returns the role string recorded on a soft-deleted post:
// "author" when the actor wrote the post, otherwise the actor's role.
func DeletionRole(actor Actor, authorID uint) string {
	if actor.ID == authorID {
		return models.DeletedByAuthor
	}
	if actor.Role == models.RoleOwner {
		return models.DeletedByOwner
	}
	return models.DeletedByAdmin
}
