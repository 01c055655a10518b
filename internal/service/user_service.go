package service

import (
	"context"

	"mural/internal/models"
	"mural/internal/observability"
	"mural/internal/policy"
	"mural/internal/repository"
	"mural/internal/validation"
)

// UserService provides profile and social-graph business logic.
type UserService struct {
	userRepo repository.UserRepository
	activity *ActivityService
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, activity *ActivityService) *UserService {
	return &UserService{
		userRepo: userRepo,
		activity: activity,
	}
}

func (s *UserService) blockState(ctx context.Context, actorID, otherID uint) (policy.BlockState, error) {
	actorBlocked, otherBlocked, err := s.userRepo.GetBlockState(ctx, actorID, otherID)
	if err != nil {
		return policy.BlockState{}, err
	}
	return policy.BlockState{
		ActorBlockedOther: actorBlocked,
		OtherBlockedActor: otherBlocked,
	}, nil
}

// Get returns a user profile if the actor may view it. Profiles hidden by a
// block relationship surface as not-found.
func (s *UserService) Get(ctx context.Context, actor policy.Actor, id uint) (*models.UserProfile, error) {
	blocks, err := s.blockState(ctx, actor.ID, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewUser(actor, blocks) {
		return nil, models.NewHiddenError("User")
	}
	return s.userRepo.GetProfile(ctx, id)
}

// List returns users visible to the actor.
func (s *UserService) List(ctx context.Context, actor policy.Actor, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, actor.ID, policy.IsModerator(actor.Role), limit, offset)
}

// UpdateProfile applies profile changes for the user.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, bio, profilePicture *string) (*models.User, error) {
	if bio != nil {
		if err := validation.ValidateBio(*bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = *bio
	}
	if profilePicture != nil {
		user.ProfilePicture = *profilePicture
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Follow creates a follow edge from the actor to the target. Following a
// user either party has blocked fails as not-found so block state never
// leaks. Following twice is a conflict.
func (s *UserService) Follow(ctx context.Context, actorUser *models.User, targetID uint) error {
	if actorUser.ID == targetID {
		return models.NewValidationError("you cannot follow yourself")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	blocks, err := s.blockState(ctx, actorUser.ID, targetID)
	if err != nil {
		return err
	}
	if blocks.Blocked() {
		return models.NewHiddenError("User")
	}

	if err := s.userRepo.CreateFollow(ctx, actorUser.ID, targetID); err != nil {
		return err
	}

	s.activity.Record(ctx, actorUser, models.ActionUserFollowed, &target.ID, models.TargetUser, models.ActivityMeta{
		TargetUsername: target.Username,
	})
	return nil
}

// Unfollow removes the follow edge if present. Unlike Follow it is an
// idempotent no-op when no edge exists, and USER_UNFOLLOWED is recorded
// either way.
func (s *UserService) Unfollow(ctx context.Context, actorUser *models.User, targetID uint) error {
	if actorUser.ID == targetID {
		return models.NewValidationError("you cannot unfollow yourself")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if _, err := s.userRepo.DeleteFollow(ctx, actorUser.ID, targetID); err != nil {
		return err
	}

	s.activity.Record(ctx, actorUser, models.ActionUserUnfollowed, &target.ID, models.TargetUser, models.ActivityMeta{
		TargetUsername: target.Username,
	})
	return nil
}

// Block creates a block edge and severs follow edges in both directions.
// No activity is recorded for block or unblock.
func (s *UserService) Block(ctx context.Context, actorUser *models.User, targetID uint) error {
	if actorUser.ID == targetID {
		return models.NewValidationError("you cannot block yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	return s.userRepo.Block(ctx, actorUser.ID, targetID)
}

// Unblock removes the block edge only; severed follow edges are not
// restored.
func (s *UserService) Unblock(ctx context.Context, actorUser *models.User, targetID uint) error {
	if actorUser.ID == targetID {
		return models.NewValidationError("you cannot unblock yourself")
	}
	return s.userRepo.Unblock(ctx, actorUser.ID, targetID)
}

// Blocked lists the users the actor has blocked.
func (s *UserService) Blocked(ctx context.Context, actorID uint) ([]models.User, error) {
	return s.userRepo.ListBlocked(ctx, actorID)
}

// Delete hard-deletes a user with full referential cleanup. The activity is
// recorded after the deletion commits, using a snapshot of the target taken
// before removal.
func (s *UserService) Delete(ctx context.Context, actorUser *models.User, targetID uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	actor := policy.Actor{ID: actorUser.ID, Role: actorUser.Role}
	allowed, reason := policy.CanDeleteUser(actor, policy.Actor{ID: target.ID, Role: target.Role})
	if !allowed {
		return models.NewPermissionDeniedError(reason)
	}

	if err := s.userRepo.HardDelete(ctx, targetID); err != nil {
		return err
	}
	observability.ModerationActions.WithLabelValues("user_delete", string(actor.Role)).Inc()

	action := models.ActionUserDeleted
	if target.Role == models.RoleAdmin {
		action = models.ActionAdminDeleted
	}
	s.activity.Record(ctx, actorUser, action, &target.ID, models.TargetUser, models.ActivityMeta{
		TargetUsername: target.Username,
	})
	return nil
}
