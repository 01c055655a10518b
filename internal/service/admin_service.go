package service

import (
	"context"

	"mural/internal/models"
	"mural/internal/policy"
	"mural/internal/repository"
)

// AdminService provides owner-only admin account management.
type AdminService struct {
	userRepo repository.UserRepository
	users    *UserService
	activity *ActivityService
}

// NewAdminService returns a new AdminService.
func NewAdminService(userRepo repository.UserRepository, users *UserService, activity *ActivityService) *AdminService {
	return &AdminService{
		userRepo: userRepo,
		users:    users,
		activity: activity,
	}
}

// CreateAdmin creates a new account with the admin role. Owner only. The
// caller supplies an already-hashed password.
func (s *AdminService) CreateAdmin(ctx context.Context, actorUser *models.User, user *models.User) (*models.User, error) {
	actor := policy.Actor{ID: actorUser.ID, Role: actorUser.Role}
	if !policy.CanManageAdmins(actor) {
		return nil, models.NewPermissionDeniedError("only the owner can manage admins")
	}

	user.Role = models.RoleAdmin
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actorUser, models.ActionAdminCreated, &user.ID, models.TargetUser, models.ActivityMeta{
		TargetUsername: user.Username,
	})
	return user, nil
}

// DeleteAdmin removes an admin account. Owner only. Reuses the user deletion
// path, which records ADMIN_DELETED for admin targets.
func (s *AdminService) DeleteAdmin(ctx context.Context, actorUser *models.User, adminID uint) error {
	actor := policy.Actor{ID: actorUser.ID, Role: actorUser.Role}
	if !policy.CanManageAdmins(actor) {
		return models.NewPermissionDeniedError("only the owner can manage admins")
	}

	target, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if target.Role != models.RoleAdmin {
		return models.NewValidationError("user is not an admin")
	}

	return s.users.Delete(ctx, actorUser, adminID)
}

// ListAdmins returns all admin accounts.
func (s *AdminService) ListAdmins(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, models.RoleAdmin, limit, offset)
}

// ListUsers returns every account with its live post count, for the admin
// dashboard.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]models.UserWithPostCount, error) {
	return s.userRepo.ListWithPostCounts(ctx, limit, offset)
}
