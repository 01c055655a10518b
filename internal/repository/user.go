// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mural/internal/models"
	"mural/internal/observability"

	"gorm.io/gorm"
)

// blockFilter excludes rows whose subject is on either side of a block edge
// with the viewer. The column expression names the id being filtered
// (e.g. "posts.author_id" or "users.id").
const blockFilter = `NOT EXISTS (
	SELECT 1 FROM user_blocks
	WHERE (user_blocks.blocker_id = ? AND user_blocks.blocked_id = %s)
	   OR (user_blocks.blocker_id = %s AND user_blocks.blocked_id = ?)
)`

// blockClause renders blockFilter for the given id column. Bind the viewer id
// twice when using it.
func blockClause(col string) string {
	return fmt.Sprintf(blockFilter, col, col)
}

// UserRepository defines persistence operations for users and their
// relationship edges.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error)
	ListWithPostCounts(ctx context.Context, limit, offset int) ([]models.UserWithPostCount, error)
	GetProfile(ctx context.Context, id uint) (*models.UserProfile, error)
	HardDelete(ctx context.Context, id uint) error

	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	CreateFollow(ctx context.Context, followerID, followeeID uint) error
	DeleteFollow(ctx context.Context, followerID, followeeID uint) (bool, error)

	GetBlockState(ctx context.Context, actorID, otherID uint) (actorBlockedOther, otherBlockedActor bool, err error)
	Block(ctx context.Context, blockerID, blockedID uint) error
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	ListBlocked(ctx context.Context, blockerID uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; SQLite reports "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Model(&models.User{})
	if !moderator {
		q = q.Where(blockClause("users.id"), viewerID, viewerID)
	}
	if err := q.Order("username ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListWithPostCounts(ctx context.Context, limit, offset int) ([]models.UserWithPostCount, error) {
	var users []models.UserWithPostCount
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*, (SELECT COUNT(*) FROM posts WHERE posts.author_id = users.id AND posts.deleted_at IS NULL) as post_count").
		Order("users.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{User: *user}

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Follow{}).Where("followee_id = ?", id).
		Pluck("follower_id", &profile.FollowerIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", id).
		Pluck("followee_id", &profile.FollowingIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.UserBlock{}).Where("blocker_id = ?", id).
		Pluck("blocked_id", &profile.BlockedIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}

// HardDelete removes the user and every dependent record in one transaction:
// their likes (with like counts restored on the affected posts), their posts
// and the likes on those posts, both directions of follow and block edges,
// and finally the user row. Activity records are append-only and survive.
func (r *userRepository) HardDelete(ctx context.Context, id uint) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "HardDelete", "users")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Posts liked by this user need their counters restored after the
		// likes are removed.
		var likedPostIDs []uint
		if err := tx.Model(&models.Like{}).Where("user_id = ?", id).
			Pluck("post_id", &likedPostIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if len(likedPostIDs) > 0 {
			if err := recountLikes(tx, likedPostIDs); err != nil {
				return err
			}
		}

		if err := tx.Where("post_id IN (SELECT id FROM posts WHERE author_id = ?)", id).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}

		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).
			Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", id, id).
			Delete(&models.UserBlock{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) CreateFollow(ctx context.Context, followerID, followeeID uint) error {
	follow := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := r.db.WithContext(ctx).Create(&follow).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("already following this user")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) DeleteFollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) GetBlockState(ctx context.Context, actorID, otherID uint) (bool, bool, error) {
	var edges []models.UserBlock
	err := r.db.WithContext(ctx).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			actorID, otherID, otherID, actorID).
		Find(&edges).Error
	if err != nil {
		return false, false, models.NewInternalError(err)
	}

	var actorBlockedOther, otherBlockedActor bool
	for _, e := range edges {
		if e.BlockerID == actorID {
			actorBlockedOther = true
		} else {
			otherBlockedActor = true
		}
	}
	return actorBlockedOther, otherBlockedActor, nil
}

// Block creates the block edge and severs follow edges in both directions in
// one transaction.
func (r *userRepository) Block(ctx context.Context, blockerID, blockedID uint) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Block", "user_blocks")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edge := models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}
		if err := tx.Create(&edge).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("user is already blocked")
			}
			return err
		}
		return tx.Where(
			"(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
			blockerID, blockedID, blockedID, blockerID,
		).Delete(&models.Follow{}).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("user is not blocked")
	}
	return nil
}

func (r *userRepository) ListBlocked(ctx context.Context, blockerID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_blocks ON user_blocks.blocked_id = users.id").
		Where("user_blocks.blocker_id = ?", blockerID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
