package repository

import (
	"context"
	"errors"
	"time"

	"mural/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
	List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, error)
	SoftDelete(ctx context.Context, id uint, deletedByID uint, deletedByRole string) error
	AddLike(ctx context.Context, postID, userID uint) (bool, error)
	RemoveLike(ctx context.Context, postID, userID uint) (bool, error)
	IsLiked(ctx context.Context, postID, userID uint) (bool, error)
	GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	CountLikes(ctx context.Context, postID uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// recountLikes resets likes_count from the true cardinality of the like set.
// Always called inside the same transaction as the like mutation.
func recountLikes(tx *gorm.DB, postIDs []uint) error {
	return tx.Exec(
		`UPDATE posts SET likes_count = (SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) WHERE posts.id IN ?`,
		postIDs,
	).Error
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID returns the post regardless of soft-delete state; callers run the
// result through the visibility policy.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetByIDs returns live posts only. A soft-deleted post is absent from the
// result and the caller falls back to its recorded snapshot.
func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id IN ? AND deleted_at IS NULL", ids).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("posts.deleted_at IS NULL")
	if !moderator {
		q = q.Where(blockClause("posts.author_id"), viewerID, viewerID)
	}
	err := q.Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ? AND deleted_at IS NULL", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// SoftDelete marks the post deleted. The deleted_at guard makes a second
// delete of the same post a conflict rather than a silent overwrite of the
// original deletion record.
func (r *postRepository) SoftDelete(ctx context.Context, id uint, deletedByID uint, deletedByRole string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at":      now,
			"deleted_by_id":   deletedByID,
			"deleted_by_role": deletedByRole,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewConflictError("post is already deleted")
	}
	return nil
}

// AddLike inserts the like edge and recounts likes_count in one transaction.
// Returns false when the edge already existed; the unique index settles
// concurrent duplicates.
func (r *postRepository) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := models.Like{PostID: postID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		if !added {
			return nil
		}
		return recountLikes(tx, []uint{postID})
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return added, nil
}

// RemoveLike deletes the like edge and recounts likes_count in one
// transaction. Returns false when no edge existed.
func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uint) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		if !removed {
			return nil
		}
		return recountLikes(tx, []uint{postID})
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return removed, nil
}

func (r *postRepository) IsLiked(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likedPostIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &likedPostIDs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likedPostIDs, nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
