package repository

import (
	"context"

	"mural/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository defines persistence operations for the append-only
// activity log.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, limit, offset int) ([]models.Activity, error)
	ListByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a new ActivityRepository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *activityRepository) List(ctx context.Context, limit, offset int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return activities, nil
}

func (r *activityRepository) ListByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return activities, nil
}
