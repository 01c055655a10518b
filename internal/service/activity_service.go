// Package service implements the application's business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"mural/internal/middleware"
	"mural/internal/models"
	"mural/internal/observability"
	"mural/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// ActivityService records user actions and projects them into the feed.
type ActivityService struct {
	activityRepo repository.ActivityRepository
	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
}

// NewActivityService returns a new ActivityService.
func NewActivityService(activityRepo repository.ActivityRepository, userRepo repository.UserRepository, postRepo repository.PostRepository) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		userRepo:     userRepo,
		postRepo:     postRepo,
	}
}

// Record appends one activity entry. Recording is best-effort: it runs after
// the primary mutation has committed and a failure is logged and counted,
// never propagated, so a logging fault cannot roll back a successful action.
func (s *ActivityService) Record(ctx context.Context, actor *models.User, action models.ActionType, targetID *uint, targetKind string, meta models.ActivityMeta) {
	activity := &models.Activity{
		ActorID:       actor.ID,
		ActorUsername: actor.Username,
		ActionType:    action,
		TargetID:      targetID,
		TargetKind:    targetKind,
		Metadata:      datatypes.NewJSONType(meta),
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		observability.ActivityRecordFailures.WithLabelValues(string(action)).Inc()
		middleware.Logger.ErrorContext(ctx, "failed to record activity",
			slog.String("action_type", string(action)),
			slog.Any("actor_id", actor.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.ActivitiesRecorded.WithLabelValues(string(action)).Inc()
}

// Feed returns the projected activity feed, newest first. Targets are
// batch-hydrated: one user fetch and one post fetch for the whole page.
func (s *ActivityService) Feed(ctx context.Context, limit, offset int) ([]models.FeedEntry, error) {
	activities, err := s.activityRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, activities)
}

// FeedByActor returns the feed restricted to a single actor's activity.
func (s *ActivityService) FeedByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.FeedEntry, error) {
	activities, err := s.activityRepo.ListByActor(ctx, actorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, activities)
}

func (s *ActivityService) hydrate(ctx context.Context, activities []models.Activity) ([]models.FeedEntry, error) {
	if len(activities) == 0 {
		return []models.FeedEntry{}, nil
	}

	span, ctx := observability.NewSpan(ctx, "activity.feed.hydrate")
	defer span.End()
	span.AddAttributes(attribute.Int("feed.activities", len(activities)))

	// Collect ids to resolve, grouped by kind.
	userIDSet := make(map[uint]struct{})
	postIDSet := make(map[uint]struct{})
	for _, a := range activities {
		userIDSet[a.ActorID] = struct{}{}
		if a.TargetID == nil {
			continue
		}
		switch a.TargetKind {
		case models.TargetUser:
			userIDSet[*a.TargetID] = struct{}{}
		case models.TargetPost:
			postIDSet[*a.TargetID] = struct{}{}
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, keys(userIDSet))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	usersByID := make(map[uint]*models.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = &users[i]
	}

	posts, err := s.postRepo.GetByIDs(ctx, keys(postIDSet))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	postsByID := make(map[uint]*models.Post, len(posts))
	for i := range posts {
		postsByID[posts[i].ID] = &posts[i]
	}

	entries := make([]models.FeedEntry, 0, len(activities))
	for _, a := range activities {
		entries = append(entries, s.project(a, usersByID, postsByID))
	}
	return entries, nil
}

func keys(set map[uint]struct{}) []uint {
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// project turns one raw activity into a display-ready feed entry, falling
// back to recorded snapshots when the live actor or target is gone.
func (s *ActivityService) project(a models.Activity, usersByID map[uint]*models.User, postsByID map[uint]*models.Post) models.FeedEntry {
	meta := a.Metadata.Data()

	actor := models.FeedActor{ID: a.ActorID, Username: a.ActorUsername}
	if live, ok := usersByID[a.ActorID]; ok {
		actor.Username = live.Username
		actor.ProfilePicture = live.ProfilePicture
	}
	actorName := actor.Username
	if actorName == "" {
		actorName = "a user"
	}

	var target any
	var userTarget *models.FeedUserTarget
	var postTarget *models.FeedPostTarget
	if a.TargetID != nil {
		switch a.TargetKind {
		case models.TargetUser:
			if u, ok := usersByID[*a.TargetID]; ok {
				userTarget = &models.FeedUserTarget{
					ID:             u.ID,
					Username:       u.Username,
					ProfilePicture: u.ProfilePicture,
				}
				target = userTarget
			}
		case models.TargetPost:
			if p, ok := postsByID[*a.TargetID]; ok {
				postTarget = &models.FeedPostTarget{
					ID:      p.ID,
					Content: p.Content,
					Image:   p.ImageURL,
				}
				if p.Author != nil {
					postTarget.Author = &models.FeedUserTarget{
						ID:             p.Author.ID,
						Username:       p.Author.Username,
						ProfilePicture: p.Author.ProfilePicture,
					}
				}
				target = postTarget
			}
		}
	}

	targetName := meta.TargetUsername
	if userTarget != nil {
		targetName = userTarget.Username
	}
	if targetName == "" {
		targetName = "a user"
	}

	var message string
	switch a.ActionType {
	case models.ActionPostCreated:
		message = fmt.Sprintf("%s made a post", actorName)
	case models.ActionPostLiked:
		if postTarget != nil && postTarget.Author != nil {
			message = fmt.Sprintf("%s liked %s's post", actorName, postTarget.Author.Username)
		} else {
			message = fmt.Sprintf("%s liked a post", actorName)
		}
	case models.ActionPostUnliked:
		message = fmt.Sprintf("%s unliked a post", actorName)
	case models.ActionUserFollowed:
		message = fmt.Sprintf("%s followed %s", actorName, targetName)
	case models.ActionUserUnfollowed:
		message = fmt.Sprintf("%s unfollowed %s", actorName, targetName)
	case models.ActionPostDeleted:
		role := meta.DeletedByRole
		if role == "" {
			role = models.DeletedByAuthor
		}
		message = fmt.Sprintf("Post deleted by %s", role)
	case models.ActionUserDeleted:
		message = "User deleted by Owner"
	case models.ActionAdminCreated:
		message = fmt.Sprintf("%s was created as Admin by %s", targetName, actorName)
	case models.ActionAdminDeleted:
		message = fmt.Sprintf("%s was removed as Admin by %s", targetName, actorName)
	default:
		message = fmt.Sprintf("%s did something", actorName)
	}

	return models.FeedEntry{
		ID:         a.ID,
		Actor:      actor,
		ActionType: a.ActionType,
		Message:    message,
		Target:     target,
		CreatedAt:  a.CreatedAt,
	}
}
