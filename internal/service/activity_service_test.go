package service

import (
	"context"
	"errors"
	"testing"

	"mural/internal/models"

	"gorm.io/datatypes"
)

func TestActivityServiceRecordIsBestEffort(t *testing.T) {
	recorder := &activityRecorder{createErr: errors.New("store unavailable")}
	svc := newActivityService(recorder, noopUserRepo(), noopPostRepo())

	// A failing write must not panic or surface to the caller.
	actor := &models.User{ID: 1, Username: "alice"}
	svc.Record(context.Background(), actor, models.ActionPostCreated, nil, "", models.ActivityMeta{})
}

func TestActivityServiceFeedBatchesHydration(t *testing.T) {
	recorder := &activityRecorder{}
	actor := &models.User{ID: 1, Username: "alice"}

	postID1, postID2, userID := uint(10), uint(11), uint(2)
	seed := []struct {
		action models.ActionType
		target *uint
		kind   string
	}{
		{models.ActionPostCreated, &postID1, models.TargetPost},
		{models.ActionPostLiked, &postID2, models.TargetPost},
		{models.ActionUserFollowed, &userID, models.TargetUser},
	}
	for _, s := range seed {
		recorder.Create(context.Background(), &models.Activity{
			ActorID:       actor.ID,
			ActorUsername: actor.Username,
			ActionType:    s.action,
			TargetID:      s.target,
			TargetKind:    s.kind,
		})
	}

	userFetches, postFetches := 0, 0
	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(_ context.Context, ids []uint) ([]models.User, error) {
		userFetches++
		return []models.User{
			{ID: 1, Username: "alice"},
			{ID: 2, Username: "bob", ProfilePicture: "bob.png"},
		}, nil
	}
	postRepo := noopPostRepo()
	postRepo.getByIDsFn = func(_ context.Context, ids []uint) ([]models.Post, error) {
		postFetches++
		return []models.Post{
			{ID: 10, Content: "first", Author: &models.User{ID: 1, Username: "alice"}},
			{ID: 11, Content: "second", Author: &models.User{ID: 2, Username: "bob"}},
		}, nil
	}

	svc := newActivityService(recorder, userRepo, postRepo)
	entries, err := svc.Feed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if userFetches != 1 || postFetches != 1 {
		t.Fatalf("hydration must be one fetch per kind, got users=%d posts=%d", userFetches, postFetches)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Newest first: follow, like, create
	if entries[0].Message != "alice followed bob" {
		t.Fatalf("unexpected follow message: %q", entries[0].Message)
	}
	if entries[1].Message != "alice liked bob's post" {
		t.Fatalf("unexpected like message: %q", entries[1].Message)
	}
	if entries[2].Message != "alice made a post" {
		t.Fatalf("unexpected create message: %q", entries[2].Message)
	}

	target, ok := entries[0].Target.(*models.FeedUserTarget)
	if !ok || target.Username != "bob" || target.ProfilePicture != "bob.png" {
		t.Fatalf("expected hydrated user target, got %#v", entries[0].Target)
	}
	postTarget, ok := entries[2].Target.(*models.FeedPostTarget)
	if !ok || postTarget.Content != "first" {
		t.Fatalf("expected hydrated post target, got %#v", entries[2].Target)
	}
}

func TestActivityServiceFeedFallbacks(t *testing.T) {
	recorder := &activityRecorder{}
	postID, userID := uint(10), uint(2)

	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "ghost",
		ActionType:    models.ActionPostLiked,
		TargetID:      &postID,
		TargetKind:    models.TargetPost,
	})
	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "ghost",
		ActionType:    models.ActionUserFollowed,
		TargetID:      &userID,
		TargetKind:    models.TargetUser,
		Metadata:      datatypes.NewJSONType(models.ActivityMeta{TargetUsername: "departed"}),
	})

	// Neither the actor, the liked post, nor the followed user still exist.
	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(context.Context, []uint) ([]models.User, error) { return nil, nil }
	postRepo := noopPostRepo()
	postRepo.getByIDsFn = func(context.Context, []uint) ([]models.Post, error) { return nil, nil }

	svc := newActivityService(recorder, userRepo, postRepo)
	entries, err := svc.Feed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// The actor falls back to the username snapshot, the followed user to
	// the metadata snapshot, and the vanished post to the generic template.
	if entries[0].Message != "ghost followed departed" {
		t.Fatalf("unexpected follow fallback: %q", entries[0].Message)
	}
	if entries[1].Message != "ghost liked a post" {
		t.Fatalf("unexpected like fallback: %q", entries[1].Message)
	}
	if entries[0].Target != nil || entries[1].Target != nil {
		t.Fatal("unresolvable targets must be nil")
	}
}

func TestActivityServiceFeedModerationMessages(t *testing.T) {
	recorder := &activityRecorder{}
	targetID := uint(5)

	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "root",
		ActionType:    models.ActionAdminCreated,
		TargetID:      &targetID,
		TargetKind:    models.TargetUser,
		Metadata:      datatypes.NewJSONType(models.ActivityMeta{TargetUsername: "mod"}),
	})
	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "root",
		ActionType:    models.ActionAdminDeleted,
		TargetID:      &targetID,
		TargetKind:    models.TargetUser,
		Metadata:      datatypes.NewJSONType(models.ActivityMeta{TargetUsername: "mod"}),
	})
	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "root",
		ActionType:    models.ActionUserDeleted,
		TargetID:      &targetID,
		TargetKind:    models.TargetUser,
	})
	recorder.Create(context.Background(), &models.Activity{
		ActorID:       2,
		ActorUsername: "mod",
		ActionType:    models.ActionPostDeleted,
		Metadata:      datatypes.NewJSONType(models.ActivityMeta{DeletedByRole: models.DeletedByAdmin}),
	})

	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(context.Context, []uint) ([]models.User, error) { return nil, nil }

	svc := newActivityService(recorder, userRepo, noopPostRepo())
	entries, err := svc.Feed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"Post deleted by admin",
		"User deleted by Owner",
		"mod was removed as Admin by root",
		"mod was created as Admin by root",
	}
	for i, w := range want {
		if entries[i].Message != w {
			t.Fatalf("entry %d: expected %q, got %q", i, w, entries[i].Message)
		}
	}
}

func TestActivityServiceFeedByActor(t *testing.T) {
	recorder := &activityRecorder{}
	postID := uint(10)

	recorder.Create(context.Background(), &models.Activity{
		ActorID:       1,
		ActorUsername: "alice",
		ActionType:    models.ActionPostCreated,
		TargetID:      &postID,
		TargetKind:    models.TargetPost,
	})
	recorder.Create(context.Background(), &models.Activity{
		ActorID:       2,
		ActorUsername: "bob",
		ActionType:    models.ActionPostLiked,
		TargetID:      &postID,
		TargetKind:    models.TargetPost,
	})

	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(context.Context, []uint) ([]models.User, error) { return nil, nil }
	postRepo := noopPostRepo()
	postRepo.getByIDsFn = func(context.Context, []uint) ([]models.Post, error) { return nil, nil }

	svc := newActivityService(recorder, userRepo, postRepo)
	entries, err := svc.FeedByActor(context.Background(), 2, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for actor 2, got %d", len(entries))
	}
	if entries[0].Actor.Username != "bob" {
		t.Fatalf("unexpected actor: %q", entries[0].Actor.Username)
	}
}

func TestActivityServiceFeedEmpty(t *testing.T) {
	svc := newActivityService(&activityRecorder{}, noopUserRepo(), noopPostRepo())
	entries, err := svc.Feed(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}
