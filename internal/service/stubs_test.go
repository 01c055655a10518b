package service

import (
	"context"
	"sync"
	"time"

	"mural/internal/models"
)

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}

type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	getByIDsFn           func(context.Context, []uint) ([]models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
	listFn               func(context.Context, uint, bool, int, int) ([]models.User, error)
	listByRoleFn         func(context.Context, models.Role, int, int) ([]models.User, error)
	listWithPostCountsFn func(context.Context, int, int) ([]models.UserWithPostCount, error)
	getProfileFn         func(context.Context, uint) (*models.UserProfile, error)
	hardDeleteFn         func(context.Context, uint) error
	isFollowingFn        func(context.Context, uint, uint) (bool, error)
	createFollowFn       func(context.Context, uint, uint) error
	deleteFollowFn       func(context.Context, uint, uint) (bool, error)
	getBlockStateFn      func(context.Context, uint, uint) (bool, bool, error)
	blockFn              func(context.Context, uint, uint) error
	unblockFn            func(context.Context, uint, uint) error
	listBlockedFn        func(context.Context, uint) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, viewerID, moderator, limit, offset)
}
func (s *userRepoStub) ListByRole(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	return s.listByRoleFn(ctx, role, limit, offset)
}
func (s *userRepoStub) ListWithPostCounts(ctx context.Context, limit, offset int) ([]models.UserWithPostCount, error) {
	return s.listWithPostCountsFn(ctx, limit, offset)
}
func (s *userRepoStub) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	return s.getProfileFn(ctx, id)
}
func (s *userRepoStub) HardDelete(ctx context.Context, id uint) error {
	return s.hardDeleteFn(ctx, id)
}
func (s *userRepoStub) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) CreateFollow(ctx context.Context, followerID, followeeID uint) error {
	return s.createFollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) DeleteFollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.deleteFollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) GetBlockState(ctx context.Context, actorID, otherID uint) (bool, bool, error) {
	return s.getBlockStateFn(ctx, actorID, otherID)
}
func (s *userRepoStub) Block(ctx context.Context, blockerID, blockedID uint) error {
	return s.blockFn(ctx, blockerID, blockedID)
}
func (s *userRepoStub) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	return s.unblockFn(ctx, blockerID, blockedID)
}
func (s *userRepoStub) ListBlocked(ctx context.Context, blockerID uint) ([]models.User, error) {
	return s.listBlockedFn(ctx, blockerID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		getByIDsFn:      func(context.Context, []uint) ([]models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		updateFn:        func(context.Context, *models.User) error { return nil },
		listFn: func(context.Context, uint, bool, int, int) ([]models.User, error) {
			return nil, nil
		},
		listByRoleFn: func(context.Context, models.Role, int, int) ([]models.User, error) {
			return nil, nil
		},
		listWithPostCountsFn: func(context.Context, int, int) ([]models.UserWithPostCount, error) {
			return nil, nil
		},
		getProfileFn: func(_ context.Context, id uint) (*models.UserProfile, error) {
			return &models.UserProfile{User: models.User{ID: id}}, nil
		},
		hardDeleteFn:  func(context.Context, uint) error { return nil },
		isFollowingFn: func(context.Context, uint, uint) (bool, error) { return false, nil },
		createFollowFn: func(context.Context, uint, uint) error {
			return nil
		},
		deleteFollowFn: func(context.Context, uint, uint) (bool, error) { return true, nil },
		getBlockStateFn: func(context.Context, uint, uint) (bool, bool, error) {
			return false, false, nil
		},
		blockFn:       func(context.Context, uint, uint) error { return nil },
		unblockFn:     func(context.Context, uint, uint) error { return nil },
		listBlockedFn: func(context.Context, uint) ([]models.User, error) { return nil, nil },
	}
}

type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, uint) (*models.Post, error)
	getByIDsFn        func(context.Context, []uint) ([]models.Post, error)
	listFn            func(context.Context, uint, bool, int, int) ([]models.Post, error)
	listByAuthorFn    func(context.Context, uint, int, int) ([]models.Post, error)
	softDeleteFn      func(context.Context, uint, uint, string) error
	addLikeFn         func(context.Context, uint, uint) (bool, error)
	removeLikeFn      func(context.Context, uint, uint) (bool, error)
	isLikedFn         func(context.Context, uint, uint) (bool, error)
	getLikedPostIDsFn func(context.Context, uint, []uint) ([]uint, error)
	countLikesFn      func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) List(ctx context.Context, viewerID uint, moderator bool, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, viewerID, moderator, limit, offset)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) SoftDelete(ctx context.Context, id, deletedByID uint, deletedByRole string) error {
	return s.softDeleteFn(ctx, id, deletedByID, deletedByRole)
}
func (s *postRepoStub) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	return s.addLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) RemoveLike(ctx context.Context, postID, userID uint) (bool, error) {
	return s.removeLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) IsLiked(ctx context.Context, postID, userID uint) (bool, error) {
	return s.isLikedFn(ctx, postID, userID)
}
func (s *postRepoStub) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.getLikedPostIDsFn(ctx, userID, postIDs)
}
func (s *postRepoStub) CountLikes(ctx context.Context, postID uint) (int64, error) {
	return s.countLikesFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		getByIDsFn: func(context.Context, []uint) ([]models.Post, error) { return nil, nil },
		listFn: func(context.Context, uint, bool, int, int) ([]models.Post, error) {
			return nil, nil
		},
		listByAuthorFn: func(context.Context, uint, int, int) ([]models.Post, error) {
			return nil, nil
		},
		softDeleteFn:      func(context.Context, uint, uint, string) error { return nil },
		addLikeFn:         func(context.Context, uint, uint) (bool, error) { return true, nil },
		removeLikeFn:      func(context.Context, uint, uint) (bool, error) { return true, nil },
		isLikedFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		getLikedPostIDsFn: func(context.Context, uint, []uint) ([]uint, error) { return nil, nil },
		countLikesFn:      func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

// activityRecorder is an in-memory activity repository that captures every
// Create call for assertions.
type activityRecorder struct {
	mu        sync.Mutex
	created   []models.Activity
	createErr error
}

func (r *activityRecorder) Create(_ context.Context, activity *models.Activity) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.ID = uint(len(r.created) + 1)
	r.created = append(r.created, *activity)
	return nil
}

func (r *activityRecorder) List(_ context.Context, limit, offset int) ([]models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Newest first, mirroring the real repository ordering.
	out := make([]models.Activity, 0, len(r.created))
	for i := len(r.created) - 1; i >= 0; i-- {
		out = append(out, r.created[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *activityRecorder) ListByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.Activity, error) {
	all, err := r.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	var out []models.Activity
	for _, a := range all {
		if a.ActorID == actorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *activityRecorder) recorded() []models.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Activity, len(r.created))
	copy(out, r.created)
	return out
}

func newActivityService(recorder *activityRecorder, userRepo *userRepoStub, postRepo *postRepoStub) *ActivityService {
	return NewActivityService(recorder, userRepo, postRepo)
}
