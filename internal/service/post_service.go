package service

import (
	"context"
	"unicode/utf8"

	"mural/internal/models"
	"mural/internal/observability"
	"mural/internal/policy"
	"mural/internal/repository"
	"mural/internal/validation"
)

// postSnapshotLen bounds the content snapshot stored in activity metadata.
const postSnapshotLen = 100

// PostService provides post and like business logic.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	activity *ActivityService
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, activity *ActivityService) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		activity: activity,
	}
}

// snapshot truncates content for activity metadata, backing off to a rune
// boundary so multibyte characters are never split.
func snapshot(content string) string {
	if len(content) <= postSnapshotLen {
		return content
	}
	cut := postSnapshotLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// blockState fetches the block relationship between the actor and another
// user as seen by the policy layer.
func (s *PostService) blockState(ctx context.Context, actorID, otherID uint) (policy.BlockState, error) {
	actorBlocked, otherBlocked, err := s.userRepo.GetBlockState(ctx, actorID, otherID)
	if err != nil {
		return policy.BlockState{}, err
	}
	return policy.BlockState{
		ActorBlockedOther: actorBlocked,
		OtherBlockedActor: otherBlocked,
	}, nil
}

// Create validates and persists a new post, then records POST_CREATED.
func (s *PostService) Create(ctx context.Context, author *models.User, content, imageURL string) (*models.Post, error) {
	trimmed, err := validation.ValidatePostContent(content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		AuthorID: author.ID,
		Content:  trimmed,
		ImageURL: imageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = author

	s.activity.Record(ctx, author, models.ActionPostCreated, &post.ID, models.TargetPost, models.ActivityMeta{
		PostContent: snapshot(trimmed),
	})
	return post, nil
}

// Get returns a single post if the actor may view it. Posts hidden by a
// block relationship surface as not-found.
func (s *PostService) Get(ctx context.Context, actor policy.Actor, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	blocks, err := s.blockState(ctx, actor.ID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewPost(actor, post.AuthorID, post.Deleted(), blocks) {
		return nil, models.NewHiddenError("Post")
	}

	liked, err := s.postRepo.IsLiked(ctx, post.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	post.Liked = liked
	return post, nil
}

// List returns the visible wall for the actor, newest first.
func (s *PostService) List(ctx context.Context, actor policy.Actor, limit, offset int) ([]models.Post, error) {
	posts, err := s.postRepo.List(ctx, actor.ID, policy.IsModerator(actor.Role), limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, actor.ID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByAuthor returns an author's visible posts for the actor.
func (s *PostService) ListByAuthor(ctx context.Context, actor policy.Actor, authorID uint, limit, offset int) ([]models.Post, error) {
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	blocks, err := s.blockState(ctx, actor.ID, authorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewUser(actor, blocks) {
		return nil, models.NewHiddenError("User")
	}

	posts, err := s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, actor.ID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) markLiked(ctx context.Context, viewerID uint, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likedIDs, err := s.postRepo.GetLikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	liked := make(map[uint]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}
	for i := range posts {
		posts[i].Liked = liked[posts[i].ID]
	}
	return nil
}

// ToggleLike flips the actor's like on the post and records the matching
// activity. Both directions are idempotent under concurrent duplicates: the
// unique like edge settles a double-click into exactly one state.
func (s *PostService) ToggleLike(ctx context.Context, actorUser *models.User, postID uint) (*models.Post, error) {
	actor := policy.Actor{ID: actorUser.ID, Role: actorUser.Role}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	blocks, err := s.blockState(ctx, actor.ID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewPost(actor, post.AuthorID, post.Deleted(), blocks) {
		return nil, models.NewHiddenError("Post")
	}

	wasLiked, err := s.postRepo.IsLiked(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}

	if wasLiked {
		removed, err := s.postRepo.RemoveLike(ctx, postID, actor.ID)
		if err != nil {
			return nil, err
		}
		if removed {
			s.activity.Record(ctx, actorUser, models.ActionPostUnliked, &post.ID, models.TargetPost, models.ActivityMeta{
				PostContent: snapshot(post.Content),
			})
		}
	} else {
		added, err := s.postRepo.AddLike(ctx, postID, actor.ID)
		if err != nil {
			return nil, err
		}
		if added {
			s.activity.Record(ctx, actorUser, models.ActionPostLiked, &post.ID, models.TargetPost, models.ActivityMeta{
				PostContent: snapshot(post.Content),
			})
		}
	}

	return s.Get(ctx, actor, postID)
}

// Delete soft-deletes a post on behalf of its author or a moderator and
// records POST_DELETED with the role that performed the deletion.
func (s *PostService) Delete(ctx context.Context, actorUser *models.User, postID uint) error {
	actor := policy.Actor{ID: actorUser.ID, Role: actorUser.Role}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if !policy.CanDeletePost(actor, post.AuthorID) {
		return models.NewPermissionDeniedError("you cannot delete this post")
	}

	role := policy.DeletionRole(actor, post.AuthorID)
	if err := s.postRepo.SoftDelete(ctx, postID, actor.ID, role); err != nil {
		return err
	}
	if actor.ID != post.AuthorID {
		observability.ModerationActions.WithLabelValues("post_delete", string(actor.Role)).Inc()
	}

	s.activity.Record(ctx, actorUser, models.ActionPostDeleted, &post.ID, models.TargetPost, models.ActivityMeta{
		PostContent:   snapshot(post.Content),
		DeletedByRole: role,
	})
	return nil
}

// RemoveLike forcibly removes another user's like from a post. Moderators
// only. No activity is recorded for this moderation action.
func (s *PostService) RemoveLike(ctx context.Context, actor policy.Actor, postID, targetUserID uint) (*models.Post, error) {
	if !policy.CanRemoveLike(actor) {
		return nil, models.NewPermissionDeniedError("admin access required")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Deleted() {
		return nil, models.NewConflictError("post is already deleted")
	}

	removed, err := s.postRepo.RemoveLike(ctx, postID, targetUserID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewNotFoundError("Like", targetUserID)
	}
	observability.ModerationActions.WithLabelValues("like_remove", string(actor.Role)).Inc()

	return s.postRepo.GetByID(ctx, postID)
}
