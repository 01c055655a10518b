// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"mural/internal/models"
	"mural/internal/repository"
	"mural/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// DemoPassword is the login password for every seeded account.
const DemoPassword = "Mural-Demo-Pass1!"

// Seed populates the database with demo data. Mutations go through the
// service layer so counters and the activity log stay consistent.
func Seed(db *gorm.DB, opts Options) error {
	ctx := context.Background()

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	activities := service.NewActivityService(activityRepo, userRepo, postRepo)
	users := service.NewUserService(userRepo, activities)
	posts := service.NewPostService(postRepo, userRepo, activities)

	log.Printf("Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	accounts, err := createUsers(ctx, userRepo, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("creating users: %w", err)
	}
	log.Printf("✓ %d users created", len(accounts))

	created, err := createPosts(ctx, posts, accounts, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("creating posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(created))

	if err := createFollows(ctx, users, accounts); err != nil {
		return fmt.Errorf("creating follows: %w", err)
	}
	log.Println("✓ follow mesh created")

	if err := createLikes(ctx, posts, accounts, created); err != nil {
		return fmt.Errorf("creating likes: %w", err)
	}
	log.Println("✓ likes created")

	if err := createBlocks(ctx, users, accounts); err != nil {
		return fmt.Errorf("creating blocks: %w", err)
	}
	log.Println("✓ blocks created")

	log.Printf("Done. Every account logs in with password %q", DemoPassword)
	return nil
}

func clearData(db *gorm.DB) error {
	for _, model := range []any{
		&models.Activity{},
		&models.Like{},
		&models.Post{},
		&models.Follow{},
		&models.UserBlock{},
		&models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// createUsers inserts one owner, two admins and the rest regular users.
func createUsers(ctx context.Context, repo repository.UserRepository, n int) ([]*models.User, error) {
	if n < 4 {
		n = 4
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	out := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleUser
		switch i {
		case 0:
			role = models.RoleOwner
		case 1, 2:
			role = models.RoleAdmin
		}

		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
		if len(username) > 30 {
			username = username[:30]
		}
		user := &models.User{
			Username: username,
			Email:    fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Password: string(hash),
			Role:     role,
			Bio:      gofakeit.Sentence(8),
		}
		if err := repo.Create(ctx, user); err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

func createPosts(ctx context.Context, posts *service.PostService, accounts []*models.User, n int) ([]*models.Post, error) {
	out := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := accounts[rand.Intn(len(accounts))]
		post, err := posts.Create(ctx, author, gofakeit.Paragraph(1, 3, 12, " "), "")
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, nil
}

// createFollows gives each account a handful of random followees.
func createFollows(ctx context.Context, users *service.UserService, accounts []*models.User) error {
	for _, follower := range accounts {
		for i := 0; i < 3; i++ {
			target := accounts[rand.Intn(len(accounts))]
			if target.ID == follower.ID {
				continue
			}
			if err := users.Follow(ctx, follower, target.ID); err != nil {
				var appErr *models.AppError
				// Random picks repeat; duplicate edges are expected.
				if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
					continue
				}
				return err
			}
		}
	}
	return nil
}

func createLikes(ctx context.Context, posts *service.PostService, accounts []*models.User, created []*models.Post) error {
	for _, post := range created {
		likers := rand.Intn(4)
		for i := 0; i < likers; i++ {
			liker := accounts[rand.Intn(len(accounts))]
			if _, err := posts.ToggleLike(ctx, liker, post.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// createBlocks adds a couple of block edges between regular users so the
// visibility filtering has something to bite on.
func createBlocks(ctx context.Context, users *service.UserService, accounts []*models.User) error {
	regular := accounts[3:]
	if len(regular) < 4 {
		return nil
	}
	pairs := [][2]*models.User{
		{regular[0], regular[1]},
		{regular[2], regular[3]},
	}
	for _, p := range pairs {
		if err := users.Block(ctx, p[0], p[1].ID); err != nil {
			return err
		}
	}
	return nil
}
