// Package seed populates a development database with plausible demo data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls how much data Run creates.
type Options struct {
	Users           int
	Groups          int
	PostsPerUser    int
	CommentsPerPost int
	// FollowChance is the probability (0..100) that any user follows any
	// other user.
	FollowChance int
}

// DefaultOptions seeds a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Users:           12,
		Groups:          5,
		PostsPerUser:    8,
		CommentsPerPost: 3,
		FollowChance:    35,
	}
}

// Run fills the database. Every seeded account logs in with "passw0rd123".
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	gofakeit.Seed(0)

	hashed, err := bcrypt.GenerateFromPassword([]byte("passw0rd123"), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	users, err := seedUsers(ctx, db, opts.Users, string(hashed))
	if err != nil {
		return err
	}
	groups, err := seedGroups(ctx, db, opts.Groups)
	if err != nil {
		return err
	}
	posts, err := seedPosts(ctx, db, users, groups, opts.PostsPerUser)
	if err != nil {
		return err
	}
	if err := seedComments(ctx, db, users, posts, opts.CommentsPerPost); err != nil {
		return err
	}
	if err := seedFollows(ctx, db, users, opts.FollowChance); err != nil {
		return err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(users)),
		slog.Int("groups", len(groups)),
		slog.Int("posts", len(posts)))
	return nil
}

func seedUsers(ctx context.Context, db *gorm.DB, n int, password string) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username := strings.ToLower(gofakeit.Username())
		user := models.User{
			Username: fmt.Sprintf("%s%d", username, i),
			Email:    fmt.Sprintf("%s%d@%s", username, i, gofakeit.DomainName()),
			Password: password,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func seedGroups(ctx context.Context, db *gorm.DB, n int) ([]models.Group, error) {
	groups := make([]models.Group, 0, n)
	for i := 0; i < n; i++ {
		word := strings.ToLower(gofakeit.Hobby())
		group := models.Group{
			Title:       gofakeit.Sentence(3),
			Slug:        fmt.Sprintf("%s-%d", strings.ReplaceAll(word, " ", "-"), i),
			Description: gofakeit.Paragraph(1, 3, 10, " "),
		}
		if err := db.WithContext(ctx).Create(&group).Error; err != nil {
			return nil, fmt.Errorf("failed to seed group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func seedPosts(ctx context.Context, db *gorm.DB, users []models.User, groups []models.Group, perUser int) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(users)*perUser)
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			post := models.Post{
				Text:     gofakeit.Paragraph(1, gofakeit.Number(1, 4), 12, " "),
				AuthorID: user.ID,
				PubDate:  gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
			}
			if len(groups) > 0 && gofakeit.Bool() {
				post.GroupID = &groups[gofakeit.Number(0, len(groups)-1)].ID
			}
			if err := db.WithContext(ctx).Create(&post).Error; err != nil {
				return nil, fmt.Errorf("failed to seed post: %w", err)
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func seedComments(ctx context.Context, db *gorm.DB, users []models.User, posts []models.Post, perPost int) error {
	for _, post := range posts {
		n := gofakeit.Number(0, perPost)
		for i := 0; i < n; i++ {
			comment := models.Comment{
				PostID:   post.ID,
				AuthorID: users[gofakeit.Number(0, len(users)-1)].ID,
				Text:     gofakeit.Sentence(gofakeit.Number(4, 14)),
				Created:  gofakeit.DateRange(post.PubDate, time.Now()),
			}
			if err := db.WithContext(ctx).Create(&comment).Error; err != nil {
				return fmt.Errorf("failed to seed comment: %w", err)
			}
		}
	}
	return nil
}

func seedFollows(ctx context.Context, db *gorm.DB, users []models.User, chance int) error {
	repo := repository.NewFollowRepository(db)
	for _, user := range users {
		for _, author := range users {
			if user.ID == author.ID || gofakeit.Number(1, 100) > chance {
				continue
			}
			follow := &models.Follow{UserID: user.ID, AuthorID: author.ID}
			if err := repo.Create(ctx, follow); err != nil {
				return fmt.Errorf("failed to seed follow: %w", err)
			}
		}
	}
	return nil
}
