package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cacheSvc := cache.NewWithClient(client)

	return &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db, cacheSvc),
		groups:   repository.NewGroupRepository(db, cacheSvc),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "hashed",
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createPost(t *testing.T, authorID uint, text string) *models.Post {
	t.Helper()
	post := &models.Post{Text: text, AuthorID: authorID, PubDate: time.Now()}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

// recordingNotifier captures fanout calls for assertions.
type recordingNotifier struct {
	posts []*models.Post
}

func (n *recordingNotifier) NotifyFollowers(_ context.Context, post *models.Post) {
	n.posts = append(n.posts, post)
}
