package repository

import (
	"testing"
	"time"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateDuplicateUsername(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, newTestCache(t))
	ctx := testContext()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "leo", Email: "leo@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "leo", Email: "other@example.com", Password: "x"})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestUserGetByEmailAbsentIsNilNil(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, newTestCache(t))

	user, err := repo.GetByEmail(testContext(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserGetByUsernameCached(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, newTestCache(t))
	ctx := testContext()

	created := createUser(t, db, "anna")

	first, err := repo.GetByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, created.ID, first.ID)

	// Mutate the row behind the cache; a fresh read should still see the
	// cached copy.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", created.ID).
		Update("email", "changed@example.com").Error)

	second, err := repo.GetByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", second.Email)
}

func TestUserGetByUsernameNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, newTestCache(t))

	_, err := repo.GetByUsername(testContext(), "ghost")
	assert.True(t, models.IsNotFound(err))
}

func TestUserDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, newTestCache(t))
	ctx := testContext()

	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")

	post := createPost(t, db, author.ID, "post by author", time.Now())
	readerPost := createPost(t, db, reader.ID, "post by reader", time.Now())

	// Comment by the author on the reader's post, and by the reader on the
	// author's post: both must disappear when the author is deleted.
	require.NoError(t, db.Create(&models.Comment{PostID: readerPost.ID, AuthorID: author.ID, Text: "by author"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: reader.ID, Text: "on author post"}).Error)
	require.NoError(t, db.Create(&models.Follow{UserID: reader.ID, AuthorID: author.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{UserID: author.ID, AuthorID: reader.ID}).Error)

	require.NoError(t, repo.Delete(ctx, author.ID))

	var count int64
	db.Model(&models.User{}).Where("id = ?", author.ID).Count(&count)
	assert.Zero(t, count, "user row should be gone")
	db.Model(&models.Post{}).Where("author_id = ?", author.ID).Count(&count)
	assert.Zero(t, count, "author posts should be gone")
	db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count, "comments by and on the author should be gone")
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count, "follow edges in both directions should be gone")

	db.Model(&models.Post{}).Where("id = ?", readerPost.ID).Count(&count)
	assert.Equal(t, int64(1), count, "other users' posts must survive")
}
