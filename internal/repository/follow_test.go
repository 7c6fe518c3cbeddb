package repository

import (
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowCreateIdempotentOnDuplicate(t *testing.T) {
	db := openTestDB(t)
	repo := NewFollowRepository(db)
	ctx := testContext()

	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	require.NoError(t, repo.Create(ctx, &models.Follow{UserID: reader.ID, AuthorID: author.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{UserID: reader.ID, AuthorID: author.ID}))

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Equal(t, int64(1), count, "duplicate follow must collapse to one edge")
}

func TestFollowDeleteMissingEdge(t *testing.T) {
	db := openTestDB(t)
	repo := NewFollowRepository(db)
	ctx := testContext()

	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	err := repo.Delete(ctx, reader.ID, author.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestFollowExistsAndListings(t *testing.T) {
	db := openTestDB(t)
	repo := NewFollowRepository(db)
	ctx := testContext()

	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")
	other := createUser(t, db, "other")

	require.NoError(t, repo.Create(ctx, &models.Follow{UserID: reader.ID, AuthorID: author.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{UserID: other.ID, AuthorID: author.ID}))

	exists, err := repo.Exists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, author.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, exists, "follow edges are directional")

	authors, err := repo.ListAuthorIDs(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{author.ID}, authors)

	followers, err := repo.ListFollowerIDs(ctx, author.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{reader.ID, other.ID}, followers)

	require.NoError(t, repo.Delete(ctx, reader.ID, author.ID))
	exists, err = repo.Exists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
