package repository

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// FollowRepository defines data access for follow edges between users.
type FollowRepository interface {
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, userID, authorID uint) error
	ListAuthorIDs(ctx context.Context, userID uint) ([]uint, error)
	ListFollowerIDs(ctx context.Context, authorID uint) ([]uint, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a follow repository backed by db.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	done := observability.TrackQuery("select", "follows")
	defer done()

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError("failed to check follow", err)
	}
	return n > 0, nil
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	done := observability.TrackQuery("insert", "follows")
	defer done()

	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Concurrent double-follow resolves to the existing edge.
			return nil
		}
		return models.NewInternalError("failed to create follow", err)
	}
	return nil
}

// Delete removes the follow edge and reports not found when it never existed.
func (r *followRepository) Delete(ctx context.Context, userID, authorID uint) error {
	done := observability.TrackQuery("delete", "follows")
	defer done()

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return models.NewInternalError("failed to delete follow", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("follow not found", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *followRepository) ListAuthorIDs(ctx context.Context, userID uint) ([]uint, error) {
	done := observability.TrackQuery("select", "follows")
	defer done()

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ?", userID).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list followed authors", err)
	}
	return ids, nil
}

func (r *followRepository) ListFollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	done := observability.TrackQuery("select", "follows")
	defer done()

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list followers", err)
	}
	return ids, nil
}
