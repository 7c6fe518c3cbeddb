package repository

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines data access for post comments, newest first.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a comment repository backed by db.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	done := observability.TrackQuery("insert", "comments")
	defer done()

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError("failed to create comment", err)
	}
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	done := observability.TrackQuery("select", "comments")
	defer done()

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("Author").
		Order("created DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list comments", err)
	}
	return comments, nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	done := observability.TrackQuery("count", "comments")
	defer done()

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError("failed to count comments", err)
	}
	return n, nil
}
