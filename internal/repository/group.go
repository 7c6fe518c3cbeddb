package repository

import (
	"context"
	"errors"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// GroupRepository defines data access for thematic groups.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	List(ctx context.Context, offset, limit int) ([]models.Group, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type groupRepository struct {
	db    *gorm.DB
	cache *cache.Service
}

// NewGroupRepository creates a group repository backed by db and cache.
func NewGroupRepository(db *gorm.DB, cacheSvc *cache.Service) GroupRepository {
	return &groupRepository{db: db, cache: cacheSvc}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	done := observability.TrackQuery("insert", "groups")
	defer done()

	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("group slug already taken", err)
		}
		return models.NewInternalError("failed to create group", err)
	}
	return nil
}

// GetBySlug is the group-page lookup and goes through the cache.
func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := r.cache.Aside(ctx, cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		done := observability.TrackQuery("select", "groups")
		defer done()
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("group not found", err)
		}
		return nil, models.NewInternalError("failed to fetch group", err)
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context, offset, limit int) ([]models.Group, error) {
	done := observability.TrackQuery("select", "groups")
	defer done()

	var groups []models.Group
	err := r.db.WithContext(ctx).
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list groups", err)
	}
	return groups, nil
}

func (r *groupRepository) Count(ctx context.Context) (int64, error) {
	done := observability.TrackQuery("count", "groups")
	defer done()

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Group{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError("failed to count groups", err)
	}
	return n, nil
}

// Delete removes the group while keeping its posts: their group reference is
// nulled in the same transaction.
func (r *groupRepository) Delete(ctx context.Context, id uint) error {
	done := observability.TrackQuery("delete", "groups")
	defer done()

	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("group not found", err)
		}
		return models.NewInternalError("failed to fetch group", err)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("group_id = ?", id).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, id).Error
	})
	if err != nil {
		return models.NewInternalError("failed to delete group", err)
	}

	r.cache.InvalidateGroup(ctx, group.Slug)
	return nil
}
