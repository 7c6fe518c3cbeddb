// Package repository implements data access on top of GORM, with read-through
// caching for hot lookups.
package repository

import (
	"context"
	"errors"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines data access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Service
}

// NewUserRepository creates a user repository backed by db and cache.
func NewUserRepository(db *gorm.DB, cacheSvc *cache.Service) UserRepository {
	return &userRepository{db: db, cache: cacheSvc}
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	done := observability.TrackQuery("insert", "users")
	defer done()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("username or email already taken", err)
		}
		return models.NewInternalError("failed to create user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	done := observability.TrackQuery("select", "users")
	defer done()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user not found", err)
		}
		return nil, models.NewInternalError("failed to fetch user", err)
	}
	return &user, nil
}

// GetByUsername is the profile-page lookup and goes through the cache.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(username), &user, cache.UserTTL, func() error {
		done := observability.TrackQuery("select", "users")
		defer done()
		return r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user not found", err)
		}
		return nil, models.NewInternalError("failed to fetch user", err)
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no account uses the email, so callers
// can distinguish "absent" from a storage failure during signup checks.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	done := observability.TrackQuery("select", "users")
	defer done()

	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError("failed to fetch user", err)
	}
	return &user, nil
}

// Delete removes the account and everything hanging off it in one
// transaction: comments written by the user, comments under the user's
// posts, follow edges in both directions, then posts, then the user row.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	done := observability.TrackQuery("delete", "users")
	defer done()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("user not found", err)
		}
		return models.NewInternalError("failed to fetch user", err)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN (?)",
			tx.Model(&models.Post{}).Select("id").Where("author_id = ?", id),
		).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return models.NewInternalError("failed to delete user", err)
	}

	r.cache.InvalidateUser(ctx, user.Username)
	return nil
}
