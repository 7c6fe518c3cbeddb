package repository

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// commentsCountSelect annotates each post with its comment count in one query.
const commentsCountSelect = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// PostRepository defines data access for posts. Every listing is ordered
// newest first by publication date.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByAuthorAndID(ctx context.Context, username string, postID uint) (*models.Post, error)
	ListAll(ctx context.Context, offset, limit int) ([]models.Post, error)
	CountAll(ctx context.Context) (int64, error)
	ListByGroup(ctx context.Context, groupID uint, offset, limit int) ([]models.Post, error)
	CountByGroup(ctx context.Context, groupID uint) (int64, error)
	ListByAuthor(ctx context.Context, authorID uint, offset, limit int) ([]models.Post, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	ListByFollower(ctx context.Context, userID uint, offset, limit int) ([]models.Post, error)
	CountByFollower(ctx context.Context, userID uint) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a post repository backed by db.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	done := observability.TrackQuery("insert", "posts")
	defer done()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError("failed to create post", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	done := observability.TrackQuery("select", "posts")
	defer done()

	var post models.Post
	err := r.db.WithContext(ctx).
		Select(commentsCountSelect).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post not found", err)
		}
		return nil, models.NewInternalError("failed to fetch post", err)
	}
	return &post, nil
}

// GetByAuthorAndID resolves the /:username/:postID pair: the post must both
// exist and belong to the named author, otherwise it is not found.
func (r *postRepository) GetByAuthorAndID(ctx context.Context, username string, postID uint) (*models.Post, error) {
	done := observability.TrackQuery("select", "posts")
	defer done()

	var post models.Post
	err := r.db.WithContext(ctx).
		Select(commentsCountSelect).
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.id = ? AND users.username = ?", postID, username).
		Preload("Author").
		Preload("Group").
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post not found", err)
		}
		return nil, models.NewInternalError("failed to fetch post", err)
	}
	return &post, nil
}

func (r *postRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, offset, limit int) ([]models.Post, error) {
	done := observability.TrackQuery("select", "posts")
	defer done()

	var posts []models.Post
	err := scope(r.db.WithContext(ctx).Model(&models.Post{})).
		Select(commentsCountSelect).
		Preload("Author").
		Preload("Group").
		Order("posts.pub_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list posts", err)
	}
	return posts, nil
}

func (r *postRepository) count(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	done := observability.TrackQuery("count", "posts")
	defer done()

	var n int64
	if err := scope(r.db.WithContext(ctx).Model(&models.Post{})).Count(&n).Error; err != nil {
		return 0, models.NewInternalError("failed to count posts", err)
	}
	return n, nil
}

func (r *postRepository) ListAll(ctx context.Context, offset, limit int) ([]models.Post, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB { return q }, offset, limit)
}

func (r *postRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return q })
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, offset, limit int) ([]models.Post, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.group_id = ?", groupID)
	}, offset, limit)
}

func (r *postRepository) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.group_id = ?", groupID)
	})
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, offset, limit int) ([]models.Post, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.author_id = ?", authorID)
	}, offset, limit)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.author_id = ?", authorID)
	})
}

// ListByFollower returns the personal feed: posts by every author the user
// follows.
func (r *postRepository) ListByFollower(ctx context.Context, userID uint, offset, limit int) ([]models.Post, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Joins("JOIN follows ON follows.author_id = posts.author_id").
			Where("follows.user_id = ?", userID)
	}, offset, limit)
}

func (r *postRepository) CountByFollower(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Joins("JOIN follows ON follows.author_id = posts.author_id").
			Where("follows.user_id = ?", userID)
	})
}

// Update persists edited fields of an existing post in place. PubDate is
// never touched, an edited post keeps its position in listings.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	done := observability.TrackQuery("update", "posts")
	defer done()

	err := r.db.WithContext(ctx).Model(post).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	if err != nil {
		return models.NewInternalError("failed to update post", err)
	}
	return nil
}

// Delete removes the post and its comments in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	done := observability.TrackQuery("delete", "posts")
	defer done()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("post not found", err)
		}
		return models.NewInternalError("failed to delete post", err)
	}
	return nil
}
