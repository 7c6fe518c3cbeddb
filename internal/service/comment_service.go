package service

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
)

// CommentService implements commenting on posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

// NewCommentService wires a comment service.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// Add attaches a comment to the post addressed by author username and post
// ID. The pair must resolve before anything is written.
func (s *CommentService) Add(ctx context.Context, authorID uint, username string, postID uint, text string) (*models.Comment, error) {
	post, err := s.posts.GetByAuthorAndID(ctx, username, postID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("comment text must not be empty", nil)
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListForPost returns the post's comments, newest first.
func (s *CommentService) ListForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}
