// Package service holds the application logic between handlers and
// repositories.
package service

import (
	"context"
	"errors"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
)

// ErrNotAuthor marks an edit attempt by someone other than the post author.
// Handlers translate it into a redirect to the post view rather than an
// error response.
var ErrNotAuthor = errors.New("not the post author")

// PostInput carries the user-supplied fields of a post. Group is an optional
// group slug; empty means no group.
type PostInput struct {
	Text  string
	Group string
	Image string
}

// Notifier fans out domain events to interested users.
type Notifier interface {
	NotifyFollowers(ctx context.Context, post *models.Post)
}

// PostService implements post creation, lookup and editing.
type PostService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	notifier Notifier
}

// NewPostService wires a post service. notifier may be nil when fanout is
// disabled (tests, CLI tools).
func NewPostService(posts repository.PostRepository, groups repository.GroupRepository, notifier Notifier) *PostService {
	return &PostService{posts: posts, groups: groups, notifier: notifier}
}

// resolveGroup maps an optional group slug to its ID. A slug that resolves
// to nothing is the user's mistake, not ours.
func (s *PostService) resolveGroup(ctx context.Context, slug string) (*uint, error) {
	if slug == "" {
		return nil, nil
	}
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewValidationError("unknown group: "+slug, err)
		}
		return nil, err
	}
	return &group.ID, nil
}

// Create validates input, stores the post and notifies the author's
// followers.
func (s *PostService) Create(ctx context.Context, authorID uint, input PostInput) (*models.Post, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, models.NewValidationError("post text must not be empty", nil)
	}

	groupID, err := s.resolveGroup(ctx, input.Group)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     text,
		AuthorID: authorID,
		GroupID:  groupID,
		Image:    input.Image,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyFollowers(ctx, created)
	}
	return created, nil
}

// Get returns the post addressed by author username and post ID.
func (s *PostService) Get(ctx context.Context, username string, postID uint) (*models.Post, error) {
	return s.posts.GetByAuthorAndID(ctx, username, postID)
}

// Update edits an existing post in place. Only the author may edit; the
// publication date is preserved so the post keeps its listing position.
func (s *PostService) Update(ctx context.Context, editorID uint, username string, postID uint, input PostInput) (*models.Post, error) {
	post, err := s.posts.GetByAuthorAndID(ctx, username, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != editorID {
		return nil, ErrNotAuthor
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, models.NewValidationError("post text must not be empty", nil)
	}

	groupID, err := s.resolveGroup(ctx, input.Group)
	if err != nil {
		return nil, err
	}

	post.Text = text
	post.GroupID = groupID
	if input.Image != "" {
		post.Image = input.Image
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post on behalf of its author.
func (s *PostService) Delete(ctx context.Context, editorID uint, username string, postID uint) error {
	post, err := s.posts.GetByAuthorAndID(ctx, username, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != editorID {
		return ErrNotAuthor
	}
	return s.posts.Delete(ctx, post.ID)
}
