package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/repository"
)

// FollowService implements subscriptions between users.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

// NewFollowService wires a follow service.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Follow subscribes userID to the author named by username. Following
// someone already followed is a no-op, as is following yourself; both leave
// the state exactly as it was.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return author, nil
	}

	exists, err := s.follows.Exists(ctx, userID, author.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return author, nil
	}

	if err := s.follows.Create(ctx, &models.Follow{UserID: userID, AuthorID: author.ID}); err != nil {
		return nil, err
	}
	return author, nil
}

// Unfollow removes the subscription to the author named by username. Unlike
// Follow it is strict: a missing edge is reported as not found.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Delete(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

// IsFollowing reports whether userID follows the author.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.follows.Exists(ctx, userID, authorID)
}

// FollowerIDs returns the IDs of everyone following authorID.
func (s *FollowService) FollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	return s.follows.ListFollowerIDs(ctx, authorID)
}
