package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix  = "user:%s"
	GroupKeyPrefix = "group:%s"
	HomeKeyPrefix  = "home:page:%d"
)

const (
	UserTTL  = 5 * time.Minute
	GroupTTL = 10 * time.Minute
	// HomeTTL bounds staleness of the cached home page. There is no
	// invalidation on write; readers may see posts up to HomeTTL late.
	HomeTTL = 20 * time.Second
)

// UserKey derives the cache key for a user profile.
func UserKey(username string) string {
	return fmt.Sprintf(UserKeyPrefix, username)
}

// GroupKey derives the cache key for a group.
func GroupKey(slug string) string {
	return fmt.Sprintf(GroupKeyPrefix, slug)
}

// HomeKey derives the cache key for a page of the home listing.
func HomeKey(page int) string {
	return fmt.Sprintf(HomeKeyPrefix, page)
}

// Invalidate removes a single cache entry.
func (s *Service) Invalidate(ctx context.Context, key string) {
	if s.Available() {
		s.client.Del(ctx, key)
	}
}

// InvalidateUser purges the cached profile for username.
func (s *Service) InvalidateUser(ctx context.Context, username string) {
	s.Invalidate(ctx, UserKey(username))
}

// InvalidateGroup purges the cached group for slug.
func (s *Service) InvalidateGroup(ctx context.Context, slug string) {
	s.Invalidate(ctx, GroupKey(slug))
}

// InvalidateHome purges every cached home page immediately, using SCAN so a
// large keyspace is never blocked.
func (s *Service) InvalidateHome(ctx context.Context) {
	if !s.Available() {
		return
	}
	var cursor uint64
	for i := 0; i < 10; i++ { // bound rounds to avoid long loops
		keys, cur, err := s.client.Scan(ctx, cursor, "home:page:*", 1000).Result()
		if err != nil {
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := s.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
