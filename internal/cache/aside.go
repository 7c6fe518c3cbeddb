package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Aside implements the cache-aside pattern: on hit, dest is populated from
// the cached JSON; on miss, fill is invoked to populate dest and the result
// is written back with the given TTL. Cache errors never fail the read.
func (s *Service) Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fill func() error) error {
	if s.Available() {
		if b, err := s.client.Get(ctx, key).Bytes(); err == nil {
			if unmarshalErr := json.Unmarshal(b, dest); unmarshalErr == nil {
				return nil
			}
			// Corrupt entry: drop it and fall through to the source of truth.
			s.client.Del(ctx, key)
		}
	}

	if err := fill(); err != nil {
		return err
	}

	if s.Available() {
		if b, err := json.Marshal(dest); err == nil {
			s.client.Set(ctx, key, b, ttl)
		}
	}
	return nil
}

// GetBytes returns the raw cached bytes for key, reporting whether it was a hit.
func (s *Service) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if !s.Available() {
		return nil, false
	}
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and transport errors both read as a miss.
		return nil, false
	}
	return b, true
}

// SetBytes stores raw bytes under key with the given TTL.
func (s *Service) SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if !s.Available() {
		return
	}
	s.client.Set(ctx, key, b, ttl)
}
