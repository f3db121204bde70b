package redis

import (
	"context"
	"encoding/json"
	"time"

	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.SessionCache = (*SessionCache)(nil)

// SessionCache is the cache-aside layer over the session store. Entries
// are keyed by token and dropped explicitly on logout/delete; the store
// remains the sole source of truth for validity.
type SessionCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionCache(client RedisClient, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionCache{client: client, ttl: ttl}
}

func sessionKey(token string) string { return "session:" + token }

func (c *SessionCache) Get(ctx context.Context, token string) (*model.Session, bool) {
	data, err := c.client.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, false
	}
	var s model.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *SessionCache) Set(ctx context.Context, s *model.Session) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	// Never cache past the session's own expiry.
	ttl := c.ttl
	if rem := time.Until(s.ExpiresAt); rem > 0 && rem < ttl {
		ttl = rem
	}
	_ = c.client.Set(ctx, sessionKey(s.ID), data, ttl)
}

func (c *SessionCache) Invalidate(ctx context.Context, token string) {
	_ = c.client.Del(ctx, sessionKey(token))
}
