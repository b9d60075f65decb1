package cache

import (
	"context"
	"time"
)

// FeedCache stores rendered feed documents keyed by request.
type FeedCache interface {
	GetFeed(ctx context.Context, key string) (string, bool, error)
	SetFeed(ctx context.Context, key, content string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
