package middleware

// Responses are cached in process. golang-lru evicts the least recently used
// entry once the cache is full.

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

type cachedResponse struct {
	resp    interface{}
	expires time.Time
}

// ResponseCache caches successful unary responses keyed by method and request.
type ResponseCache struct {
	lru *lru.Cache
	ttl time.Duration
	// methods that are never cached, by full method name
	skip map[string]bool
	now  func() time.Time
}

// NewResponseCache creates a cache of size entries. Entries older than ttl are
// treated as misses; a zero ttl keeps them until evicted.
func NewResponseCache(size int, ttl time.Duration, uncached ...string) (*ResponseCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(uncached))
	for _, m := range uncached {
		skip[m] = true
	}
	return &ResponseCache{lru: c, ttl: ttl, skip: skip, now: time.Now}, nil
}

// Interceptor returns the caching middleware. Errors are never cached.
func (c *ResponseCache) Interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if c.skip[info.FullMethod] {
			return handler(ctx, req)
		}

		key, ok := generateCacheKey(info.FullMethod, req)
		if !ok {
			return handler(ctx, req)
		}

		if v, hit := c.lru.Get(key); hit {
			entry := v.(cachedResponse)
			if c.ttl == 0 || c.now().Before(entry.expires) {
				return entry.resp, nil
			}
			c.lru.Remove(key)
		}

		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}

		c.lru.Add(key, cachedResponse{resp: resp, expires: c.now().Add(c.ttl)})
		return resp, nil
	}
}

// Purge drops every cached response.
func (c *ResponseCache) Purge() {
	c.lru.Purge()
}

// generateCacheKey serialises proto requests deterministically. Requests that
// are not proto messages fall back to their %v form.
func generateCacheKey(method string, req interface{}) (string, bool) {
	if m, ok := req.(proto.Message); ok {
		b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("%s:%x", method, b), true
	}
	return fmt.Sprintf("%s:%v", method, req), true
}
