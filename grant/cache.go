package grant

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// FetchFunc obtains a fresh AccessToken
type FetchFunc func(ctx context.Context) (AccessToken, error)

// Cache holds at most one AccessToken.
// Check, fetch and store run under one lock, so concurrent misses
// result in a single fetch.
type Cache struct {
	// fetching serializes GetOrFetch; a one-slot semaphore so waiters can honor ctx
	fetching chan struct{}

	// guards token
	mu    sync.RWMutex
	token *AccessToken
}

// NewCache returns an empty Cache
func NewCache() *Cache {
	return &Cache{
		fetching: make(chan struct{}, 1),
	}
}

// GetOrFetch returns a copy of the cached token if the current time is before its expiry,
// otherwise calls fetch and replaces the cached token with the result.
// now is read once the lock is held, and again after the fetch.
// On fetch failure the slot is left unchanged and the error is returned as is.
func (c *Cache) GetOrFetch(ctx context.Context, now func() time.Time, fetch FetchFunc) (AccessToken, error) {
	select {
	case c.fetching <- struct{}{}:
	case <-ctx.Done():
		return AccessToken{}, newError(KindTransport, errors.WithMessage(ctx.Err(), "waiting for token fetch"))
	}
	defer func() { <-c.fetching }()

	if tok, ok := c.Current(); ok && !tok.ExpiredAt(now()) {
		logger.KV(xlog.TRACE, "status", "cache_hit", "expires", tok.Expires)
		return tok, nil
	}

	tok, err := fetch(ctx)
	if err != nil {
		return AccessToken{}, err
	}

	if tok.ExpiredAt(now()) {
		logger.KV(xlog.WARNING, "reason", "expired_on_arrival", "expires", tok.Expires)
		return tok, nil
	}

	c.mu.Lock()
	c.token = &tok
	c.mu.Unlock()

	return tok, nil
}

// Current returns the cached token, expired or not, without fetching
func (c *Cache) Current() (AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return AccessToken{}, false
	}
	return *c.token, true
}
