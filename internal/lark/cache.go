package lark

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// expiryMargin keeps a cached token from being handed out right before the
// platform stops accepting it.
const expiryMargin = time.Minute

// TokenCache holds access tokens for at most TTL, and never past the expiry
// the platform reported for them.
type TokenCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewTokenCache creates a token cache. A ttl <= 0 returns nil, which the
// client treats as caching disabled.
func NewTokenCache(ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		return nil
	}
	return &TokenCache{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (t *TokenCache) Get(key string) (string, bool) {
	v, found := t.cache.Get(key)
	if !found {
		return "", false
	}
	return v.(string), true
}

// Set stores token. platformExpire is the lifetime reported by the auth
// endpoint; zero means unknown and the cache TTL applies alone.
func (t *TokenCache) Set(key, token string, platformExpire time.Duration) {
	d := t.ttl
	if platformExpire > 0 {
		if limit := platformExpire - expiryMargin; limit < d {
			d = limit
		}
	}
	if d <= 0 {
		return
	}
	t.cache.Set(key, token, d)
}

// Forget removes every entry holding token.
func (t *TokenCache) Forget(token string) {
	for key, item := range t.cache.Items() {
		if v, ok := item.Object.(string); ok && v == token {
			t.cache.Delete(key)
		}
	}
}
