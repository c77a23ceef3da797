package token

import (
	"sync"
	"time"
)

// RevokedTokenCache remembers signed-out token ids until their natural expiry.
type RevokedTokenCache interface {
	Add(jti string, exp time.Time)
	IsRevoked(jti string) bool
}

type InMemoryRevokedTokenCache struct {
	revoked map[string]time.Time
	mu      sync.Mutex
	nowTime func() time.Time
}

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{
		revoked: make(map[string]time.Time),
		nowTime: time.Now,
	}
}

func (c *InMemoryRevokedTokenCache) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup()
	c.revoked[jti] = exp
}

func (c *InMemoryRevokedTokenCache) IsRevoked(jti string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.revoked[jti]
	return exists
}

// cleanup drops entries whose token would be rejected as expired anyway. Caller holds mu.
func (c *InMemoryRevokedTokenCache) cleanup() {
	now := c.nowTime()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
