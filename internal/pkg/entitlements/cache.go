package entitlements

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/cache"
)

const (
	cacheKeyPrefix  = "entitlement:"
	defaultCacheTTL = 5 * time.Minute
)

// CachedResolver wraps a Resolver with a Redis cache keyed on the account id
// and version. Any write to the account bumps the version, so stale entries
// simply stop being addressed and age out with the TTL.
type CachedResolver struct {
	inner *Resolver
	ttl   time.Duration
}

// NewCachedResolver creates a cached resolver with the default TTL.
func NewCachedResolver(inner *Resolver) *CachedResolver {
	return &CachedResolver{inner: inner, ttl: defaultCacheTTL}
}

// Resolve returns the cached entitlement when present, otherwise resolves and
// caches. Cache failures degrade to a plain resolve, never to an error.
func (c *CachedResolver) Resolve(account *models.Account, now time.Time) (EffectiveEntitlement, error) {
	key := cacheKey(account.ID, account.Version)

	if raw, err := cache.Get(key); err == nil {
		var ent EffectiveEntitlement
		if err := json.Unmarshal([]byte(raw), &ent); err == nil {
			return ent, nil
		}
		log.Warnf("[Entitlements] Dropping undecodable cache entry %s", key)
	}

	ent, err := c.inner.Resolve(account, now)
	if err != nil {
		return EffectiveEntitlement{}, err
	}

	if raw, err := json.Marshal(ent); err == nil {
		if err := cache.Set(key, raw, c.ttl); err != nil {
			log.Warnf("[Entitlements] Failed to cache entitlement for account %d: %v", account.ID, err)
		}
	}
	return ent, nil
}

func cacheKey(accountID uint, version int) string {
	return fmt.Sprintf("%s%d:%d", cacheKeyPrefix, accountID, version)
}
