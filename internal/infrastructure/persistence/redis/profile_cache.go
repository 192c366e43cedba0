package redis

import (
	"context"

	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// cachedProfile is the cache payload. Found distinguishes "no profile
// stored" (which is cached too, so repeated fan-outs to profileless
// entrants skip the store) from an ordinary cache miss.
type cachedProfile struct {
	Found   bool          `json:"found"`
	Profile *user.Profile `json:"profile,omitempty"`
}

// CachedProfileRepository wraps a user.Repository with a read-through Redis
// cache and implements user.Cache for invalidation. Cache errors are never
// surfaced; the source repository is the fallback on every failure.
type CachedProfileRepository struct {
	source user.Repository
	cache  *Cache
}

// NewCachedProfileRepository creates a new CachedProfileRepository.
func NewCachedProfileRepository(source user.Repository, cache *Cache) *CachedProfileRepository {
	return &CachedProfileRepository{source: source, cache: cache}
}

// FindByEntrantID returns the profile, consulting the cache first.
func (r *CachedProfileRepository) FindByEntrantID(ctx context.Context, id entrant.ID) (*user.Profile, error) {
	key := ProfileKey(id.String())

	var cached cachedProfile
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		if !cached.Found {
			return nil, nil
		}
		return cached.Profile, nil
	}

	profile, err := r.source.FindByEntrantID(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, cachedProfile{Found: profile != nil, Profile: profile}, TTLProfileCache)

	return profile, nil
}

// Invalidate drops the cached profile after a write. Best effort; the TTL
// bounds staleness when Redis is unreachable.
func (r *CachedProfileRepository) Invalidate(ctx context.Context, id entrant.ID) error {
	return r.cache.Delete(ctx, ProfileKey(id.String()))
}
