package user

import (
	"context"

	"github.com/fairchance/notification-service/internal/domain/entrant"
)

// Writer updates the profile fields the mobile client owns: the opt-out
// flags from the settings screen and the device's delivery token. Both are
// upserts; a profile row is created on first write.
type Writer interface {
	// SavePreferences replaces the stored opt-out flags.
	SavePreferences(ctx context.Context, id entrant.ID, prefs Preferences) error

	// SaveDeliveryToken replaces the stored delivery token. An empty token
	// unregisters the device.
	SaveDeliveryToken(ctx context.Context, id entrant.ID, token string) error
}

// Cache invalidates cached profiles after a write. Implementations treat
// invalidation as best effort; the cache carries a TTL as a backstop.
type Cache interface {
	Invalidate(ctx context.Context, id entrant.ID) error
}
