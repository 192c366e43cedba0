// Package user contains the slice of the user profile this subsystem touches:
// the push delivery token and the notification opt-out flags. Profiles are
// owned by the account workflow; this subsystem only reads and writes these
// two fields.
package user

import (
	"context"

	"github.com/fairchance/notification-service/internal/domain/entrant"
)

// Profile is the notification-relevant view of a user.
type Profile struct {
	// EntrantID - the user's identity, shared with recipient records.
	EntrantID entrant.ID

	// DeliveryToken - opaque push delivery address for the user's current
	// device. Empty means no device is registered; that is a valid state,
	// not an error.
	DeliveryToken string

	// Preferences - explicit opt-out flags. Absent keys default to
	// allowed.
	Preferences Preferences
}

// HasDeliveryToken reports whether the user has a registered device.
func (p *Profile) HasDeliveryToken() bool {
	return p != nil && p.DeliveryToken != ""
}

// Repository reads user profiles from the document store. A missing profile
// is returned as (nil, nil): an entrant without a stored profile is treated
// as all-preferences-allowed with no delivery token.
type Repository interface {
	FindByEntrantID(ctx context.Context, id entrant.ID) (*Profile, error)
}
