package user

import "github.com/fairchance/notification-service/internal/domain/broadcast"

// Preference flag keys as stored on the profile document.
const (
	// PrefLotteryResults gates selection-result notifications.
	PrefLotteryResults = "lotteryResults"

	// PrefOrganizerUpdates gates organizer broadcasts (waiting list and
	// cancellation updates) and, together with PrefLotteryResults, the
	// selection results.
	PrefOrganizerUpdates = "organizerUpdates"
)

// Preferences holds the user's explicit opt-out flags. A key that was never
// written is "allowed": opting out always requires an explicit false.
type Preferences map[string]bool

// explicitlyFalse reports whether the flag was written and set to false.
func (p Preferences) explicitlyFalse(key string) bool {
	if p == nil {
		return false
	}
	v, ok := p[key]
	return ok && !v
}

// Allows is the single opt-out predicate for all broadcast kinds.
//
// Selection results are suppressed only when BOTH flags are explicitly
// false - a user who kept either one on still wants to hear whether they
// won. Organizer broadcasts are suppressed by organizerUpdates alone.
// A nil map (no profile, or no flags ever written) allows everything.
func (p Preferences) Allows(kind broadcast.Kind) bool {
	switch kind {
	case broadcast.KindSelectionResult:
		return !(p.explicitlyFalse(PrefLotteryResults) && p.explicitlyFalse(PrefOrganizerUpdates))
	default:
		return !p.explicitlyFalse(PrefOrganizerUpdates)
	}
}

// Allows on a nil *Profile is the "no profile stored" case: everything is
// permitted and there is no delivery token.
func (p *Profile) Allows(kind broadcast.Kind) bool {
	if p == nil {
		return true
	}
	return p.Preferences.Allows(kind)
}
