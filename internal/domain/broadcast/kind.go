// Package broadcast contains the fan-out value objects: broadcast kinds,
// composed messages, dispatch summaries, and the append-only audit log.
package broadcast

import (
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

// Kind identifies one of the three fan-out flavors.
type Kind string

const (
	// KindSelectionResult notifies selected-group entrants of their
	// lottery result. Duplicate-guarded by the record status.
	KindSelectionResult Kind = "selectionResult"

	// KindWaitingListUpdate broadcasts an organizer update to the whole
	// waiting list. Not duplicate-guarded; every run is a new broadcast.
	KindWaitingListUpdate Kind = "waitingListUpdate"

	// KindCancellationUpdate broadcasts an organizer update to cancelled
	// entrants. Not duplicate-guarded.
	KindCancellationUpdate Kind = "cancellationUpdate"
)

// IsValid checks that the kind is one of the known fan-out flavors.
func (k Kind) IsValid() bool {
	switch k {
	case KindSelectionResult, KindWaitingListUpdate, KindCancellationUpdate:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// TargetGroup returns the recipient group a broadcast of this kind targets.
func (k Kind) TargetGroup() entrant.Group {
	switch k {
	case KindSelectionResult:
		return entrant.GroupSelected
	case KindWaitingListUpdate:
		return entrant.GroupWaitingList
	case KindCancellationUpdate:
		return entrant.GroupCancelled
	default:
		return ""
	}
}

// StatusGated reports whether recipient-set selection filters by record
// status. Only selection results are gated; the other kinds target their
// whole group unconditionally.
func (k Kind) StatusGated() bool {
	return k == KindSelectionResult
}

// ParseKind converts a wire string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", shared.NewDomainError("broadcast", "ParseKind", shared.ErrInvalidArgument,
			"unknown broadcast kind "+s)
	}
	return k, nil
}

// Summary is what every fan-out invocation returns to the caller: how many
// sends were attempted successfully and how many individual deliveries the
// gateway reported as failed. Recipients skipped by opt-out appear in
// neither count.
type Summary struct {
	SentCount    int `json:"sentCount"`
	FailureCount int `json:"failureCount"`
}

// Attempted returns the number of recipients the invocation attempted.
func (s Summary) Attempted() int {
	return s.SentCount + s.FailureCount
}
