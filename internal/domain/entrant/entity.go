// Package entrant contains recipient records: per-event, per-group entries
// tracking which entrants a broadcast reaches and whether the "selected"
// group has been notified. Records are created by the selection workflow
// (out of scope here) and mutated only by the reconciliation write.
package entrant

import (
	"time"

	"github.com/fairchance/notification-service/internal/domain/shared"
)

// ID identifies an entrant. Every recipient record carries this field
// explicitly; it is populated at record-creation time and is never derived
// from the document identifier.
type ID string

// IsValid checks that the ID is not empty.
func (id ID) IsValid() bool {
	return len(id) > 0
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// Group names a subset of an event's entrants with group-specific
// eligibility rules.
type Group string

const (
	// GroupSelected holds entrants chosen by the lottery. Only this group
	// carries a notification status; it is the duplicate-suppression
	// signal for selection-result fan-outs.
	GroupSelected Group = "selected"

	// GroupWaitingList holds entrants still waiting. Broadcasts to this
	// group are unconditional.
	GroupWaitingList Group = "waitingList"

	// GroupCancelled holds entrants whose entry was cancelled. Broadcasts
	// to this group are unconditional.
	GroupCancelled Group = "cancelled"
)

// IsValid checks that the group is one of the known names.
func (g Group) IsValid() bool {
	switch g {
	case GroupSelected, GroupWaitingList, GroupCancelled:
		return true
	default:
		return false
	}
}

// HasStatus reports whether records in this group carry a notification
// status. Only the selected group does; the other groups are always
// eligible for broadcast.
func (g Group) HasStatus() bool {
	return g == GroupSelected
}

// String returns the string representation of the group.
func (g Group) String() string {
	return string(g)
}

// Status is the notification state of a selected-group record.
type Status string

const (
	// StatusPending - the entrant was chosen but not yet notified.
	StatusPending Status = "pending"

	// StatusSelected - legacy initial state written by earlier selection
	// runs; treated the same as pending for eligibility.
	StatusSelected Status = "selected"

	// StatusNotified - a notification attempt covered this record. Final:
	// there is no transition out of this state.
	StatusNotified Status = "notified"
)

// IsValid checks that the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSelected, StatusNotified:
		return true
	default:
		return false
	}
}

// Eligible reports whether a selected-group record in this status may still
// be included in a selection-result fan-out.
func (s Status) Eligible() bool {
	return s == StatusPending || s == StatusSelected
}

// Record is one recipient entry, scoped to an event and a group.
type Record struct {
	// EventID - the event this record belongs to.
	EventID string

	// Group - which recipient group the record is in.
	Group Group

	// EntrantID - the entrant this record addresses. Required.
	EntrantID ID

	// Status - notification state. Meaningful only for GroupSelected;
	// empty for the other groups.
	Status Status

	// Audit fields, written only by the reconciliation write.
	NotifiedAt   *time.Time
	EventName    string
	EventDate    string
	Instructions string
}

// EligibleFor reports whether this record belongs in the attempted set for
// a broadcast to its group. Non-status groups are always eligible; the
// selected group is eligible only while pending or selected.
func (r *Record) EligibleFor() bool {
	if !r.Group.HasStatus() {
		return true
	}
	return r.Status.Eligible()
}

// MarkNotified applies the one-way status transition and stamps the audit
// fields. It is the only mutation this subsystem performs on a record.
// Calling it on an already-notified record is rejected; callers filter
// those out during recipient-set selection, so hitting this is a bug.
func (r *Record) MarkNotified(at time.Time, eventName, eventDate, instructions string) error {
	if r.Group.HasStatus() {
		if r.Status == StatusNotified {
			return shared.NewDomainError("entrant", "MarkNotified", shared.ErrStateTransition,
				"record already notified")
		}
		r.Status = StatusNotified
	}
	t := at
	r.NotifiedAt = &t
	r.EventName = eventName
	r.EventDate = eventDate
	r.Instructions = instructions
	return nil
}
