// Package event contains the event aggregate as seen by the notification
// subsystem. Events are created and mutated by the event-management workflow;
// this subsystem only reads them, so the entity here is deliberately thin.
package event

import (
	"context"
	"time"

	"github.com/fairchance/notification-service/pkg/timeutil"
)

// ID identifies an event.
type ID string

// IsValid checks that the ID is not empty.
func (id ID) IsValid() bool {
	return len(id) > 0
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// Event is the read-only event metadata used to compose notifications.
type Event struct {
	// ID - unique event identifier.
	ID ID

	// Name - organizer-facing display name.
	Name string

	// Date - scheduled event date. Nil while the organizer has not
	// confirmed one; that is a valid state, not an error.
	Date *time.Time

	// CreatedAt - when the event was created.
	CreatedAt time.Time
}

// DisplayName returns the event name, falling back to a generic label for
// events saved without one.
func (e *Event) DisplayName() string {
	if e.Name == "" {
		return "Event"
	}
	return e.Name
}

// FormattedDate returns the event date rendered for notification text.
func (e *Event) FormattedDate() string {
	return timeutil.FormatEventDate(e.Date)
}

// Reader loads event metadata from the document store.
type Reader interface {
	// FindByID returns the event, or shared.ErrEventNotFound if it does
	// not exist.
	FindByID(ctx context.Context, id ID) (*Event, error)
}
