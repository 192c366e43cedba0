package broadcast

import (
	"context"
	"time"

	"github.com/fairchance/notification-service/internal/domain/entrant"
)

// LogEntry is one append-only audit record per broadcast. Entries are never
// updated after creation; re-running a broadcast appends a new entry.
type LogEntry struct {
	// ID - unique log entry identifier (UUID).
	ID string

	// EventID and EventName identify the event the broadcast targeted.
	EventID   string
	EventName string

	// Kind - which fan-out flavor was run.
	Kind Kind

	// SenderID and SenderName identify the organizer who triggered the
	// broadcast, when the invocation surface knows them.
	SenderID   string
	SenderName string

	// MessageBody - the composed (or overridden) body text that was sent.
	MessageBody string

	// RecipientIDs - every entrant the broadcast attempted.
	RecipientIDs []entrant.ID

	// RecipientCount - len(RecipientIDs), denormalized for list views.
	RecipientCount int

	// SentCount and FailureCount mirror the summary returned to the caller.
	SentCount    int
	FailureCount int

	// CreatedAt - when the broadcast ran.
	CreatedAt time.Time
}

// Log reads the append-only broadcast audit trail. Writes happen through
// the reconciliation batch so they commit atomically with the status
// transitions.
type Log interface {
	// ListByEvent returns the event's log entries, newest first.
	ListByEvent(ctx context.Context, eventID string) ([]*LogEntry, error)
}
