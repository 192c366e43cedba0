package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fairchance/notification-service/internal/domain/event"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements event.Reader for PostgreSQL. Events are written
// by the event-management workflow; this repository only reads.
type EventRepository struct {
	conn *Connection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

// FindByID returns the event, or shared.ErrEventNotFound.
func (r *EventRepository) FindByID(ctx context.Context, id event.ID) (*event.Event, error) {
	query := `
		SELECT id, name, event_date, created_at
		FROM events
		WHERE id = $1
	`

	var (
		ev        event.Event
		date      *time.Time
		createdAt time.Time
	)
	err := r.conn.QueryRow(ctx, query, id.String()).Scan(&ev.ID, &ev.Name, &date, &createdAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEventNotFound
		}
		return nil, shared.WrapError("postgres", "FindEvent", shared.ErrStorageRead,
			fmt.Sprintf("reading event %s", id), err)
	}

	ev.Date = date
	ev.CreatedAt = createdAt
	return &ev, nil
}
