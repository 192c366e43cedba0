package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECIPIENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RecipientRepository implements entrant.Repository for PostgreSQL.
type RecipientRepository struct {
	conn *Connection
}

// NewRecipientRepository creates a new RecipientRepository.
func NewRecipientRepository(conn *Connection) *RecipientRepository {
	return &RecipientRepository{conn: conn}
}

const recipientColumns = `
	event_id, group_name, entrant_id, status,
	notified_at, event_name, event_date_text, instructions
`

// ListGroup returns every record in the named group for the event.
func (r *RecipientRepository) ListGroup(ctx context.Context, eventID string, group entrant.Group) ([]*entrant.Record, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM event_recipients
		WHERE event_id = $1 AND group_name = $2
		ORDER BY entrant_id
	`

	rows, err := r.conn.Query(ctx, query, eventID, group.String())
	if err != nil {
		return nil, shared.WrapError("postgres", "ListRecipients", shared.ErrStorageRead,
			fmt.Sprintf("listing %s recipients for event %s", group, eventID), err)
	}
	defer rows.Close()

	var records []*entrant.Record
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, shared.WrapError("postgres", "ListRecipients", shared.ErrStorageRead,
				"scanning recipient row", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Find returns one record, or shared.ErrEntrantNotFound.
func (r *RecipientRepository) Find(ctx context.Context, eventID string, group entrant.Group, entrantID entrant.ID) (*entrant.Record, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM event_recipients
		WHERE event_id = $1 AND group_name = $2 AND entrant_id = $3
	`

	rec, err := scanRecipient(r.conn.QueryRow(ctx, query, eventID, group.String(), entrantID.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEntrantNotFound
		}
		return nil, shared.WrapError("postgres", "FindRecipient", shared.ErrStorageRead,
			fmt.Sprintf("reading recipient %s for event %s", entrantID, eventID), err)
	}

	return rec, nil
}

// scanRecipient scans one recipient row. Works for both pgx.Row and pgx.Rows.
func scanRecipient(row pgx.Row) (*entrant.Record, error) {
	var rec entrant.Record
	err := row.Scan(
		&rec.EventID,
		&rec.Group,
		&rec.EntrantID,
		&rec.Status,
		&rec.NotifiedAt,
		&rec.EventName,
		&rec.EventDate,
		&rec.Instructions,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
