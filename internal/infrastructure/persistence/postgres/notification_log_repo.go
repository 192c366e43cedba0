package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairchance/notification-service/internal/application/fanout"
	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION LOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationLogRepository implements broadcast.Log and fanout.Reconciler
// for PostgreSQL. Commit is the one place the fan-out pipeline writes: the
// recipient status transitions and the audit entry land in one transaction,
// so a crash or error can never leave records notified without a log entry
// or vice versa.
type NotificationLogRepository struct {
	conn *Connection
}

// NewNotificationLogRepository creates a new NotificationLogRepository.
func NewNotificationLogRepository(conn *Connection) *NotificationLogRepository {
	return &NotificationLogRepository{conn: conn}
}

// Commit applies the reconciliation batch all-or-nothing.
func (r *NotificationLogRepository) Commit(ctx context.Context, batch fanout.ReconcileBatch) error {
	entrantIDs := make([]string, len(batch.EntrantIDs))
	for i, id := range batch.EntrantIDs {
		entrantIDs[i] = id.String()
	}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		// The status column only exists on the selected group; the update
		// still refuses to touch rows another invocation already
		// transitioned, so concurrent fan-outs cannot regress a record.
		updateQuery := `
			UPDATE event_recipients SET
				status = CASE WHEN group_name = 'selected' THEN 'notified' ELSE status END,
				notified_at = $1,
				event_name = $2,
				event_date_text = $3,
				instructions = $4
			WHERE event_id = $5
			  AND group_name = $6
			  AND entrant_id = ANY($7)
			  AND (group_name <> 'selected' OR status <> 'notified')
		`
		if _, err := tx.Exec(ctx, updateQuery,
			batch.NotifiedAt,
			batch.EventName,
			batch.EventDate,
			batch.Instructions,
			batch.EventID,
			batch.Group.String(),
			entrantIDs,
		); err != nil {
			return fmt.Errorf("transitioning recipient records: %w", err)
		}

		if batch.Log == nil {
			return nil
		}

		insertQuery := `
			INSERT INTO notification_logs (
				id, event_id, event_name, kind, sender_id, sender_name,
				message_body, recipient_ids, recipient_count,
				sent_count, failure_count, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := tx.Exec(ctx, insertQuery,
			batch.Log.ID,
			batch.Log.EventID,
			batch.Log.EventName,
			batch.Log.Kind.String(),
			batch.Log.SenderID,
			batch.Log.SenderName,
			batch.Log.MessageBody,
			entrantIDs,
			batch.Log.RecipientCount,
			batch.Log.SentCount,
			batch.Log.FailureCount,
			batch.Log.CreatedAt,
		); err != nil {
			return fmt.Errorf("appending notification log: %w", err)
		}

		return nil
	})
	if err != nil {
		return shared.WrapError("postgres", "Reconcile", shared.ErrStorageWrite,
			fmt.Sprintf("committing reconciliation batch for event %s", batch.EventID), err)
	}

	return nil
}

// ListByEvent returns the event's log entries, newest first.
func (r *NotificationLogRepository) ListByEvent(ctx context.Context, eventID string) ([]*broadcast.LogEntry, error) {
	query := `
		SELECT id, event_id, event_name, kind, sender_id, sender_name,
		       message_body, recipient_ids, recipient_count,
		       sent_count, failure_count, created_at
		FROM notification_logs
		WHERE event_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, eventID)
	if err != nil {
		return nil, shared.WrapError("postgres", "ListNotificationLogs", shared.ErrStorageRead,
			fmt.Sprintf("listing logs for event %s", eventID), err)
	}
	defer rows.Close()

	var entries []*broadcast.LogEntry
	for rows.Next() {
		var (
			entry        broadcast.LogEntry
			recipientIDs []string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.EventName,
			&entry.Kind,
			&entry.SenderID,
			&entry.SenderName,
			&entry.MessageBody,
			&recipientIDs,
			&entry.RecipientCount,
			&entry.SentCount,
			&entry.FailureCount,
			&entry.CreatedAt,
		); err != nil {
			return nil, shared.WrapError("postgres", "ListNotificationLogs", shared.ErrStorageRead,
				"scanning log row", err)
		}

		entry.RecipientIDs = make([]entrant.ID, len(recipientIDs))
		for i, id := range recipientIDs {
			entry.RecipientIDs[i] = entrant.ID(id)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
