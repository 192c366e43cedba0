package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_notification_schema",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: NOTIFICATION SCHEMA
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create notification schema
-- Version: 001

-- Events as seen by the notification subsystem. Rows are written by the
-- event-management workflow; this service only reads them.
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    event_date TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Recipient records, one per entrant per group per event. The status column
-- is meaningful only for the 'selected' group; it is the sole
-- duplicate-suppression signal for selection-result fan-outs.
CREATE TABLE IF NOT EXISTS event_recipients (
    event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    group_name VARCHAR(20) NOT NULL,
    entrant_id TEXT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT '',
    notified_at TIMESTAMP WITH TIME ZONE,
    event_name TEXT NOT NULL DEFAULT '',
    event_date_text TEXT NOT NULL DEFAULT '',
    instructions TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (event_id, group_name, entrant_id),
    CONSTRAINT valid_group CHECK (group_name IN ('selected', 'waitingList', 'cancelled')),
    CONSTRAINT valid_status CHECK (status IN ('', 'pending', 'selected', 'notified'))
);

CREATE INDEX IF NOT EXISTS idx_recipients_event_group
    ON event_recipients(event_id, group_name);

-- The notification-relevant slice of a user profile: delivery token and
-- explicit opt-out flags. Absent flags mean "allowed".
CREATE TABLE IF NOT EXISTS user_profiles (
    entrant_id TEXT PRIMARY KEY,
    delivery_token TEXT NOT NULL DEFAULT '',
    preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Append-only broadcast audit trail. Rows are inserted in the same
-- transaction as the recipient status transitions and never updated.
CREATE TABLE IF NOT EXISTS notification_logs (
    id UUID PRIMARY KEY,
    event_id TEXT NOT NULL,
    event_name TEXT NOT NULL DEFAULT '',
    kind VARCHAR(30) NOT NULL,
    sender_id TEXT NOT NULL DEFAULT '',
    sender_name TEXT NOT NULL DEFAULT '',
    message_body TEXT NOT NULL DEFAULT '',
    recipient_ids TEXT[] NOT NULL DEFAULT '{}',
    recipient_count INTEGER NOT NULL DEFAULT 0,
    sent_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('selectionResult', 'waitingListUpdate', 'cancellationUpdate'))
);

CREATE INDEX IF NOT EXISTS idx_notification_logs_event
    ON notification_logs(event_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS notification_logs;
DROP TABLE IF EXISTS user_profiles;
DROP TABLE IF EXISTS event_recipients;
DROP TABLE IF EXISTS events;
`
