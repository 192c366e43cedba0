// Package fanout contains the notification fan-out use case: recipient-set
// selection, preference and token resolution, the single multicast dispatch,
// and the atomic status reconciliation.
package fanout

import (
	"context"
	"time"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTBOUND PORTS
// ══════════════════════════════════════════════════════════════════════════════

// PushResult is the gateway's per-call accounting. Some tokens may be stale;
// the gateway reports those as failures and this subsystem passes the counts
// through unmodified. Stale-token pruning is the gateway's responsibility.
type PushResult struct {
	// SuccessCount - deliveries the gateway accepted.
	SuccessCount int

	// FailureCount - individual tokens the gateway rejected.
	FailureCount int
}

// Pusher sends one multicast push per call. Implementations must never be
// invoked with an empty token list; the orchestrator skips the call instead.
type Pusher interface {
	// SendMulticast delivers the message to every token in one gateway
	// call. A returned error means the call itself failed (wrapped as
	// shared.ErrGatewayFailure); per-token failures come back in the
	// result instead.
	SendMulticast(ctx context.Context, msg broadcast.Message, tokens []string) (PushResult, error)
}

// ReconcileBatch is the unit of work the reconciliation write commits
// atomically: the one-way status transition plus audit stamps for every
// attempted recipient, and the broadcast's append-only log entry. Either
// all of it lands or none of it does - the next invocation reads record
// status as its sole duplicate-suppression signal, so a partially-applied
// batch would be a correctness bug, not a degraded state.
type ReconcileBatch struct {
	// EventID and Group scope the records being transitioned.
	EventID string
	Group   entrant.Group

	// EntrantIDs - every attempted recipient, including those counted as
	// sent without a delivery token. Recipients skipped by opt-out are
	// excluded entirely so a future preference change can still reach
	// them.
	EntrantIDs []entrant.ID

	// NotifiedAt - server timestamp stamped onto each record.
	NotifiedAt time.Time

	// Denormalized display fields written onto each record.
	EventName    string
	EventDate    string
	Instructions string

	// Log - the audit entry appended in the same transaction.
	Log *broadcast.LogEntry
}

// Reconciler commits a ReconcileBatch as one atomic multi-document write.
type Reconciler interface {
	// Commit applies the batch all-or-nothing. Failures are wrapped as
	// shared.ErrStorageWrite and leave persisted state unchanged.
	Commit(ctx context.Context, batch ReconcileBatch) error
}

// Recorder receives fan-out outcome counts for metrics. Implementations
// must be safe for concurrent use.
type Recorder interface {
	RecordBroadcast(kind broadcast.Kind, sent, failed, skipped int)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

// RecordBroadcast implements Recorder.
func (NopRecorder) RecordBroadcast(broadcast.Kind, int, int, int) {}
