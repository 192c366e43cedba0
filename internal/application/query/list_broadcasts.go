// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST BROADCASTS QUERY
// Returns the append-only audit trail of an event's broadcasts, newest first.
// Organizers use it to see what was sent, to how many people, and how many
// deliveries the gateway rejected.
// ══════════════════════════════════════════════════════════════════════════════

// ListBroadcastsQuery contains the query parameters.
type ListBroadcastsQuery struct {
	// EventID - the event whose audit trail to read. Required.
	EventID string

	// Limit caps the number of entries returned. Zero means no cap.
	Limit int
}

// Validate checks the query parameters.
func (q *ListBroadcastsQuery) Validate() error {
	if q.EventID == "" {
		return shared.ErrEventIDRequired
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return nil
}

// BroadcastDTO is one audit entry as returned to the caller.
type BroadcastDTO struct {
	// ID - log entry identifier.
	ID string `json:"id"`

	// EventID and EventName identify the target event.
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`

	// Kind - which fan-out flavor ran.
	Kind string `json:"kind"`

	// SenderID and SenderName - the organizer who triggered it, if known.
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`

	// MessageBody - the body text that was sent.
	MessageBody string `json:"messageBody"`

	// RecipientCount - how many recipients the broadcast attempted.
	RecipientCount int `json:"recipientCount"`

	// SentCount and FailureCount mirror the summary the invocation returned.
	SentCount    int `json:"sentCount"`
	FailureCount int `json:"failureCount"`

	// CreatedAt - when the broadcast ran.
	CreatedAt time.Time `json:"createdAt"`
}

// ListBroadcastsResult contains the query result.
type ListBroadcastsResult struct {
	// Broadcasts - the entries, newest first.
	Broadcasts []BroadcastDTO `json:"broadcasts"`

	// Total - number of entries returned.
	Total int `json:"total"`
}

// ListBroadcastsHandler handles audit trail queries.
type ListBroadcastsHandler struct {
	log broadcast.Log
}

// NewListBroadcastsHandler creates a new handler.
func NewListBroadcastsHandler(log broadcast.Log) *ListBroadcastsHandler {
	return &ListBroadcastsHandler{log: log}
}

// Handle executes the query.
func (h *ListBroadcastsHandler) Handle(ctx context.Context, q ListBroadcastsQuery) (*ListBroadcastsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	entries, err := h.log.ListByEvent(ctx, q.EventID)
	if err != nil {
		return nil, shared.WrapError("query", "ListBroadcasts", shared.ErrStorageRead,
			"reading broadcast log", err)
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	dtos := make([]BroadcastDTO, len(entries))
	for i, e := range entries {
		dtos[i] = BroadcastDTO{
			ID:             e.ID,
			EventID:        e.EventID,
			EventName:      e.EventName,
			Kind:           e.Kind.String(),
			SenderID:       e.SenderID,
			SenderName:     e.SenderName,
			MessageBody:    e.MessageBody,
			RecipientCount: e.RecipientCount,
			SentCount:      e.SentCount,
			FailureCount:   e.FailureCount,
			CreatedAt:      e.CreatedAt,
		}
	}

	return &ListBroadcastsResult{Broadcasts: dtos, Total: len(dtos)}, nil
}
