package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

type fakeBroadcastLog struct {
	entries []*broadcast.LogEntry
	err     error
}

func (f *fakeBroadcastLog) ListByEvent(_ context.Context, _ string) ([]*broadcast.LogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func logEntry(id string, createdAt time.Time) *broadcast.LogEntry {
	return &broadcast.LogEntry{
		ID:             id,
		EventID:        "ev1",
		EventName:      "Summer Lottery",
		Kind:           broadcast.KindSelectionResult,
		SenderID:       "org1",
		SenderName:     "Organizer",
		MessageBody:    "Congratulations!",
		RecipientIDs:   []entrant.ID{"e1", "e2"},
		RecipientCount: 2,
		SentCount:      2,
		CreatedAt:      createdAt,
	}
}

func TestListBroadcasts(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeBroadcastLog{entries: []*broadcast.LogEntry{
		logEntry("b2", now),
		logEntry("b1", now.Add(-time.Hour)),
	}}
	h := NewListBroadcastsHandler(log)

	result, err := h.Handle(context.Background(), ListBroadcastsQuery{EventID: "ev1"})
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	first := result.Broadcasts[0]
	assert.Equal(t, "b2", first.ID)
	assert.Equal(t, "Summer Lottery", first.EventName)
	assert.Equal(t, "selectionResult", first.Kind)
	assert.Equal(t, "Organizer", first.SenderName)
	assert.Equal(t, 2, first.RecipientCount)
	assert.Equal(t, 2, first.SentCount)
}

func TestListBroadcasts_Limit(t *testing.T) {
	now := time.Now().UTC()
	log := &fakeBroadcastLog{entries: []*broadcast.LogEntry{
		logEntry("b3", now),
		logEntry("b2", now.Add(-time.Hour)),
		logEntry("b1", now.Add(-2*time.Hour)),
	}}
	h := NewListBroadcastsHandler(log)

	result, err := h.Handle(context.Background(), ListBroadcastsQuery{EventID: "ev1", Limit: 2})
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	assert.Equal(t, "b3", result.Broadcasts[0].ID)
	assert.Equal(t, "b2", result.Broadcasts[1].ID)
}

func TestListBroadcasts_RequiresEventID(t *testing.T) {
	h := NewListBroadcastsHandler(&fakeBroadcastLog{})

	_, err := h.Handle(context.Background(), ListBroadcastsQuery{})
	assert.True(t, shared.IsInvalidArgument(err))
}

func TestListBroadcasts_ReadFailure(t *testing.T) {
	h := NewListBroadcastsHandler(&fakeBroadcastLog{err: errors.New("store down")})

	_, err := h.Handle(context.Background(), ListBroadcastsQuery{EventID: "ev1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageRead)
}
