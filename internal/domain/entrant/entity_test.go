package entrant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairchance/notification-service/internal/domain/shared"
)

func TestStatus_Eligible(t *testing.T) {
	assert.True(t, StatusPending.Eligible())
	assert.True(t, StatusSelected.Eligible())
	assert.False(t, StatusNotified.Eligible())
}

func TestRecord_EligibleFor(t *testing.T) {
	// Selected group: gated by status.
	rec := &Record{EventID: "ev1", Group: GroupSelected, EntrantID: "e1", Status: StatusPending}
	assert.True(t, rec.EligibleFor())

	rec.Status = StatusSelected
	assert.True(t, rec.EligibleFor())

	rec.Status = StatusNotified
	assert.False(t, rec.EligibleFor())

	// Non-status groups: always eligible, status field ignored.
	waiting := &Record{EventID: "ev1", Group: GroupWaitingList, EntrantID: "e2"}
	assert.True(t, waiting.EligibleFor())

	cancelled := &Record{EventID: "ev1", Group: GroupCancelled, EntrantID: "e3"}
	assert.True(t, cancelled.EligibleFor())
}

func TestRecord_MarkNotified(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rec := &Record{EventID: "ev1", Group: GroupSelected, EntrantID: "e1", Status: StatusPending}
	err := rec.MarkNotified(now, "Summer Lottery", "Aug 15, 2026", "Please open the app and confirm your participation.")
	require.NoError(t, err)

	assert.Equal(t, StatusNotified, rec.Status)
	require.NotNil(t, rec.NotifiedAt)
	assert.Equal(t, now, *rec.NotifiedAt)
	assert.Equal(t, "Summer Lottery", rec.EventName)
	assert.Equal(t, "Aug 15, 2026", rec.EventDate)
	assert.Equal(t, "Please open the app and confirm your participation.", rec.Instructions)
}

func TestRecord_MarkNotifiedIsOneWay(t *testing.T) {
	now := time.Now().UTC()

	rec := &Record{EventID: "ev1", Group: GroupSelected, EntrantID: "e1", Status: StatusNotified}
	err := rec.MarkNotified(now, "Summer Lottery", "Aug 15, 2026", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestRecord_MarkNotifiedNonStatusGroup(t *testing.T) {
	// Waiting list records carry audit fields but never a status.
	now := time.Now().UTC()

	rec := &Record{EventID: "ev1", Group: GroupWaitingList, EntrantID: "e2"}
	err := rec.MarkNotified(now, "Summer Lottery", "Aug 15, 2026", "")
	require.NoError(t, err)

	assert.Empty(t, rec.Status)
	require.NotNil(t, rec.NotifiedAt)

	// Re-broadcasts stamp again; there is no duplicate guard for this group.
	later := now.Add(time.Hour)
	require.NoError(t, rec.MarkNotified(later, "Summer Lottery", "Aug 15, 2026", ""))
	assert.Equal(t, later, *rec.NotifiedAt)
}

func TestGroup_HasStatus(t *testing.T) {
	assert.True(t, GroupSelected.HasStatus())
	assert.False(t, GroupWaitingList.HasStatus())
	assert.False(t, GroupCancelled.HasStatus())
}
