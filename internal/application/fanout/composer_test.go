package fanout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/event"
)

func testEvent() *event.Event {
	date := time.Date(2026, 11, 4, 18, 0, 0, 0, time.UTC)
	return &event.Event{
		ID:   "ev1",
		Name: "Summer Lottery",
		Date: &date,
	}
}

func TestComposer_SelectionResult(t *testing.T) {
	c := NewComposer()

	msg := c.Compose(testEvent(), broadcast.KindSelectionResult, "")

	assert.Equal(t, "You have been selected!", msg.Title)
	assert.Equal(t,
		"Congratulations! You have been selected for Summer Lottery on Nov 4, 2026. "+ConfirmationInstructions,
		msg.Body)
	assert.Equal(t, "ev1", msg.Data[broadcast.PayloadKeyEventID])
	assert.Equal(t, "Summer Lottery", msg.Data[broadcast.PayloadKeyEventName])
	assert.Equal(t, "selectionResult", msg.Data[broadcast.PayloadKeyKind])
}

func TestComposer_OrganizerUpdates(t *testing.T) {
	c := NewComposer()

	waiting := c.Compose(testEvent(), broadcast.KindWaitingListUpdate, "")
	assert.Equal(t, "Update: Summer Lottery", waiting.Title)
	assert.Contains(t, waiting.Body, "waiting list")

	cancelled := c.Compose(testEvent(), broadcast.KindCancellationUpdate, "")
	assert.Equal(t, "Update: Summer Lottery", cancelled.Title)
	assert.Contains(t, cancelled.Body, "update regarding your entry")
}

func TestComposer_OverrideReplacesBodyOnly(t *testing.T) {
	c := NewComposer()

	msg := c.Compose(testEvent(), broadcast.KindWaitingListUpdate, "Doors open at 6pm sharp.")

	assert.Equal(t, "Doors open at 6pm sharp.", msg.Body)
	// Title and payload keep their composed values so the client can
	// still deep-link.
	assert.Equal(t, "Update: Summer Lottery", msg.Title)
	assert.Equal(t, "ev1", msg.Data[broadcast.PayloadKeyEventID])
}

func TestComposer_MissingNameAndDateFallbacks(t *testing.T) {
	c := NewComposer()
	ev := &event.Event{ID: "ev2"}

	msg := c.Compose(ev, broadcast.KindSelectionResult, "")

	assert.Contains(t, msg.Body, "Event")
	assert.Contains(t, msg.Body, "Date not available")
	assert.Equal(t, "Event", msg.Data[broadcast.PayloadKeyEventName])
}

func TestComposer_Instructions(t *testing.T) {
	c := NewComposer()

	assert.Equal(t, ConfirmationInstructions, c.Instructions(broadcast.KindSelectionResult))
	assert.Empty(t, c.Instructions(broadcast.KindWaitingListUpdate))
	assert.Empty(t, c.Instructions(broadcast.KindCancellationUpdate))
}
