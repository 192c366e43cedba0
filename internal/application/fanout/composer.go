package fanout

import (
	"fmt"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE COMPOSITION
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmationInstructions is appended to selection-result messages and
// denormalized onto each notified record so the client can render it offline.
const ConfirmationInstructions = "Please open the app and confirm your participation."

// Composer builds the per-kind push message. One message per broadcast:
// every recipient of an invocation receives identical content.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the notification for the given event and kind. A non-empty
// override replaces the default body; the title and data payload are always
// composed here so the client can deep-link regardless of organizer text.
func (c *Composer) Compose(ev *event.Event, kind broadcast.Kind, override string) broadcast.Message {
	msg := broadcast.Message{
		Data: map[string]string{
			broadcast.PayloadKeyEventID:   ev.ID.String(),
			broadcast.PayloadKeyEventName: ev.DisplayName(),
			broadcast.PayloadKeyKind:      kind.String(),
		},
	}

	switch kind {
	case broadcast.KindSelectionResult:
		msg.Title = "You have been selected!"
		msg.Body = fmt.Sprintf("Congratulations! You have been selected for %s on %s. %s",
			ev.DisplayName(), ev.FormattedDate(), ConfirmationInstructions)
	case broadcast.KindWaitingListUpdate:
		msg.Title = fmt.Sprintf("Update: %s", ev.DisplayName())
		msg.Body = fmt.Sprintf("You are on the waiting list for %s on %s. Keep an eye out for openings.",
			ev.DisplayName(), ev.FormattedDate())
	case broadcast.KindCancellationUpdate:
		msg.Title = fmt.Sprintf("Update: %s", ev.DisplayName())
		msg.Body = fmt.Sprintf("There is an update regarding your entry for %s on %s.",
			ev.DisplayName(), ev.FormattedDate())
	}

	if override != "" {
		msg.Body = override
	}

	return msg
}

// Instructions returns the text denormalized onto each record for the kind.
// Only selection results carry confirmation instructions.
func (c *Composer) Instructions(kind broadcast.Kind) string {
	if kind == broadcast.KindSelectionResult {
		return ConfirmationInstructions
	}
	return ""
}
