package broadcast

// Payload keys attached to every push message. The mobile client uses them
// to deep-link into the right event screen.
const (
	PayloadKeyEventID   = "eventId"
	PayloadKeyEventName = "eventName"
	PayloadKeyKind      = "kind"
)

// Message is a composed, ready-to-send notification: human-readable title
// and body plus a structured data payload.
type Message struct {
	// Title - notification title shown by the device.
	Title string

	// Body - notification body text.
	Body string

	// Data - structured key-value payload delivered alongside the
	// visible notification.
	Data map[string]string
}
