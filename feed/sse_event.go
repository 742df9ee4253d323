package feed

import "encoding/json"

// Event types published by the posts service.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// Event represents a Server-Sent Event carried to feed subscribers.
type Event struct {
	// Type maps to the SSE "event:" field.
	Type string
	// Data is the JSON payload for the SSE "data:" field.
	Data string
}

// NewEvent builds an Event, marshalling payload as the data field.
// Marshal failures degrade to an empty object rather than dropping the event.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return Event{Type: eventType, Data: string(data)}
}
