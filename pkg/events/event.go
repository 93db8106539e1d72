package events

import "time"

// SubjectPrefix namespaces every domain event on the bus.
const SubjectPrefix = "events."

// Event is a domain fact published after a successful write.
type Event interface {
	// EventType returns the unique code for this event (e.g., "NOTEBOOK_CREATED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject is the bus subject an event is published on.
func Subject(e Event) string {
	return SubjectPrefix + e.EventType()
}
