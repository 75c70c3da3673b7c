package booking

import "context"

// EventType names a booking lifecycle event
type EventType string

const (
	EventCreated       EventType = "created"
	EventRebooked      EventType = "rebooked"
	EventStatusChanged EventType = "status_changed"
)

// Event is emitted after a booking change has been persisted
type Event struct {
	Type      EventType `json:"type"`
	Booking   *Booking  `json:"booking"`
	Cancelled int64     `json:"cancelled,omitempty"`
}

// Publisher delivers events to interested parties
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}
