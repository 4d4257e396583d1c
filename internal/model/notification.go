package model

import "time"

// Notification is one stored notification for one recipient.
//
// Message is rendered when the record is created (actor name already interpolated)
// and never changes afterwards; Seen is the only mutable field.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"-"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Seen        bool      `json:"seen"`
	ActorID     string    `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event types written to live channels.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
)

// Event is the JSON envelope written to a live channel as one `data:` frame.
type Event struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Data    *Notification `json:"data,omitempty"`
}

// ConnectedEvent is the first frame every live channel receives.
func ConnectedEvent() Event {
	return Event{Type: EventConnected, Message: "SSE connection established"}
}

// NotificationEvent wraps a stored notification for live delivery.
func NotificationEvent(n *Notification) Event {
	return Event{Type: EventNotification, Data: n}
}
