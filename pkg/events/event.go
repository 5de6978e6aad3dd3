package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TICKET_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by the publishers and
// reconstructed on the subscriber side.
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

// NewTicketCreated is emitted after a ticket is durably persisted, never
// before: subscribers (mail, websocket feed) must be able to look it up.
func NewTicketCreated(ticketID, sessionID string) BaseEvent {
	return BaseEvent{
		Type: "TICKET_CREATED",
		Data: map[string]interface{}{
			"ticket_id":  ticketID,
			"session_id": sessionID,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionEnded is emitted when a conversation reaches its terminal stage,
// whether solved, abandoned or ticketed.
func NewSessionEnded(sessionID, ticketID string) BaseEvent {
	return BaseEvent{
		Type: "SESSION_ENDED",
		Data: map[string]interface{}{
			"session_id": sessionID,
			"ticket_id":  ticketID,
			"escalated":  ticketID != "",
		},
		OccurredAt: time.Now(),
	}
}
