package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted by the relay engine when a chat message is
// accepted for a room. The registry module consumes it to persist the
// message; signaling payloads never produce this event.
type MessageSentEvent struct {
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted by the registry module when a registration
// actually created a new durable room entry. Re-registering an existing
// name does not emit it.
type RoomCreatedEvent struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"relay",
		"MessageSent",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"registry",
		"RoomCreated",
		"v1",
	)
)
