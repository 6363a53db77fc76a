package chat

import "time"

// Room is a durable registry entry. Rooms are created once per distinct
// name and never deleted; live membership is tracked separately by the
// relay engine.
type Room struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a persisted chat message. Messages are immutable once stored
// and ordered within a room by their server-assigned timestamp.
type Message struct {
	Room      string    `json:"room,omitempty"`
	Username  string    `json:"username"`
	Content   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
