package registry

import "github.com/example/rtc-relay-demo/domain/chat"

// Service names exposed through the ServiceContainer. The framework
// prefixes them with "services.registry.".
const (
	ServiceRegister = "register"
	ServiceList     = "list"
	ServiceHistory  = "history"
)

// RegisterRoomRequest is the request for the register service.
type RegisterRoomRequest struct {
	Name string `json:"name"`
}

// RegisterRoomResponse reports whether the registration created a new
// registry entry. Created is false for duplicate names, which is still
// success.
type RegisterRoomResponse struct {
	Room    chat.Room `json:"room"`
	Created bool      `json:"created"`
}

// ListRoomsRequest is the request for the list service.
type ListRoomsRequest struct{}

// ListRoomsResponse carries the full durable room list.
type ListRoomsResponse struct {
	Rooms []chat.Room `json:"rooms"`
}

// HistoryRequest is the request for the history service.
type HistoryRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit"`
}

// HistoryResponse carries room history in ascending timestamp order.
type HistoryResponse struct {
	Messages []chat.Message `json:"messages"`
}
