package relay

import (
	"encoding/json"
	"errors"
)

// Decode errors. A failed decode drops the frame; it never tears down the
// connection or the engine loop.
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownEnvelope   = errors.New("unknown envelope shape")
	ErrMissingField      = errors.New("envelope is missing a required field")
)

// Request is a decoded client envelope. The wire format discriminates by
// which keys are present; decoding happens exactly once here so the engine
// only ever dispatches on concrete variants.
type Request interface {
	isRequest()
}

// ChangeUsername renames the connection (action=changeUsername).
type ChangeUsername struct {
	Username string
}

// CreateRoom registers a room durably without joining it
// (action=createRoom).
type CreateRoom struct {
	Room string
}

// JoinRoom leaves the current room, if any, and joins the named one
// (action=joinRoom).
type JoinRoom struct {
	Room string
}

// Chat is a persisted text message for the sender's current room
// (type=chat).
type Chat struct {
	Text string
}

// Signal is an opaque peer-negotiation payload (an sdp or candidate key is
// present). Payload holds the original frame bytes, relayed verbatim and
// never persisted.
type Signal struct {
	Payload []byte
}

func (ChangeUsername) isRequest() {}
func (CreateRoom) isRequest()     {}
func (JoinRoom) isRequest()       {}
func (Chat) isRequest()           {}
func (Signal) isRequest()         {}

// envelope is the superset of inbound keys used for discrimination.
type envelope struct {
	Action    string          `json:"action"`
	Username  string          `json:"username"`
	Room      string          `json:"room"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	SDP       json.RawMessage `json:"sdp"`
	Candidate json.RawMessage `json:"candidate"`
}

// DecodeRequest decodes one inbound frame into a Request variant.
func DecodeRequest(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEnvelope
	}

	switch env.Action {
	case "changeUsername":
		if env.Username == "" {
			return nil, ErrMissingField
		}
		return ChangeUsername{Username: env.Username}, nil
	case "createRoom":
		if env.Room == "" {
			return nil, ErrMissingField
		}
		return CreateRoom{Room: env.Room}, nil
	case "joinRoom":
		if env.Room == "" {
			return nil, ErrMissingField
		}
		return JoinRoom{Room: env.Room}, nil
	}

	if len(env.SDP) > 0 || len(env.Candidate) > 0 {
		payload := make([]byte, len(data))
		copy(payload, data)
		return Signal{Payload: payload}, nil
	}

	if env.Type == "chat" {
		if env.Message == "" {
			return nil, ErrMissingField
		}
		return Chat{Text: env.Message}, nil
	}

	return nil, ErrUnknownEnvelope
}
