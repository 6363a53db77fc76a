package relay

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeRequest_Actions(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Request
		wantErr error
	}{
		{
			name:  "change username",
			frame: `{"action":"changeUsername","username":"alice"}`,
			want:  ChangeUsername{Username: "alice"},
		},
		{
			name:    "change username without name",
			frame:   `{"action":"changeUsername"}`,
			wantErr: ErrMissingField,
		},
		{
			name:  "create room",
			frame: `{"action":"createRoom","room":"movies"}`,
			want:  CreateRoom{Room: "movies"},
		},
		{
			name:    "create room without name",
			frame:   `{"action":"createRoom"}`,
			wantErr: ErrMissingField,
		},
		{
			name:  "join room",
			frame: `{"action":"joinRoom","room":"movies"}`,
			want:  JoinRoom{Room: "movies"},
		},
		{
			name:    "join room without name",
			frame:   `{"action":"joinRoom","room":""}`,
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.frame))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeRequest() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeRequest() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeRequest_Chat(t *testing.T) {
	got, err := DecodeRequest([]byte(`{"type":"chat","message":"hello"}`))
	if err != nil {
		t.Fatalf("DecodeRequest() unexpected error: %v", err)
	}
	if got != (Chat{Text: "hello"}) {
		t.Errorf("DecodeRequest() = %#v, want Chat{hello}", got)
	}

	if _, err := DecodeRequest([]byte(`{"type":"chat"}`)); !errors.Is(err, ErrMissingField) {
		t.Errorf("DecodeRequest() error = %v, want ErrMissingField", err)
	}
}

func TestDecodeRequest_SignalKeepsFrameVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{
			name:  "sdp offer",
			frame: `{"sdp":{"type":"offer","sdp":"v=0..."},"from":"alice"}`,
		},
		{
			name:  "ice candidate",
			frame: `{"candidate":{"candidate":"candidate:1 1 UDP ..."}}`,
		},
		{
			name:  "sdp wins over chat keys",
			frame: `{"type":"chat","message":"x","sdp":{"type":"answer"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.frame))
			if err != nil {
				t.Fatalf("DecodeRequest() unexpected error: %v", err)
			}
			sig, ok := got.(Signal)
			if !ok {
				t.Fatalf("DecodeRequest() = %#v, want Signal", got)
			}
			if !bytes.Equal(sig.Payload, []byte(tt.frame)) {
				t.Errorf("Signal payload = %q, want original frame %q", sig.Payload, tt.frame)
			}
		})
	}
}

func TestDecodeRequest_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{
			name:    "invalid json",
			frame:   `{not json`,
			wantErr: ErrMalformedEnvelope,
		},
		{
			name:    "empty object",
			frame:   `{}`,
			wantErr: ErrUnknownEnvelope,
		},
		{
			name:    "unknown action",
			frame:   `{"action":"selfDestruct"}`,
			wantErr: ErrUnknownEnvelope,
		},
		{
			name:    "unknown type",
			frame:   `{"type":"ping"}`,
			wantErr: ErrUnknownEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRequest([]byte(tt.frame)); !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
