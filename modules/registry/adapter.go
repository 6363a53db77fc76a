package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/rtc-relay-demo/domain/chat"
)

// Port defines the registry operations available to dependent modules.
type Port interface {
	RegisterRoom(ctx context.Context, name string) (chat.Room, bool, error)
	ListRooms(ctx context.Context) ([]chat.Room, error)
	History(ctx context.Context, room string, limit int) ([]chat.Message, error)
}

// Adapter implements Port using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new Adapter.
func NewAdapter(container mono.ServiceContainer) Port {
	if container == nil {
		panic("registry: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

// RegisterRoom registers a room durably. Duplicate names succeed with
// created=false.
func (a *Adapter) RegisterRoom(ctx context.Context, name string) (chat.Room, bool, error) {
	req := RegisterRoomRequest{Name: name}
	var resp RegisterRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRegister,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return chat.Room{}, false, fmt.Errorf("failed to register room: %w", err)
	}
	return resp.Room, resp.Created, nil
}

// ListRooms returns every registered room in creation order.
func (a *Adapter) ListRooms(ctx context.Context) ([]chat.Room, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceList,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// History returns up to limit recent messages for a room, oldest first.
func (a *Adapter) History(ctx context.Context, room string, limit int) ([]chat.Message, error) {
	req := HistoryRequest{Room: room, Limit: limit}
	var resp HistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return resp.Messages, nil
}
