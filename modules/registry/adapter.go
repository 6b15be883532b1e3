package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RelayPort is the interface other modules use to reach the registry.
// Responses carry Success/Error rather than returning validation errors,
// so callers can forward the exact client-facing message.
type RelayPort interface {
	Register(ctx context.Context, username string) (RegisterResponse, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error)
	JoinRoom(ctx context.Context, req JoinRoomRequest) (JoinRoomResponse, error)
	LeaveRoom(ctx context.Context, userID string) (LeaveRoomResponse, error)
	ListPublicRooms(ctx context.Context) (ListPublicRoomsResponse, error)
	SendMessage(ctx context.Context, userID, content string) (SendMessageResponse, error)
	Disconnect(ctx context.Context, userID string) error
}

// RelayAdapter implements RelayPort using the service container.
type RelayAdapter struct {
	container mono.ServiceContainer
}

// NewRelayAdapter creates a new RelayAdapter.
func NewRelayAdapter(container mono.ServiceContainer) RelayPort {
	if container == nil {
		panic("registry: ServiceContainer is nil")
	}
	return &RelayAdapter{container: container}
}

func call[Req any, Resp any](a *RelayAdapter, ctx context.Context, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// Register allocates a new identity for a display name.
func (a *RelayAdapter) Register(ctx context.Context, username string) (RegisterResponse, error) {
	req := RegisterRequest{Username: username}
	var resp RegisterResponse
	err := call(a, ctx, ServiceRegister, &req, &resp)
	return resp, err
}

// CreateRoom creates a room owned by the requesting user.
func (a *RelayAdapter) CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error) {
	var resp CreateRoomResponse
	err := call(a, ctx, ServiceCreateRoom, &req, &resp)
	return resp, err
}

// JoinRoom adds the requesting user to a room.
func (a *RelayAdapter) JoinRoom(ctx context.Context, req JoinRoomRequest) (JoinRoomResponse, error) {
	var resp JoinRoomResponse
	err := call(a, ctx, ServiceJoinRoom, &req, &resp)
	return resp, err
}

// LeaveRoom removes the user from its current room.
func (a *RelayAdapter) LeaveRoom(ctx context.Context, userID string) (LeaveRoomResponse, error) {
	req := LeaveRoomRequest{UserID: userID}
	var resp LeaveRoomResponse
	err := call(a, ctx, ServiceLeaveRoom, &req, &resp)
	return resp, err
}

// ListPublicRooms returns the sorted public room listing.
func (a *RelayAdapter) ListPublicRooms(ctx context.Context) (ListPublicRoomsResponse, error) {
	req := ListPublicRoomsRequest{}
	var resp ListPublicRoomsResponse
	err := call(a, ctx, ServiceListPublicRooms, &req, &resp)
	return resp, err
}

// SendMessage relays a message to the user's current room.
func (a *RelayAdapter) SendMessage(ctx context.Context, userID, content string) (SendMessageResponse, error) {
	req := SendMessageRequest{UserID: userID, Content: content}
	var resp SendMessageResponse
	err := call(a, ctx, ServiceSendMessage, &req, &resp)
	return resp, err
}

// Disconnect tears down an identity after its transport closed.
func (a *RelayAdapter) Disconnect(ctx context.Context, userID string) error {
	req := DisconnectRequest{UserID: userID}
	var resp DisconnectResponse
	return call(a, ctx, ServiceDisconnect, &req, &resp)
}
