package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/room-relay-demo/events"
)

// Module exposes the registry service over the mono service container and
// publishes the broadcast intents each mutation decided on.
type Module struct {
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the registry module.
func NewModule() *Module {
	return &Module{
		service: NewService(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "registry"
}

// Service returns the underlying registry service.
func (m *Module) Service() *Service {
	return m.service
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.RoomListUpdatedV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[registry] Module started - empty identity and room registries")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Printf("[registry] Module stopped - %d users, %d rooms were live",
		m.service.UserCount(), m.service.RoomCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"users": m.service.UserCount(),
			"rooms": m.service.RoomCount(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRegister, json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegister, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateRoom, json.Unmarshal, json.Marshal, m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceJoinRoom, json.Unmarshal, json.Marshal, m.handleJoinRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceJoinRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLeaveRoom, json.Unmarshal, json.Marshal, m.handleLeaveRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLeaveRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListPublicRooms, json.Unmarshal, json.Marshal, m.handleListPublicRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListPublicRooms, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendMessage, json.Unmarshal, json.Marshal, m.handleSendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDisconnect, json.Unmarshal, json.Marshal, m.handleDisconnect,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDisconnect, err)
	}

	log.Printf("[registry] Registered services: %s, %s, %s, %s, %s, %s, %s",
		ServiceRegister, ServiceCreateRoom, ServiceJoinRoom, ServiceLeaveRoom,
		ServiceListPublicRooms, ServiceSendMessage, ServiceDisconnect)
	return nil
}

func (m *Module) handleRegister(_ context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	userID := m.service.Register(req.Username)
	return RegisterResponse{Success: true, UserID: userID}, nil
}

func (m *Module) handleCreateRoom(_ context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	roomID, info, bc, err := m.service.CreateRoom(req.UserID, req.RoomName, req.IsPublic, req.Password)
	if err != nil {
		return CreateRoomResponse{Error: err.Error()}, nil
	}
	m.publish(bc)
	return CreateRoomResponse{Success: true, RoomID: roomID, RoomInfo: info}, nil
}

func (m *Module) handleJoinRoom(_ context.Context, req JoinRoomRequest, _ *mono.Msg) (JoinRoomResponse, error) {
	info, bc, err := m.service.JoinRoom(req.UserID, req.RoomID, req.Password)
	if err != nil {
		return JoinRoomResponse{Error: err.Error()}, nil
	}
	m.publish(bc)
	return JoinRoomResponse{Success: true, RoomInfo: info}, nil
}

func (m *Module) handleLeaveRoom(_ context.Context, req LeaveRoomRequest, _ *mono.Msg) (LeaveRoomResponse, error) {
	bc, err := m.service.LeaveRoom(req.UserID)
	if err != nil {
		return LeaveRoomResponse{Error: err.Error()}, nil
	}
	m.publish(bc)
	return LeaveRoomResponse{Success: true, Message: "Successfully left the room"}, nil
}

func (m *Module) handleListPublicRooms(_ context.Context, _ ListPublicRoomsRequest, _ *mono.Msg) (ListPublicRoomsResponse, error) {
	return ListPublicRoomsResponse{Success: true, Rooms: m.service.ListPublicRooms()}, nil
}

func (m *Module) handleSendMessage(_ context.Context, req SendMessageRequest, _ *mono.Msg) (SendMessageResponse, error) {
	bc, err := m.service.SendMessage(req.UserID, req.Content)
	if err != nil {
		return SendMessageResponse{Error: err.Error()}, nil
	}
	m.publish(bc)
	return SendMessageResponse{Success: true}, nil
}

func (m *Module) handleDisconnect(_ context.Context, req DisconnectRequest, _ *mono.Msg) (DisconnectResponse, error) {
	bc := m.service.Disconnect(req.UserID)
	m.publish(bc)
	return DisconnectResponse{Success: true}, nil
}

// publish emits the broadcast intents decided under the registry lock.
// Delivery is fire-and-forget: a publish failure is logged and never
// rolls back the mutation.
func (m *Module) publish(bc *Broadcast) {
	if bc == nil {
		return
	}
	if bc.UserJoined != nil {
		if err := events.UserJoinedV1.Publish(m.eventBus, *bc.UserJoined, nil); err != nil {
			slog.Warn("Failed to publish UserJoined event", "error", err)
		}
	}
	if bc.UserLeft != nil {
		if err := events.UserLeftV1.Publish(m.eventBus, *bc.UserLeft, nil); err != nil {
			slog.Warn("Failed to publish UserLeft event", "error", err)
		}
	}
	if bc.Message != nil {
		if err := events.MessageSentV1.Publish(m.eventBus, *bc.Message, nil); err != nil {
			slog.Warn("Failed to publish MessageSent event", "error", err)
		}
	}
	if bc.RoomListChanged {
		event := events.RoomListUpdatedEvent{Timestamp: time.Now()}
		if err := events.RoomListUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish RoomListUpdated event", "error", err)
		}
	}
}
