package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/room-relay-demo/events"
)

// Frame types delivered to clients without a preceding request.
const (
	FrameUserJoined      = "userJoined"
	FrameUserLeft        = "userLeft"
	FrameMessage         = "message"
	FrameRoomListUpdated = "roomListUpdated"
)

// UserJoinedPayload announces a new room member to the existing ones.
type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// UserLeftPayload announces a departure to the remaining members.
type UserLeftPayload struct {
	UserID string `json:"userId"`
}

// MessagePayload carries a room message to every member.
type MessagePayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Module is an EventConsumerModule that turns registry events into
// WebSocket frames for the recipients resolved by the registry.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast Module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomListUpdatedV1, m.handleRoomListUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomListUpdated consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: UserJoined, UserLeft, MessageSent, RoomListUpdated")
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(event.Recipients, Frame{
		Type: FrameUserJoined,
		Payload: UserJoinedPayload{
			UserID:   event.UserID,
			Username: event.Username,
		},
	})
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(event.Recipients, Frame{
		Type:    FrameUserLeft,
		Payload: UserLeftPayload{UserID: event.UserID},
	})
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(event.Recipients, Frame{
		Type: FrameMessage,
		Payload: MessagePayload{
			UserID:    event.UserID,
			Username:  event.Username,
			Content:   event.Content,
			Timestamp: event.Timestamp,
		},
	})
	return nil
}

func (m *Module) handleRoomListUpdated(_ context.Context, _ events.RoomListUpdatedEvent, _ *mono.Msg) error {
	// Signal only: receivers re-query getPublicRooms.
	m.hub.SendToAll(Frame{Type: FrameRoomListUpdated})
	return nil
}

// GetHub returns the WebSocket hub for the gateway module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
