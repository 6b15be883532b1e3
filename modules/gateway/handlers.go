package gateway

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/room-relay-demo/modules/broadcast"
	"github.com/example/room-relay-demo/modules/registry"
)

const internalError = "Internal server error"

// session is the per-connection record: which identity, if any, this
// transport is bound to. It replaces closure-captured connection state.
type session struct {
	connID string
	userID string // empty until a register request succeeds
}

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	api := m.app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "gateway",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// listRooms handles GET /api/v1/rooms: the read-only public listing,
// identical to the getPublicRooms request over the WebSocket.
func (m *Module) listRooms(c *fiber.Ctx) error {
	resp, err := m.relay.ListPublicRooms(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}
	return c.JSON(fiber.Map{"rooms": resp.Rooms})
}

// handleWebSocket owns one connection: it allocates the session slot,
// processes requests strictly in arrival order, and runs the disconnect
// path exactly once when the transport closes.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := &broadcast.Client{ID: connID, Conn: c}
	sess := &session{connID: connID}

	m.hub.Register(client)
	defer func() {
		if sess.userID != "" {
			if err := m.relay.Disconnect(context.Background(), sess.userID); err != nil {
				log.Printf("[gateway] disconnect cleanup failed for user %s: %v", sess.userID, err)
			}
		}
		m.hub.Unregister(client)
		log.Printf("[gateway] connection closed: %s", connID)
	}()

	log.Printf("[gateway] connection opened: %s", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] connection %s closed by peer", connID)
			} else {
				log.Printf("[gateway] read error on %s: %v", connID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			m.sendError(client, "Invalid message format")
			continue
		}

		switch env.Type {
		case RequestRegister:
			m.handleRegister(client, sess, env)
		case RequestCreateRoom:
			m.handleCreateRoom(client, sess, env)
		case RequestJoinRoom:
			m.handleJoinRoom(client, sess, env)
		case RequestLeaveRoom:
			m.handleLeaveRoom(client, sess, env)
		case RequestGetPublicRooms:
			m.handleGetPublicRooms(client, env)
		case RequestMessage:
			m.handleMessage(client, sess, env)
		default:
			m.sendError(client, "Unknown message type: "+env.Type)
		}
	}
}

func (m *Module) handleRegister(client *broadcast.Client, sess *session, env Envelope) {
	var req RegisterPayload
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		m.respond(client, env.Seq, "registerResponse", RegisterResult{Error: "Registration failed"})
		return
	}

	// A repeat register on the same connection replaces the identity;
	// the old one is torn down so its room membership cannot leak.
	if sess.userID != "" {
		if err := m.relay.Disconnect(context.Background(), sess.userID); err != nil {
			log.Printf("[gateway] failed to release identity %s: %v", sess.userID, err)
		}
		sess.userID = ""
	}

	resp, err := m.relay.Register(context.Background(), req.Username)
	if err != nil {
		log.Printf("[gateway] register failed on %s: %v", sess.connID, err)
		m.respond(client, env.Seq, "registerResponse", RegisterResult{Error: "Registration failed"})
		return
	}

	sess.userID = resp.UserID
	m.hub.Bind(sess.connID, resp.UserID)
	m.respond(client, env.Seq, "registerResponse", RegisterResult{Success: true, UserID: resp.UserID})
}

func (m *Module) handleCreateRoom(client *broadcast.Client, sess *session, env Envelope) {
	var req CreateRoomPayload
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		m.respond(client, env.Seq, "createRoomResponse", CreateRoomResult{Error: "Failed to create room"})
		return
	}
	if sess.userID == "" {
		m.respond(client, env.Seq, "createRoomResponse", CreateRoomResult{Error: "User not found"})
		return
	}

	resp, err := m.relay.CreateRoom(context.Background(), registry.CreateRoomRequest{
		UserID:   sess.userID,
		RoomName: req.RoomName,
		IsPublic: req.IsPublic,
		Password: req.Password,
	})
	if err != nil {
		log.Printf("[gateway] createRoom failed for user %s: %v", sess.userID, err)
		m.respond(client, env.Seq, "createRoomResponse", CreateRoomResult{Error: internalError})
		return
	}
	if !resp.Success {
		m.respond(client, env.Seq, "createRoomResponse", CreateRoomResult{Error: resp.Error})
		return
	}

	m.respond(client, env.Seq, "createRoomResponse", CreateRoomResult{
		Success:  true,
		RoomID:   resp.RoomID,
		RoomInfo: resp.RoomInfo,
	})
}

func (m *Module) handleJoinRoom(client *broadcast.Client, sess *session, env Envelope) {
	var req JoinRoomPayload
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		m.respond(client, env.Seq, "joinRoomResponse", JoinRoomResult{Error: "Failed to join room"})
		return
	}
	if sess.userID == "" {
		m.respond(client, env.Seq, "joinRoomResponse", JoinRoomResult{Error: "User not found"})
		return
	}

	resp, err := m.relay.JoinRoom(context.Background(), registry.JoinRoomRequest{
		UserID:   sess.userID,
		RoomID:   req.RoomID,
		Password: req.Password,
	})
	if err != nil {
		log.Printf("[gateway] joinRoom failed for user %s: %v", sess.userID, err)
		m.respond(client, env.Seq, "joinRoomResponse", JoinRoomResult{Error: internalError})
		return
	}
	if !resp.Success {
		m.respond(client, env.Seq, "joinRoomResponse", JoinRoomResult{Error: resp.Error})
		return
	}

	m.respond(client, env.Seq, "joinRoomResponse", JoinRoomResult{
		Success:  true,
		RoomInfo: resp.RoomInfo,
	})
}

func (m *Module) handleLeaveRoom(client *broadcast.Client, sess *session, env Envelope) {
	if sess.userID == "" {
		m.respond(client, env.Seq, "leaveRoomResponse", LeaveRoomResult{Error: "User not found"})
		return
	}

	resp, err := m.relay.LeaveRoom(context.Background(), sess.userID)
	if err != nil {
		log.Printf("[gateway] leaveRoom failed for user %s: %v", sess.userID, err)
		m.respond(client, env.Seq, "leaveRoomResponse", LeaveRoomResult{Error: internalError})
		return
	}
	if !resp.Success {
		m.respond(client, env.Seq, "leaveRoomResponse", LeaveRoomResult{Error: resp.Error})
		return
	}

	m.respond(client, env.Seq, "leaveRoomResponse", LeaveRoomResult{
		Success: true,
		Message: resp.Message,
	})
}

func (m *Module) handleGetPublicRooms(client *broadcast.Client, env Envelope) {
	resp, err := m.relay.ListPublicRooms(context.Background())
	if err != nil {
		log.Printf("[gateway] getPublicRooms failed: %v", err)
		m.respond(client, env.Seq, "getPublicRoomsResponse", PublicRoomsResult{Error: "Failed to get public rooms"})
		return
	}
	m.respond(client, env.Seq, "getPublicRoomsResponse", PublicRoomsResult{
		Success: true,
		Rooms:   resp.Rooms,
	})
}

func (m *Module) handleMessage(client *broadcast.Client, sess *session, env Envelope) {
	var req MessagePayload
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		m.respond(client, env.Seq, "messageResponse", MessageResult{Error: "Failed to send message"})
		return
	}
	if sess.userID == "" {
		m.respond(client, env.Seq, "messageResponse", MessageResult{Error: "Not in a room"})
		return
	}

	resp, err := m.relay.SendMessage(context.Background(), sess.userID, req.Content)
	if err != nil {
		log.Printf("[gateway] message failed for user %s: %v", sess.userID, err)
		m.respond(client, env.Seq, "messageResponse", MessageResult{Error: internalError})
		return
	}
	if !resp.Success {
		m.respond(client, env.Seq, "messageResponse", MessageResult{Error: resp.Error})
		return
	}

	m.respond(client, env.Seq, "messageResponse", MessageResult{Success: true})
}

// respond always emits the named response frame and, when the request
// carried a sequence number, an additional ack frame with the same
// payload. Sends are best effort; the read loop notices a dead peer.
func (m *Module) respond(client *broadcast.Client, seq int64, frameType string, payload any) {
	if err := client.Send(broadcast.Frame{Type: frameType, Payload: payload}); err != nil {
		log.Printf("[gateway] failed to send %s to %s: %v", frameType, client.ID, err)
		return
	}
	if seq != 0 {
		if err := client.Send(broadcast.Frame{Type: "ack", Seq: seq, Payload: payload}); err != nil {
			log.Printf("[gateway] failed to ack %s to %s: %v", frameType, client.ID, err)
		}
	}
}

func (m *Module) sendError(client *broadcast.Client, message string) {
	if err := client.Send(broadcast.Frame{Type: "error", Payload: fiber.Map{"error": message}}); err != nil {
		log.Printf("[gateway] failed to send error to %s: %v", client.ID, err)
	}
}
