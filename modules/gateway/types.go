package gateway

import (
	"encoding/json"

	"github.com/example/room-relay-demo/domain/relay"
)

// Request frame types accepted over the WebSocket.
const (
	RequestRegister       = "register"
	RequestCreateRoom     = "createRoom"
	RequestJoinRoom       = "joinRoom"
	RequestLeaveRoom      = "leaveRoom"
	RequestGetPublicRooms = "getPublicRooms"
	RequestMessage        = "message"
)

// Envelope is the inbound frame: a named request with an optional payload
// and an optional client-chosen sequence number. When Seq is set the
// gateway emits an extra ack frame carrying it, on top of the named
// response frame that is always sent.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RegisterPayload carries the chosen display name.
type RegisterPayload struct {
	Username string `json:"username"`
}

// CreateRoomPayload carries the parameters for room creation.
type CreateRoomPayload struct {
	RoomName string  `json:"roomName"`
	IsPublic bool    `json:"isPublic"`
	Password *string `json:"password,omitempty"`
}

// JoinRoomPayload carries the target room and optional password.
type JoinRoomPayload struct {
	RoomID   string  `json:"roomId"`
	Password *string `json:"password,omitempty"`
}

// MessagePayload carries the message content.
type MessagePayload struct {
	Content string `json:"content"`
}

// RegisterResult is the registerResponse payload.
type RegisterResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateRoomResult is the createRoomResponse payload.
type CreateRoomResult struct {
	Success  bool            `json:"success"`
	RoomID   string          `json:"roomId,omitempty"`
	RoomInfo *relay.RoomInfo `json:"roomInfo,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// JoinRoomResult is the joinRoomResponse payload.
type JoinRoomResult struct {
	Success  bool            `json:"success"`
	RoomInfo *relay.RoomInfo `json:"roomInfo,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// LeaveRoomResult is the leaveRoomResponse payload.
type LeaveRoomResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublicRoomsResult is the getPublicRoomsResponse payload.
type PublicRoomsResult struct {
	Success bool                   `json:"success"`
	Rooms   []relay.PublicRoomInfo `json:"rooms,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// MessageResult is the messageResponse payload.
type MessageResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the REST API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the REST health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
