package registry

import "github.com/example/room-relay-demo/domain/relay"

// Service names registered in the mono service container.
const (
	ServiceRegister        = "register"
	ServiceCreateRoom      = "create-room"
	ServiceJoinRoom        = "join-room"
	ServiceLeaveRoom       = "leave-room"
	ServiceListPublicRooms = "list-public-rooms"
	ServiceSendMessage     = "send-message"
	ServiceDisconnect      = "disconnect"
)

// Validation failures travel inside the response (Success=false plus the
// client-facing Error text), not as handler errors: the gateway forwards
// them verbatim and the bus never retries them.

// RegisterRequest registers a display name.
type RegisterRequest struct {
	Username string `json:"username"`
}

// RegisterResponse carries the freshly allocated user id.
type RegisterResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateRoomRequest creates a room owned by UserID.
type CreateRoomRequest struct {
	UserID   string  `json:"user_id"`
	RoomName string  `json:"room_name"`
	IsPublic bool    `json:"is_public"`
	Password *string `json:"password,omitempty"`
}

// CreateRoomResponse carries the room id and initial membership snapshot.
type CreateRoomResponse struct {
	Success  bool            `json:"success"`
	RoomID   string          `json:"room_id,omitempty"`
	RoomInfo *relay.RoomInfo `json:"room_info,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// JoinRoomRequest adds UserID to RoomID.
type JoinRoomRequest struct {
	UserID   string  `json:"user_id"`
	RoomID   string  `json:"room_id"`
	Password *string `json:"password,omitempty"`
}

// JoinRoomResponse carries the membership snapshot including the joiner.
type JoinRoomResponse struct {
	Success  bool            `json:"success"`
	RoomInfo *relay.RoomInfo `json:"room_info,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// LeaveRoomRequest removes UserID from its current room.
type LeaveRoomRequest struct {
	UserID string `json:"user_id"`
}

// LeaveRoomResponse reports the outcome of a leave.
type LeaveRoomResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListPublicRoomsRequest has no parameters.
type ListPublicRoomsRequest struct{}

// ListPublicRoomsResponse carries the sorted public listing.
type ListPublicRoomsResponse struct {
	Success bool                   `json:"success"`
	Rooms   []relay.PublicRoomInfo `json:"rooms"`
	Error   string                 `json:"error,omitempty"`
}

// SendMessageRequest relays Content to UserID's current room.
type SendMessageRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// SendMessageResponse acknowledges the sender.
type SendMessageResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DisconnectRequest tears down UserID after its transport closed.
type DisconnectRequest struct {
	UserID string `json:"user_id"`
}

// DisconnectResponse is always successful; disconnect never errors.
type DisconnectResponse struct {
	Success bool `json:"success"`
}
