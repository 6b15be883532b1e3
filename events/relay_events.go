package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// Recipients are resolved to user ids while the registry lock is held, so
// delivery never re-reads room state that may have changed since.

// UserJoinedEvent is emitted when a user joins a room. Recipients are the
// members that were already in the room, excluding the joiner.
type UserJoinedEvent struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a user leaves a room, explicitly or by
// disconnecting. Recipients are the members that remain.
type UserLeftEvent struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted when a user sends a room message.
// Recipients are every member of the room, sender included.
type MessageSentEvent struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// RoomListUpdatedEvent is emitted when the public room listing changed.
// It carries no payload; clients re-query getPublicRooms.
type RoomListUpdatedEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"relay",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"relay",
		"UserLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"relay",
		"MessageSent",
		"v1",
	)

	RoomListUpdatedV1 = helper.EventDefinition[RoomListUpdatedEvent](
		"relay",
		"RoomListUpdated",
		"v1",
	)
)
