package relay

import "errors"

// Error texts are client-facing: the gateway forwards them verbatim in
// {success:false, error} replies.
var (
	// ErrUserNotFound indicates the user id does not resolve to an identity.
	ErrUserNotFound = errors.New("User not found")
	// ErrRoomNotFound indicates the room id does not resolve to a room.
	ErrRoomNotFound = errors.New("Room not found")
	// ErrAlreadyCreatedRoom indicates the user already has a created room.
	ErrAlreadyCreatedRoom = errors.New("You have already created a room")
	// ErrLeaveBeforeCreate indicates the user is in a room and must leave first.
	ErrLeaveBeforeCreate = errors.New("Please leave your current room before creating a new one")
	// ErrLeaveBeforeJoin indicates the user is in a different room already.
	ErrLeaveBeforeJoin = errors.New("You must leave your current room before joining another")
	// ErrInvalidPassword indicates a private-room password mismatch.
	ErrInvalidPassword = errors.New("Invalid password")
	// ErrNotInAnyRoom indicates a leave request from a user without a room.
	ErrNotInAnyRoom = errors.New("You are not in any room")
	// ErrNotInRoom indicates a message from a user without a room.
	ErrNotInRoom = errors.New("Not in a room")
)
