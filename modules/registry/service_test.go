package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-relay-demo/domain/relay"
)

func strptr(s string) *string { return &s }

// checkConsistency asserts the bidirectional membership invariants: a
// room exists iff it has members, and a user's room pointer is set iff
// that room's member set contains the user.
func checkConsistency(t *testing.T, s *Service) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, room := range s.rooms {
		require.NotEmpty(t, room.Members, "room %s exists with zero members", id)
		seen := make(map[string]bool)
		for _, memberID := range room.Members {
			require.False(t, seen[memberID], "room %s holds duplicate member %s", id, memberID)
			seen[memberID] = true
			user, ok := s.users[memberID]
			require.True(t, ok, "room %s holds unknown member %s", id, memberID)
			require.Equal(t, id, user.RoomID, "member %s of room %s points elsewhere", memberID, id)
		}
	}
	for id, user := range s.users {
		if user.RoomID == "" {
			continue
		}
		room, ok := s.rooms[user.RoomID]
		require.True(t, ok, "user %s points at missing room %s", id, user.RoomID)
		require.True(t, room.HasMember(id), "user %s not in members of %s", id, user.RoomID)
	}
}

func TestRegister(t *testing.T) {
	s := NewService()

	a := s.Register("alice")
	b := s.Register("alice") // duplicate names are allowed

	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.NotEqual(t, a, b)

	user, ok := s.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.RoomID)
	assert.Empty(t, user.CreatedRoomID)
}

func TestCreateRoom(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")

	roomID, info, bc, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)
	require.NotNil(t, info)
	assert.Equal(t, "lobby", info.Name)
	assert.True(t, info.IsPublic)
	assert.Equal(t, []relay.Member{{ID: owner, Username: "alice"}}, info.Members)
	require.NotNil(t, bc)
	assert.True(t, bc.RoomListChanged)
	assert.Nil(t, bc.UserJoined)

	user, ok := s.Lookup(owner)
	require.True(t, ok)
	assert.Equal(t, roomID, user.RoomID)
	assert.Equal(t, roomID, user.CreatedRoomID)
	checkConsistency(t, s)
}

func TestCreateRoom_Errors(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")

	_, _, _, err := s.CreateRoom("nope", "x", true, nil)
	assert.ErrorIs(t, err, relay.ErrUserNotFound)

	_, _, _, err = s.CreateRoom(owner, "first", true, nil)
	require.NoError(t, err)

	// Still inside the created room: both guards apply, created-room first.
	_, _, _, err = s.CreateRoom(owner, "second", true, nil)
	assert.ErrorIs(t, err, relay.ErrAlreadyCreatedRoom)

	// A user who is in someone else's room must leave before creating.
	guest := s.Register("bob")
	rooms := s.ListPublicRooms()
	require.Len(t, rooms, 1)
	_, _, err2 := s.JoinRoom(guest, rooms[0].ID, nil)
	require.NoError(t, err2)
	_, _, _, err = s.CreateRoom(guest, "mine", true, nil)
	assert.ErrorIs(t, err, relay.ErrLeaveBeforeCreate)
	checkConsistency(t, s)
}

func TestCreateRoom_PrivateNeedsNoListing(t *testing.T) {
	s := NewService()
	owner := s.Register("carol")

	_, info, bc, err := s.CreateRoom(owner, "den", false, strptr("xyz"))
	require.NoError(t, err)
	assert.False(t, info.IsPublic)
	assert.False(t, bc.RoomListChanged)
	assert.Empty(t, s.ListPublicRooms())
}

func TestCreateRoom_PublicDropsPassword(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "open", true, strptr("secret"))
	require.NoError(t, err)

	// Visibility wins: a public room never gates on a password.
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	assert.NoError(t, err)
}

func TestJoinRoom(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)

	guest := s.Register("bob")
	info, bc, err := s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	// Snapshot is insertion ordered and already includes the joiner.
	assert.Equal(t, []relay.Member{
		{ID: owner, Username: "alice"},
		{ID: guest, Username: "bob"},
	}, info.Members)

	require.NotNil(t, bc.UserJoined)
	assert.Equal(t, guest, bc.UserJoined.UserID)
	assert.Equal(t, "bob", bc.UserJoined.Username)
	assert.Equal(t, roomID, bc.UserJoined.RoomID)
	// Only the members that were already present get notified.
	assert.Equal(t, []string{owner}, bc.UserJoined.Recipients)
	assert.True(t, bc.RoomListChanged)
	checkConsistency(t, s)
}

func TestJoinRoom_Errors(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)

	_, _, err = s.JoinRoom("nope", roomID, nil)
	assert.ErrorIs(t, err, relay.ErrUserNotFound)

	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, "missing", nil)
	assert.ErrorIs(t, err, relay.ErrRoomNotFound)

	otherOwner := s.Register("carol")
	otherRoom, _, _, err := s.CreateRoom(otherOwner, "den", true, nil)
	require.NoError(t, err)

	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)
	_, _, err = s.JoinRoom(guest, otherRoom, nil)
	assert.ErrorIs(t, err, relay.ErrLeaveBeforeJoin)
	checkConsistency(t, s)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	// Rejoining the same room is tolerated and adds no duplicate.
	info, bc, err := s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)
	assert.Len(t, info.Members, 2)
	assert.Equal(t, []string{owner}, bc.UserJoined.Recipients)
	checkConsistency(t, s)
}

func TestJoinRoom_PasswordMatching(t *testing.T) {
	s := NewService()
	owner := s.Register("carol")
	roomID, _, _, err := s.CreateRoom(owner, "den", false, strptr("xyz"))
	require.NoError(t, err)

	guest := s.Register("dave")

	_, _, err = s.JoinRoom(guest, roomID, strptr("wrong"))
	assert.ErrorIs(t, err, relay.ErrInvalidPassword)
	_, _, err = s.JoinRoom(guest, roomID, nil)
	assert.ErrorIs(t, err, relay.ErrInvalidPassword)

	// A failed join leaves the guest's room pointer unset.
	user, ok := s.Lookup(guest)
	require.True(t, ok)
	assert.Empty(t, user.RoomID)

	_, _, err = s.JoinRoom(guest, roomID, strptr("xyz"))
	assert.NoError(t, err)
	checkConsistency(t, s)
}

func TestJoinRoom_AbsentAndEmptyPasswordsDiffer(t *testing.T) {
	s := NewService()
	owner := s.Register("carol")
	// Private room created without any password: only an absent password
	// matches; an empty string does not.
	roomID, _, _, err := s.CreateRoom(owner, "den", false, nil)
	require.NoError(t, err)

	guest := s.Register("dave")
	_, _, err = s.JoinRoom(guest, roomID, strptr(""))
	assert.ErrorIs(t, err, relay.ErrInvalidPassword)
	_, _, err = s.JoinRoom(guest, roomID, nil)
	assert.NoError(t, err)
}

func TestLeaveRoom(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	bc, err := s.LeaveRoom(guest)
	require.NoError(t, err)
	require.NotNil(t, bc.UserLeft)
	assert.Equal(t, guest, bc.UserLeft.UserID)
	assert.Equal(t, []string{owner}, bc.UserLeft.Recipients)
	// The room survived, so the public listing did not change.
	assert.False(t, bc.RoomListChanged)

	rooms := s.ListPublicRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].MemberCount)
	checkConsistency(t, s)
}

func TestLeaveRoom_LastMemberDestroysRoom(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	_, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)

	bc, err := s.LeaveRoom(owner)
	require.NoError(t, err)
	assert.Empty(t, bc.UserLeft.Recipients)
	assert.True(t, bc.RoomListChanged)
	assert.Empty(t, s.ListPublicRooms())

	// Leaving the created room releases the created-room slot.
	_, _, _, err = s.CreateRoom(owner, "second", true, nil)
	assert.NoError(t, err)
	checkConsistency(t, s)
}

func TestLeaveRoom_ReleasesCreatedRoomSlot(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	// The room lives on with bob inside, still credited to alice, but
	// alice's created-room slot is freed the moment she walks out.
	_, err = s.LeaveRoom(owner)
	require.NoError(t, err)
	user, _ := s.Lookup(owner)
	assert.Empty(t, user.CreatedRoomID)

	rooms := s.ListPublicRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, owner, rooms[0].Creator.ID)

	_, _, _, err = s.CreateRoom(owner, "annex", true, nil)
	assert.NoError(t, err)
	checkConsistency(t, s)
}

func TestLeaveRoom_Errors(t *testing.T) {
	s := NewService()
	_, err := s.LeaveRoom("nope")
	assert.ErrorIs(t, err, relay.ErrUserNotFound)

	user := s.Register("alice")
	_, err = s.LeaveRoom(user)
	assert.ErrorIs(t, err, relay.ErrNotInAnyRoom)
}

func TestListPublicRooms_Ordering(t *testing.T) {
	s := NewService()

	mkRoom := func(owner, name string, extraMembers int) {
		ownerID := s.Register(owner)
		roomID, _, _, err := s.CreateRoom(ownerID, name, true, nil)
		require.NoError(t, err)
		for i := 0; i < extraMembers; i++ {
			guest := s.Register("guest")
			_, _, err := s.JoinRoom(guest, roomID, nil)
			require.NoError(t, err)
		}
	}

	mkRoom("a", "banana", 0)
	mkRoom("b", "apple", 0)
	mkRoom("c", "crowded", 2)
	mkRoom("d", "Ähre", 0)

	rooms := s.ListPublicRooms()
	require.Len(t, rooms, 4)
	// Member count descending first, then locale-aware name ascending:
	// the collator sorts "Ähre" with the As, ahead of "banana".
	assert.Equal(t, "crowded", rooms[0].Name)
	assert.Equal(t, 3, rooms[0].MemberCount)
	assert.Equal(t, "Ähre", rooms[1].Name)
	assert.Equal(t, "apple", rooms[2].Name)
	assert.Equal(t, "banana", rooms[3].Name)
}

func TestListPublicRooms_SkipsUnresolvableCreator(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	// The creator disconnects; the room survives with bob inside but its
	// creator no longer resolves, so the listing hides it.
	s.Disconnect(owner)
	assert.Empty(t, s.ListPublicRooms())
	checkConsistency(t, s)
}

func TestSendMessage(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	bc, err := s.SendMessage(guest, "hi")
	require.NoError(t, err)
	require.NotNil(t, bc.Message)
	assert.Equal(t, guest, bc.Message.UserID)
	assert.Equal(t, "bob", bc.Message.Username)
	assert.Equal(t, "hi", bc.Message.Content)
	// Messages reach every member, sender included.
	assert.ElementsMatch(t, []string{owner, guest}, bc.Message.Recipients)
	assert.False(t, bc.Message.Timestamp.IsZero())
}

func TestSendMessage_TimestampsNonDecreasing(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	_, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)

	prev, err := s.SendMessage(owner, "one")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := s.SendMessage(owner, "again")
		require.NoError(t, err)
		assert.False(t, next.Message.Timestamp.Before(prev.Message.Timestamp))
		prev = next
	}
}

func TestSendMessage_NotInRoom(t *testing.T) {
	s := NewService()
	user := s.Register("alice")

	_, err := s.SendMessage(user, "hello?")
	assert.ErrorIs(t, err, relay.ErrNotInRoom)

	_, err = s.SendMessage("nope", "hello?")
	assert.ErrorIs(t, err, relay.ErrNotInRoom)
}

func TestDisconnect_SoleCreatorDestroysRoom(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	_, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)

	bc := s.Disconnect(owner)
	require.NotNil(t, bc)
	assert.True(t, bc.RoomListChanged)
	assert.Empty(t, s.ListPublicRooms())

	_, ok := s.Lookup(owner)
	assert.False(t, ok)
	checkConsistency(t, s)
}

func TestDisconnect_NotifiesRemainingMembers(t *testing.T) {
	s := NewService()
	owner := s.Register("alice")
	roomID, _, _, err := s.CreateRoom(owner, "lobby", true, nil)
	require.NoError(t, err)
	guest := s.Register("bob")
	_, _, err = s.JoinRoom(guest, roomID, nil)
	require.NoError(t, err)

	bc := s.Disconnect(guest)
	require.NotNil(t, bc)
	require.NotNil(t, bc.UserLeft)
	assert.Equal(t, guest, bc.UserLeft.UserID)
	assert.Equal(t, []string{owner}, bc.UserLeft.Recipients)
	assert.False(t, bc.RoomListChanged)
	checkConsistency(t, s)
}

func TestDisconnect_UnregisteredIsNoop(t *testing.T) {
	s := NewService()
	assert.Nil(t, s.Disconnect("never-registered"))
}

// TestScenario_PublicLobby walks the full public-room exchange: alice
// hosts, bob visits, chats and leaves, then the lobby winds down.
func TestScenario_PublicLobby(t *testing.T) {
	s := NewService()

	a := s.Register("alice")
	roomID, info, bc, err := s.CreateRoom(a, "lobby", true, nil)
	require.NoError(t, err)
	assert.Equal(t, []relay.Member{{ID: a, Username: "alice"}}, info.Members)
	assert.True(t, bc.RoomListChanged)

	b := s.Register("bob")
	info, bc, err = s.JoinRoom(b, roomID, nil)
	require.NoError(t, err)
	assert.Equal(t, []relay.Member{
		{ID: a, Username: "alice"},
		{ID: b, Username: "bob"},
	}, info.Members)
	assert.Equal(t, []string{a}, bc.UserJoined.Recipients)

	msg, err := s.SendMessage(b, "hi")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, msg.Message.Recipients)

	bc, err = s.LeaveRoom(b)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, bc.UserLeft.Recipients)
	require.Len(t, s.ListPublicRooms(), 1)

	bc, err = s.LeaveRoom(a)
	require.NoError(t, err)
	assert.True(t, bc.RoomListChanged)
	assert.Empty(t, s.ListPublicRooms())
	checkConsistency(t, s)
}

// TestScenario_PrivateRoom covers the wrong-then-right password flow.
func TestScenario_PrivateRoom(t *testing.T) {
	s := NewService()

	c := s.Register("carol")
	roomID, _, _, err := s.CreateRoom(c, "den", false, strptr("xyz"))
	require.NoError(t, err)

	d := s.Register("dave")
	_, _, err = s.JoinRoom(d, roomID, strptr("wrong"))
	require.ErrorIs(t, err, relay.ErrInvalidPassword)
	user, _ := s.Lookup(d)
	assert.Empty(t, user.RoomID)

	info, _, err := s.JoinRoom(d, roomID, strptr("xyz"))
	require.NoError(t, err)
	assert.Len(t, info.Members, 2)
	checkConsistency(t, s)
}
