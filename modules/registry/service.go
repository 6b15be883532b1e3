package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/example/room-relay-demo/domain/relay"
	"github.com/example/room-relay-demo/events"
)

// Broadcast captures the fan-out decided while the registry lock was held.
// The module layer publishes it on the event bus after the mutation has
// committed; the core itself never touches a transport.
type Broadcast struct {
	UserJoined      *events.UserJoinedEvent
	UserLeft        *events.UserLeftEvent
	Message         *events.MessageSentEvent
	RoomListChanged bool
}

// Service owns the identity and room registries. Both maps sit behind one
// mutex: every operation performs its validation, mutation and broadcast
// decision inside a single critical section, so two connections can never
// observe a room half-destroyed or join it concurrently with the last
// leave.
type Service struct {
	mu       sync.Mutex
	users    map[string]*relay.User
	rooms    map[string]*relay.Room
	collator *collate.Collator
	logger   *slog.Logger
}

// NewService creates an empty registry service.
func NewService() *Service {
	return &Service{
		users:    make(map[string]*relay.User),
		rooms:    make(map[string]*relay.Room),
		collator: collate.New(language.English),
		logger:   slog.Default(),
	}
}

// Register allocates a fresh identity for a display name. Usernames are
// not checked for uniqueness or format.
func (s *Service) Register(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := uuid.New().String()
	s.users[userID] = &relay.User{
		ID:       userID,
		Username: username,
	}

	s.logger.Info("user registered", "userID", userID, "username", username)
	return userID
}

// Lookup returns the user record for an id.
func (s *Service) Lookup(userID string) (relay.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return relay.User{}, false
	}
	return *user, true
}

// CreateRoom creates a room owned by ownerID with the owner as sole
// member. A user may hold at most one created room at a time and must not
// currently be in a room. A password supplied for a public room is
// dropped so the "password set iff private" invariant holds.
func (s *Service) CreateRoom(ownerID, name string, isPublic bool, password *string) (string, *relay.RoomInfo, *Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[ownerID]
	if !ok {
		return "", nil, nil, relay.ErrUserNotFound
	}
	if owner.CreatedRoomID != "" {
		return "", nil, nil, relay.ErrAlreadyCreatedRoom
	}
	if owner.RoomID != "" {
		return "", nil, nil, relay.ErrLeaveBeforeCreate
	}

	visibility := relay.VisibilityPrivate
	if isPublic {
		visibility = relay.VisibilityPublic
		password = nil
	}

	roomID := uuid.New().String()
	room := &relay.Room{
		ID:         roomID,
		Name:       name,
		Visibility: visibility,
		Password:   password,
		CreatorID:  ownerID,
		Members:    []string{ownerID},
	}

	s.rooms[roomID] = room
	owner.RoomID = roomID
	owner.CreatedRoomID = roomID

	s.logger.Info("room created",
		"roomID", roomID, "name", name, "ownerID", ownerID, "public", isPublic)

	bc := &Broadcast{RoomListChanged: room.IsPublic()}
	return roomID, s.roomInfoLocked(room), bc, nil
}

// JoinRoom adds a user to a room. Rejoining the room the user is already
// in is tolerated as an idempotent add; being in any other room is an
// error. Private rooms compare the supplied password exactly against the
// stored one, where nil and "" are distinct values.
func (s *Service) JoinRoom(userID, roomID string, password *string) (*relay.RoomInfo, *Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil, relay.ErrUserNotFound
	}
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, relay.ErrRoomNotFound
	}
	if user.RoomID != "" && user.RoomID != roomID {
		return nil, nil, relay.ErrLeaveBeforeJoin
	}
	if !room.IsPublic() && !passwordsMatch(room.Password, password) {
		return nil, nil, relay.ErrInvalidPassword
	}

	// Members present before the add are the ones notified of the join.
	recipients := make([]string, 0, len(room.Members))
	for _, id := range room.Members {
		if id != userID {
			recipients = append(recipients, id)
		}
	}

	if !room.HasMember(userID) {
		room.Members = append(room.Members, userID)
	}
	user.RoomID = roomID

	s.logger.Info("user joined room", "userID", userID, "roomID", roomID)

	bc := &Broadcast{
		UserJoined: &events.UserJoinedEvent{
			RoomID:     roomID,
			UserID:     userID,
			Username:   user.Username,
			Recipients: recipients,
			Timestamp:  time.Now(),
		},
		RoomListChanged: room.IsPublic(),
	}
	return s.roomInfoLocked(room), bc, nil
}

// LeaveRoom removes a user from their current room. The room is destroyed
// the moment its last member leaves; the public listing only changes when
// a public room is destroyed.
func (s *Service) LeaveRoom(userID string) (*Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, relay.ErrUserNotFound
	}
	if user.RoomID == "" {
		return nil, relay.ErrNotInAnyRoom
	}
	room, ok := s.rooms[user.RoomID]
	if !ok {
		// Stale pointer: the room was already cleaned up.
		return nil, relay.ErrRoomNotFound
	}

	bc := s.removeMemberLocked(room, user)
	return bc, nil
}

// Disconnect tears down an identity after its transport closed. It is the
// tolerant variant of LeaveRoom: a user who never joined a room, or whose
// room is already gone, triggers no error. The identity is always deleted.
func (s *Service) Disconnect(userID string) *Broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil
	}

	var bc *Broadcast
	if user.RoomID != "" {
		if room, ok := s.rooms[user.RoomID]; ok {
			bc = s.removeMemberLocked(room, user)
		}
	}
	// A created room the user is no longer inside cannot have survived
	// empty, but guard against it so the zero-member invariant holds.
	if user.CreatedRoomID != "" {
		if room, ok := s.rooms[user.CreatedRoomID]; ok && len(room.Members) == 0 {
			delete(s.rooms, room.ID)
			if room.IsPublic() {
				if bc == nil {
					bc = &Broadcast{}
				}
				bc.RoomListChanged = true
			}
		}
	}

	delete(s.users, userID)
	s.logger.Info("user disconnected", "userID", userID)
	return bc
}

// removeMemberLocked removes user from room, destroys the room when it
// empties and clears the user's room pointers. Callers hold s.mu.
func (s *Service) removeMemberLocked(room *relay.Room, user *relay.User) *Broadcast {
	members := room.Members[:0]
	for _, id := range room.Members {
		if id != user.ID {
			members = append(members, id)
		}
	}
	room.Members = members

	bc := &Broadcast{
		UserLeft: &events.UserLeftEvent{
			RoomID:     room.ID,
			UserID:     user.ID,
			Recipients: append([]string(nil), room.Members...),
			Timestamp:  time.Now(),
		},
	}

	if len(room.Members) == 0 {
		delete(s.rooms, room.ID)
		if room.IsPublic() {
			bc.RoomListChanged = true
		}
		s.logger.Info("room destroyed", "roomID", room.ID, "name", room.Name)
	}

	if user.CreatedRoomID == room.ID {
		user.CreatedRoomID = ""
	}
	user.RoomID = ""

	s.logger.Info("user left room", "userID", user.ID, "roomID", room.ID)
	return bc
}

// ListPublicRooms returns the public rooms whose creator still resolves,
// sorted by member count descending with ties broken by a locale-aware
// name comparison.
func (s *Service) ListPublicRooms() []relay.PublicRoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing := make([]relay.PublicRoomInfo, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.IsPublic() {
			continue
		}
		creator, ok := s.users[room.CreatorID]
		if !ok {
			continue
		}
		listing = append(listing, relay.PublicRoomInfo{
			ID:          room.ID,
			Name:        room.Name,
			MemberCount: len(room.Members),
			Creator:     relay.Member{ID: creator.ID, Username: creator.Username},
		})
	}

	s.sortListing(listing)
	return listing
}

func (s *Service) sortListing(listing []relay.PublicRoomInfo) {
	// Insertion sort keeps the collator usage in one place; listings are
	// small (one entry per live public room).
	for i := 1; i < len(listing); i++ {
		for j := i; j > 0 && s.listingLess(listing[j], listing[j-1]); j-- {
			listing[j], listing[j-1] = listing[j-1], listing[j]
		}
	}
}

func (s *Service) listingLess(a, b relay.PublicRoomInfo) bool {
	if a.MemberCount != b.MemberCount {
		return a.MemberCount > b.MemberCount
	}
	return s.collator.CompareString(a.Name, b.Name) < 0
}

// SendMessage stamps a message from userID and resolves its fan-out to
// every current member of the user's room, sender included.
func (s *Service) SendMessage(userID, content string) (*Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || user.RoomID == "" {
		return nil, relay.ErrNotInRoom
	}
	room, ok := s.rooms[user.RoomID]
	if !ok {
		return nil, relay.ErrNotInRoom
	}

	bc := &Broadcast{
		Message: &events.MessageSentEvent{
			RoomID:     room.ID,
			UserID:     userID,
			Username:   user.Username,
			Content:    content,
			Recipients: append([]string(nil), room.Members...),
			Timestamp:  time.Now(),
		},
	}
	return bc, nil
}

// RoomCount reports the number of live rooms, for health reporting.
func (s *Service) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// UserCount reports the number of registered identities.
func (s *Service) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// roomInfoLocked builds a membership snapshot in insertion order.
// Callers hold s.mu.
func (s *Service) roomInfoLocked(room *relay.Room) *relay.RoomInfo {
	members := make([]relay.Member, 0, len(room.Members))
	for _, id := range room.Members {
		if member, ok := s.users[id]; ok {
			members = append(members, relay.Member{ID: member.ID, Username: member.Username})
		}
	}
	return &relay.RoomInfo{
		Name:     room.Name,
		IsPublic: room.IsPublic(),
		Members:  members,
	}
}

// passwordsMatch compares stored and supplied passwords exactly. Both
// absent is a match; absent versus empty string is not.
func passwordsMatch(stored, supplied *string) bool {
	if stored == nil || supplied == nil {
		return stored == nil && supplied == nil
	}
	return *stored == *supplied
}
