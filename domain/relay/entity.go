package relay

import "time"

// Visibility controls whether a room shows up in the public listing.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// User is the identity bound to one active connection. RoomID and
// CreatedRoomID are empty when unset.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	RoomID        string `json:"roomId,omitempty"`
	CreatedRoomID string `json:"createdRoomId,omitempty"`
}

// Room is a named channel with an insertion-ordered membership set.
// Password is nil for public rooms; for private rooms nil and "" are
// distinct values and are compared exactly.
type Room struct {
	ID         string
	Name       string
	Visibility Visibility
	Password   *string
	CreatorID  string
	Members    []string
}

// IsPublic reports whether the room appears in the public listing.
func (r *Room) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}

// HasMember reports whether userID is in the membership set.
func (r *Room) HasMember(userID string) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Member is one entry of a membership snapshot.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomInfo is the membership snapshot returned on create and join,
// ordered by insertion.
type RoomInfo struct {
	Name     string   `json:"name"`
	IsPublic bool     `json:"isPublic"`
	Members  []Member `json:"members"`
}

// PublicRoomInfo is one row of the public room listing.
type PublicRoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	Creator     Member `json:"creator"`
}

// Message is a chat message stamped by the server before fan-out.
type Message struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
