package types

import "time"

// Friendship statuses.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
)

// Friendship links two users for progress comparison. The (user_id,
// friend_id) pair is unique; an invitation starts pending and becomes
// accepted when the invitee confirms it.
type Friendship struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	FriendID  int       `json:"friend_id" db:"friend_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Friend is a friendship joined with the other user's public profile.
type Friend struct {
	Friendship
	User User `json:"user"`
}
