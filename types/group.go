package types

import "time"

// Group is a small accountability circle identified by a shareable
// invite code. A user belongs to at most one group at a time.
type Group struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	CreatorID   int       `json:"creator_id" db:"creator_id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GroupWithMembers is a group joined with its member profiles.
type GroupWithMembers struct {
	Group
	Members []User `json:"members"`
}

// GroupProgressEntry is a progress entry attributed to a group member.
type GroupProgressEntry struct {
	Progress
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}
