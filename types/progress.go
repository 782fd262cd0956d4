package types

import "time"

// Progress is a single quantified progress entry logged by a user:
// a value for a metric within a category on a given date.
type Progress struct {
	ID       int     `json:"id" db:"id"`
	UserID   int     `json:"user_id" db:"user_id"`
	Category string  `json:"category" db:"category"`
	Metric   string  `json:"metric" db:"metric"`
	Value    float64 `json:"value" db:"value"`

	// Unit is an optional display unit for the value (e.g. "kg", "km").
	Unit  string `json:"unit" db:"unit"`
	Notes string `json:"notes" db:"notes"`

	// Date is the day the progress applies to, not the insertion time.
	Date time.Time `json:"date" db:"date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProgressFilter narrows progress listings.
type ProgressFilter struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ProgressSummary aggregates one user's side of a comparison.
type ProgressSummary struct {
	User         User       `json:"user"`
	Progress     []Progress `json:"progress"`
	TotalEntries int        `json:"total_entries"`
	AverageValue float64    `json:"average_value"`
}

// Comparison holds both sides of a two-user progress comparison.
type Comparison struct {
	CurrentUser ProgressSummary `json:"current_user"`
	Friend      ProgressSummary `json:"friend"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	User          User    `json:"user"`
	TotalEntries  int     `json:"total_entries"`
	TotalProgress float64 `json:"total_progress"`
	Rank          int     `json:"rank"`
}

// Stats are the aggregate counters shown on the dashboard.
type Stats struct {
	TotalUsers    int `json:"total_users"`
	TotalProgress int `json:"total_progress"`

	// ActiveUsers counts distinct users who logged progress
	// within the last 30 days.
	ActiveUsers int `json:"active_users"`
}
