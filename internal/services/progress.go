package services

import (
	"context"
	"time"

	"github.com/progress2win/apiserver/types"
)

// ProgressRepository defines persistence operations for progress
// entries.
type ProgressRepository interface {
	Get(ctx context.Context, userID, id int) (types.Progress, error)
	List(ctx context.Context, userID int, filter types.ProgressFilter) ([]types.Progress, error)
	ListForUsers(ctx context.Context, userIDs []int, filter types.ProgressFilter) ([]types.Progress, error)
	Create(ctx context.Context, entry types.Progress) (types.Progress, error)
	Update(ctx context.Context, entry types.Progress) (types.Progress, error)
	Delete(ctx context.Context, userID, id int) error
	Leaderboard(ctx context.Context, filter types.ProgressFilter) ([]types.LeaderboardEntry, error)
	Stats(ctx context.Context) (types.Stats, error)
}

// ProgressService encapsulates progress-entry use-cases.
type ProgressService struct {
	repo ProgressRepository
}

func NewProgressService(repo ProgressRepository) *ProgressService {
	return &ProgressService{repo: repo}
}

func (s *ProgressService) Create(ctx context.Context, entry types.Progress) (types.Progress, error) {
	if entry.Category == "" || entry.Metric == "" {
		return types.Progress{}, validationError("category and metric are required")
	}
	if entry.Date.IsZero() {
		return types.Progress{}, validationError("date is required")
	}
	return s.repo.Create(ctx, entry)
}

func (s *ProgressService) Get(ctx context.Context, userID, id int) (types.Progress, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *ProgressService) List(ctx context.Context, userID int, filter types.ProgressFilter) ([]types.Progress, error) {
	return s.repo.List(ctx, userID, filter)
}

// ProgressUpdate carries the optional entry fields; nil means
// unchanged.
type ProgressUpdate struct {
	Category *string
	Metric   *string
	Value    *float64
	Unit     *string
	Notes    *string
	Date     *time.Time
}

// Update applies a partial update to an entry owned by the user.
func (s *ProgressService) Update(ctx context.Context, userID, id int, update ProgressUpdate) (types.Progress, error) {
	entry, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Progress{}, err
	}

	if update.Category != nil {
		entry.Category = *update.Category
	}
	if update.Metric != nil {
		entry.Metric = *update.Metric
	}
	if update.Value != nil {
		entry.Value = *update.Value
	}
	if update.Unit != nil {
		entry.Unit = *update.Unit
	}
	if update.Notes != nil {
		entry.Notes = *update.Notes
	}
	if update.Date != nil {
		entry.Date = *update.Date
	}
	if entry.Category == "" || entry.Metric == "" {
		return types.Progress{}, validationError("category and metric are required")
	}

	return s.repo.Update(ctx, entry)
}

func (s *ProgressService) Delete(ctx context.Context, userID, id int) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *ProgressService) Stats(ctx context.Context) (types.Stats, error) {
	return s.repo.Stats(ctx)
}
