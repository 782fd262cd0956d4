package services

import (
	"context"
	"errors"
	"strings"

	"github.com/progress2win/apiserver/internal/mq"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/types"
)

// FriendRepository defines persistence operations for friendships.
type FriendRepository interface {
	Create(ctx context.Context, userID, friendID int) (types.Friendship, error)
	Get(ctx context.Context, userID, friendID int) (types.Friendship, error)
	Accept(ctx context.Context, id, friendID int) error
	List(ctx context.Context, userID int) ([]types.Friend, error)
}

// CompareService encapsulates friend comparison and leaderboard
// use-cases.
type CompareService struct {
	friends       FriendRepository
	users         UserRepository
	progress      ProgressRepository
	notifications *NotificationService
}

func NewCompareService(friends FriendRepository, users UserRepository, progress ProgressRepository, notifications *NotificationService) *CompareService {
	return &CompareService{
		friends:       friends,
		users:         users,
		progress:      progress,
		notifications: notifications,
	}
}

// Compare returns both users' progress side by side. Only accepted
// friends may be compared.
func (s *CompareService) Compare(ctx context.Context, userID, friendID int, filter types.ProgressFilter) (types.Comparison, error) {
	friendship, err := s.friends.Get(ctx, userID, friendID)
	if err != nil || friendship.Status != types.FriendshipAccepted {
		return types.Comparison{}, ErrNotFriends
	}

	entries, err := s.progress.ListForUsers(ctx, []int{userID, friendID}, filter)
	if err != nil {
		return types.Comparison{}, err
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Comparison{}, err
	}
	friend, err := s.users.GetByID(ctx, friendID)
	if err != nil {
		return types.Comparison{}, err
	}

	return types.Comparison{
		CurrentUser: summarize(current, entries, userID),
		Friend:      summarize(friend, entries, friendID),
	}, nil
}

// Invite sends a friend invitation to the user owning the given email
// and notifies them.
func (s *CompareService) Invite(ctx context.Context, userID int, friendEmail string) (types.Friendship, error) {
	friend, err := s.users.GetByEmail(ctx, strings.TrimSpace(friendEmail))
	if err != nil {
		return types.Friendship{}, err
	}
	if friend.ID == userID {
		return types.Friendship{}, validationError("cannot add yourself as a friend")
	}

	if _, err := s.friends.Get(ctx, userID, friend.ID); err == nil {
		return types.Friendship{}, ErrAlreadyFriends
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Friendship{}, err
	}

	friendship, err := s.friends.Create(ctx, userID, friend.ID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Friendship{}, ErrAlreadyFriends
		}
		return types.Friendship{}, err
	}

	if err := s.notifications.Notify(ctx, mq.NotificationEvent{
		UserID:  friend.ID,
		Title:   "New Friend Invitation",
		Message: "You have received a friend invitation to compare progress!",
		Type:    types.NotificationTypeInfo,
	}); err != nil {
		// The invitation stands even when the notification never lands.
		return friendship, nil
	}

	return friendship, nil
}

// Accept confirms a pending invitation addressed to the user.
func (s *CompareService) Accept(ctx context.Context, friendshipID, userID int) error {
	return s.friends.Accept(ctx, friendshipID, userID)
}

// Friends lists the user's friendships with the other party's profile.
func (s *CompareService) Friends(ctx context.Context, userID int) ([]types.Friend, error) {
	return s.friends.List(ctx, userID)
}

// Leaderboard ranks active users by summed progress.
func (s *CompareService) Leaderboard(ctx context.Context, filter types.ProgressFilter) ([]types.LeaderboardEntry, error) {
	return s.progress.Leaderboard(ctx, filter)
}

func summarize(user types.User, entries []types.Progress, userID int) types.ProgressSummary {
	user.PasswordHash = ""

	owned := []types.Progress{}
	total := 0.0
	for _, entry := range entries {
		if entry.UserID == userID {
			owned = append(owned, entry)
			total += entry.Value
		}
	}

	average := 0.0
	if len(owned) > 0 {
		average = total / float64(len(owned))
	}

	return types.ProgressSummary{
		User:         user,
		Progress:     owned,
		TotalEntries: len(owned),
		AverageValue: average,
	}
}
