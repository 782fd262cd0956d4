package services

import (
	"context"
	"testing"
	"time"

	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFriendRepo struct {
	nextID      int
	friendships map[int]types.Friendship
}

func newFakeFriendRepo() *fakeFriendRepo {
	return &fakeFriendRepo{nextID: 1, friendships: map[int]types.Friendship{}}
}

func (r *fakeFriendRepo) Create(ctx context.Context, userID, friendID int) (types.Friendship, error) {
	for _, f := range r.friendships {
		if (f.UserID == userID && f.FriendID == friendID) || (f.UserID == friendID && f.FriendID == userID) {
			return types.Friendship{}, store.ErrDuplicate
		}
	}
	f := types.Friendship{ID: r.nextID, UserID: userID, FriendID: friendID, Status: types.FriendshipPending}
	r.nextID++
	r.friendships[f.ID] = f
	return f, nil
}

func (r *fakeFriendRepo) Get(ctx context.Context, userID, friendID int) (types.Friendship, error) {
	for _, f := range r.friendships {
		if (f.UserID == userID && f.FriendID == friendID) || (f.UserID == friendID && f.FriendID == userID) {
			return f, nil
		}
	}
	return types.Friendship{}, store.ErrNotFound
}

func (r *fakeFriendRepo) Accept(ctx context.Context, id, friendID int) error {
	f, ok := r.friendships[id]
	if !ok || f.FriendID != friendID || f.Status != types.FriendshipPending {
		return store.ErrNotFound
	}
	f.Status = types.FriendshipAccepted
	r.friendships[id] = f
	return nil
}

func (r *fakeFriendRepo) List(ctx context.Context, userID int) ([]types.Friend, error) {
	var out []types.Friend
	for _, f := range r.friendships {
		if f.UserID == userID || f.FriendID == userID {
			out = append(out, types.Friend{Friendship: f})
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	entries []types.Progress
}

func (r *fakeProgressRepo) Get(ctx context.Context, userID, id int) (types.Progress, error) {
	for _, e := range r.entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return types.Progress{}, store.ErrNotFound
}

func (r *fakeProgressRepo) List(ctx context.Context, userID int, filter types.ProgressFilter) ([]types.Progress, error) {
	var out []types.Progress
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) ListForUsers(ctx context.Context, userIDs []int, filter types.ProgressFilter) ([]types.Progress, error) {
	var out []types.Progress
	for _, e := range r.entries {
		for _, id := range userIDs {
			if e.UserID == id {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) Create(ctx context.Context, entry types.Progress) (types.Progress, error) {
	entry.ID = len(r.entries) + 1
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeProgressRepo) Update(ctx context.Context, entry types.Progress) (types.Progress, error) {
	return entry, nil
}

func (r *fakeProgressRepo) Delete(ctx context.Context, userID, id int) error { return nil }

func (r *fakeProgressRepo) Leaderboard(ctx context.Context, filter types.ProgressFilter) ([]types.LeaderboardEntry, error) {
	return nil, nil
}

func (r *fakeProgressRepo) Stats(ctx context.Context) (types.Stats, error) {
	return types.Stats{}, nil
}

func newTestCompareService() (*CompareService, *fakeUserRepo, *fakeFriendRepo, *fakeProgressRepo, *fakeNotificationRepo) {
	users := newFakeUserRepo()
	friends := newFakeFriendRepo()
	progress := &fakeProgressRepo{}
	notifications := &fakeNotificationRepo{}
	svc := NewCompareService(friends, users, progress, NewNotificationService(notifications, nil))
	return svc, users, friends, progress, notifications
}

func seedUser(t *testing.T, users *fakeUserRepo, email string) types.User {
	t.Helper()
	user, err := users.Create(context.Background(), types.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
		IsActive:     true,
	})
	require.NoError(t, err)
	return user
}

func TestInviteAndAccept(t *testing.T) {
	svc, users, _, _, notifications := newTestCompareService()
	ctx := context.Background()

	ada := seedUser(t, users, "ada@example.com")
	grace := seedUser(t, users, "grace@example.com")

	friendship, err := svc.Invite(ctx, ada.ID, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.FriendshipPending, friendship.Status)

	// The invitee is notified.
	require.Len(t, notifications.created, 1)
	assert.Equal(t, grace.ID, notifications.created[0].UserID)

	// Only the invitee may accept.
	err = svc.Accept(ctx, friendship.ID, ada.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, svc.Accept(ctx, friendship.ID, grace.ID))

	listed, err := svc.Friends(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, types.FriendshipAccepted, listed[0].Status)
}

func TestInviteRejections(t *testing.T) {
	svc, users, _, _, _ := newTestCompareService()
	ctx := context.Background()

	ada := seedUser(t, users, "ada@example.com")
	grace := seedUser(t, users, "grace@example.com")

	_, err := svc.Invite(ctx, ada.ID, "ada@example.com")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Invite(ctx, ada.ID, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Invite(ctx, ada.ID, "grace@example.com")
	require.NoError(t, err)

	// A second invitation in either direction is rejected.
	_, err = svc.Invite(ctx, ada.ID, "grace@example.com")
	assert.ErrorIs(t, err, ErrAlreadyFriends)
	_, err = svc.Invite(ctx, grace.ID, "ada@example.com")
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestCompareRequiresAcceptedFriendship(t *testing.T) {
	svc, users, _, _, _ := newTestCompareService()
	ctx := context.Background()

	ada := seedUser(t, users, "ada@example.com")
	grace := seedUser(t, users, "grace@example.com")

	_, err := svc.Compare(ctx, ada.ID, grace.ID, types.ProgressFilter{})
	assert.ErrorIs(t, err, ErrNotFriends)

	friendship, err := svc.Invite(ctx, ada.ID, "grace@example.com")
	require.NoError(t, err)

	// Pending is not enough.
	_, err = svc.Compare(ctx, ada.ID, grace.ID, types.ProgressFilter{})
	assert.ErrorIs(t, err, ErrNotFriends)

	require.NoError(t, svc.Accept(ctx, friendship.ID, grace.ID))
	_, err = svc.Compare(ctx, ada.ID, grace.ID, types.ProgressFilter{})
	assert.NoError(t, err)
}

func TestCompareSummaries(t *testing.T) {
	svc, users, _, progress, _ := newTestCompareService()
	ctx := context.Background()

	ada := seedUser(t, users, "ada@example.com")
	grace := seedUser(t, users, "grace@example.com")

	friendship, err := svc.Invite(ctx, ada.ID, "grace@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, friendship.ID, grace.ID))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, value := range []float64{10, 20} {
		_, err := progress.Create(ctx, types.Progress{
			UserID: ada.ID, Category: "fitness", Metric: "run", Value: value,
			Date: day.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}
	_, err = progress.Create(ctx, types.Progress{
		UserID: grace.ID, Category: "fitness", Metric: "run", Value: 5, Date: day,
	})
	require.NoError(t, err)

	comparison, err := svc.Compare(ctx, ada.ID, grace.ID, types.ProgressFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, comparison.CurrentUser.TotalEntries)
	assert.InDelta(t, 15.0, comparison.CurrentUser.AverageValue, 1e-9)
	assert.Equal(t, 1, comparison.Friend.TotalEntries)
	assert.InDelta(t, 5.0, comparison.Friend.AverageValue, 1e-9)

	// Password hashes never reach a comparison payload.
	assert.Empty(t, comparison.CurrentUser.User.PasswordHash)
	assert.Empty(t, comparison.Friend.User.PasswordHash)
}
