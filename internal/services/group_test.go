package services

import (
	"context"
	"testing"

	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGroupRepo struct {
	nextID  int
	groups  map[int]types.Group
	members map[int]int // userID -> groupID
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{nextID: 1, groups: map[int]types.Group{}, members: map[int]int{}}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group types.Group) (types.Group, error) {
	for _, existing := range r.groups {
		if existing.Code == group.Code {
			return types.Group{}, store.ErrDuplicate
		}
	}
	if _, ok := r.members[group.CreatorID]; ok {
		return types.Group{}, store.ErrDuplicate
	}
	group.ID = r.nextID
	r.nextID++
	r.groups[group.ID] = group
	r.members[group.CreatorID] = group.ID
	return group, nil
}

func (r *fakeGroupRepo) Get(ctx context.Context, id int) (types.Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return types.Group{}, store.ErrNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) GetByCode(ctx context.Context, code string) (types.Group, error) {
	for _, group := range r.groups {
		if group.Code == code {
			return group, nil
		}
	}
	return types.Group{}, store.ErrNotFound
}

func (r *fakeGroupRepo) GetForUser(ctx context.Context, userID int) (types.Group, error) {
	groupID, ok := r.members[userID]
	if !ok {
		return types.Group{}, store.ErrNotFound
	}
	return r.Get(ctx, groupID)
}

func (r *fakeGroupRepo) AddMember(ctx context.Context, groupID, userID int) error {
	if _, ok := r.members[userID]; ok {
		return store.ErrDuplicate
	}
	r.members[userID] = groupID
	return nil
}

func (r *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID int) error {
	if r.members[userID] != groupID {
		return store.ErrNotFound
	}
	delete(r.members, userID)
	return nil
}

func (r *fakeGroupRepo) Members(ctx context.Context, groupID int) ([]types.User, error) {
	var users []types.User
	for userID, id := range r.members {
		if id == groupID {
			users = append(users, types.User{ID: userID})
		}
	}
	return users, nil
}

func (r *fakeGroupRepo) MemberProgress(ctx context.Context, groupID, limit int) ([]types.GroupProgressEntry, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	nextID  int
	created []types.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n types.Notification) (types.Notification, error) {
	r.nextID++
	n.ID = r.nextID
	r.created = append(r.created, n)
	return n, nil
}

func (r *fakeNotificationRepo) List(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]types.Notification, error) {
	var out []types.Notification
	for _, n := range r.created {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID, id int) error { return nil }
func (r *fakeNotificationRepo) Delete(ctx context.Context, userID, id int) error  { return nil }

func newTestGroupService() (*GroupService, *fakeGroupRepo, *fakeNotificationRepo) {
	repo := newFakeGroupRepo()
	notifications := &fakeNotificationRepo{}
	svc := NewGroupService(repo, NewNotificationService(notifications, nil))
	return svc, repo, notifications
}

func TestGroupCreate(t *testing.T) {
	svc, _, _ := newTestGroupService()
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Morning Runners", "We run before work")
	require.NoError(t, err)
	assert.Equal(t, "Morning Runners", group.Name)
	assert.Len(t, group.Code, groupCodeLength)
	for _, r := range group.Code {
		assert.Contains(t, groupCodeAlphabet, string(r))
	}
}

func TestGroupCreateValidation(t *testing.T) {
	svc, _, _ := newTestGroupService()

	_, err := svc.Create(context.Background(), 1, "   ", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGroupCreateWhileMember(t *testing.T) {
	svc, _, _ := newTestGroupService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "First", "")
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, "Second", "")
	assert.ErrorIs(t, err, ErrAlreadyInGroup)
}

func TestGroupJoin(t *testing.T) {
	svc, _, notifications := newTestGroupService()
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Morning Runners", "")
	require.NoError(t, err)

	// Codes are matched case-insensitively.
	joined, err := svc.Join(ctx, 2, "  "+group.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)

	// The creator is told about the new member.
	require.Len(t, notifications.created, 1)
	assert.Equal(t, 1, notifications.created[0].UserID)

	// One group per user.
	_, err = svc.Join(ctx, 2, group.Code)
	assert.ErrorIs(t, err, ErrAlreadyInGroup)

	_, err = svc.Join(ctx, 3, "XXXXXX")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGroupMembershipLifecycle(t *testing.T) {
	svc, _, _ := newTestGroupService()
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Morning Runners", "")
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2, group.Code)
	require.NoError(t, err)

	mine, err := svc.MyGroup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, group.ID, mine.ID)
	assert.Len(t, mine.Members, 2)

	require.NoError(t, svc.Leave(ctx, group.ID, 2))

	_, err = svc.MyGroup(ctx, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// After leaving, the user may join again.
	_, err = svc.Join(ctx, 2, group.Code)
	assert.NoError(t, err)
}

func TestGroupProgressRequiresMembership(t *testing.T) {
	svc, _, _ := newTestGroupService()
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Morning Runners", "")
	require.NoError(t, err)

	_, err = svc.Progress(ctx, group.ID, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Progress(ctx, group.ID, 1)
	assert.NoError(t, err)
}
