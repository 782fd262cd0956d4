package services

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/progress2win/apiserver/internal/mq"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/types"
)

const (
	groupCodeLength   = 6
	groupCodeAttempts = 10

	// Excludes similar-looking characters (0/O, 1/I).
	groupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	defaultGroupFeedLimit = 100
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	Create(ctx context.Context, group types.Group) (types.Group, error)
	Get(ctx context.Context, id int) (types.Group, error)
	GetByCode(ctx context.Context, code string) (types.Group, error)
	GetForUser(ctx context.Context, userID int) (types.Group, error)
	AddMember(ctx context.Context, groupID, userID int) error
	RemoveMember(ctx context.Context, groupID, userID int) error
	Members(ctx context.Context, groupID int) ([]types.User, error)
	MemberProgress(ctx context.Context, groupID, limit int) ([]types.GroupProgressEntry, error)
}

// GroupService encapsulates group use-cases.
type GroupService struct {
	repo          GroupRepository
	notifications *NotificationService
}

func NewGroupService(repo GroupRepository, notifications *NotificationService) *GroupService {
	return &GroupService{repo: repo, notifications: notifications}
}

// Create starts a new group with the caller as its first member. Code
// collisions are detected by the unique constraint and retried with a
// fresh code.
func (s *GroupService) Create(ctx context.Context, creatorID int, name, description string) (types.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Group{}, validationError("group name is required")
	}

	if _, err := s.repo.GetForUser(ctx, creatorID); err == nil {
		return types.Group{}, ErrAlreadyInGroup
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Group{}, err
	}

	var lastErr error
	for attempt := 0; attempt < groupCodeAttempts; attempt++ {
		code, err := generateGroupCode()
		if err != nil {
			return types.Group{}, err
		}

		group, err := s.repo.Create(ctx, types.Group{
			Name:        name,
			Code:        code,
			CreatorID:   creatorID,
			Description: description,
		})
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return types.Group{}, err
		}
		lastErr = err
	}
	return types.Group{}, lastErr
}

// Join enrolls the caller in the group with the given invite code.
func (s *GroupService) Join(ctx context.Context, userID int, code string) (types.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return types.Group{}, validationError("group code is required")
	}

	group, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return types.Group{}, err
	}

	if err := s.repo.AddMember(ctx, group.ID, userID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Group{}, ErrAlreadyInGroup
		}
		return types.Group{}, err
	}

	_ = s.notifications.Notify(ctx, mq.NotificationEvent{
		UserID:  group.CreatorID,
		Title:   "New Group Member",
		Message: "Someone joined your group " + group.Name + "!",
		Type:    types.NotificationTypeSuccess,
	})

	return group, nil
}

// MyGroup returns the caller's group with its members.
func (s *GroupService) MyGroup(ctx context.Context, userID int) (types.GroupWithMembers, error) {
	group, err := s.repo.GetForUser(ctx, userID)
	if err != nil {
		return types.GroupWithMembers{}, err
	}
	return s.withMembers(ctx, group)
}

// Get returns a group with its members.
func (s *GroupService) Get(ctx context.Context, id int) (types.GroupWithMembers, error) {
	group, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.GroupWithMembers{}, err
	}
	return s.withMembers(ctx, group)
}

// Progress returns the recent progress feed across group members. Only
// members may read it.
func (s *GroupService) Progress(ctx context.Context, groupID, userID int) ([]types.GroupProgressEntry, error) {
	group, err := s.repo.GetForUser(ctx, userID)
	if err != nil || group.ID != groupID {
		return nil, store.ErrNotFound
	}
	return s.repo.MemberProgress(ctx, groupID, defaultGroupFeedLimit)
}

// Leave removes the caller from the group.
func (s *GroupService) Leave(ctx context.Context, groupID, userID int) error {
	return s.repo.RemoveMember(ctx, groupID, userID)
}

func (s *GroupService) withMembers(ctx context.Context, group types.Group) (types.GroupWithMembers, error) {
	members, err := s.repo.Members(ctx, group.ID)
	if err != nil {
		return types.GroupWithMembers{}, err
	}
	return types.GroupWithMembers{Group: group, Members: members}, nil
}

func generateGroupCode() (string, error) {
	buf := make([]byte, groupCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, groupCodeLength)
	for i, b := range buf {
		code[i] = groupCodeAlphabet[int(b)%len(groupCodeAlphabet)]
	}
	return string(code), nil
}
