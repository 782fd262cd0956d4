package services

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/progress2win/apiserver/internal/storage"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/types"
)

// UserService encapsulates profile use-cases.
type UserService struct {
	repo    UserRepository
	avatars *storage.AvatarStore
}

// NewUserService constructs a UserService. avatars may be nil when no
// object storage is configured; avatar uploads then fail cleanly.
func NewUserService(repo UserRepository, avatars *storage.AvatarStore) *UserService {
	return &UserService{repo: repo, avatars: avatars}
}

func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UserUpdate carries the optional profile fields; nil means unchanged.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
	Goals     []string
}

// Update applies a partial profile update and returns the new snapshot.
func (s *UserService) Update(ctx context.Context, id int, update UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}
	if update.Goals != nil {
		user.Goals = update.Goals
	}
	if user.FirstName == "" || user.LastName == "" {
		return types.User{}, validationError("name cannot be empty")
	}

	return s.repo.Update(ctx, user)
}

// Delete removes the account and, by cascade, everything it owns.
func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// UploadAvatar stores a new avatar object and records its key on the
// user. The previous object, if any, is removed best-effort after the
// record is updated.
func (s *UserService) UploadAvatar(ctx context.Context, id int, ext string, r io.Reader, size int64, contentType string) (types.User, error) {
	if s.avatars == nil {
		return types.User{}, validationError("avatar storage is not configured")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	key, err := s.avatars.Put(ctx, id, ext, r, size, contentType)
	if err != nil {
		return types.User{}, err
	}

	previous := user.AvatarURL
	user.AvatarURL = key
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		_ = s.avatars.Delete(ctx, key)
		return types.User{}, err
	}

	if previous != "" {
		_ = s.avatars.Delete(ctx, previous)
	}
	return updated, nil
}

// DownloadAvatar opens the user's stored avatar for reading and
// reports its content type, derived from the object key's extension.
// A user without an avatar, or a deployment without object storage,
// simply has no avatar to serve.
func (s *UserService) DownloadAvatar(ctx context.Context, id int) (io.ReadCloser, string, error) {
	if s.avatars == nil {
		return nil, "", store.ErrNotFound
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if user.AvatarURL == "" {
		return nil, "", store.ErrNotFound
	}

	rc, err := s.avatars.Get(ctx, user.AvatarURL)
	if err != nil {
		return nil, "", err
	}

	contentType := mime.TypeByExtension(path.Ext(user.AvatarURL))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}
