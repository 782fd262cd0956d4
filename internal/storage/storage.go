package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps user avatars in object storage under
// avatars/<user id>/<uuid><ext>. Re-uploading replaces the URL on the
// user record; the previous object is deleted by the caller.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore for the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an avatar and returns its object key.
func (s *AvatarStore) Put(ctx context.Context, userID int, ext string, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a reader for a stored avatar.
func (s *AvatarStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes a stored avatar. Keys outside the avatars/ prefix are
// rejected so a bad URL on a user record cannot delete arbitrary
// objects.
func (s *AvatarStore) Delete(ctx context.Context, key string) error {
	if path.Dir(path.Dir(key)) != "avatars" {
		return fmt.Errorf("not an avatar key: %s", key)
	}
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *AvatarStore) Bucket() string {
	return s.backend.Bucket()
}
