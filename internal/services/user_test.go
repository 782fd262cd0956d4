package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/progress2win/apiserver/internal/storage"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjectStorage keeps objects in a map, standing in for the
// minio/gcs backends.
type fakeObjectStorage struct {
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (s *fakeObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (s *fakeObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStorage) Bucket() string { return "test-bucket" }

func newTestUserService() (*UserService, *fakeUserRepo, *fakeObjectStorage) {
	users := newFakeUserRepo()
	backend := newFakeObjectStorage()
	svc := NewUserService(users, storage.NewAvatarStore(backend))
	return svc, users, backend
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	svc, users, backend := newTestUserService()
	ctx := context.Background()

	user := seedUser(t, users, "ada@example.com")

	first, err := svc.UploadAvatar(ctx, user.ID, ".png", strings.NewReader("first"), 5, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.AvatarURL, "avatars/"))
	assert.Len(t, backend.objects, 1)

	second, err := svc.UploadAvatar(ctx, user.ID, ".png", strings.NewReader("second"), 6, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, first.AvatarURL, second.AvatarURL)

	// The superseded object is gone; only the new one remains.
	assert.Len(t, backend.objects, 1)
	_, ok := backend.objects[second.AvatarURL]
	assert.True(t, ok)
}

func TestDownloadAvatar(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()

	user := seedUser(t, users, "ada@example.com")

	_, err := svc.UploadAvatar(ctx, user.ID, ".png", strings.NewReader("image-bytes"), 11, "image/png")
	require.NoError(t, err)

	rc, contentType, err := svc.DownloadAvatar(ctx, user.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
	assert.Equal(t, "image/png", contentType)
}

func TestDownloadAvatarMissing(t *testing.T) {
	svc, users, _ := newTestUserService()
	ctx := context.Background()

	user := seedUser(t, users, "ada@example.com")

	// No avatar uploaded yet.
	_, _, err := svc.DownloadAvatar(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAvatarEndpointsWithoutStorage(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, nil)
	ctx := context.Background()

	user := seedUser(t, users, "ada@example.com")

	_, err := svc.UploadAvatar(ctx, user.ID, ".png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.DownloadAvatar(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
