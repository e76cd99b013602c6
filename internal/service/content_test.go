package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogram/internal/model"
	"photogram/internal/queue"
)

func TestContentService_AddAndListPhotos(t *testing.T) {
	store := newTestStore(t)
	svc := NewContentService(store.Accounts(), store.Photos(), &stubFiles{}, newTestCanonicalizer(), nil)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")

	first, err := svc.AddPhoto(ctx, owner.ID, testBaseURL+"/uploads/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1.jpg", first.URI, "stored uri is canonical")

	_, err = svc.AddPhoto(ctx, owner.ID, "/uploads/2.jpg")
	require.NoError(t, err)

	photos, err := svc.ListPhotos(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "/uploads/1.jpg", photos[0].URI)
	assert.Equal(t, "/uploads/2.jpg", photos[1].URI)

	_, err = svc.ListPhotos(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	_, err = svc.AddPhoto(ctx, owner.ID, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestContentService_RemoveRequiresOwnership(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), nil)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	stranger := newTestAccount(t, store, "Alan", "Turing")
	_, err := svc.AddPhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)

	_, err = svc.RemovePhoto(ctx, stranger.ID, "/uploads/1.jpg")
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, files.deleted)

	photos, err := svc.ListPhotos(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestContentService_RemoveDeletesBytes(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	pub := &recordingPublisher{}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), pub)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	_, err := svc.AddPhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)

	result, err := svc.RemovePhoto(ctx, owner.ID, testBaseURL+"/uploads/1.jpg")
	require.NoError(t, err)
	assert.True(t, result.BlobDeleted)
	assert.Equal(t, "/uploads/1.jpg", result.Photo.URI)
	assert.Equal(t, []string{"/uploads/1.jpg"}, files.deleted)
	assert.Len(t, pub.ofType(queue.EventPhotoRemoved), 1)
	assert.Empty(t, pub.ofType(queue.EventBlobOrphaned))
}

func TestContentService_BlobDeleteFailureIsNotFatal(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{deleteErr: errors.New("bucket unavailable")}
	pub := &recordingPublisher{}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), pub)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	_, err := svc.AddPhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)

	result, err := svc.RemovePhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)
	assert.False(t, result.BlobDeleted)

	orphaned := pub.ofType(queue.EventBlobOrphaned)
	require.Len(t, orphaned, 1)
	assert.Equal(t, "/uploads/1.jpg", orphaned[0].URI)
	assert.Equal(t, owner.ID, orphaned[0].OwnerID)

	photos, err := svc.ListPhotos(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, photos, "metadata removal is not undone")
}

func TestContentService_UploadCleansUpOnFailure(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{
		storeFn: func(data []byte, contentType string) (string, error) {
			return "/uploads/new.jpg", nil
		},
	}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")

	photo, err := svc.UploadPhoto(ctx, owner.ID, []byte("jpeg"), model.ContentTypeJPEG)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/new.jpg", photo.URI)
	assert.Equal(t, 2024, photo.CreatedAt.Year())
	assert.Empty(t, files.deleted)

	_, err = svc.UploadPhoto(ctx, 9999, []byte("jpeg"), model.ContentTypeJPEG)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
	assert.Equal(t, []string{"/uploads/new.jpg"}, files.deleted)
}

func TestContentService_ExternalURIsAreNotDeleted(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), nil)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	_, err := svc.AddPhoto(ctx, owner.ID, "https://cdn.example/a.jpg")
	require.NoError(t, err)

	result, err := svc.RemovePhoto(ctx, owner.ID, "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.False(t, result.BlobDeleted)
	assert.True(t, result.BlobRetained)
	assert.Empty(t, files.deleted)
}

func TestContentService_SharedURIKeepsBytes(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	pub := &recordingPublisher{}
	canon := newTestCanonicalizer()
	svc := NewContentService(store.Accounts(), store.Photos(), files, canon, pub)
	engagement := NewEngagementService(store.Accounts(), store.Photos(), canon)
	ctx := context.Background()

	alice := newTestAccount(t, store, "Alice", "Ames")
	mallory := newTestAccount(t, store, "Mallory", "Moss")

	_, err := svc.AddPhoto(ctx, alice.ID, "/uploads/alice.jpg")
	require.NoError(t, err)
	_, err = svc.AddPhoto(ctx, mallory.ID, testBaseURL+"/uploads/alice.jpg")
	require.NoError(t, err)

	result, err := svc.RemovePhoto(ctx, mallory.ID, "/uploads/alice.jpg")
	require.NoError(t, err)
	assert.False(t, result.BlobDeleted)
	assert.True(t, result.BlobRetained)
	assert.Empty(t, files.deleted, "alice's photo still uses the bytes")
	assert.Empty(t, pub.ofType(queue.EventBlobOrphaned))

	details, err := engagement.Details(ctx, "/uploads/alice.jpg", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/alice.jpg", details.URI)

	// The last reference going away releases the bytes.
	result, err = svc.RemovePhoto(ctx, alice.ID, "/uploads/alice.jpg")
	require.NoError(t, err)
	assert.True(t, result.BlobDeleted)
	assert.Equal(t, []string{"/uploads/alice.jpg"}, files.deleted)
}

func TestContentService_ProfilePictureKeepsBytes(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	svc := NewContentService(store.Accounts(), store.Photos(), files, newTestCanonicalizer(), nil)
	media := NewMediaService(store.Accounts(), store.Photos(), files, nil)
	ctx := context.Background()

	alice := newTestAccount(t, store, "Alice", "Ames")
	mallory := newTestAccount(t, store, "Mallory", "Moss")

	avatar := "/uploads/avatar.jpg"
	_, err := store.Accounts().SetProfilePicture(ctx, alice.ID, &avatar)
	require.NoError(t, err)

	_, err = svc.AddPhoto(ctx, mallory.ID, avatar)
	require.NoError(t, err)
	result, err := svc.RemovePhoto(ctx, mallory.ID, avatar)
	require.NoError(t, err)
	assert.True(t, result.BlobRetained)
	assert.Empty(t, files.deleted, "alice's profile picture still uses the bytes")

	cleaned, err := media.RemoveProfilePicture(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, cleaned)
	assert.Equal(t, []string{avatar}, files.deleted)
}

func TestContentService_ReferenceCheckFailureQueuesRetry(t *testing.T) {
	store := newTestStore(t)
	files := &stubFiles{}
	pub := &recordingPublisher{}
	photos := &failingURICheck{PhotoRepository: store.Photos()}
	svc := NewContentService(store.Accounts(), photos, files, newTestCanonicalizer(), pub)
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	_, err := svc.AddPhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)

	result, err := svc.RemovePhoto(ctx, owner.ID, "/uploads/1.jpg")
	require.NoError(t, err)
	assert.False(t, result.BlobDeleted)
	assert.False(t, result.BlobRetained)
	assert.Empty(t, files.deleted, "bytes are not deleted when references are unknown")
	assert.Len(t, pub.ofType(queue.EventBlobOrphaned), 1)
}
