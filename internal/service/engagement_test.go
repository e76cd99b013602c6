package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogram/internal/model"
	"photogram/internal/repository/badgerrepo"
)

func addTestPhoto(t *testing.T, store *badgerrepo.Store, ownerID int64, uri string, createdAt time.Time) *model.Photo {
	t.Helper()
	p := &model.Photo{OwnerID: ownerID, URI: uri, CreatedAt: createdAt}
	require.NoError(t, store.Photos().Add(context.Background(), p))
	return p
}

func TestEngagementService_LikeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	svc := NewEngagementService(store.Accounts(), store.Photos(), newTestCanonicalizer())
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	fan := newTestAccount(t, store, "Alan", "Turing")
	addTestPhoto(t, store, owner.ID, "/uploads/1.jpg", time.Now())

	require.NoError(t, svc.Like(ctx, fan.ID, "/uploads/1.jpg"))

	err := svc.Like(ctx, fan.ID, "/uploads/1.jpg")
	assert.ErrorIs(t, err, model.ErrAlreadyLiked)
	assert.ErrorIs(t, err, model.ErrConflict)

	details, err := svc.Details(ctx, "/uploads/1.jpg", fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{fan.ID}, details.Likes)
	assert.True(t, details.IsLikedByViewer)

	require.NoError(t, svc.Unlike(ctx, fan.ID, "/uploads/1.jpg"))
	assert.ErrorIs(t, svc.Unlike(ctx, fan.ID, "/uploads/1.jpg"), model.ErrNotLiked)

	details, err = svc.Details(ctx, "/uploads/1.jpg", fan.ID)
	require.NoError(t, err)
	assert.Empty(t, details.Likes)
	assert.False(t, details.IsLikedByViewer)
}

func TestEngagementService_ConcurrentLikesAreAllKept(t *testing.T) {
	store := newTestStore(t)
	svc := NewEngagementService(store.Accounts(), store.Photos(), newTestCanonicalizer())
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	addTestPhoto(t, store, owner.ID, "/uploads/1.jpg", time.Now())

	const likers = 12
	ids := make([]int64, likers)
	for i := range ids {
		ids[i] = newTestAccount(t, store, "Fan", fmt.Sprintf("N%d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, svc.Like(ctx, id, "/uploads/1.jpg"))
		}(id)
	}
	wg.Wait()

	details, err := svc.Details(ctx, "/uploads/1.jpg", owner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, details.Likes)
}

func TestEngagementService_AcceptsAbsoluteURLs(t *testing.T) {
	store := newTestStore(t)
	svc := NewEngagementService(store.Accounts(), store.Photos(), newTestCanonicalizer())
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	fan := newTestAccount(t, store, "Alan", "Turing")
	addTestPhoto(t, store, owner.ID, "/uploads/123.jpg", time.Now())

	absolute := testBaseURL + "/uploads/123.jpg"

	require.NoError(t, svc.Like(ctx, fan.ID, absolute))

	view, err := svc.Comment(ctx, fan.ID, absolute, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", view.Text)
	assert.Equal(t, "Alan", view.Author.FirstName)

	details, err := svc.Details(ctx, absolute, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/123.jpg", details.URI)
	assert.True(t, details.IsLikedByViewer)
	require.Len(t, details.Comments, 1)
	assert.Equal(t, "hi", details.Comments[0].Text)
	assert.Equal(t, fan.ID, details.Comments[0].Author.ID)
	assert.Equal(t, "Turing", details.Comments[0].Author.LastName)
}

func TestEngagementService_CommentOnMissingPhoto(t *testing.T) {
	store := newTestStore(t)
	svc := NewEngagementService(store.Accounts(), store.Photos(), newTestCanonicalizer())
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	addTestPhoto(t, store, owner.ID, "/uploads/1.jpg", time.Now())

	_, err := svc.Comment(ctx, owner.ID, "/uploads/missing.jpg", "hi")
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.Comment(ctx, owner.ID, "/uploads/1.jpg", "   ")
	assert.ErrorIs(t, err, model.ErrEmptyComment)

	photos, err := store.Photos().ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Empty(t, photos[0].Comments)

	_, err = svc.Details(ctx, "https://elsewhere.example/uploads/1.jpg", owner.ID)
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)
}

func TestEngagementService_CommentsKeepOrder(t *testing.T) {
	store := newTestStore(t)
	svc := NewEngagementService(store.Accounts(), store.Photos(), newTestCanonicalizer())
	ctx := context.Background()

	owner := newTestAccount(t, store, "Ada", "Lovelace")
	fan := newTestAccount(t, store, "Alan", "Turing")
	addTestPhoto(t, store, owner.ID, "/uploads/1.jpg", time.Now())

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.Comment(ctx, fan.ID, "/uploads/1.jpg", text)
		require.NoError(t, err)
	}

	details, err := svc.Details(ctx, "/uploads/1.jpg", owner.ID)
	require.NoError(t, err)
	require.Len(t, details.Comments, 3)
	assert.Equal(t, "first", details.Comments[0].Text)
	assert.Equal(t, "third", details.Comments[2].Text)
	assert.False(t, details.IsLikedByViewer)
}
