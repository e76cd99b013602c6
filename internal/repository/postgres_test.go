package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogram/internal/database"
	"photogram/internal/model"
	"photogram/internal/repository"
)

// These tests run against a real Postgres and are skipped unless TEST_DATABASE_URL is set.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	db, err := database.ConnectDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func createAccount(t *testing.T, accounts repository.AccountRepository, first string) *model.Account {
	t.Helper()

	a := &model.Account{
		Email:        first + "-" + uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    first,
		LastName:     "Test",
	}
	require.NoError(t, accounts.Create(context.Background(), a))
	return a
}

func TestPostgres_AccountDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	ctx := context.Background()

	a := createAccount(t, accounts, "dup")
	err := accounts.Create(ctx, &model.Account{
		Email:        a.Email,
		PasswordHash: "hash",
		FirstName:    "dup",
		LastName:     "Again",
	})
	assert.ErrorIs(t, err, model.ErrDuplicateIdentity)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPostgres_FollowMirror(t *testing.T) {
	db := setupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	graph := repository.NewGraphRepository(db)
	ctx := context.Background()

	alice := createAccount(t, accounts, "alice")
	bob := createAccount(t, accounts, "bob")

	added, err := graph.AddFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = graph.AddFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, added, "second add must be a no-op")

	wrote, err := graph.SyncFollower(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, wrote)

	followers, err := graph.GetFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID}, followers)

	removed, err := graph.RemoveFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = graph.SyncFollower(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	counts, err := graph.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.FollowersCount)

	_, err = graph.AddFollowing(ctx, alice.ID+1_000_000, bob.ID)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestPostgres_ConcurrentLikes(t *testing.T) {
	db := setupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	photos := repository.NewPhotoRepository(db)
	ctx := context.Background()

	owner := createAccount(t, accounts, "owner")
	photo := &model.Photo{
		OwnerID:   owner.ID,
		URI:       "/uploads/" + uuid.NewString() + ".jpg",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, photos.Add(ctx, photo))

	const likers = 10
	ids := make([]int64, likers)
	for i := range ids {
		ids[i] = createAccount(t, accounts, "liker").ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := photos.AddLike(ctx, owner.ID, photo.ID, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := photos.FindByURI(ctx, photo.URI)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, found.Likes)

	require.NoError(t, photos.AppendComment(ctx, owner.ID, photo.ID, model.Comment{
		AuthorID:  ids[0],
		Text:      "nice",
		CreatedAt: time.Now().UTC(),
	}))

	removed, err := photos.Remove(ctx, owner.ID, photo.URI)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, removed.ID)

	_, err = photos.FindByURI(ctx, photo.URI)
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)
}

func TestPostgres_BlobReferences(t *testing.T) {
	db := setupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	photos := repository.NewPhotoRepository(db)
	ctx := context.Background()

	alice := createAccount(t, accounts, "alice")
	mallory := createAccount(t, accounts, "mallory")
	uri := "/uploads/" + uuid.NewString() + ".jpg"

	require.NoError(t, photos.Add(ctx, &model.Photo{OwnerID: alice.ID, URI: uri, CreatedAt: time.Now().UTC()}))
	require.NoError(t, photos.Add(ctx, &model.Photo{OwnerID: mallory.ID, URI: uri, CreatedAt: time.Now().UTC()}))

	_, err := photos.Remove(ctx, mallory.ID, uri)
	require.NoError(t, err)
	inUse, err := photos.URIInUse(ctx, uri)
	require.NoError(t, err)
	assert.True(t, inUse)

	_, err = photos.Remove(ctx, alice.ID, uri)
	require.NoError(t, err)
	inUse, err = photos.URIInUse(ctx, uri)
	require.NoError(t, err)
	assert.False(t, inUse)

	_, err = accounts.SetProfilePicture(ctx, alice.ID, &uri)
	require.NoError(t, err)
	inUse, err = accounts.ProfilePictureInUse(ctx, uri)
	require.NoError(t, err)
	assert.True(t, inUse)
}
