package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"photogram/internal/badgerdb"
	"photogram/internal/mediauri"
	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
	"photogram/internal/repository/badgerrepo"
)

const testBaseURL = "http://localhost:8080"

func newTestStore(t *testing.T) *badgerrepo.Store {
	t.Helper()

	db, err := badgerdb.Open(badgerdb.InMemoryConfig())
	require.NoError(t, err)

	store, err := badgerrepo.NewStore(db.DB)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		db.Close()
	})
	return store
}

func newTestAccount(t *testing.T, store *badgerrepo.Store, first, last string) *model.Account {
	t.Helper()
	a := &model.Account{
		Email:        first + "." + last + "@example.com",
		PasswordHash: "hash",
		FirstName:    first,
		LastName:     last,
	}
	require.NoError(t, store.Accounts().Create(context.Background(), a))
	return a
}

func newTestCanonicalizer() *mediauri.Canonicalizer {
	return mediauri.MustNew(testBaseURL)
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "0-1", nil
}

func (p *recordingPublisher) ofType(eventType string) []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// stubFiles is a FileStorage whose behavior each test controls.
type stubFiles struct {
	mu        sync.Mutex
	storeFn   func(data []byte, contentType string) (string, error)
	deleteErr error
	deleted   []string
}

func (f *stubFiles) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.storeFn != nil {
		return f.storeFn(data, contentType)
	}
	return "/uploads/stub.jpg", nil
}

func (f *stubFiles) Delete(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, uri)
	return nil
}

var errInjected = errors.New("injected failure")

// flakyGraph fails the first failSyncs SyncFollower calls.
type flakyGraph struct {
	repository.GraphRepository

	mu        sync.Mutex
	failSyncs int
}

func (g *flakyGraph) SyncFollower(ctx context.Context, actorID, targetID int64) (bool, error) {
	g.mu.Lock()
	if g.failSyncs > 0 {
		g.failSyncs--
		g.mu.Unlock()
		return false, errInjected
	}
	g.mu.Unlock()
	return g.GraphRepository.SyncFollower(ctx, actorID, targetID)
}

// cancellingGraph cancels the caller's context right after the actor side commits.
type cancellingGraph struct {
	repository.GraphRepository
	cancel context.CancelFunc
}

func (g *cancellingGraph) AddFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	added, err := g.GraphRepository.AddFollowing(ctx, actorID, targetID)
	g.cancel()
	return added, err
}

func (g *cancellingGraph) RemoveFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	removed, err := g.GraphRepository.RemoveFollowing(ctx, actorID, targetID)
	g.cancel()
	return removed, err
}

// failingURICheck fails every URIInUse call.
type failingURICheck struct {
	repository.PhotoRepository
}

func (p *failingURICheck) URIInUse(ctx context.Context, uri string) (bool, error) {
	return false, errInjected
}
