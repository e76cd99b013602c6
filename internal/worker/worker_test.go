package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"photogram/internal/queue"
	"photogram/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type pair struct{ actor, target int64 }

// MockReconciler records every pair it is asked to repair.
type MockReconciler struct {
	mu    sync.Mutex
	pairs []pair
	err   error
}

func (m *MockReconciler) ReconcilePair(ctx context.Context, actorID, targetID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.pairs = append(m.pairs, pair{actorID, targetID})
	return true, nil
}

func (m *MockReconciler) Calls() []pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pair(nil), m.pairs...)
}

// MockFiles records deleted URIs.
type MockFiles struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (m *MockFiles) Delete(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, uri)
	return nil
}

// MockReferences reports the URIs in inUse as still referenced.
type MockReferences struct {
	inUse map[string]bool
	err   error
}

func (m *MockReferences) InUse(ctx context.Context, uri string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.inUse[uri], nil
}

// MockSweeper counts sweeps.
type MockSweeper struct {
	mu    sync.Mutex
	count int
}

func (m *MockSweeper) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return 0, nil
}

func (m *MockSweeper) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandler_RelationshipChanged(t *testing.T) {
	reconciler := &MockReconciler{}
	handler := worker.NewHandler(reconciler, nil, nil)

	err := handler.HandleEvent(context.Background(), queue.NewRelationshipChangedEvent(1, 2))
	if err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	calls := reconciler.Calls()
	if len(calls) != 1 || calls[0] != (pair{1, 2}) {
		t.Errorf("ReconcilePair calls = %v, want [{1 2}]", calls)
	}
}

func TestHandler_RelationshipChangedError(t *testing.T) {
	reconciler := &MockReconciler{err: errors.New("store down")}
	handler := worker.NewHandler(reconciler, nil, nil)

	if err := handler.HandleEvent(context.Background(), queue.NewRelationshipChangedEvent(1, 2)); err == nil {
		t.Error("expected reconcile error to be returned")
	}

	if err := handler.HandleEvent(context.Background(), queue.Event{Type: queue.EventRelationshipChanged}); err == nil {
		t.Error("expected error for event without ids")
	}
}

func TestHandler_BlobOrphaned(t *testing.T) {
	files := &MockFiles{}
	handler := worker.NewHandler(&MockReconciler{}, files, &MockReferences{})

	if err := handler.HandleEvent(context.Background(), queue.NewBlobOrphanedEvent(1, "/uploads/a.jpg")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(files.deleted) != 1 || files.deleted[0] != "/uploads/a.jpg" {
		t.Errorf("deleted = %v, want [/uploads/a.jpg]", files.deleted)
	}

	files.err = errors.New("bucket unavailable")
	if err := handler.HandleEvent(context.Background(), queue.NewBlobOrphanedEvent(1, "/uploads/b.jpg")); err == nil {
		t.Error("expected delete error to be returned")
	}
}

func TestHandler_BlobOrphanedStillReferenced(t *testing.T) {
	files := &MockFiles{}
	refs := &MockReferences{inUse: map[string]bool{"/uploads/shared.jpg": true}}
	handler := worker.NewHandler(&MockReconciler{}, files, refs)

	if err := handler.HandleEvent(context.Background(), queue.NewBlobOrphanedEvent(1, "/uploads/shared.jpg")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(files.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing while the uri is referenced", files.deleted)
	}

	refs.err = errors.New("store down")
	if err := handler.HandleEvent(context.Background(), queue.NewBlobOrphanedEvent(1, "/uploads/other.jpg")); err == nil {
		t.Error("expected reference check error to be returned")
	}
	if len(files.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing when references are unknown", files.deleted)
	}
}

func TestHandler_UnknownEvent(t *testing.T) {
	handler := worker.NewHandler(&MockReconciler{}, nil, nil)

	if err := handler.HandleEvent(context.Background(), queue.Event{Type: "mystery"}); err == nil {
		t.Error("expected error for unknown event type")
	}
	if err := handler.HandleEvent(context.Background(), queue.NewPhotoRemovedEvent(1, "/uploads/a.jpg")); err != nil {
		t.Errorf("photo_removed should be accepted, got %v", err)
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManager_ConsumesPublishedEvents(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	publisher := queue.NewPublisher(client, 1000)
	reconciler := &MockReconciler{}
	files := &MockFiles{}

	// Published before the group exists; the group starts at the beginning of the stream.
	if _, err := publisher.Publish(ctx, queue.StreamGraph, queue.NewRelationshipChangedEvent(3, 4)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	manager := worker.NewManager(queue.NewConsumer(client), worker.NewHandler(reconciler, files, &MockReferences{}), nil, worker.ManagerConfig{
		WorkerCount:  2,
		BatchSize:    5,
		BlockTimeout: 100 * time.Millisecond,
	})
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	if _, err := publisher.Publish(ctx, queue.StreamGraph, queue.NewBlobOrphanedEvent(3, "/uploads/x.jpg")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, func() bool { return len(reconciler.Calls()) == 1 })
	waitFor(t, func() bool {
		files.mu.Lock()
		defer files.mu.Unlock()
		return len(files.deleted) == 1
	})

	waitFor(t, func() bool {
		pending, err := queue.NewConsumer(client).Pending(ctx, queue.StreamGraph, queue.ConsumerGroupGraph)
		return err == nil && pending == 0
	})
}

func TestManager_PeriodicSweep(t *testing.T) {
	client := setupTestRedis(t)
	sweeper := &MockSweeper{}

	manager := worker.NewManager(queue.NewConsumer(client), worker.NewHandler(&MockReconciler{}, nil, nil), sweeper, worker.ManagerConfig{
		WorkerCount:   1,
		BlockTimeout:  50 * time.Millisecond,
		SweepInterval: 30 * time.Millisecond,
	})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, func() bool { return sweeper.Count() >= 2 })
	manager.Stop()
}

// flakyHandler fails the first failures calls.
type flakyHandler struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (h *flakyHandler) HandleEvent(ctx context.Context, event queue.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func (h *flakyHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestManager_RetriesBeforeAck(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
	}{
		{"succeeds on third attempt", 2, 3},
		{"gives up after max attempts", 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestRedis(t)
			ctx := context.Background()
			handler := &flakyHandler{failures: tt.failures}

			manager := worker.NewManager(queue.NewConsumer(client), handler, nil, worker.ManagerConfig{
				WorkerCount:  1,
				BlockTimeout: 50 * time.Millisecond,
				MaxAttempts:  3,
				RetryBackoff: time.Millisecond,
			})
			if err := manager.Start(ctx); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			defer manager.Stop()

			if _, err := queue.NewPublisher(client, 1000).Publish(ctx, queue.StreamGraph, queue.NewRelationshipChangedEvent(1, 2)); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}

			waitFor(t, func() bool {
				pending, err := queue.NewConsumer(client).Pending(ctx, queue.StreamGraph, queue.ConsumerGroupGraph)
				return err == nil && pending == 0 && handler.Calls() == tt.wantCalls
			})
		})
	}
}
