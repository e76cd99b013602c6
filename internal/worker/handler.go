package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"photogram/internal/metrics"
	"photogram/internal/queue"
)

// PairReconciler restores the follower mirror of a single relationship.
// This abstracts the service layer so workers don't depend on it directly.
type PairReconciler interface {
	ReconcilePair(ctx context.Context, actorID, targetID int64) (bool, error)
}

// BlobDeleter removes stored bytes by canonical URI.
type BlobDeleter interface {
	Delete(ctx context.Context, uri string) error
}

// BlobReferences reports whether a photo or profile picture still uses a URI.
type BlobReferences interface {
	InUse(ctx context.Context, uri string) (bool, error)
}

// Handler processes graph events from the queue.
type Handler struct {
	reconciler PairReconciler
	files      BlobDeleter    // Can be nil if orphan cleanup is not wired
	refs       BlobReferences // Required when files is set
}

func NewHandler(reconciler PairReconciler, files BlobDeleter, refs BlobReferences) *Handler {
	return &Handler{
		reconciler: reconciler,
		files:      files,
		refs:       refs,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventRelationshipChanged:
		err = h.handleRelationshipChanged(ctx, event)
	case queue.EventBlobOrphaned:
		err = h.handleBlobOrphaned(ctx, event)
	case queue.EventPhotoRemoved:
		// Nothing derived from photos is cached yet.
		log.Printf("[Worker] PhotoRemoved: owner=%d uri=%s", event.OwnerID, event.URI)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		metrics.EventsHandled.WithLabelValues(event.Type, "unknown").Inc()
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		metrics.EventsHandled.WithLabelValues(event.Type, "error").Inc()
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	metrics.EventsHandled.WithLabelValues(event.Type, "ok").Inc()
	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleRelationshipChanged re-derives target.followers from actor.following.
// Running it for a pair that is already consistent is a no-op.
func (h *Handler) handleRelationshipChanged(ctx context.Context, event queue.Event) error {
	if event.ActorID == 0 || event.TargetID == 0 {
		return fmt.Errorf("relationship event missing ids: actor=%d target=%d", event.ActorID, event.TargetID)
	}

	changed, err := h.reconciler.ReconcilePair(ctx, event.ActorID, event.TargetID)
	if err != nil {
		return fmt.Errorf("reconcile pair: %w", err)
	}

	log.Printf("[Worker] RelationshipChanged: actor=%d target=%d repaired=%t",
		event.ActorID, event.TargetID, changed)
	return nil
}

// handleBlobOrphaned retries deleting bytes whose photo metadata is already gone. The URI
// may have been attached again since the event was queued, so references are re-checked.
func (h *Handler) handleBlobOrphaned(ctx context.Context, event queue.Event) error {
	if h.files == nil || h.refs == nil {
		log.Printf("[Worker] BlobOrphaned: no file storage wired, skipping uri=%s", event.URI)
		return nil
	}
	if event.URI == "" {
		return fmt.Errorf("blob event missing uri")
	}

	inUse, err := h.refs.InUse(ctx, event.URI)
	if err != nil {
		return fmt.Errorf("check blob references: %w", err)
	}
	if inUse {
		log.Printf("[Worker] BlobOrphaned: still referenced, kept uri=%s", event.URI)
		return nil
	}

	if err := h.files.Delete(ctx, event.URI); err != nil {
		metrics.BlobDeleteFailures.Inc()
		return fmt.Errorf("delete orphaned blob: %w", err)
	}

	log.Printf("[Worker] BlobOrphaned: deleted uri=%s owner=%d", event.URI, event.OwnerID)
	return nil
}
