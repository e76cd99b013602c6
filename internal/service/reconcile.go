package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"photogram/internal/metrics"
	"photogram/internal/model"
	"photogram/internal/repository"
)

// Reconciler restores the follower mirror from the authoritative following sets.
type Reconciler struct {
	accounts repository.AccountRepository
	graph    repository.GraphRepository
}

func NewReconciler(accounts repository.AccountRepository, graph repository.GraphRepository) *Reconciler {
	return &Reconciler{accounts: accounts, graph: graph}
}

// ReconcilePair makes (actor in target.followers) match (target in actor.following).
// Reports whether a repair was written.
func (r *Reconciler) ReconcilePair(ctx context.Context, actorID, targetID int64) (bool, error) {
	changed, err := r.graph.SyncFollower(ctx, actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("reconcile %d->%d: %w", actorID, targetID, err)
	}
	if changed {
		metrics.MirrorRepairs.Inc()
		log.Printf("[Reconciler] ReconcilePair repaired: actor=%d target=%d", actorID, targetID)
	}
	return changed, nil
}

// Sweep reconciles every relationship edge that appears on either side: each account's
// following entries and each account's follower entries. Returns the number of repairs.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	startTime := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(startTime).Seconds()) }()

	ids, err := r.accounts.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	var repaired int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		following, err := r.graph.GetFollowing(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return repaired, err
		}
		followers, err := r.graph.GetFollowers(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return repaired, err
		}

		for _, targetID := range following {
			n, err := r.reconcileEdge(ctx, id, targetID)
			if err != nil {
				return repaired, err
			}
			repaired += n
		}
		for _, followerID := range followers {
			n, err := r.reconcileEdge(ctx, followerID, id)
			if err != nil {
				return repaired, err
			}
			repaired += n
		}
	}

	log.Printf("[Reconciler] Sweep OK: accounts=%d repaired=%d duration=%v",
		len(ids), repaired, time.Since(startTime))
	return repaired, nil
}

// reconcileEdge skips edges whose far end no longer exists; those cannot be mirrored.
func (r *Reconciler) reconcileEdge(ctx context.Context, actorID, targetID int64) (int, error) {
	changed, err := r.ReconcilePair(ctx, actorID, targetID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			log.Printf("[Reconciler] Sweep skipped dangling edge: actor=%d target=%d", actorID, targetID)
			return 0, nil
		}
		return 0, err
	}
	if changed {
		return 1, nil
	}
	return 0, nil
}
