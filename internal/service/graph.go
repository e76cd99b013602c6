package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"photogram/internal/metrics"
	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
)

// DefaultRepairTimeout bounds the detached repair run after a cancelled or failed mirror write.
const DefaultRepairTimeout = 5 * time.Second

// GraphService is the relationship graph manager. A follow or unfollow is applied to the
// actor's following set first; that set is authoritative. The target's followers set is
// then synchronized from it. If the second step fails or the caller goes away, the pair
// is repaired on a detached context and, failing that, handed to the worker via the stream.
type GraphService struct {
	accounts      repository.AccountRepository
	graph         repository.GraphRepository
	reconciler    *Reconciler
	publisher     queue.Publisher
	repairTimeout time.Duration
}

func NewGraphService(
	accounts repository.AccountRepository,
	graph repository.GraphRepository,
	reconciler *Reconciler,
	publisher queue.Publisher,
	repairTimeout time.Duration,
) *GraphService {
	if repairTimeout <= 0 {
		repairTimeout = DefaultRepairTimeout
	}
	return &GraphService{
		accounts:      accounts,
		graph:         graph,
		reconciler:    reconciler,
		publisher:     publisher,
		repairTimeout: repairTimeout,
	}
}

func (s *GraphService) Follow(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return model.ErrCannotFollowSelf
	}

	if err := s.requireAccount(ctx, targetID); err != nil {
		return err
	}

	added, err := s.graph.AddFollowing(ctx, actorID, targetID)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if !added {
		return model.ErrAlreadyFollowing
	}

	if err := s.completeMirror(ctx, actorID, targetID); err != nil {
		return err
	}

	log.Printf("[GraphService] Follow OK: actor=%d target=%d", actorID, targetID)
	return nil
}

func (s *GraphService) Unfollow(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return model.ErrNotFollowing
	}

	if err := s.requireAccount(ctx, targetID); err != nil {
		return err
	}

	removed, err := s.graph.RemoveFollowing(ctx, actorID, targetID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !removed {
		return model.ErrNotFollowing
	}

	if err := s.completeMirror(ctx, actorID, targetID); err != nil {
		return err
	}

	log.Printf("[GraphService] Unfollow OK: actor=%d target=%d", actorID, targetID)
	return nil
}

func (s *GraphService) requireAccount(ctx context.Context, id int64) error {
	summaries, err := s.accounts.GetSummaries(ctx, []int64{id})
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if _, ok := summaries[id]; !ok {
		return model.ErrAccountNotFound
	}
	return nil
}

// completeMirror runs after the actor side has committed. The actor side is never rolled
// back: the mirror is written inline when possible, otherwise on a context detached from
// the caller, and as a last resort by a worker consuming the published event.
func (s *GraphService) completeMirror(ctx context.Context, actorID, targetID int64) error {
	var inlineErr error
	if ctx.Err() == nil {
		if _, inlineErr = s.graph.SyncFollower(ctx, actorID, targetID); inlineErr == nil {
			s.publish(ctx, queue.NewRelationshipChangedEvent(actorID, targetID))
			return nil
		}
	} else {
		inlineErr = ctx.Err()
	}

	log.Printf("[GraphService] mirror write deferred: actor=%d target=%d err=%v", actorID, targetID, inlineErr)
	metrics.MirrorFailures.Inc()

	repairCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.repairTimeout)
	defer cancel()

	if _, err := s.reconciler.ReconcilePair(repairCtx, actorID, targetID); err != nil {
		s.publish(repairCtx, queue.NewRelationshipChangedEvent(actorID, targetID))
		log.Printf("[GraphService] repair FAILED, queued for worker: actor=%d target=%d err=%v", actorID, targetID, err)
		return fmt.Errorf("follower mirror pending repair: %w", err)
	}

	// Report the caller's cancellation only after the pair is consistent again.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *GraphService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamGraph, event); err != nil {
		log.Printf("[GraphService] Failed to publish %s: actor=%d target=%d err=%v",
			event.Type, event.ActorID, event.TargetID, err)
	}
}

// Counts returns the sizes of the account's following and followers sets.
func (s *GraphService) Counts(ctx context.Context, accountID int64) (*model.Counts, error) {
	return s.graph.Counts(ctx, accountID)
}

// Followers returns display summaries of the account's followers.
func (s *GraphService) Followers(ctx context.Context, accountID int64) ([]model.AccountSummary, error) {
	ids, err := s.graph.GetFollowers(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, ids)
}

// Following returns display summaries of the accounts this account follows.
func (s *GraphService) Following(ctx context.Context, accountID int64) ([]model.AccountSummary, error) {
	ids, err := s.graph.GetFollowing(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, ids)
}

func (s *GraphService) summaries(ctx context.Context, ids []int64) ([]model.AccountSummary, error) {
	byID, err := s.accounts.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.AccountSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := byID[id]; ok {
			out = append(out, summary)
		}
	}
	return out, nil
}
