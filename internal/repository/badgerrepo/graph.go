package badgerrepo

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"photogram/internal/model"
)

type graphRepository struct {
	s *Store
}

func (r *graphRepository) AddFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	var added bool
	err := r.s.update(ctx, "add following", func(txn *badger.Txn) error {
		added = false
		doc, err := loadAccount(txn, actorID)
		if err != nil {
			return err
		}
		if contains(doc.Following, targetID) {
			return nil
		}
		doc.Following = append(doc.Following, targetID)
		added = true
		return saveAccount(txn, doc)
	})
	return added, err
}

func (r *graphRepository) RemoveFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	var removed bool
	err := r.s.update(ctx, "remove following", func(txn *badger.Txn) error {
		removed = false
		doc, err := loadAccount(txn, actorID)
		if err != nil {
			return err
		}
		if !contains(doc.Following, targetID) {
			return nil
		}
		doc.Following = without(doc.Following, targetID)
		removed = true
		return saveAccount(txn, doc)
	})
	return removed, err
}

// SyncFollower reads the actor document inside the same transaction that writes the
// target. A concurrent commit to the actor invalidates that read, the commit fails with
// ErrConflict, and the sync is recomputed from the newer following set.
func (r *graphRepository) SyncFollower(ctx context.Context, actorID, targetID int64) (bool, error) {
	var changed bool
	err := r.s.update(ctx, "sync follower", func(txn *badger.Txn) error {
		changed = false
		actor, err := loadAccount(txn, actorID)
		if err != nil {
			return err
		}
		target, err := loadAccount(txn, targetID)
		if err != nil {
			return err
		}

		want := contains(actor.Following, targetID)
		have := contains(target.Followers, actorID)
		switch {
		case want && !have:
			target.Followers = append(target.Followers, actorID)
		case !want && have:
			target.Followers = without(target.Followers, actorID)
		default:
			return nil
		}
		changed = true
		return saveAccount(txn, target)
	})
	return changed, err
}

func (r *graphRepository) GetFollowing(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.s.view(ctx, "get following", func(txn *badger.Txn) error {
		doc, err := loadAccount(txn, accountID)
		if err != nil {
			return err
		}
		ids = append([]int64{}, doc.Following...)
		return nil
	})
	return ids, err
}

func (r *graphRepository) GetFollowers(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := r.s.view(ctx, "get followers", func(txn *badger.Txn) error {
		doc, err := loadAccount(txn, accountID)
		if err != nil {
			return err
		}
		ids = append([]int64{}, doc.Followers...)
		return nil
	})
	return ids, err
}

func (r *graphRepository) Counts(ctx context.Context, accountID int64) (*model.Counts, error) {
	var counts *model.Counts
	err := r.s.view(ctx, "count relationships", func(txn *badger.Txn) error {
		doc, err := loadAccount(txn, accountID)
		if err != nil {
			return err
		}
		counts = &model.Counts{
			FollowingCount: len(doc.Following),
			FollowersCount: len(doc.Followers),
		}
		return nil
	})
	return counts, err
}
