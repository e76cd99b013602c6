package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"photogram/internal/model"
)

type graphRepository struct {
	db *sqlx.DB
}

func NewGraphRepository(db *sqlx.DB) GraphRepository {
	return &graphRepository{db: db}
}

// AddFollowing is a single conditional array_append, so concurrent calls on the same row
// serialize on the row lock and exactly one of them observes the change.
func (r *graphRepository) AddFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	query := `
		UPDATE accounts
		SET following = array_append(following, $2)
		WHERE id = $1 AND NOT ($2 = ANY(following))
	`
	return r.applyDelta(ctx, "add following", query, actorID, targetID)
}

func (r *graphRepository) RemoveFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	query := `
		UPDATE accounts
		SET following = array_remove(following, $2)
		WHERE id = $1 AND $2 = ANY(following)
	`
	return r.applyDelta(ctx, "remove following", query, actorID, targetID)
}

// applyDelta runs a conditional update against account $1. Zero affected rows means
// either the delta was a no-op or the account does not exist.
func (r *graphRepository) applyDelta(ctx context.Context, op, query string, accountID, memberID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, accountID, memberID)
	if err != nil {
		return false, storageErr(op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr(op, err)
	}
	if rows > 0 {
		return true, nil
	}

	if err := r.ensureExists(ctx, r.db, accountID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *graphRepository) ensureExists(ctx context.Context, q sqlx.QueryerContext, accountID int64) error {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID)
	if err != nil {
		return storageErr("check account exists", err)
	}
	if !exists {
		return model.ErrAccountNotFound
	}
	return nil
}

// SyncFollower holds a share lock on the actor row while it rewrites the target's
// followers, so a concurrent AddFollowing/RemoveFollowing on the actor either commits
// before this read or waits until this transaction ends and runs its own sync afterwards.
func (r *graphRepository) SyncFollower(ctx context.Context, actorID, targetID int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	var follows bool
	err = tx.GetContext(ctx, &follows,
		`SELECT $2 = ANY(following) FROM accounts WHERE id = $1 FOR SHARE`, actorID, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, model.ErrAccountNotFound
		}
		return false, storageErr("read actor following", err)
	}

	var query string
	if follows {
		query = `
			UPDATE accounts
			SET followers = array_append(followers, $2)
			WHERE id = $1 AND NOT ($2 = ANY(followers))
		`
	} else {
		query = `
			UPDATE accounts
			SET followers = array_remove(followers, $2)
			WHERE id = $1 AND $2 = ANY(followers)
		`
	}

	result, err := tx.ExecContext(ctx, query, targetID, actorID)
	if err != nil {
		return false, storageErr("sync follower", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("sync follower", err)
	}
	if rows == 0 {
		if err := r.ensureExists(ctx, tx, targetID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, storageErr("commit transaction", err)
	}
	return rows > 0, nil
}

func (r *graphRepository) GetFollowing(ctx context.Context, accountID int64) ([]int64, error) {
	return r.getSet(ctx, "following", accountID)
}

func (r *graphRepository) GetFollowers(ctx context.Context, accountID int64) ([]int64, error) {
	return r.getSet(ctx, "followers", accountID)
}

func (r *graphRepository) getSet(ctx context.Context, column string, accountID int64) ([]int64, error) {
	var ids pq.Int64Array
	err := r.db.GetContext(ctx, &ids, `SELECT `+column+` FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storageErr("get "+column, err)
	}
	if ids == nil {
		return []int64{}, nil
	}
	return []int64(ids), nil
}

func (r *graphRepository) Counts(ctx context.Context, accountID int64) (*model.Counts, error) {
	query := `
		SELECT COALESCE(cardinality(following), 0) AS following_count,
		       COALESCE(cardinality(followers), 0) AS followers_count
		FROM accounts
		WHERE id = $1
	`
	var row struct {
		Following int `db:"following_count"`
		Followers int `db:"followers_count"`
	}
	if err := r.db.GetContext(ctx, &row, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storageErr("count relationships", err)
	}
	return &model.Counts{FollowingCount: row.Following, FollowersCount: row.Followers}, nil
}
