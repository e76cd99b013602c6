package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"photogram/internal/model"
)

// Postgres SQLSTATE codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// storageErr tags a driver error as a storage failure while keeping the cause.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageFailure, err)
}

// accountRow is the relational shape of an account; the mirrored sets live as arrays.
type accountRow struct {
	model.Account
	FollowingIDs pq.Int64Array `db:"following"`
	FollowerIDs  pq.Int64Array `db:"followers"`
}

func (r accountRow) toModel() *model.Account {
	a := r.Account
	a.Following = []int64(r.FollowingIDs)
	a.Followers = []int64(r.FollowerIDs)
	if a.Following == nil {
		a.Following = []int64{}
	}
	if a.Followers == nil {
		a.Followers = []int64{}
	}
	return &a
}

// accountRepository implements AccountRepository using sqlx
type accountRepository struct {
	db     *sqlx.DB
	photos PhotoRepository
}

// NewAccountRepository creates a new account repository. GetByID embeds the account's
// photos, so it shares the photo repository's loading logic.
func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db, photos: NewPhotoRepository(db)}
}

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, first_name, last_name, profile_picture, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		strings.ToLower(a.Email),
		a.PasswordHash,
		a.FirstName,
		a.LastName,
		a.ProfilePicture,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrDuplicateIdentity
		}
		return storageErr("insert account", err)
	}

	a.Email = strings.ToLower(a.Email)
	a.Photos = []model.Photo{}
	a.Following = []int64{}
	a.Followers = []int64{}
	return nil
}

const selectAccount = `
	SELECT id, email, password_hash, first_name, last_name, profile_picture,
	       following, followers, created_at
	FROM accounts
`

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var row accountRow
	err := r.db.GetContext(ctx, &row, selectAccount+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storageErr("get account by id", err)
	}

	account := row.toModel()
	photos, err := r.photos.ListByOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Photos = photos
	return account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var row accountRow
	err := r.db.GetContext(ctx, &row, selectAccount+` WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storageErr("get account by email", err)
	}
	return row.toModel(), nil
}

// escapeLike neutralizes LIKE metacharacters so the query is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *accountRepository) Search(ctx context.Context, query string, limit int) ([]model.AccountSummary, error) {
	searchQuery := `
		SELECT id, first_name, last_name, profile_picture
		FROM accounts
		WHERE first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY id
		LIMIT $2
	`

	accounts := []model.AccountSummary{}
	err := r.db.SelectContext(ctx, &accounts, searchQuery, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, storageErr("search accounts", err)
	}
	return accounts, nil
}

func (r *accountRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error) {
	result := make(map[int64]model.AccountSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, first_name, last_name, profile_picture FROM accounts WHERE id = ANY($1)`
	var rows []model.AccountSummary
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, storageErr("get account summaries", err)
	}
	for _, s := range rows {
		result[s.ID] = s
	}
	return result, nil
}

func (r *accountRepository) SetProfilePicture(ctx context.Context, id int64, uri *string) (*string, error) {
	// The subquery reads the pre-update value under the row lock taken by UPDATE.
	query := `
		UPDATE accounts a
		SET profile_picture = $2
		FROM (SELECT id, profile_picture FROM accounts WHERE id = $1 FOR UPDATE) prev
		WHERE a.id = prev.id
		RETURNING prev.profile_picture
	`
	var previous sql.NullString
	err := r.db.GetContext(ctx, &previous, query, id, uri)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storageErr("set profile picture", err)
	}
	if !previous.Valid {
		return nil, nil
	}
	return &previous.String, nil
}

func (r *accountRepository) ProfilePictureInUse(ctx context.Context, uri string) (bool, error) {
	var inUse bool
	err := r.db.GetContext(ctx, &inUse, `SELECT EXISTS(SELECT 1 FROM accounts WHERE profile_picture = $1)`, uri)
	if err != nil {
		return false, storageErr("check profile picture in use", err)
	}
	return inUse, nil
}

func (r *accountRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM accounts ORDER BY id`); err != nil {
		return nil, storageErr("list account ids", err)
	}
	return ids, nil
}
