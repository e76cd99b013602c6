package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"photogram/internal/model"
)

// photoRow is the relational shape of a photo; likers are stored as an array column
// and comments in photo_comments.
type photoRow struct {
	model.Photo
	Likers pq.Int64Array `db:"likers"`
}

type commentRow struct {
	PhotoID int64 `db:"photo_id"`
	model.Comment
}

type photoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Add(ctx context.Context, p *model.Photo) error {
	query := `
		INSERT INTO photos (owner_id, uri, created_at)
		SELECT id, $2, $3 FROM accounts WHERE id = $1
		RETURNING id
	`
	err := r.db.GetContext(ctx, &p.ID, query, p.OwnerID, p.URI, p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrAccountNotFound
		}
		return storageErr("insert photo", err)
	}
	p.Likes = []int64{}
	p.Comments = []model.Comment{}
	return nil
}

func (r *photoRepository) Remove(ctx context.Context, ownerID int64, uri string) (*model.Photo, error) {
	query := `
		DELETE FROM photos
		WHERE id = (
			SELECT id FROM photos WHERE owner_id = $1 AND uri = $2 ORDER BY id LIMIT 1
		)
		RETURNING id, owner_id, uri, likers, created_at
	`
	var row photoRow
	if err := r.db.GetContext(ctx, &row, query, ownerID, uri); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPhotoNotFound
		}
		return nil, storageErr("delete photo", err)
	}
	photo := row.toModel()
	return &photo, nil
}

func (r photoRow) toModel() model.Photo {
	p := r.Photo
	p.Likes = []int64(r.Likers)
	if p.Likes == nil {
		p.Likes = []int64{}
	}
	p.Comments = []model.Comment{}
	return p
}

func (r *photoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Photo, error) {
	query := `
		SELECT id, owner_id, uri, likers, created_at
		FROM photos
		WHERE owner_id = $1
		ORDER BY created_at, id
	`
	var rows []photoRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, storageErr("list photos", err)
	}

	photos := make([]model.Photo, 0, len(rows))
	for _, row := range rows {
		photos = append(photos, row.toModel())
	}
	if err := r.attachComments(ctx, photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// attachComments loads the comment sequences of all photos in one query.
func (r *photoRepository) attachComments(ctx context.Context, photos []model.Photo) error {
	if len(photos) == 0 {
		return nil
	}

	ids := make([]int64, len(photos))
	index := make(map[int64]int, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query := `
		SELECT photo_id, author_id, text, created_at
		FROM photo_comments
		WHERE photo_id = ANY($1)
		ORDER BY created_at, id
	`
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return storageErr("list comments", err)
	}
	for _, c := range rows {
		i := index[c.PhotoID]
		photos[i].Comments = append(photos[i].Comments, c.Comment)
	}
	return nil
}

func (r *photoRepository) FindByURI(ctx context.Context, uri string) (*model.Photo, error) {
	query := `
		SELECT id, owner_id, uri, likers, created_at
		FROM photos
		WHERE uri = $1
		ORDER BY id
		LIMIT 1
	`
	var row photoRow
	if err := r.db.GetContext(ctx, &row, query, uri); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPhotoNotFound
		}
		return nil, storageErr("find photo by uri", err)
	}

	photos := []model.Photo{row.toModel()}
	if err := r.attachComments(ctx, photos); err != nil {
		return nil, err
	}
	return &photos[0], nil
}

func (r *photoRepository) URIInUse(ctx context.Context, uri string) (bool, error) {
	var inUse bool
	if err := r.db.GetContext(ctx, &inUse, `SELECT EXISTS(SELECT 1 FROM photos WHERE uri = $1)`, uri); err != nil {
		return false, storageErr("check photo uri in use", err)
	}
	return inUse, nil
}

func (r *photoRepository) AddLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error) {
	query := `
		UPDATE photos
		SET likers = array_append(likers, $3)
		WHERE id = $2 AND owner_id = $1 AND NOT ($3 = ANY(likers))
	`
	return r.applyDelta(ctx, "add like", query, ownerID, photoID, likerID)
}

func (r *photoRepository) RemoveLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error) {
	query := `
		UPDATE photos
		SET likers = array_remove(likers, $3)
		WHERE id = $2 AND owner_id = $1 AND $3 = ANY(likers)
	`
	return r.applyDelta(ctx, "remove like", query, ownerID, photoID, likerID)
}

func (r *photoRepository) applyDelta(ctx context.Context, op, query string, ownerID, photoID, likerID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, ownerID, photoID, likerID)
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

	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM photos WHERE id = $1 AND owner_id = $2)`, photoID, ownerID)
	if err != nil {
		return false, storageErr("check photo exists", err)
	}
	if !exists {
		return false, model.ErrPhotoNotFound
	}
	return false, nil
}

// AppendComment inserts only while the photo still exists, so a comment racing a removal
// is either appended before the cascade or rejected.
func (r *photoRepository) AppendComment(ctx context.Context, ownerID, photoID int64, c model.Comment) error {
	query := `
		INSERT INTO photo_comments (photo_id, author_id, text, created_at)
		SELECT id, $3, $4, $5 FROM photos WHERE id = $2 AND owner_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, ownerID, photoID, c.AuthorID, c.Text, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return model.ErrPhotoNotFound
		}
		return storageErr("insert comment", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("insert comment", err)
	}
	if rows == 0 {
		return model.ErrPhotoNotFound
	}
	return nil
}
