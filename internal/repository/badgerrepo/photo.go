package badgerrepo

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"photogram/internal/model"
)

type photoRepository struct {
	s *Store
}

func (r *photoRepository) Add(ctx context.Context, p *model.Photo) error {
	id, err := nextID(r.s.photoSeq)
	if err != nil {
		return err
	}

	doc := photoDoc{
		ID:        id,
		URI:       p.URI,
		Likes:     []int64{},
		Comments:  []model.Comment{},
		CreatedAt: p.CreatedAt,
	}
	err = r.s.update(ctx, "add photo", func(txn *badger.Txn) error {
		owner, err := loadAccount(txn, p.OwnerID)
		if err != nil {
			return err
		}
		owner.Photos = append(owner.Photos, doc)
		if err := saveAccount(txn, owner); err != nil {
			return err
		}
		return txn.Set(photoKey(p.URI, id), formatInt(p.OwnerID))
	})
	if err != nil {
		return err
	}

	p.ID = id
	p.Likes = []int64{}
	p.Comments = []model.Comment{}
	return nil
}

func (r *photoRepository) Remove(ctx context.Context, ownerID int64, uri string) (*model.Photo, error) {
	var removed *model.Photo
	err := r.s.update(ctx, "remove photo", func(txn *badger.Txn) error {
		removed = nil
		owner, err := loadAccount(txn, ownerID)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				return model.ErrPhotoNotFound
			}
			return err
		}

		idx := -1
		for i := range owner.Photos {
			if owner.Photos[i].URI == uri {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.ErrPhotoNotFound
		}

		photo := owner.Photos[idx].toModel(ownerID)
		owner.Photos = append(owner.Photos[:idx], owner.Photos[idx+1:]...)
		if err := saveAccount(txn, owner); err != nil {
			return err
		}
		if err := txn.Delete(photoKey(uri, photo.ID)); err != nil {
			return err
		}
		removed = &photo
		return nil
	})
	return removed, err
}

func (r *photoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Photo, error) {
	photos := []model.Photo{}
	err := r.s.view(ctx, "list photos", func(txn *badger.Txn) error {
		owner, err := loadAccount(txn, ownerID)
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for i := range owner.Photos {
			photos = append(photos, owner.Photos[i].toModel(ownerID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}

// FindByURI walks the uri index in photo id order and returns the first live photo.
func (r *photoRepository) FindByURI(ctx context.Context, uri string) (*model.Photo, error) {
	var found *model.Photo
	err := r.s.view(ctx, "find photo by uri", func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := photoURIPrefix(uri)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ownerID, err := readInt(it.Item())
			if err != nil {
				return err
			}
			owner, err := loadAccount(txn, ownerID)
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			for i := range owner.Photos {
				if owner.Photos[i].URI == uri {
					photo := owner.Photos[i].toModel(ownerID)
					found = &photo
					return nil
				}
			}
		}
		return model.ErrPhotoNotFound
	})
	return found, err
}

func (r *photoRepository) URIInUse(ctx context.Context, uri string) (bool, error) {
	var inUse bool
	err := r.s.view(ctx, "check photo uri in use", func(txn *badger.Txn) error {
		inUse = hasPrefix(txn, photoURIPrefix(uri))
		return nil
	})
	return inUse, err
}

// mutatePhoto applies fn to one photo of the owner's document in a single transaction.
// fn reports whether it changed anything; unchanged documents are not rewritten.
func (r *photoRepository) mutatePhoto(ctx context.Context, op string, ownerID, photoID int64, fn func(p *photoDoc) bool) (bool, error) {
	var changed bool
	err := r.s.update(ctx, op, func(txn *badger.Txn) error {
		changed = false
		owner, err := loadAccount(txn, ownerID)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				return model.ErrPhotoNotFound
			}
			return err
		}
		idx := owner.photoIndex(photoID)
		if idx < 0 {
			return model.ErrPhotoNotFound
		}
		if !fn(&owner.Photos[idx]) {
			return nil
		}
		changed = true
		return saveAccount(txn, owner)
	})
	return changed, err
}

func (r *photoRepository) AddLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error) {
	return r.mutatePhoto(ctx, "add like", ownerID, photoID, func(p *photoDoc) bool {
		if contains(p.Likes, likerID) {
			return false
		}
		p.Likes = append(p.Likes, likerID)
		return true
	})
}

func (r *photoRepository) RemoveLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error) {
	return r.mutatePhoto(ctx, "remove like", ownerID, photoID, func(p *photoDoc) bool {
		if !contains(p.Likes, likerID) {
			return false
		}
		p.Likes = without(p.Likes, likerID)
		return true
	})
}

func (r *photoRepository) AppendComment(ctx context.Context, ownerID, photoID int64, c model.Comment) error {
	_, err := r.mutatePhoto(ctx, "append comment", ownerID, photoID, func(p *photoDoc) bool {
		p.Comments = append(p.Comments, c)
		return true
	})
	return err
}
