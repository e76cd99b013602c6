package badgerrepo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"photogram/internal/model"
)

type accountRepository struct {
	s *Store
}

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	id, err := nextID(r.s.accountSeq)
	if err != nil {
		return err
	}

	email := strings.ToLower(a.Email)
	doc := &accountDoc{
		ID:             id,
		Email:          email,
		PasswordHash:   a.PasswordHash,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		ProfilePicture: a.ProfilePicture,
		Following:      []int64{},
		Followers:      []int64{},
		Photos:         []photoDoc{},
		CreatedAt:      time.Now().UTC(),
	}

	// Reading the email key puts it in the read set, so two concurrent registrations of
	// the same email conflict and the retry observes the winner.
	err = r.s.update(ctx, "create account", func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(email))
		if err == nil {
			return model.ErrDuplicateIdentity
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(email), formatInt(id)); err != nil {
			return err
		}
		if doc.ProfilePicture != nil {
			if err := txn.Set(avatarKey(*doc.ProfilePicture, id), nil); err != nil {
				return err
			}
		}
		return saveAccount(txn, doc)
	})
	if err != nil {
		return err
	}

	a.ID = doc.ID
	a.Email = doc.Email
	a.CreatedAt = doc.CreatedAt
	a.Photos = []model.Photo{}
	a.Following = []int64{}
	a.Followers = []int64{}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account *model.Account
	err := r.s.view(ctx, "get account by id", func(txn *badger.Txn) error {
		doc, err := loadAccount(txn, id)
		if err != nil {
			return err
		}
		account = doc.toModel()
		return nil
	})
	return account, err
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account *model.Account
	err := r.s.view(ctx, "get account by email", func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return model.ErrAccountNotFound
			}
			return err
		}
		id, err := readInt(item)
		if err != nil {
			return err
		}
		doc, err := loadAccount(txn, id)
		if err != nil {
			return err
		}
		account = doc.toModel()
		return nil
	})
	return account, err
}

func (r *accountRepository) Search(ctx context.Context, query string, limit int) ([]model.AccountSummary, error) {
	needle := strings.ToLower(query)
	results := []model.AccountSummary{}

	err := r.s.view(ctx, "search accounts", func(txn *badger.Txn) error {
		return iterateAccounts(txn, func(doc *accountDoc) bool {
			if strings.Contains(strings.ToLower(doc.FirstName), needle) ||
				strings.Contains(strings.ToLower(doc.LastName), needle) {
				results = append(results, doc.summary())
			}
			return limit <= 0 || len(results) < limit
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// iterateAccounts decodes account documents in id order until fn returns false.
func iterateAccounts(txn *badger.Txn, fn func(doc *accountDoc) bool) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(accountPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var doc accountDoc
		if err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &doc)
		}); err != nil {
			return err
		}
		if !fn(&doc) {
			return nil
		}
	}
	return nil
}

func (r *accountRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error) {
	result := make(map[int64]model.AccountSummary, len(ids))
	err := r.s.view(ctx, "get account summaries", func(txn *badger.Txn) error {
		for _, id := range ids {
			if _, ok := result[id]; ok {
				continue
			}
			doc, err := loadAccount(txn, id)
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			result[id] = doc.summary()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *accountRepository) SetProfilePicture(ctx context.Context, id int64, uri *string) (*string, error) {
	var previous *string
	err := r.s.update(ctx, "set profile picture", func(txn *badger.Txn) error {
		doc, err := loadAccount(txn, id)
		if err != nil {
			return err
		}
		previous = doc.ProfilePicture
		if previous != nil {
			if err := txn.Delete(avatarKey(*previous, id)); err != nil {
				return err
			}
		}
		if uri != nil {
			if err := txn.Set(avatarKey(*uri, id), nil); err != nil {
				return err
			}
		}
		doc.ProfilePicture = uri
		return saveAccount(txn, doc)
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

func (r *accountRepository) ProfilePictureInUse(ctx context.Context, uri string) (bool, error) {
	var inUse bool
	err := r.s.view(ctx, "check profile picture in use", func(txn *badger.Txn) error {
		inUse = hasPrefix(txn, avatarURIPrefix(uri))
		return nil
	})
	return inUse, err
}

func (r *accountRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.s.view(ctx, "list account ids", func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			id, err := strconv.ParseInt(strings.TrimPrefix(key, accountPrefix), 10, 64)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}
