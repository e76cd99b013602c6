// Package badgerrepo implements the repository interfaces on an embedded BadgerDB.
//
// Each account is one JSON document that embeds its photos, and each photo embeds its
// likers and comments. Every mutation is a single read-modify-write transaction on one
// document; Badger's serializable snapshot isolation rejects a commit whose reads were
// overwritten concurrently, and the delta is then re-applied on a fresh snapshot.
//
// Key layout:
//
//	account/<id>            account document
//	email/<email>           account id
//	photo/<uri>\x00<id>     owner id, one entry per photo
//	avatar/<uri>\x00<id>    empty, one entry per account whose profile picture is uri
package badgerrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"photogram/internal/metrics"
	"photogram/internal/model"
	"photogram/internal/repository"
)

const (
	accountPrefix = "account/"
	emailPrefix   = "email/"
	photoPrefix   = "photo/"
	avatarPrefix  = "avatar/"

	// maxConflictRetries bounds how often a delta is re-applied after a commit conflict.
	maxConflictRetries = 64
)

type accountDoc struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"passwordHash"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	ProfilePicture *string    `json:"profilePicture,omitempty"`
	Following      []int64    `json:"following"`
	Followers      []int64    `json:"followers"`
	Photos         []photoDoc `json:"photos"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type photoDoc struct {
	ID        int64           `json:"id"`
	URI       string          `json:"uri"`
	Likes     []int64         `json:"likes"`
	Comments  []model.Comment `json:"comments"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (d *accountDoc) toModel() *model.Account {
	a := &model.Account{
		ID:             d.ID,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		ProfilePicture: d.ProfilePicture,
		Following:      append([]int64{}, d.Following...),
		Followers:      append([]int64{}, d.Followers...),
		Photos:         make([]model.Photo, 0, len(d.Photos)),
		CreatedAt:      d.CreatedAt,
	}
	for i := range d.Photos {
		a.Photos = append(a.Photos, d.Photos[i].toModel(d.ID))
	}
	return a
}

func (d *accountDoc) summary() model.AccountSummary {
	return model.AccountSummary{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		ProfilePicture: d.ProfilePicture,
	}
}

func (d *accountDoc) photoIndex(photoID int64) int {
	for i := range d.Photos {
		if d.Photos[i].ID == photoID {
			return i
		}
	}
	return -1
}

func (p *photoDoc) toModel(ownerID int64) model.Photo {
	return model.Photo{
		ID:        p.ID,
		OwnerID:   ownerID,
		URI:       p.URI,
		Likes:     append([]int64{}, p.Likes...),
		Comments:  append([]model.Comment{}, p.Comments...),
		CreatedAt: p.CreatedAt,
	}
}

// Store owns the id sequences and hands out the repository views.
type Store struct {
	db         *badger.DB
	accountSeq *badger.Sequence
	photoSeq   *badger.Sequence
}

func NewStore(db *badger.DB) (*Store, error) {
	accountSeq, err := db.GetSequence([]byte("seq/account"), 100)
	if err != nil {
		return nil, fmt.Errorf("account sequence: %w", err)
	}
	photoSeq, err := db.GetSequence([]byte("seq/photo"), 100)
	if err != nil {
		accountSeq.Release()
		return nil, fmt.Errorf("photo sequence: %w", err)
	}
	return &Store{db: db, accountSeq: accountSeq, photoSeq: photoSeq}, nil
}

// Close returns unused leased ids. The underlying database is closed by its owner.
func (s *Store) Close() error {
	return errors.Join(s.accountSeq.Release(), s.photoSeq.Release())
}

func (s *Store) Accounts() repository.AccountRepository { return &accountRepository{s} }
func (s *Store) Graph() repository.GraphRepository      { return &graphRepository{s} }
func (s *Store) Photos() repository.PhotoRepository     { return &photoRepository{s} }

// nextID maps the zero-based badger sequence onto positive ids.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("%w: next id: %w", model.ErrStorageFailure, err)
	}
	return int64(n) + 1, nil
}

// update runs fn in a read-write transaction, re-running it from scratch when the
// commit conflicts with a concurrent writer. fn must reset any captured results.
func (s *Store) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return classify(op, err)
		}

		metrics.StoreConflictRetries.WithLabelValues(op).Inc()
		if attempt >= maxConflictRetries {
			return fmt.Errorf("%s: %w: %w", op, model.ErrStorageFailure, err)
		}
	}
}

func (s *Store) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(fn); err != nil {
		return classify(op, err)
	}
	return nil
}

// classify passes domain errors through and tags everything else as a storage failure.
func classify(op string, err error) error {
	for _, kind := range []error{model.ErrNotFound, model.ErrConflict, model.ErrInvalidInput, model.ErrStorageFailure} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageFailure, err)
}

func accountKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", accountPrefix, id))
}

func emailKey(email string) []byte {
	return []byte(emailPrefix + strings.ToLower(email))
}

func photoURIPrefix(uri string) []byte {
	return []byte(photoPrefix + uri + "\x00")
}

func photoKey(uri string, photoID int64) []byte {
	return append(photoURIPrefix(uri), []byte(fmt.Sprintf("%020d", photoID))...)
}

func avatarURIPrefix(uri string) []byte {
	return []byte(avatarPrefix + uri + "\x00")
}

func avatarKey(uri string, accountID int64) []byte {
	return append(avatarURIPrefix(uri), []byte(fmt.Sprintf("%020d", accountID))...)
}

// hasPrefix reports whether any key starts with prefix. Values are not read.
func hasPrefix(txn *badger.Txn, prefix []byte) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}

func loadAccount(txn *badger.Txn, id int64) (*accountDoc, error) {
	item, err := txn.Get(accountKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var doc accountDoc
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &doc)
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}

func saveAccount(txn *badger.Txn, doc *accountDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	return txn.Set(accountKey(doc.ID), data)
}

func readInt(item *badger.Item) (int64, error) {
	var id int64
	err := item.Value(func(v []byte) error {
		n, err := strconv.ParseInt(string(v), 10, 64)
		id = n
		return err
	})
	return id, err
}

func formatInt(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
