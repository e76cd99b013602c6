package model

import (
	"time"
)

// Photo is owned by exactly one account. URI is always canonical (storage-relative).
type Photo struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"ownerId"`
	URI       string    `db:"uri" json:"uri"`
	Likes     []int64   `db:"-" json:"likes"`
	Comments  []Comment `db:"-" json:"comments"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LikedBy reports whether accountID is in the photo's liker set.
func (p *Photo) LikedBy(accountID int64) bool {
	for _, id := range p.Likes {
		if id == accountID {
			return true
		}
	}
	return false
}

// Comment is immutable once appended.
type Comment struct {
	AuthorID  int64     `db:"author_id" json:"authorId"`
	Text      string    `db:"text" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CommentView is a comment with its author's display attributes resolved.
type CommentView struct {
	Author    AccountSummary `json:"user"`
	Text      string         `json:"comment"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PhotoDetails is the engagement view of a single photo for a given viewer.
type PhotoDetails struct {
	URI             string        `json:"uri"`
	Likes           []int64       `json:"likes"`
	Comments        []CommentView `json:"comments"`
	IsLikedByViewer bool          `json:"isLikedByUser"`
}

// EnrichedPhoto is a feed item: the photo plus denormalized owner and comment authors.
type EnrichedPhoto struct {
	ID        int64          `json:"id"`
	URI       string         `json:"uri"`
	Owner     AccountSummary `json:"user"`
	Likes     []int64        `json:"likes"`
	Comments  []CommentView  `json:"comments"`
	CreatedAt time.Time      `json:"createdAt"`
}

// RemovePhotoResult reports the outcome of a removal. Metadata removal always succeeded
// when this is returned. BlobRetained is set when the bytes were kept because another
// photo or profile picture still uses them, or they are not in the upload folder. When
// neither flag is set the delete failed and a retry was queued.
type RemovePhotoResult struct {
	Photo        *Photo `json:"photo"`
	BlobDeleted  bool   `json:"blobDeleted"`
	BlobRetained bool   `json:"blobRetained"`
}

type PhotoRefRequest struct {
	URI string `json:"uri" validate:"required,notblank"`
}

type CommentRequest struct {
	URI     string `json:"uri" validate:"required"`
	Comment string `json:"comment" validate:"required,notblank,max=2200"`
}

type AddPhotoRequest struct {
	URI string `json:"uri" validate:"required,notblank"`
}
