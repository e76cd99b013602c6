package repository

import (
	"context"

	"photogram/internal/model"
)

type AccountRepository interface {
	// Create inserts the account and sets its ID and CreatedAt.
	// Returns model.ErrDuplicateIdentity when the email is taken.
	Create(ctx context.Context, account *model.Account) error
	// GetByID returns the account with its relationship sets and photos.
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// Search matches query as a case-insensitive substring of first or last name.
	Search(ctx context.Context, query string, limit int) ([]model.AccountSummary, error)
	// GetSummaries resolves display attributes; unknown ids are absent from the map.
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.AccountSummary, error)
	// SetProfilePicture replaces the reference and returns the previous one.
	SetProfilePicture(ctx context.Context, id int64, uri *string) (*string, error)
	// ProfilePictureInUse reports whether any account's profile picture is uri.
	ProfilePictureInUse(ctx context.Context, uri string) (bool, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// GraphRepository holds the mirrored relationship sets. The following set of the actor is
// authoritative; SyncFollower derives the target's followers membership from it.
type GraphRepository interface {
	// AddFollowing adds target to actor.following; false when already present.
	AddFollowing(ctx context.Context, actorID, targetID int64) (bool, error)
	// RemoveFollowing removes target from actor.following; false when absent.
	RemoveFollowing(ctx context.Context, actorID, targetID int64) (bool, error)
	// SyncFollower makes (actor in target.followers) equal (target in actor.following),
	// serialized against concurrent writers of actor.following. Reports whether it wrote.
	SyncFollower(ctx context.Context, actorID, targetID int64) (bool, error)
	GetFollowing(ctx context.Context, accountID int64) ([]int64, error)
	GetFollowers(ctx context.Context, accountID int64) ([]int64, error)
	Counts(ctx context.Context, accountID int64) (*model.Counts, error)
}

// PhotoRepository stores each account's ordered photo collection and the engagement
// collections embedded in each photo. All mutations are single-document deltas.
type PhotoRepository interface {
	// Add appends the photo to its owner's collection and sets its ID.
	Add(ctx context.Context, photo *model.Photo) error
	// Remove deletes the owner's photo with this URI and returns it.
	Remove(ctx context.Context, ownerID int64, uri string) (*model.Photo, error)
	// ListByOwner returns the owner's photos in creation order.
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Photo, error)
	// FindByURI returns the earliest photo stored under uri across all owners.
	FindByURI(ctx context.Context, uri string) (*model.Photo, error)
	// URIInUse reports whether any photo of any owner is stored under uri.
	URIInUse(ctx context.Context, uri string) (bool, error)
	// AddLike adds liker to the photo's liker set; false when already present.
	AddLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error)
	// RemoveLike removes liker from the photo's liker set; false when absent.
	RemoveLike(ctx context.Context, ownerID, photoID, likerID int64) (bool, error)
	AppendComment(ctx context.Context, ownerID, photoID int64, comment model.Comment) error
}
