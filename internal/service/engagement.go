package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"photogram/internal/mediauri"
	"photogram/internal/model"
	"photogram/internal/repository"
)

// EngagementService manages the liker set and comment sequence embedded in each photo.
// Photos are addressed by URI; absolute URLs are reduced to their canonical form first.
type EngagementService struct {
	accounts repository.AccountRepository
	photos   repository.PhotoRepository
	canon    *mediauri.Canonicalizer
	now      func() time.Time
}

func NewEngagementService(
	accounts repository.AccountRepository,
	photos repository.PhotoRepository,
	canon *mediauri.Canonicalizer,
) *EngagementService {
	return &EngagementService{
		accounts: accounts,
		photos:   photos,
		canon:    canon,
		now:      time.Now,
	}
}

// Like adds actor to the photo's liker set. A repeated like is rejected with
// model.ErrAlreadyLiked and leaves the set unchanged.
func (s *EngagementService) Like(ctx context.Context, actorID int64, uri string) error {
	photo, err := s.resolve(ctx, uri)
	if err != nil {
		return err
	}

	added, err := s.photos.AddLike(ctx, photo.OwnerID, photo.ID, actorID)
	if err != nil {
		return fmt.Errorf("like: %w", err)
	}
	if !added {
		return model.ErrAlreadyLiked
	}

	log.Printf("[EngagementService] Like OK: actor=%d photo=%d", actorID, photo.ID)
	return nil
}

func (s *EngagementService) Unlike(ctx context.Context, actorID int64, uri string) error {
	photo, err := s.resolve(ctx, uri)
	if err != nil {
		return err
	}

	removed, err := s.photos.RemoveLike(ctx, photo.OwnerID, photo.ID, actorID)
	if err != nil {
		return fmt.Errorf("unlike: %w", err)
	}
	if !removed {
		return model.ErrNotLiked
	}

	log.Printf("[EngagementService] Unlike OK: actor=%d photo=%d", actorID, photo.ID)
	return nil
}

// Comment appends a comment by actor and returns it with the author resolved.
func (s *EngagementService) Comment(ctx context.Context, actorID int64, uri, text string) (*model.CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyComment
	}

	photo, err := s.resolve(ctx, uri)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		AuthorID:  actorID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.photos.AppendComment(ctx, photo.OwnerID, photo.ID, comment); err != nil {
		return nil, fmt.Errorf("comment: %w", err)
	}

	views, err := resolveComments(ctx, s.accounts, []model.Comment{comment})
	if err != nil {
		return nil, err
	}

	log.Printf("[EngagementService] Comment OK: actor=%d photo=%d", actorID, photo.ID)
	return &views[0], nil
}

// Details returns the photo's likers and comments, with whether viewer has liked it.
func (s *EngagementService) Details(ctx context.Context, uri string, viewerID int64) (*model.PhotoDetails, error) {
	photo, err := s.resolve(ctx, uri)
	if err != nil {
		return nil, err
	}

	comments, err := resolveComments(ctx, s.accounts, photo.Comments)
	if err != nil {
		return nil, err
	}

	likes := photo.Likes
	if likes == nil {
		likes = []int64{}
	}
	return &model.PhotoDetails{
		URI:             photo.URI,
		Likes:           likes,
		Comments:        comments,
		IsLikedByViewer: photo.LikedBy(viewerID),
	}, nil
}

func (s *EngagementService) resolve(ctx context.Context, uri string) (*model.Photo, error) {
	canonical := s.canon.Canonical(uri)
	if canonical == "" {
		return nil, model.ErrPhotoNotFound
	}
	return s.photos.FindByURI(ctx, canonical)
}

// resolveComments attaches author display attributes. Authors that no longer exist are
// rendered with their id only.
func resolveComments(ctx context.Context, accounts repository.AccountRepository, comments []model.Comment) ([]model.CommentView, error) {
	if len(comments) == 0 {
		return []model.CommentView{}, nil
	}

	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors, err := accounts.GetSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve comment authors: %w", err)
	}
	return commentViews(comments, authors), nil
}

func commentViews(comments []model.Comment, authors map[int64]model.AccountSummary) []model.CommentView {
	views := make([]model.CommentView, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorID]
		if !ok {
			author = model.AccountSummary{ID: c.AuthorID}
		}
		views = append(views, model.CommentView{
			Author:    author,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	return views
}
