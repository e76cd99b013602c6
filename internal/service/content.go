package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"photogram/internal/mediauri"
	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
	"photogram/internal/storage"
)

// ContentService is the content store: each account's ordered photo collection.
type ContentService struct {
	accounts  repository.AccountRepository
	photos    repository.PhotoRepository
	files     storage.FileStorage
	canon     *mediauri.Canonicalizer
	publisher queue.Publisher
	refs      *BlobReferences
	now       func() time.Time
}

func NewContentService(
	accounts repository.AccountRepository,
	photos repository.PhotoRepository,
	files storage.FileStorage,
	canon *mediauri.Canonicalizer,
	publisher queue.Publisher,
) *ContentService {
	return &ContentService{
		accounts:  accounts,
		photos:    photos,
		files:     files,
		canon:     canon,
		publisher: publisher,
		refs:      NewBlobReferences(accounts, photos),
		now:       time.Now,
	}
}

// AddPhoto appends a photo with the canonical form of uri to the owner's collection.
// The same URI may be held by several accounts.
func (s *ContentService) AddPhoto(ctx context.Context, ownerID int64, uri string) (*model.Photo, error) {
	canonical := s.canon.Canonical(uri)
	if canonical == "" {
		return nil, fmt.Errorf("%w: photo uri is required", model.ErrInvalidInput)
	}

	photo := &model.Photo{
		OwnerID:   ownerID,
		URI:       canonical,
		CreatedAt: s.now().UTC(),
	}
	if err := s.photos.Add(ctx, photo); err != nil {
		log.Printf("[ContentService] AddPhoto FAILED: owner=%d uri=%s err=%v", ownerID, canonical, err)
		return nil, fmt.Errorf("add photo: %w", err)
	}

	log.Printf("[ContentService] AddPhoto OK: owner=%d photo=%d uri=%s", ownerID, photo.ID, canonical)
	return photo, nil
}

// UploadPhoto stores the bytes and then records the photo. Bytes whose metadata could not
// be recorded are deleted again.
func (s *ContentService) UploadPhoto(ctx context.Context, ownerID int64, data []byte, contentType string) (*model.Photo, error) {
	uri, err := s.files.Store(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store photo bytes: %w", err)
	}

	photo, err := s.AddPhoto(ctx, ownerID, uri)
	if err != nil {
		s.deleteBlob(context.WithoutCancel(ctx), ownerID, uri)
		return nil, err
	}
	return photo, nil
}

// RemovePhoto removes the owner's photo metadata, then its stored bytes. Bytes still
// referenced by another photo or a profile picture are kept. Failure to delete the bytes
// does not undo the removal; it is queued for a worker to retry.
func (s *ContentService) RemovePhoto(ctx context.Context, ownerID int64, uri string) (*model.RemovePhotoResult, error) {
	canonical := s.canon.Canonical(uri)

	photo, err := s.photos.Remove(ctx, ownerID, canonical)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.NewPhotoRemovedEvent(ownerID, canonical))
	outcome := s.deleteBlob(context.WithoutCancel(ctx), ownerID, canonical)

	result := &model.RemovePhotoResult{
		Photo:        photo,
		BlobDeleted:  outcome == blobDeleted,
		BlobRetained: outcome == blobRetained,
	}
	log.Printf("[ContentService] RemovePhoto OK: owner=%d photo=%d blob_deleted=%t blob_retained=%t",
		ownerID, photo.ID, result.BlobDeleted, result.BlobRetained)
	return result, nil
}

// ListPhotos returns the account's photos in the order they were added.
func (s *ContentService) ListPhotos(ctx context.Context, accountID int64) ([]model.Photo, error) {
	summaries, err := s.accounts.GetSummaries(ctx, []int64{accountID})
	if err != nil {
		return nil, err
	}
	if _, ok := summaries[accountID]; !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.photos.ListByOwner(ctx, accountID)
}

// deleteBlob deletes stored bytes nothing references any more. Only objects under the
// upload folder are ours to delete; external references are left alone.
func (s *ContentService) deleteBlob(ctx context.Context, ownerID int64, uri string) blobOutcome {
	return deleteBlobOrQueue(ctx, s.refs, s.files, s.publisher, ownerID, uri)
}

func (s *ContentService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamGraph, event); err != nil {
		log.Printf("[ContentService] Failed to publish %s: owner=%d err=%v", event.Type, event.OwnerID, err)
	}
}
