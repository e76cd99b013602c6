package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
	"photogram/internal/storage"
)

// MediaService manages profile pictures: validation, normalization and replacement.
type MediaService struct {
	accounts  repository.AccountRepository
	files     storage.FileStorage
	publisher queue.Publisher
	refs      *BlobReferences
}

func NewMediaService(
	accounts repository.AccountRepository,
	photos repository.PhotoRepository,
	files storage.FileStorage,
	publisher queue.Publisher,
) *MediaService {
	return &MediaService{
		accounts:  accounts,
		files:     files,
		publisher: publisher,
		refs:      NewBlobReferences(accounts, photos),
	}
}

// UploadProfilePicture normalizes the image to a 200x200 JPEG, stores it and points the
// account at it. The previous picture's bytes are deleted best-effort.
func (s *MediaService) UploadProfilePicture(ctx context.Context, accountID int64, file multipart.File, header *multipart.FileHeader) (string, error) {
	data, _, err := ReadImage(file, header, model.MaxProfilePictureBytes)
	if err != nil {
		return "", err
	}

	jpegBytes, err := resizeToJPEG(data, model.ProfilePictureWidth, model.ProfilePictureHeight, 85)
	if err != nil {
		return "", err
	}

	uri, err := s.files.Store(ctx, jpegBytes, model.ContentTypeJPEG)
	if err != nil {
		return "", fmt.Errorf("store profile picture: %w", err)
	}

	previous, err := s.accounts.SetProfilePicture(ctx, accountID, &uri)
	if err != nil {
		deleteBlobOrQueue(context.WithoutCancel(ctx), s.refs, s.files, s.publisher, accountID, uri)
		return "", err
	}
	if previous != nil && *previous != uri {
		deleteBlobOrQueue(context.WithoutCancel(ctx), s.refs, s.files, s.publisher, accountID, *previous)
	}

	log.Printf("[MediaService] UploadProfilePicture OK: account=%d uri=%s", accountID, uri)
	return uri, nil
}

// ProfilePicture returns the account's current picture reference, or nil.
func (s *MediaService) ProfilePicture(ctx context.Context, accountID int64) (*string, error) {
	summaries, err := s.accounts.GetSummaries(ctx, []int64{accountID})
	if err != nil {
		return nil, err
	}
	summary, ok := summaries[accountID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return summary.ProfilePicture, nil
}

// RemoveProfilePicture clears the reference and deletes the bytes if nothing else uses
// them. Reports false when the delete failed and a retry was queued; a failed delete does
// not restore the reference.
func (s *MediaService) RemoveProfilePicture(ctx context.Context, accountID int64) (bool, error) {
	previous, err := s.accounts.SetProfilePicture(ctx, accountID, nil)
	if err != nil {
		return false, err
	}
	if previous == nil {
		return true, nil
	}
	outcome := deleteBlobOrQueue(context.WithoutCancel(ctx), s.refs, s.files, s.publisher, accountID, *previous)
	return outcome != blobOrphaned, nil
}

// ReadImage loads an upload into memory with size and type checks.
func ReadImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}

	return data, contentType, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", model.ErrInvalidImageType, err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
