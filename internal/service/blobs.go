package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"photogram/internal/metrics"
	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
	"photogram/internal/storage"
)

// BlobReferences answers whether stored bytes are still referenced. The same URI may be
// held by photos of several accounts and by profile pictures, so bytes are only deleted
// once nothing points at them.
type BlobReferences struct {
	accounts repository.AccountRepository
	photos   repository.PhotoRepository
}

func NewBlobReferences(accounts repository.AccountRepository, photos repository.PhotoRepository) *BlobReferences {
	return &BlobReferences{accounts: accounts, photos: photos}
}

// InUse reports whether any photo or profile picture still refers to uri.
func (r *BlobReferences) InUse(ctx context.Context, uri string) (bool, error) {
	inUse, err := r.photos.URIInUse(ctx, uri)
	if err != nil || inUse {
		return inUse, err
	}
	return r.accounts.ProfilePictureInUse(ctx, uri)
}

type blobOutcome int

const (
	blobDeleted blobOutcome = iota
	// blobRetained means the bytes are still referenced, or are not ours to delete.
	blobRetained
	// blobOrphaned means the delete failed or could not be decided; a retry was queued.
	blobOrphaned
)

// isUpload reports whether uri names bytes in our own upload folder.
func isUpload(uri string) bool {
	return strings.HasPrefix(uri, "/"+model.UploadFolder+"/")
}

// deleteBlobOrQueue deletes uri's bytes unless something still references them. A failed
// delete is counted and published as blob_orphaned for the worker to retry.
func deleteBlobOrQueue(
	ctx context.Context,
	refs *BlobReferences,
	files storage.FileStorage,
	publisher queue.Publisher,
	ownerID int64,
	uri string,
) blobOutcome {
	if !isUpload(uri) {
		return blobRetained
	}

	inUse, err := refs.InUse(ctx, uri)
	if err == nil && inUse {
		log.Printf("[Storage] Delete skipped, still referenced: owner=%d uri=%s", ownerID, uri)
		return blobRetained
	}
	if err == nil {
		err = files.Delete(ctx, uri)
	} else {
		err = fmt.Errorf("check references: %w", err)
	}
	if err == nil {
		return blobDeleted
	}

	metrics.BlobDeleteFailures.Inc()
	log.Printf("[Storage] Delete FAILED, blob orphaned: owner=%d uri=%s err=%v", ownerID, uri, err)
	if publisher != nil {
		if _, perr := publisher.Publish(ctx, queue.StreamGraph, queue.NewBlobOrphanedEvent(ownerID, uri)); perr != nil {
			log.Printf("[Storage] Failed to queue orphan cleanup: uri=%s err=%v", uri, perr)
		}
	}
	return blobOrphaned
}
