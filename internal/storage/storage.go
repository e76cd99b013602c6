// Package storage holds the binary file storage backends. Stored objects are addressed by
// their canonical URI, "/uploads/<name>", regardless of backend.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"photogram/internal/model"
)

// FileStorage persists uploaded bytes and returns their canonical URI.
type FileStorage interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, uri string) error
}

// newObjectName returns a collision-free object key such as "uploads/<uuid>.jpg".
func newObjectName(contentType string) string {
	return path.Join(model.UploadFolder, uuid.NewString()+model.ExtensionFor(contentType))
}

// keyFromURI maps a canonical URI back to its object key and rejects anything outside
// the upload folder.
func keyFromURI(uri string) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+uri), "/")
	if !strings.HasPrefix(key, model.UploadFolder+"/") {
		return "", fmt.Errorf("%w: uri %q is outside %s", model.ErrInvalidInput, uri, model.UploadFolder)
	}
	return key, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageFailure, err)
}
