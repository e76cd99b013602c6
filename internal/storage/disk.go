package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"photogram/internal/model"
)

// DiskStorage writes objects under a local directory that is served at /uploads/.
type DiskStorage struct {
	root string
}

// NewDiskStorage uses dir as the upload folder, creating it if needed.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &DiskStorage{root: dir}, nil
}

// Dir is the directory files are written to.
func (s *DiskStorage) Dir() string { return s.root }

func (s *DiskStorage) pathFor(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(key, model.UploadFolder+"/")))
}

func (s *DiskStorage) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := newObjectName(contentType)
	if err := os.WriteFile(s.pathFor(key), data, 0o644); err != nil {
		log.Printf("[DiskStorage] Store FAILED: key=%s err=%v", key, err)
		return "", storageErr("write upload", err)
	}
	return "/" + key, nil
}

// Delete treats a missing file as already deleted.
func (s *DiskStorage) Delete(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := keyFromURI(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(s.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[DiskStorage] Delete FAILED: key=%s err=%v", key, err)
		return storageErr("remove upload", err)
	}
	return nil
}
