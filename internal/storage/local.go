package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/chartmuseum/storage"
)

// LocalStorage implements ObjectStorage on a directory.
type LocalStorage struct {
	backend *storage.LocalFilesystemBackend
}

// NewLocalStorage stores objects below root.
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{backend: storage.NewLocalFilesystemBackend(root)}
}

func (l *LocalStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := l.backend.GetObject(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("local get %s: %w", key, err)
	}
	return object.Content, nil
}

func (l *LocalStorage) PutObject(ctx context.Context, key string, data []byte) error {
	if err := l.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*LocalStorage)(nil)
