package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps blobs as files under a base directory. Used by the dev
// server so configuration round-trips without AWS credentials.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, &BlobError{Op: "NewLocalStorage", Err: err}
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, &BlobError{Op: "NewLocalStorage", Err: err}
	}
	return &LocalStorage{basePath: abs}, nil
}

func (l *LocalStorage) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return &BlobError{Op: "Store", Key: key, Err: err}
	}
	path := l.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &BlobError{Op: "Store", Key: key, Err: err}
	}

	// Write to a temp file then rename so readers never see partial data.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &BlobError{Op: "Store", Key: key, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &BlobError{Op: "Store", Key: key, Err: err}
	}
	return nil
}

func (l *LocalStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: err}
	}
	data, err := os.ReadFile(l.path(key))
	if os.IsNotExist(err) {
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: ErrBlobNotFound}
	}
	if err != nil {
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: err}
	}
	return data, nil
}

func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, &BlobError{Op: "Exists", Key: key, Err: err}
	}
	_, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &BlobError{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &BlobError{Op: "Delete", Key: key, Err: err}
	}
	err := os.Remove(l.path(key))
	if os.IsNotExist(err) {
		return &BlobError{Op: "Delete", Key: key, Err: ErrBlobNotFound}
	}
	if err != nil {
		return &BlobError{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

func (l *LocalStorage) Close() error { return nil }

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// validateKey rejects empty keys and directory traversal.
func validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
