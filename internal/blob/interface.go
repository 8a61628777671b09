// Package blob stores configuration documents as opaque objects, backed by
// the local filesystem in development and S3 in deployed environments.
package blob

import "context"

// Storage reads and writes configuration blobs by key.
type Storage interface {
	// Store writes data at key, replacing any existing blob.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve reads the blob at key; ErrBlobNotFound when absent.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a blob is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the blob at key; ErrBlobNotFound when absent.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Type string // "local" or "s3"

	// BasePath configures the local backend.
	BasePath string

	// Bucket and EncryptKeyARN configure the s3 backend. When EncryptKeyARN
	// is set, objects are written with SSE-KMS under that key.
	Bucket        string
	EncryptKeyARN string
	Client        S3API
}
