package conf

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faaskit/internal/blob"
)

type memBlob struct {
	blobs     map[string][]byte
	retrieves int
}

func newMemBlob() *memBlob { return &memBlob{blobs: map[string][]byte{}} }

func (m *memBlob) Store(ctx context.Context, key string, data []byte) error {
	m.blobs[key] = data
	return nil
}

func (m *memBlob) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.retrieves++
	data, ok := m.blobs[key]
	if !ok {
		return nil, &blob.BlobError{Op: "Retrieve", Key: key, Err: blob.ErrBlobNotFound}
	}
	return data, nil
}

func (m *memBlob) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

func (m *memBlob) Delete(ctx context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *memBlob) Close() error { return nil }

func testClient(storage blob.Storage, ttl time.Duration) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(storage, "dev", ttl, logger)
}

func TestLoad_MissingDocumentIsEmptySettings(t *testing.T) {
	client := testClient(newMemBlob(), -1)

	settings, err := client.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	storage := newMemBlob()
	client := testClient(storage, -1)
	ctx := context.Background()

	require.NoError(t, client.Save(ctx, map[string]interface{}{"greeting": "hiya"}))

	assert.Contains(t, storage.blobs, "dev/settings.json")

	settings, err := client.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hiya", settings["greeting"])
}

func TestLoad_CachesWithinTTL(t *testing.T) {
	storage := newMemBlob()
	storage.blobs["dev/settings.json"] = []byte(`{"greeting":"hi"}`)

	client := testClient(storage, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := client.Load(ctx)
	require.NoError(t, err)
	_, err = client.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, storage.retrieves, "second load within the TTL must hit the cache")

	now = now.Add(2 * time.Minute)
	_, err = client.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, storage.retrieves, "expired cache must refetch")
}

func TestLoad_CallerCannotMutateCache(t *testing.T) {
	storage := newMemBlob()
	storage.blobs["dev/settings.json"] = []byte(`{"greeting":"hi"}`)
	client := testClient(storage, time.Minute)
	ctx := context.Background()

	first, err := client.Load(ctx)
	require.NoError(t, err)
	first["greeting"] = "tampered"

	second, err := client.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", second["greeting"])
}

func TestLoad_MalformedDocument(t *testing.T) {
	storage := newMemBlob()
	storage.blobs["dev/settings.json"] = []byte("not json")
	client := testClient(storage, -1)

	_, err := client.Load(context.Background())
	require.Error(t, err)
}

type failBlob struct{ memBlob }

func (f *failBlob) Retrieve(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("service unavailable")
}

func TestLoad_StorageFailurePropagates(t *testing.T) {
	client := testClient(&failBlob{}, -1)
	_, err := client.Load(context.Background())
	require.Error(t, err)
}
