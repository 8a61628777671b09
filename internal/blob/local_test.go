package blob

import (
	"context"
	"errors"
	"testing"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return storage
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	if err := storage.Store(ctx, "dev/settings.json", []byte(`{"greeting":"hi"}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	exists, err := storage.Exists(ctx, "dev/settings.json")
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v", exists, err)
	}

	data, err := storage.Retrieve(ctx, "dev/settings.json")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if string(data) != `{"greeting":"hi"}` {
		t.Errorf("data = %s", data)
	}

	if err := storage.Delete(ctx, "dev/settings.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	exists, err = storage.Exists(ctx, "dev/settings.json")
	if err != nil || exists {
		t.Errorf("Exists() after delete = %v, %v", exists, err)
	}
}

func TestLocalStorage_MissingBlob(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	_, err := storage.Retrieve(ctx, "dev/nothing.json")
	if !IsNotFound(err) {
		t.Fatalf("Retrieve missing err = %v, want not-found", err)
	}
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("err = %v, want wrapping ErrBlobNotFound", err)
	}

	if err := storage.Delete(ctx, "dev/nothing.json"); !IsNotFound(err) {
		t.Errorf("Delete missing err = %v, want not-found", err)
	}
}

func TestLocalStorage_RejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	tests := []string{"", "../escape.json", "/absolute.json", "a/../../b"}
	for _, key := range tests {
		if err := storage.Store(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Store(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestLocalStorage_OverwriteReplaces(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	_ = storage.Store(ctx, "k", []byte("one"))
	if err := storage.Store(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	data, err := storage.Retrieve(ctx, "k")
	if err != nil || string(data) != "two" {
		t.Errorf("Retrieve() = %s, %v", data, err)
	}
}
