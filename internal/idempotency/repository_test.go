package idempotency

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

const vendorCreatedBody = `{"id":"ven_0042","name":"Annapurna Caterers"}`

// storedResponse builds the record the middleware would persist after a
// successful vendor create.
func storedResponse(key string) *IdempotencyKey {
	return &IdempotencyKey{
		Key:                key,
		Method:             http.MethodPost,
		Route:              "/vendors",
		Status:             StatusCompleted,
		ResponseStatusCode: http.StatusCreated,
		ResponseBody:       vendorCreatedBody,
		ResponseHash:       ComputeResponseHash(vendorCreatedBody),
	}
}

func TestInMemoryRepository_RoundTrip(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "no-such-key"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get on an empty repository = %v, want ErrKeyNotFound", err)
	}

	record := storedResponse("create-vendor-retry-7f3a")
	if err := repo.Store(ctx, record); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := repo.Get(ctx, "create-vendor-retry-7f3a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Method != record.Method || got.Route != record.Route || got.ResponseBody != record.ResponseBody {
		t.Errorf("Get() = %+v, want the stored record %+v", got, record)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt still zero after Store")
	}

	if err := repo.Store(ctx, storedResponse("create-vendor-retry-7f3a")); !errors.Is(err, ErrKeyExists) {
		t.Errorf("duplicate Store() = %v, want ErrKeyExists", err)
	}
}

func TestInMemoryRepository_RejectsInvalidKeys(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty", "", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Store(ctx, storedResponse(tt.key)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Store() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInMemoryRepository_DeleteOlderThan(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	old := storedResponse("stale-retry")
	old.CreatedAt = time.Now().Add(-25 * time.Hour)
	recent := storedResponse("fresh-retry")
	recent.CreatedAt = time.Now().Add(-time.Hour)
	for _, rec := range []*IdempotencyKey{old, recent} {
		if err := repo.Store(ctx, rec); err != nil {
			t.Fatalf("Store(%s) error = %v", rec.Key, err)
		}
	}

	deleted, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", deleted)
	}

	if _, err := repo.Get(ctx, "stale-retry"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("stale key survived cleanup: %v", err)
	}
	if _, err := repo.Get(ctx, "fresh-retry"); err != nil {
		t.Errorf("fresh key was deleted: %v", err)
	}
}

func TestInMemoryRepository_CopiesOnStoreAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	vendorID := "550e8400-e29b-41d4-a716-446655440000"
	original := storedResponse("create-vendor-retry-7f3a")
	original.VendorID = &vendorID
	if err := repo.Store(ctx, original); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Mutating the caller's record after Store must not reach the stored copy.
	original.ResponseBody = "clobbered"
	*original.VendorID = "clobbered"

	got, err := repo.Get(ctx, "create-vendor-retry-7f3a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ResponseBody != vendorCreatedBody {
		t.Errorf("stored body mutated through the caller's record: %q", got.ResponseBody)
	}
	if got.VendorID == nil || *got.VendorID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Error("stored vendor ID mutated through the caller's pointer")
	}

	// A Get result is a copy too; scribbling on it must not stick.
	*got.VendorID = "scribbled"
	again, err := repo.Get(ctx, "create-vendor-retry-7f3a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *again.VendorID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Error("stored vendor ID mutated through a Get result")
	}
}
