// Package idempotency stores the responses of mutating requests keyed by the
// client-supplied Idempotency-Key header, so a retried request replays the
// original response instead of repeating the write.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Key lifecycle states. Only StatusCompleted is written today;
// StatusProcessing also appears in the request_idempotency CHECK constraint,
// so both lists must change together with the migrations.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// MaxKeyLength matches the VARCHAR(64) key column in request_idempotency.
const MaxKeyLength = 64

// Sentinel errors returned by key validation and the repositories.
var (
	ErrKeyNotFound = errors.New("idempotency key not found")
	ErrKeyExists   = errors.New("idempotency key already exists")
	ErrInvalidKey  = errors.New("invalid idempotency key")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// IdempotencyKey is one stored response: the key, the request it answered,
// and the body to replay.
type IdempotencyKey struct {
	Key       string    `json:"key"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	VendorID  *string   `json:"vendor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Status             string `json:"status"`
	ResponseStatusCode int    `json:"response_status_code"`
	ResponseBody       string `json:"response_body"`
	ResponseHash       string `json:"response_hash"`
}

// clone returns a deep copy, including the VendorID pointer.
func (k *IdempotencyKey) clone() *IdempotencyKey {
	if k == nil {
		return nil
	}
	out := *k
	if k.VendorID != nil {
		id := *k.VendorID
		out.VendorID = &id
	}
	return &out
}

// ValidateKey rejects empty keys and keys longer than MaxKeyLength.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	}
	return nil
}

// ComputeResponseHash returns the hex SHA-256 of a response body, stored as a
// fingerprint next to the replayable body.
func ComputeResponseHash(responseBody string) string {
	sum := sha256.Sum256([]byte(responseBody))
	return hex.EncodeToString(sum[:])
}

// Repository persists idempotency keys. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Get returns the stored key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (*IdempotencyKey, error)

	// Store persists a new key, rejecting duplicates with ErrKeyExists.
	Store(ctx context.Context, record *IdempotencyKey) error

	// DeleteOlderThan drops keys created before now minus age and reports
	// how many were removed.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
