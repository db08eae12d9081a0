package directory

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidSnapshot is returned when cached snapshot bytes cannot be decoded.
var ErrInvalidSnapshot = errors.New("invalid snapshot data")

// EncodeSnapshot encodes a vendor snapshot to CBOR bytes for caching.
func EncodeSnapshot(vendors []Vendor) ([]byte, error) {
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.Encode(vendors); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot decodes CBOR bytes back into a vendor snapshot.
func DecodeSnapshot(data []byte) ([]Vendor, error) {
	if len(data) == 0 {
		return nil, ErrInvalidSnapshot
	}

	var vendors []Vendor
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&vendors); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return vendors, nil
}
