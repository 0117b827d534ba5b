// Package codec translates internal resource ids into the opaque identifiers
// exposed to TPPs.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// Base64Codec renders ids as unpadded URL-safe base64 of the raw uuid bytes.
// The encoding carries no secret; it only keeps internal ids out of the API
// surface.
type Base64Codec struct{}

func New() Base64Codec { return Base64Codec{} }

func (Base64Codec) Encode(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func (Base64Codec) Decode(opaque string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode resource id: %w", err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode resource id: %w", err)
	}
	return id, nil
}
