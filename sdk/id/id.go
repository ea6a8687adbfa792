// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// DefaultSize is the number of random bytes used by New. 32 bytes encode to
// 43 base64url characters.
const DefaultSize = 32

// New generates an ID with an optional prefix from DefaultSize random bytes.
func New(optionalPrefix string) (string, error) {
	id, err := Random(DefaultSize)
	if err != nil {
		return "", err
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// Random reads size bytes from crypto/rand and returns them base64url
// encoded without padding.
func Random(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("size must be greater than zero: %d", size)
	}
	b, err := uuid.GenerateRandomBytes(size)
	if err != nil {
		return "", fmt.Errorf("unable to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
