// Package id provides identifiers for companies and branches.
// IDs are UUIDv7 so rows created together cluster in the sequence table index.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used for company and branch identity.
type ID = uuid.UUID

// New generates a new UUIDv7, falling back to V4 if the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse id %q: %w", s, err)
	}
	return v, nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
