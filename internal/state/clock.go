package state

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// NewID returns a fresh element identifier. IDs are never reused.
func NewID() string {
	return uuid.NewString()
}

// NewNonce returns a random tie-breaker for VersionNonce. It carries no
// security meaning.
func NewNonce() int64 {
	return rand.Int64N(1 << 31)
}

// NewSeed returns a random seed for the sketch renderer.
func NewSeed() int64 {
	return rand.Int64N(1 << 31)
}
