// Package uuid wraps github.com/google/uuid for random identifiers.
package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID string drawn from crypto/rand.
func New() string {
	return uuid.NewString()
}
