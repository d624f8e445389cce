package app

import "github.com/google/uuid"

// newID produces a random UUIDv4 identifier for entities and audit records.
// Isolated here so the ID strategy can evolve independently.
func newID() string {
	return uuid.NewString()
}
