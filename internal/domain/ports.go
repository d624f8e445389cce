package domain

import (
	"context"
	"time"
)

// EntityRepository defines the persistence contract for publishable entities.
// Conditional writes return the number of rows they affected; zero means the
// expected state no longer matched.
type EntityRepository interface {
	Insert(ctx context.Context, entity Entity) error
	GetByID(ctx context.Context, family Family, id string) (Entity, error)
	// GetBySlug returns the entity currently holding slug within family.
	GetBySlug(ctx context.Context, family Family, slug string) (Entity, error)
	List(ctx context.Context, filter ListFilter) ([]Entity, error)
	UpdateIf(ctx context.Context, entity Entity, expected Expected) (int64, error)
	DeleteIf(ctx context.Context, family Family, id string, expected Expected) (int64, error)
	SlugTaken(ctx context.Context, family Family, slug, excludeID string) (bool, error)
	ApplySweep(ctx context.Context, rule SweepRule, now time.Time) (int64, error)
}

// Expected is the state a conditional write must still observe to apply.
type Expected struct {
	Status  Status
	Version int64
}

// ListFilter holds optional criteria for listing entities.
type ListFilter struct {
	Family Family
	Status *Status
	Limit  int
	Offset int
}

// AuditStore is the append-only persistence contract for audit records.
type AuditStore interface {
	Append(ctx context.Context, record AuditRecord) error
	List(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

// EventPublisher defines the contract for emitting lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, verb Verb, entity Entity) error
}

// TransitionValidator checks a requested edge against a family's graph and
// returns the resulting status.
type TransitionValidator interface {
	Apply(ctx context.Context, family Family, current, requested Status, cause Cause) (Status, error)
}

// Clock supplies the current time. It is injected so that tests can move
// time deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
