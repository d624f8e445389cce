package domain

import "time"

// Verb names the kind of mutation being audited or published.
type Verb string

const (
	VerbCreate     Verb = "create"
	VerbTransition Verb = "transition"
	VerbRename     Verb = "rename"
	VerbDelete     Verb = "delete"
)

// Action combines a verb with a family, e.g. "transition_article".
func Action(verb Verb, family Family) string {
	return string(verb) + "_" + string(family)
}

// AuditRecord is an immutable before/after entry for one mutation.
// Before is nil for creation and After is nil for deletion.
type AuditRecord struct {
	ID         string
	ActorID    string
	Action     string
	Family     Family
	EntityID   string
	Before     Snapshot
	After      Snapshot
	OccurredAt time.Time
}

// AuditFilter holds optional criteria for reading the audit trail.
type AuditFilter struct {
	Family   Family
	EntityID string
	ActorID  string
	Action   string
	Limit    int
	Offset   int
}
