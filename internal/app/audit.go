package app

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// AuditRecorder writes best-effort before/after records of entity mutations.
type AuditRecorder struct {
	store domain.AuditStore
	clock domain.Clock
}

// NewAuditRecorder creates a recorder that appends to store.
func NewAuditRecorder(store domain.AuditStore, clock domain.Clock) *AuditRecorder {
	return &AuditRecorder{store: store, clock: clock}
}

// Record appends one audit record. Failures are logged and never returned:
// the mutation being audited has already been committed.
func (r *AuditRecorder) Record(ctx context.Context, actorID string, verb domain.Verb, family domain.Family, entityID string, before, after domain.Snapshot) {
	rec := domain.AuditRecord{
		ID:         newID(),
		ActorID:    actorID,
		Action:     domain.Action(verb, family),
		Family:     family,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		OccurredAt: r.clock.Now().UTC(),
	}

	if err := r.store.Append(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "recording audit entry",
			"action", rec.Action,
			"entity_id", entityID,
			"actor_id", actorID,
			"error", err,
		)
	}
}

// List returns audit records matching filter, newest first.
func (r *AuditRecorder) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	return r.store.List(ctx, filter)
}
