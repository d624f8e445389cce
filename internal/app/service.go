package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// maxSlugAttempts bounds how often a write is retried after losing a slug
// race to a concurrent writer.
const maxSlugAttempts = 3

// LifecycleService orchestrates create, transition, rename and delete of
// publishable entities.
type LifecycleService struct {
	repo      domain.EntityRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	slugs     *SlugAllocator
	audit     *AuditRecorder
	clock     domain.Clock
}

// NewLifecycleService creates a service with the given adapters.
func NewLifecycleService(
	repo domain.EntityRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	audit *AuditRecorder,
	clock domain.Clock,
) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		slugs:     NewSlugAllocator(repo),
		audit:     audit,
		clock:     clock,
	}
}

// Create persists a new entity in its family's start state. An article may
// ask to be scheduled or published straight away; that step is validated as
// an ordinary edge out of draft before anything is written.
func (s *LifecycleService) Create(ctx context.Context, actorID string, in domain.CreateInput) (domain.Entity, error) {
	now := s.clock.Now()

	entity, err := domain.Build(newID(), in, now)
	if err != nil {
		return domain.Entity{}, err
	}

	if in.Status != "" && in.Status != entity.Status {
		to, err := s.validator.Apply(ctx, entity.Family, entity.Status, in.Status, domain.CauseManual)
		if err != nil {
			return domain.Entity{}, err
		}
		if err := entity.Enter(to, domain.TransitionOptions{ScheduledAt: in.ScheduledAt}, now); err != nil {
			return domain.Entity{}, err
		}
	}

	insert := func(e domain.Entity) (int64, error) {
		if err := s.repo.Insert(ctx, e); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if entity, err = s.writeWithSlug(ctx, entity, "", insert); err != nil {
		return domain.Entity{}, fmt.Errorf("creating %s: %w", in.Family, err)
	}

	s.audit.Record(ctx, actorID, domain.VerbCreate, entity.Family, entity.ID, nil, domain.SnapshotOf(entity))
	s.publish(ctx, domain.VerbCreate, entity)

	return entity, nil
}

// Get returns one entity of family.
func (s *LifecycleService) Get(ctx context.Context, family domain.Family, id string) (domain.Entity, error) {
	if err := checkFamily(family); err != nil {
		return domain.Entity{}, err
	}
	return s.repo.GetByID(ctx, family, id)
}

// GetBySlug resolves a public slug. Only published entities are visible;
// anything else, including families without slugs, is ErrEntityNotFound.
func (s *LifecycleService) GetBySlug(ctx context.Context, family domain.Family, slug string) (domain.Entity, error) {
	if err := checkFamily(family); err != nil {
		return domain.Entity{}, err
	}
	if !family.SlugBearing() || slug == "" {
		return domain.Entity{}, domain.ErrEntityNotFound
	}

	e, err := s.repo.GetBySlug(ctx, family, slug)
	if err != nil {
		return domain.Entity{}, err
	}
	if e.Status != domain.StatusPublished {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, nil
}

// List returns entities matching the given filter.
func (s *LifecycleService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	if filter.Family != "" {
		if err := checkFamily(filter.Family); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, filter)
}

// Transition moves an entity to requested on an editor's behalf. The write
// only lands if nobody else changed the entity since it was read; otherwise
// ErrStaleState is returned and nothing is audited.
func (s *LifecycleService) Transition(ctx context.Context, actorID string, family domain.Family, id string, requested domain.Status, opts domain.TransitionOptions) (domain.Entity, error) {
	if err := checkFamily(family); err != nil {
		return domain.Entity{}, err
	}

	current, err := s.repo.GetByID(ctx, family, id)
	if err != nil {
		return domain.Entity{}, err
	}

	to, err := s.validator.Apply(ctx, family, current.Status, requested, domain.CauseManual)
	if err != nil {
		return domain.Entity{}, err
	}

	next := current
	if err := next.Enter(to, opts, s.clock.Now()); err != nil {
		return domain.Entity{}, err
	}

	n, err := s.repo.UpdateIf(ctx, next, expect(current))
	if err != nil {
		return domain.Entity{}, fmt.Errorf("transitioning %s: %w", family, err)
	}
	if n == 0 {
		return domain.Entity{}, s.missed(ctx, family, id)
	}
	next.Version = current.Version + 1

	before, after := domain.Diff(current, next)
	s.audit.Record(ctx, actorID, domain.VerbTransition, family, id, before, after)
	s.publish(ctx, domain.VerbTransition, next)

	return next, nil
}

// Rename changes an entity's title. Slug-bearing families get a fresh slug
// derived from the new title; the entity's own earlier slugs stay available
// to it. An unchanged title is a no-op.
func (s *LifecycleService) Rename(ctx context.Context, actorID string, family domain.Family, id, title string) (domain.Entity, error) {
	if err := checkFamily(family); err != nil {
		return domain.Entity{}, err
	}

	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required, validation.RuneLength(1, 255)); err != nil {
		return domain.Entity{}, &domain.ValidationError{Err: validation.Errors{"title": err}}
	}

	current, err := s.repo.GetByID(ctx, family, id)
	if err != nil {
		return domain.Entity{}, err
	}
	if current.Title == title {
		return current, nil
	}

	next := current
	next.Title = title
	next.UpdatedAt = s.clock.Now().UTC()

	update := func(e domain.Entity) (int64, error) {
		return s.repo.UpdateIf(ctx, e, expect(current))
	}
	if next, err = s.writeWithSlug(ctx, next, id, update); err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			return domain.Entity{}, s.missed(ctx, family, id)
		}
		return domain.Entity{}, fmt.Errorf("renaming %s: %w", family, err)
	}
	next.Version = current.Version + 1

	before, after := domain.Diff(current, next)
	s.audit.Record(ctx, actorID, domain.VerbRename, family, id, before, after)
	s.publish(ctx, domain.VerbRename, next)

	return next, nil
}

// Delete removes an entity. Its slug stays reserved.
func (s *LifecycleService) Delete(ctx context.Context, actorID string, family domain.Family, id string) error {
	if err := checkFamily(family); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, family, id)
	if err != nil {
		return err
	}

	n, err := s.repo.DeleteIf(ctx, family, id, expect(current))
	if err != nil {
		return fmt.Errorf("deleting %s: %w", family, err)
	}
	if n == 0 {
		return s.missed(ctx, family, id)
	}

	s.audit.Record(ctx, actorID, domain.VerbDelete, family, id, domain.SnapshotOf(current), nil)
	s.publish(ctx, domain.VerbDelete, current)

	return nil
}

// writeWithSlug assigns a slug to slug-bearing entities and runs write,
// re-allocating when a concurrent writer claimed the same slug first. A
// write that matches no row reports ErrStaleState.
func (s *LifecycleService) writeWithSlug(ctx context.Context, e domain.Entity, excludeID string, write func(domain.Entity) (int64, error)) (domain.Entity, error) {
	for attempt := 1; ; attempt++ {
		if e.Family.SlugBearing() {
			slug, err := s.slugs.Allocate(ctx, e.Family, e.Title, excludeID)
			if err != nil {
				return domain.Entity{}, err
			}
			e.Slug = slug
		}

		n, err := write(e)
		var conflict *domain.SlugConflictError
		if errors.As(err, &conflict) && e.Family.SlugBearing() && attempt < maxSlugAttempts {
			slog.WarnContext(ctx, "slug claimed concurrently, reallocating",
				"family", e.Family,
				"slug", conflict.Slug,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return domain.Entity{}, err
		}
		if n == 0 {
			return domain.Entity{}, domain.ErrStaleState
		}
		return e, nil
	}
}

// missed explains a conditional write that matched no row.
func (s *LifecycleService) missed(ctx context.Context, family domain.Family, id string) error {
	_, err := s.repo.GetByID(ctx, family, id)
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		return domain.ErrEntityNotFound
	case err != nil:
		return fmt.Errorf("re-reading %s %s: %w", family, id, err)
	default:
		return domain.ErrStaleState
	}
}

// publish emits a lifecycle event. Delivery is best effort; the change is
// already committed.
func (s *LifecycleService) publish(ctx context.Context, verb domain.Verb, e domain.Entity) {
	if err := s.publisher.Publish(ctx, verb, e); err != nil {
		slog.WarnContext(ctx, "publishing lifecycle event",
			"verb", verb,
			"family", e.Family,
			"entity_id", e.ID,
			"error", err,
		)
	}
}

func expect(e domain.Entity) domain.Expected {
	return domain.Expected{Status: e.Status, Version: e.Version}
}

func checkFamily(f domain.Family) error {
	if !f.Valid() {
		return &domain.ValidationError{Err: validation.Errors{"family": fmt.Errorf("unknown family %q", f)}}
	}
	return nil
}
