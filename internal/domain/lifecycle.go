package domain

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultPlanDays is the listing plan length used when none is given.
	DefaultPlanDays = 30
	// MaxPlanDays bounds a single listing plan.
	MaxPlanDays = 365
)

var errNotFuture = errors.New("must be in the future")

// CreateInput carries the editor-supplied fields for a new entity.
// Status is honoured for articles only and may name scheduled or published
// to schedule or publish in the same step.
type CreateInput struct {
	Family      Family
	Title       string
	Status      Status
	ScheduledAt *time.Time
	StartsAt    *time.Time
	EndsAt      *time.Time
	PlanDays    int
}

// Validate checks the input shape. Time-relative preconditions are checked
// when the entity enters its state.
func (in CreateInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	isArticle := in.Family == FamilyArticle
	isListing := in.Family == FamilyListing
	isAd := in.Family == FamilyAdvertisement

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Family,
			validation.Required,
			validation.In(FamilyArticle, FamilyListing, FamilyAdvertisement),
		),
		validation.Field(&in.Title,
			validation.By(func(any) error {
				return validation.Validate(title, validation.Required, validation.RuneLength(1, 255))
			}),
		),
		validation.Field(&in.Status,
			validation.When(isArticle, validation.In(StatusDraft, StatusScheduled, StatusPublished)),
			validation.When(!isArticle, validation.Empty),
		),
		validation.Field(&in.ScheduledAt,
			validation.When(isArticle && in.Status == StatusScheduled, validation.Required),
			validation.When(isArticle && in.Status != StatusScheduled, validation.Nil),
			validation.When(!isArticle, validation.Nil),
		),
		validation.Field(&in.PlanDays,
			validation.When(isListing, validation.Min(0), validation.Max(MaxPlanDays)),
			validation.When(!isListing, validation.Empty),
		),
		validation.Field(&in.StartsAt,
			validation.When(isAd, validation.Required),
			validation.When(isArticle, validation.Nil),
		),
		validation.Field(&in.EndsAt,
			validation.When(isAd, validation.Required, validation.By(endsAfter(in.StartsAt))),
			validation.When(!isAd, validation.Nil),
		),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func endsAfter(start *time.Time) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(*time.Time)
		if start == nil || end == nil {
			return nil
		}
		if !end.After(*start) {
			return errors.New("must be after starts_at")
		}
		return nil
	}
}

// Build creates the entity described by in, in its family's start state,
// with family defaults applied. The caller assigns the slug.
func Build(id string, in CreateInput, now time.Time) (Entity, error) {
	if err := in.Validate(); err != nil {
		return Entity{}, err
	}

	e := NewEntity(id, in.Family, in.Title, now)

	switch in.Family {
	case FamilyListing:
		start := now.UTC()
		if in.StartsAt != nil {
			start = in.StartsAt.UTC()
		}
		days := in.PlanDays
		if days == 0 {
			days = DefaultPlanDays
		}
		e.StartsAt = timePtr(start)
		e.PlanDays = days
		e.ExpiresAt = timePtr(start.AddDate(0, 0, days))
	case FamilyAdvertisement:
		e.StartsAt = timePtr(*in.StartsAt)
		e.EndsAt = timePtr(*in.EndsAt)
		if !e.EndsAt.After(now) {
			return Entity{}, fieldError("ends_at", errNotFuture)
		}
	}

	return e, nil
}

// TransitionOptions carries the extra fields a transition may need.
type TransitionOptions struct {
	ScheduledAt *time.Time
}

// Enter moves e into status to and applies that state's side effects. It
// does not check graph legality; callers validate the edge first.
func (e *Entity) Enter(to Status, opts TransitionOptions, now time.Time) error {
	now = now.UTC()

	switch {
	case e.Family == FamilyArticle && to == StatusScheduled:
		if opts.ScheduledAt == nil {
			return fieldError("scheduled_at", validation.ErrRequired)
		}
		if !opts.ScheduledAt.After(now) {
			return fieldError("scheduled_at", errNotFuture)
		}
		e.ScheduledAt = timePtr(*opts.ScheduledAt)
	case e.Family == FamilyArticle && to == StatusPublished:
		if e.PublishedAt == nil {
			e.PublishedAt = timePtr(now)
		}
	case e.Family == FamilyListing && to == StatusActive:
		if e.ExpiresAt == nil || !e.ExpiresAt.After(now) {
			return fieldError("expires_at", errNotFuture)
		}
	case e.Family == FamilyAdvertisement && to == StatusActive:
		if e.EndsAt == nil || !e.EndsAt.After(now) {
			return fieldError("ends_at", errNotFuture)
		}
	}

	e.Status = to
	e.UpdatedAt = now
	return nil
}

func fieldError(field string, err error) *ValidationError {
	return &ValidationError{Err: validation.Errors{field: err}}
}
