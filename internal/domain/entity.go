package domain

import (
	"strings"
	"time"
)

// Family identifies a class of publishable entity with its own state graph.
type Family string

const (
	FamilyArticle       Family = "article"
	FamilyListing       Family = "listing"
	FamilyAdvertisement Family = "advertisement"
)

// Families lists every family in a stable order.
var Families = []Family{FamilyArticle, FamilyListing, FamilyAdvertisement}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// SlugBearing reports whether entities of this family are publicly
// addressable by slug.
func (f Family) SlugBearing() bool {
	return f == FamilyArticle
}

// Status represents the lifecycle state of an entity. The set of legal
// values depends on the family.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"

	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// Cause says what is allowed to drive a transition.
type Cause int

const (
	// CauseManual transitions are requested by an editor.
	CauseManual Cause = iota + 1
	// CauseTimer transitions are applied by the scheduler once a trigger elapses.
	CauseTimer
	// CauseAny transitions may be driven by either.
	CauseAny
)

// Allows reports whether a transition declared with c may be driven by requested.
func (c Cause) Allows(requested Cause) bool {
	return c == CauseAny || c == requested
}

func (c Cause) String() string {
	switch c {
	case CauseManual:
		return "manual"
	case CauseTimer:
		return "timer"
	case CauseAny:
		return "any"
	default:
		return "unknown"
	}
}

// Transition defines a valid state change for a family from Src to Dst.
type Transition struct {
	Family Family
	Src    Status
	Dst    Status
	Cause  Cause
}

// Transitions declares every legal edge of every family's graph.
// This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Family: FamilyArticle, Src: StatusDraft, Dst: StatusScheduled, Cause: CauseManual},
	{Family: FamilyArticle, Src: StatusDraft, Dst: StatusPublished, Cause: CauseManual},
	{Family: FamilyArticle, Src: StatusScheduled, Dst: StatusPublished, Cause: CauseAny},
	{Family: FamilyArticle, Src: StatusPublished, Dst: StatusArchived, Cause: CauseManual},

	{Family: FamilyListing, Src: StatusPending, Dst: StatusActive, Cause: CauseManual},
	{Family: FamilyListing, Src: StatusActive, Dst: StatusExpired, Cause: CauseTimer},

	{Family: FamilyAdvertisement, Src: StatusActive, Dst: StatusInactive, Cause: CauseManual},
	{Family: FamilyAdvertisement, Src: StatusInactive, Dst: StatusActive, Cause: CauseManual},
	{Family: FamilyAdvertisement, Src: StatusActive, Dst: StatusExpired, Cause: CauseTimer},
	{Family: FamilyAdvertisement, Src: StatusInactive, Dst: StatusExpired, Cause: CauseTimer},
}

// StartStatus returns the state every new entity of the family begins in.
func StartStatus(f Family) Status {
	switch f {
	case FamilyArticle:
		return StatusDraft
	case FamilyListing:
		return StatusPending
	case FamilyAdvertisement:
		return StatusActive
	default:
		return ""
	}
}

// Entity is a publishable item. Which timestamps are meaningful depends on
// the family: articles use ScheduledAt and PublishedAt, listings use
// StartsAt, PlanDays and ExpiresAt, advertisements use StartsAt and EndsAt.
type Entity struct {
	ID          string
	Family      Family
	Title       string
	Slug        string
	Status      Status
	ScheduledAt *time.Time
	PublishedAt *time.Time
	StartsAt    *time.Time
	ExpiresAt   *time.Time
	EndsAt      *time.Time
	PlanDays    int
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEntity creates an entity of the given family in its start state.
func NewEntity(id string, family Family, title string, now time.Time) Entity {
	now = now.UTC()
	return Entity{
		ID:        id,
		Family:    family,
		Title:     strings.TrimSpace(title),
		Status:    StartStatus(family),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}
