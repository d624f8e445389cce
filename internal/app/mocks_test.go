package app_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// --- Mocks ---

// mockRepo is an in-memory EntityRepository with the same conditional-write
// semantics as the SQLite adapter.
type mockRepo struct {
	mu           sync.Mutex
	entities     map[string]domain.Entity
	reservations map[string]string // family/slug -> entity id

	slugErr  error
	sweepErr error
	// beforeWrite runs inside UpdateIf/Insert before the row is checked.
	beforeWrite func()
	slugChecks  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		entities:     make(map[string]domain.Entity),
		reservations: make(map[string]string),
	}
}

func reservationKey(f domain.Family, slug string) string {
	return string(f) + "/" + slug
}

func (m *mockRepo) reserve(e domain.Entity) error {
	if e.Slug == "" {
		return nil
	}
	key := reservationKey(e.Family, e.Slug)
	if owner, ok := m.reservations[key]; ok && owner != e.ID {
		return &domain.SlugConflictError{Family: e.Family, Slug: e.Slug}
	}
	m.reservations[key] = e.ID
	return nil
}

func (m *mockRepo) Insert(_ context.Context, e domain.Entity) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reserve(e); err != nil {
		return err
	}
	m.entities[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, family domain.Family, id string) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok || e.Family != family {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, family domain.Family, slug string) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entities {
		if e.Family == family && e.Slug == slug {
			return e, nil
		}
	}
	return domain.Entity{}, domain.ErrEntityNotFound
}

func (m *mockRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Entity
	for _, e := range m.entities {
		if filter.Family != "" && e.Family != filter.Family {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b domain.Entity) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *mockRepo) UpdateIf(_ context.Context, e domain.Entity, expected domain.Expected) (int64, error) {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entities[e.ID]
	if !ok || stored.Family != e.Family || stored.Status != expected.Status || stored.Version != expected.Version {
		return 0, nil
	}
	if err := m.reserve(e); err != nil {
		return 0, err
	}
	e.Version = stored.Version + 1
	m.entities[e.ID] = e
	return 1, nil
}

func (m *mockRepo) DeleteIf(_ context.Context, family domain.Family, id string, expected domain.Expected) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entities[id]
	if !ok || stored.Family != family || stored.Status != expected.Status || stored.Version != expected.Version {
		return 0, nil
	}
	delete(m.entities, id)
	return 1, nil
}

func (m *mockRepo) SlugTaken(_ context.Context, family domain.Family, slug, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slugChecks++
	if m.slugErr != nil {
		return false, m.slugErr
	}
	owner, ok := m.reservations[reservationKey(family, slug)]
	return ok && owner != excludeID, nil
}

func (m *mockRepo) ApplySweep(_ context.Context, rule domain.SweepRule, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sweepErr != nil {
		return 0, m.sweepErr
	}

	var n int64
	for id, e := range m.entities {
		if e.Family != rule.Family || !slices.Contains(rule.Sources, e.Status) {
			continue
		}
		due := triggerOf(e, rule.Trigger)
		if due == nil || due.After(now) {
			continue
		}
		e.Status = rule.Target
		if rule.StampPublished && e.PublishedAt == nil {
			stamp := now
			e.PublishedAt = &stamp
		}
		e.Version++
		e.UpdatedAt = now
		m.entities[id] = e
		n++
	}
	return n, nil
}

func triggerOf(e domain.Entity, t domain.Trigger) *time.Time {
	switch t {
	case domain.TriggerScheduledAt:
		return e.ScheduledAt
	case domain.TriggerExpiresAt:
		return e.ExpiresAt
	case domain.TriggerEndsAt:
		return e.EndsAt
	}
	return nil
}

// stored reads an entity bypassing the service.
func (m *mockRepo) stored(id string) domain.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entities[id]
}

type mockAuditStore struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	err     error
}

func (m *mockAuditStore) Append(_ context.Context, rec domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockAuditStore) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if filter.EntityID != "" && r.EntityID != filter.EntityID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockAuditStore) all() []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	verb   domain.Verb
	entity domain.Entity
}

func (m *mockPublisher) Publish(_ context.Context, verb domain.Verb, e domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{verb: verb, entity: e})
	return nil
}

// fakeClock is a controllable domain.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStorage = errors.New("storage unavailable")
