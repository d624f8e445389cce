package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// DefaultMaxAttempts bounds the suffixes tried for one slug.
const DefaultMaxAttempts = 10000

var errAttemptsExhausted = errors.New("no free suffix")

// SlugAllocator derives unique, URL-safe slugs from titles.
type SlugAllocator struct {
	repo        domain.EntityRepository
	maxAttempts int
}

// NewSlugAllocator creates an allocator that checks reservations in repo.
func NewSlugAllocator(repo domain.EntityRepository) *SlugAllocator {
	return &SlugAllocator{repo: repo, maxAttempts: DefaultMaxAttempts}
}

// Allocate returns the first free candidate among base, base-1, base-2, ...
// where base is the slugified title. Slugs reserved by excludeID count as
// free so an entity may keep or reclaim its own slug. A failed existence
// check aborts allocation; an unchecked slug is never returned.
func (a *SlugAllocator) Allocate(ctx context.Context, family domain.Family, title, excludeID string) (string, error) {
	base := domain.Slugify(title)

	for i := range a.maxAttempts {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}

		taken, err := a.repo.SlugTaken(ctx, family, candidate, excludeID)
		if err != nil {
			return "", &domain.AllocationError{Family: family, Candidate: candidate, Err: err}
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", &domain.AllocationError{Family: family, Candidate: base, Err: errAttemptsExhausted}
}
