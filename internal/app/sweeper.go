package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// Sweeper applies the time-driven transitions of one family in bulk.
type Sweeper struct {
	repo      domain.EntityRepository
	validator domain.TransitionValidator
	clock     domain.Clock
}

// NewSweeper creates a sweeper over repo. Every rule is checked against the
// validator's timer graph before it is applied.
func NewSweeper(repo domain.EntityRepository, validator domain.TransitionValidator, clock domain.Clock) *Sweeper {
	return &Sweeper{repo: repo, validator: validator, clock: clock}
}

// Sweep moves every due entity of family to its timer target and returns how
// many rows changed. The clock is read once so every rule in the pass uses
// the same instant. Running it twice with no time elapsed changes nothing
// the second time.
func (s *Sweeper) Sweep(ctx context.Context, family domain.Family) (int64, error) {
	if !family.Valid() {
		return 0, &domain.SweepError{Family: family, Err: fmt.Errorf("unknown family %q", family)}
	}

	now := s.clock.Now().UTC()

	var total int64
	for _, rule := range domain.SweepRulesFor(family) {
		if err := s.checkRule(ctx, rule); err != nil {
			slog.ErrorContext(ctx, "sweep rule rejected",
				"family", family,
				"target", rule.Target,
				"error", err,
			)
			return total, &domain.SweepError{Family: family, Err: err}
		}

		n, err := s.repo.ApplySweep(ctx, rule, now)
		if err != nil {
			slog.ErrorContext(ctx, "sweep failed",
				"family", family,
				"target", rule.Target,
				"error", err,
			)
			return total, &domain.SweepError{Family: family, Err: err}
		}
		total += n
	}

	slog.InfoContext(ctx, "sweep complete",
		"family", family,
		"swept", total,
		"now", now,
	)
	return total, nil
}

// checkRule rejects a rule with any source the timer graph cannot move to
// its target.
func (s *Sweeper) checkRule(ctx context.Context, rule domain.SweepRule) error {
	for _, src := range rule.Sources {
		if _, err := s.validator.Apply(ctx, rule.Family, src, rule.Target, domain.CauseTimer); err != nil {
			return err
		}
	}
	return nil
}

// SweepAll sweeps every family. A failing family does not stop the others;
// their errors are joined.
func (s *Sweeper) SweepAll(ctx context.Context) (map[domain.Family]int64, error) {
	counts := make(map[domain.Family]int64, len(domain.Families))
	var errs []error
	for _, f := range domain.Families {
		n, err := s.Sweep(ctx, f)
		counts[f] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return counts, errors.Join(errs...)
}
