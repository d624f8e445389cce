package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/goodnews/internal/adapter/fsm"
	"github.com/neomorfeo/goodnews/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		for _, cause := range []domain.Cause{domain.CauseManual, domain.CauseTimer} {
			dst, err := v.Apply(ctx, tr.Family, tr.Src, tr.Dst, cause)
			if !tr.Cause.Allows(cause) {
				if err == nil {
					t.Errorf("Apply(%s, %q → %q, %s) should be rejected", tr.Family, tr.Src, tr.Dst, cause)
				}
				continue
			}
			if err != nil {
				t.Errorf("Apply(%s, %q → %q, %s) unexpected error: %v", tr.Family, tr.Src, tr.Dst, cause, err)
				continue
			}
			if dst != tr.Dst {
				t.Errorf("Apply(%s, %q → %q) = %q", tr.Family, tr.Src, tr.Dst, dst)
			}
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New()

	_, err := v.Apply(context.Background(), domain.FamilyArticle, domain.StatusDraft, domain.StatusArchived, domain.CauseManual)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.From != domain.StatusDraft || trErr.To != domain.StatusArchived {
		t.Errorf("pair = %q → %q, want draft → archived", trErr.From, trErr.To)
	}
	if trErr.Family != domain.FamilyArticle {
		t.Errorf("family = %q, want %q", trErr.Family, domain.FamilyArticle)
	}
}

func TestValidator_UnknownStatus(t *testing.T) {
	v := adapter.New()

	_, err := v.Apply(context.Background(), domain.FamilyListing, domain.StatusPending, "retracted", domain.CauseManual)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestValidator_SelfTransitionRejected(t *testing.T) {
	v := adapter.New()

	_, err := v.Apply(context.Background(), domain.FamilyAdvertisement, domain.StatusActive, domain.StatusActive, domain.CauseManual)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestValidator_ManualExpiryRejected(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	if _, err := v.Apply(ctx, domain.FamilyListing, domain.StatusActive, domain.StatusExpired, domain.CauseManual); err == nil {
		t.Error("manual listing expiry should be rejected")
	}
	got, err := v.Apply(ctx, domain.FamilyListing, domain.StatusActive, domain.StatusExpired, domain.CauseTimer)
	if err != nil {
		t.Fatalf("timer listing expiry: %v", err)
	}
	if got != domain.StatusExpired {
		t.Errorf("got %q, want %q", got, domain.StatusExpired)
	}
}

func TestValidator_ExpiredAdvertisementIsTerminal(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, to := range []domain.Status{domain.StatusActive, domain.StatusInactive, domain.StatusExpired} {
		for _, cause := range []domain.Cause{domain.CauseManual, domain.CauseTimer} {
			if _, err := v.Apply(ctx, domain.FamilyAdvertisement, domain.StatusExpired, to, cause); err == nil {
				t.Errorf("expired → %q (%s) should be rejected", to, cause)
			}
		}
	}
}

func TestValidator_ArticleFullLifecycle(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	steps := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusDraft, domain.StatusScheduled},
		{domain.StatusScheduled, domain.StatusPublished},
		{domain.StatusPublished, domain.StatusArchived},
	}

	for _, step := range steps {
		got, err := v.Apply(ctx, domain.FamilyArticle, step.from, step.to, domain.CauseManual)
		if err != nil {
			t.Fatalf("Apply(%q → %q) error: %v", step.from, step.to, err)
		}
		if got != step.to {
			t.Errorf("Apply(%q → %q) = %q", step.from, step.to, got)
		}
	}
}

func TestValidator_AcceptsEverySweepRule(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, rule := range domain.SweepRules {
		for _, src := range rule.Sources {
			got, err := v.Apply(ctx, rule.Family, src, rule.Target, domain.CauseTimer)
			if err != nil {
				t.Errorf("%s: %q → %q rejected by timer graph: %v", rule.Family, src, rule.Target, err)
				continue
			}
			if got != rule.Target {
				t.Errorf("%s: got %q, want %q", rule.Family, got, rule.Target)
			}
		}
	}
}
