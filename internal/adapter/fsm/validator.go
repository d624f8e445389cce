package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

type graphKey struct {
	family domain.Family
	cause  domain.Cause
}

// buildEvents converts the family's edges that the cause may drive into
// looplab/fsm EventDesc format. Each destination status is one event named
// after it, with every source that may reach it grouped into Src. Requests
// name a target status, so the event lookup is the table lookup.
func buildEvents(family domain.Family, cause domain.Cause) []loopfsm.EventDesc {
	grouped := make(map[domain.Status][]string)
	order := make([]domain.Status, 0)

	for _, t := range domain.Transitions {
		if t.Family != family || !t.Cause.Allows(cause) {
			continue
		}
		if _, exists := grouped[t.Dst]; !exists {
			order = append(order, t.Dst)
		}
		grouped[t.Dst] = append(grouped[t.Dst], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// Event tables are built once per family and cause; a short-lived FSM is
// created per Apply call because looplab/fsm tracks its current state.
type Validator struct {
	events map[graphKey][]loopfsm.EventDesc
}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	events := make(map[graphKey][]loopfsm.EventDesc)
	for _, f := range domain.Families {
		for _, c := range []domain.Cause{domain.CauseManual, domain.CauseTimer} {
			events[graphKey{f, c}] = buildEvents(f, c)
		}
	}
	return &Validator{events: events}
}

// Apply checks that requested is reachable from current in one edge of the
// family's graph for the given cause and returns the destination status.
// Returns a domain.TransitionError if the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, family domain.Family, current, requested domain.Status, cause domain.Cause) (domain.Status, error) {
	events, ok := v.events[graphKey{family, cause}]
	if !ok || len(events) == 0 {
		return "", &domain.TransitionError{Family: family, From: current, To: requested}
	}

	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(requested)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{Family: family, From: current, To: requested}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}
