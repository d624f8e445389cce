package domain

// Trigger names the timestamp a sweep compares against "now".
type Trigger string

const (
	TriggerScheduledAt Trigger = "scheduled_at"
	TriggerExpiresAt   Trigger = "expires_at"
	TriggerEndsAt      Trigger = "ends_at"
)

// SweepRule is one bulk conditional transition: every entity of Family in
// one of Sources whose Trigger is at or before now moves to Target.
type SweepRule struct {
	Family  Family
	Sources []Status
	Target  Status
	Trigger Trigger
	// StampPublished sets published_at to now where it is still null.
	StampPublished bool
}

// SweepRules declares the scheduler's time-driven transitions.
var SweepRules = []SweepRule{
	{
		Family:         FamilyArticle,
		Sources:        []Status{StatusScheduled},
		Target:         StatusPublished,
		Trigger:        TriggerScheduledAt,
		StampPublished: true,
	},
	{
		Family:  FamilyListing,
		Sources: []Status{StatusActive},
		Target:  StatusExpired,
		Trigger: TriggerExpiresAt,
	},
	{
		Family:  FamilyAdvertisement,
		Sources: []Status{StatusActive, StatusInactive},
		Target:  StatusExpired,
		Trigger: TriggerEndsAt,
	},
}

// SweepRulesFor returns the rules that apply to a family.
func SweepRulesFor(f Family) []SweepRule {
	var out []SweepRule
	for _, r := range SweepRules {
		if r.Family == f {
			out = append(out, r)
		}
	}
	return out
}
