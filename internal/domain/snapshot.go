package domain

import "time"

// Snapshot is a shallow field-level view of an entity used in audit records.
// Timestamps are rendered as RFC 3339 strings so snapshots stay comparable
// after a JSON round trip.
type Snapshot map[string]any

// SnapshotOf captures the lifecycle-relevant fields of e. Unset optional
// fields are omitted.
func SnapshotOf(e Entity) Snapshot {
	s := Snapshot{
		"title":  e.Title,
		"status": string(e.Status),
	}
	if e.Slug != "" {
		s["slug"] = e.Slug
	}
	if e.PlanDays > 0 {
		s["plan_days"] = e.PlanDays
	}
	putTime(s, "scheduled_at", e.ScheduledAt)
	putTime(s, "published_at", e.PublishedAt)
	putTime(s, "starts_at", e.StartsAt)
	putTime(s, "expires_at", e.ExpiresAt)
	putTime(s, "ends_at", e.EndsAt)
	return s
}

// Diff returns only the fields that differ between before and after. A
// field absent on one side is reported as nil on that side.
func Diff(before, after Entity) (Snapshot, Snapshot) {
	b, a := SnapshotOf(before), SnapshotOf(after)
	db, da := Snapshot{}, Snapshot{}
	for k, bv := range b {
		if av, ok := a[k]; !ok || av != bv {
			db[k] = bv
			da[k] = a[k]
		}
	}
	for k, av := range a {
		if _, ok := b[k]; !ok {
			db[k] = nil
			da[k] = av
		}
	}
	return db, da
}

func putTime(s Snapshot, key string, t *time.Time) {
	if t != nil {
		s[key] = t.UTC().Format(time.RFC3339Nano)
	}
}
