package model

import "time"

// Field diffs decide whether a matched local/remote pair warrants an update.
// Both items are canonical, so each comparison is a plain field pair walked
// in a fixed order with short-circuit on the first mismatch. Missing values
// compare as empty strings.
//
// The push-direction ("remote needs local update") variants add one policy on
// top: an empty local field never counts as a difference, so blank local data
// can never overwrite populated remote data. That asymmetry is deliberate and
// must survive refactors.

// contactFields lists the compared field pairs for contacts, in order.
func contactFields(c Contact) []string {
	return []string{
		c.DisplayName,
		c.FirstName,
		c.LastName,
		c.Email,
		c.WorkPhone,
		c.Company,
	}
}

// ContactNeedsUpdate reports whether the local contact differs from the
// remote one in any tracked field (pull direction: remote wins).
func ContactNeedsUpdate(local, remote Contact) bool {
	lf, rf := contactFields(local), contactFields(remote)
	for i := range lf {
		if lf[i] != rf[i] {
			return true
		}
	}
	return false
}

// ContactPushNeedsUpdate reports whether the remote contact should be updated
// from the local one. Empty local fields are skipped (blank local never
// overwrites remote).
func ContactPushNeedsUpdate(local, remote Contact) bool {
	lf, rf := contactFields(local), contactFields(remote)
	for i := range lf {
		if lf[i] == "" {
			continue
		}
		if lf[i] != rf[i] {
			return true
		}
	}
	return false
}

// eventFields lists the compared string field pairs for events, in order.
// Start/end instants are compared separately as epoch milliseconds.
func eventFields(e Event) []string {
	return []string{
		e.Subject,
		e.Location,
		e.Status.String(),
	}
}

// EventNeedsUpdate reports whether the local event differs from the remote
// one in any tracked field, including start/end instants compared at
// millisecond resolution. Absent instants default to now, so two events that
// both lack a time compare equal within the same pass.
func EventNeedsUpdate(local, remote Event) bool {
	now := time.Now()
	lf, rf := eventFields(local), eventFields(remote)
	for i := range lf {
		if lf[i] != rf[i] {
			return true
		}
	}
	if millisOr(local.Start, now) != millisOr(remote.Start, now) {
		return true
	}
	return millisOr(local.End, now) != millisOr(remote.End, now)
}

// EventPushNeedsUpdate is the push-direction variant of EventNeedsUpdate:
// empty local string fields and zero local instants are skipped.
func EventPushNeedsUpdate(local, remote Event) bool {
	now := time.Now()
	lf, rf := eventFields(local), eventFields(remote)
	for i := range lf {
		if lf[i] == "" {
			continue
		}
		if lf[i] != rf[i] {
			return true
		}
	}
	if !local.Start.IsZero() && millisOr(local.Start, now) != millisOr(remote.Start, now) {
		return true
	}
	return !local.End.IsZero() && millisOr(local.End, now) != millisOr(remote.End, now)
}

func millisOr(t, fallback time.Time) int64 {
	if t.IsZero() {
		t = fallback
	}
	return t.UnixMilli()
}
