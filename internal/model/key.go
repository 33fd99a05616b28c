package model

import (
	"strconv"
	"strings"
	"time"
)

// keySep joins the components of a composite fallback key. It must never
// appear in a normalised component (components are trimmed, not escaped —
// a literal "|" inside a name is an accepted approximation).
const keySep = "|"

// ContactKey derives the dedup key for a contact: the primary email address
// lowercased and trimmed when present, otherwise a composite of first name,
// last name, and display name.
//
// The composite fallback is the engine's known weak spot: two distinct
// contacts without email addresses but identical names collide and are
// silently treated as the same entity, and editing the email on one side
// breaks the linkage on the next pass, producing a duplicate instead of an
// update. Fixing that requires a persistent id-mapping table, which this
// engine deliberately does not keep.
func ContactKey(c Contact) string {
	if email := norm(c.Email); email != "" {
		return email
	}
	return norm(c.FirstName) + keySep + norm(c.LastName) + keySep + norm(c.DisplayName)
}

// MessageKey derives the dedup key for a message: the provider-assigned
// message id when present, otherwise subject plus received time in epoch
// milliseconds.
func MessageKey(m Message) string {
	if id := norm(m.ID); id != "" {
		return id
	}
	return norm(m.Subject) + keySep + epochMillis(m.Received)
}

// EventKey derives the dedup key for a calendar event: subject plus start
// time in epoch milliseconds. Events whose start times differ by less than
// one millisecond collide — accepted approximation.
func EventKey(e Event) string {
	return norm(e.Subject) + keySep + epochMillis(e.Start)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func epochMillis(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
