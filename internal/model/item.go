// Package model defines the canonical item shapes shared between the EWS
// client, the local store, and the sync engines, plus the pure matching
// helpers (dedup keys, field diffs, sync windows) the engines are built on.
//
// Canonical items exist only in memory during a reconciliation pass. Both
// sides' native shapes are converted into them at the package boundary
// (internal/ews and internal/localstore own those conversions), so everything
// in this package can stay side-agnostic.
package model

import "time"

// FreeBusy is the canonical availability status of a calendar event.
type FreeBusy int

const (
	// FreeBusyBusy is the default status; unknown values from either side
	// map here.
	FreeBusyBusy FreeBusy = iota
	FreeBusyFree
	FreeBusyTentative
	FreeBusyOOF
	FreeBusyWorkingElsewhere
)

// String returns the canonical label for the status.
func (f FreeBusy) String() string {
	switch f {
	case FreeBusyFree:
		return "free"
	case FreeBusyTentative:
		return "tentative"
	case FreeBusyOOF:
		return "out-of-office"
	case FreeBusyWorkingElsewhere:
		return "working-elsewhere"
	default:
		return "busy"
	}
}

// Contact is the canonical representation of an address-book entry.
type Contact struct {
	// ID is the owning side's identifier (EWS item id or local row id).
	// Empty for items that have not been written to that side yet.
	ID string

	DisplayName string
	FirstName   string
	LastName    string

	// Email is the primary email address. When set it is the contact's
	// dedup identity; see ContactKey.
	Email string

	WorkPhone string
	Company   string
}

// Message is the canonical representation of a mail message. Messages are
// immutable once synced — only the Read/Flagged flags change afterwards,
// through the dedicated flag-sync path.
type Message struct {
	// ID is the provider-assigned message identifier (EWS item id). It is
	// the primary dedup identity for mail.
	ID string

	Subject  string
	Sender   string
	To       []string
	Received time.Time

	Read    bool
	Flagged bool
}

// Event is the canonical representation of a calendar event.
type Event struct {
	ID string

	Subject  string
	Location string

	Start time.Time
	End   time.Time

	Status FreeBusy
}
