// Package ews talks to an Exchange Web Services endpoint. It provides the
// wire-level item shapes, conversion to and from the canonical model types,
// a typed error model with retryable classification, the exponential-backoff
// [Retrier] that wraps every remote call, and a [Client] that implements the
// sync engines' remote interfaces on top of a SOAP [Caller].
//
// Every request is authenticated through an [auth.TokenProvider], so token
// refresh happens transparently below the sync engines.
package ews

import "time"

// Exchange well-known folder ids used as FindItem parents.
const (
	FolderInbox    = "inbox"
	FolderContacts = "contacts"
	FolderCalendar = "calendar"
)

// Free/busy status values as they appear on the wire
// (t:LegacyFreeBusyStatus).
const (
	FreeBusyFree             = "Free"
	FreeBusyTentative        = "Tentative"
	FreeBusyBusy             = "Busy"
	FreeBusyOOF              = "OOF"
	FreeBusyWorkingElsewhere = "WorkingElsewhere"
)

// Contact is the wire shape of an Exchange contact, reduced to the fields
// the sync engines track.
type Contact struct {
	ItemID        string
	DisplayName   string
	GivenName     string
	Surname       string
	EmailAddress1 string
	BusinessPhone string
	CompanyName   string
}

// Message is the wire shape of an Exchange mail message.
type Message struct {
	ItemID           string
	Subject          string
	From             string
	ToRecipients     []string
	DateTimeReceived time.Time
	IsRead           bool
	Flagged          bool
}

// CalendarItem is the wire shape of an Exchange calendar event.
type CalendarItem struct {
	ItemID               string
	Subject              string
	Location             string
	Start                time.Time
	End                  time.Time
	LegacyFreeBusyStatus string
}
