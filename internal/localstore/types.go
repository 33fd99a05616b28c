// Package localstore is the SQLite-backed local mail client store: folders,
// messages, contacts, and calendar events, plus conversion between the local
// row shapes and the canonical model items.
//
// Only this package may open or query the database. The sync engines receive
// a [*Store] through their local-store interfaces.
package localstore

import "time"

// Folder kinds. One folder tree serves all three entity types; the kind
// scopes name lookups.
const (
	KindMail     = "mail"
	KindContacts = "contacts"
	KindCalendar = "calendar"
)

// Event status values as stored locally.
const (
	StatusAvailable        = "available"
	StatusTentative        = "tentative"
	StatusBusy             = "busy"
	StatusOutOfOffice      = "out-of-office"
	StatusWorkingElsewhere = "working-elsewhere"
)

// Folder is a local container (mail folder, address book, or calendar).
type Folder struct {
	ID        int64
	AccountID string
	Kind      string
	Name      string
}

// Contact is a local address-book row.
type Contact struct {
	ID       int64
	FolderID int64

	DisplayName  string
	FirstName    string
	LastName     string
	PrimaryEmail string
	WorkPhone    string
	Company      string
}

// Message is a local mail row. RemoteID records the provider-assigned EWS
// item id at creation time; it is the message's sync identity and the key
// for flag updates.
type Message struct {
	ID       int64
	FolderID int64
	RemoteID string

	Subject    string
	Sender     string
	Recipients []string
	Received   time.Time

	Read    bool
	Flagged bool
}

// Event is a local calendar row.
type Event struct {
	ID       int64
	FolderID int64

	Subject  string
	Location string
	Start    time.Time
	End      time.Time
	Status   string
}
