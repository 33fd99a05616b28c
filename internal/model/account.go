package model

import "time"

// AuthMethod selects how requests to the remote mailbox are authenticated.
type AuthMethod string

const (
	AuthOAuth2 AuthMethod = "oauth2"
	AuthBasic  AuthMethod = "basic"
)

// EntityType identifies one of the three synced data kinds. It keys
// per-entity sync state, timestamps, and statistics.
type EntityType string

const (
	EntityMail     EntityType = "mail"
	EntityContacts EntityType = "contacts"
	EntityCalendar EntityType = "calendar"
)

// EntityTypes lists all entity types in coordinator execution order.
var EntityTypes = []EntityType{EntityMail, EntityContacts, EntityCalendar}

// SyncSettings holds the per-account sync toggles and interval.
type SyncSettings struct {
	Mail     bool
	Contacts bool
	Calendar bool

	// Interval is the period of the account's recurring sync timer.
	Interval time.Duration
}

// Enabled reports whether the given entity type is toggled on.
func (s SyncSettings) Enabled(e EntityType) bool {
	switch e {
	case EntityMail:
		return s.Mail
	case EntityContacts:
		return s.Contacts
	case EntityCalendar:
		return s.Calendar
	}
	return false
}

// Account identifies one remote mailbox and how to reach it. Accounts are
// owned by the coordinator; per-entity last-sync timestamps and statistics
// live in the state store, not here.
type Account struct {
	// ID is an opaque stable identifier, unique across accounts.
	ID string

	Email       string
	DisplayName string

	// Endpoint is the EWS endpoint URL, e.g.
	// "https://outlook.office365.com/EWS/Exchange.asmx".
	Endpoint string

	AuthMethod AuthMethod

	Settings SyncSettings
}

// FolderName returns the deterministic name of the local target container
// for this account ("Exchange - {DisplayName}").
func (a Account) FolderName() string {
	name := a.DisplayName
	if name == "" {
		name = a.Email
	}
	return "Exchange - " + name
}
