// Package sync implements the bidirectional reconciliation engines for
// ewsync. Each entity type (mail, contacts, calendar) has an engine that
// runs two matching passes per sync: remote→local (pull) and local→remote
// (push). A pass pages through one side, indexes the opposite side by dedup
// key, and classifies every item as create, update, or skip.
//
// The package contains two main components:
//
//   - the three entity engines ([MailEngine], [ContactsEngine],
//     [CalendarEngine]), each single-flight per account,
//   - [Coordinator], which runs the engines concurrently per account,
//     persists run records, and owns the per-account sync timers.
package sync

import (
	"context"
	"time"

	"github.com/njoerd114/ewsync/internal/ews"
	"github.com/njoerd114/ewsync/internal/localstore"
	"github.com/njoerd114/ewsync/internal/model"
	"github.com/njoerd114/ewsync/internal/state"
)

// MailRemote provides access to remote messages. Implemented by [ews.Client].
type MailRemote interface {
	ListMessages(ctx context.Context, folderID string, offset, limit int) ([]ews.Message, error)
	CreateMessage(ctx context.Context, folderID string, m ews.Message) (string, error)
	UpdateMessageFlags(ctx context.Context, itemID string, read, flagged bool) error
}

// ContactsRemote provides access to remote contacts. Implemented by [ews.Client].
type ContactsRemote interface {
	ListContacts(ctx context.Context, folderID string, offset, limit int) ([]ews.Contact, error)
	CreateContact(ctx context.Context, folderID string, c ews.Contact) (string, error)
	UpdateContact(ctx context.Context, itemID string, c ews.Contact) error
}

// CalendarRemote provides access to remote calendar items. Implemented by
// [ews.Client].
type CalendarRemote interface {
	ListCalendarItems(ctx context.Context, folderID string, window model.SyncWindow, offset, limit int) ([]ews.CalendarItem, error)
	CreateCalendarItem(ctx context.Context, folderID string, e ews.CalendarItem) (string, error)
	UpdateCalendarItem(ctx context.Context, itemID string, e ews.CalendarItem) error
}

// MailLocal provides access to the local mail store. Implemented by
// [localstore.Store].
type MailLocal interface {
	EnsureFolder(ctx context.Context, accountID, kind, name string) (localstore.Folder, error)
	ListMessages(ctx context.Context, folderID int64) ([]localstore.Message, error)
	CreateMessage(ctx context.Context, m localstore.Message) (int64, error)
	UpdateMessageFlags(ctx context.Context, remoteID string, read, flagged bool) error
	SetMessageRemoteID(ctx context.Context, id int64, remoteID string) error
}

// ContactsLocal provides access to the local address book. Implemented by
// [localstore.Store].
type ContactsLocal interface {
	EnsureFolder(ctx context.Context, accountID, kind, name string) (localstore.Folder, error)
	ListContacts(ctx context.Context, folderID int64) ([]localstore.Contact, error)
	CreateContact(ctx context.Context, c localstore.Contact) (int64, error)
	UpdateContact(ctx context.Context, c localstore.Contact) error
}

// CalendarLocal provides access to the local calendar. Implemented by
// [localstore.Store].
type CalendarLocal interface {
	EnsureFolder(ctx context.Context, accountID, kind, name string) (localstore.Folder, error)
	ListEvents(ctx context.Context, folderID int64) ([]localstore.Event, error)
	CreateEvent(ctx context.Context, e localstore.Event) (int64, error)
	UpdateEvent(ctx context.Context, e localstore.Event) error
}

// RunStore persists completed sync runs and answers last-sync queries.
// Implemented by [state.Store].
type RunStore interface {
	RecordRun(ctx context.Context, run *state.Run) error
	LastSyncTime(ctx context.Context, accountID, entity string) (time.Time, error)
}

// Engine is the per-entity reconciliation engine surface the coordinator
// drives. IncrementalSync may narrow its work using lastSync (calendar
// shrinks its window); engines without remote change tracking run a full
// pass, and every engine does so when lastSync is the zero time.
type Engine interface {
	Entity() model.EntityType
	Sync(ctx context.Context) (Result, error)
	IncrementalSync(ctx context.Context, lastSync time.Time) (Result, error)
	Status() Snapshot
}
