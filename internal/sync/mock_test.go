package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/njoerd114/ewsync/internal/ews"
	"github.com/njoerd114/ewsync/internal/localstore"
	"github.com/njoerd114/ewsync/internal/model"
	"github.com/njoerd114/ewsync/internal/state"
)

// noSleep replaces the inter-page delay in tests.
func noSleep(context.Context, time.Duration) error { return nil }

func testAccount() model.Account {
	return model.Account{
		ID:          "acct-1",
		Email:       "me@example.com",
		DisplayName: "Work",
		Endpoint:    "https://mail.example.com/EWS/Exchange.asmx",
		AuthMethod:  model.AuthBasic,
		Settings: model.SyncSettings{
			Mail:     true,
			Contacts: true,
			Calendar: true,
			Interval: time.Minute,
		},
	}
}

func pageSlice[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

// --- Mock remote store -------------------------------------------------------

type mockRemote struct {
	mu       sync.Mutex
	contacts []ews.Contact
	messages []ews.Message
	events   []ews.CalendarItem
	nextID   int

	listErr     error // returned by all list calls when set
	listCalls   int
	createCalls int
	updateCalls int
	lastWindow  model.SyncWindow
}

func (m *mockRemote) newID() string {
	m.nextID++
	return fmt.Sprintf("remote-%d", m.nextID)
}

func (m *mockRemote) ListContacts(_ context.Context, _ string, offset, limit int) ([]ews.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return pageSlice(m.contacts, offset, limit), nil
}

func (m *mockRemote) CreateContact(_ context.Context, _ string, c ews.Contact) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	c.ItemID = m.newID()
	m.contacts = append(m.contacts, c)
	return c.ItemID, nil
}

func (m *mockRemote) UpdateContact(_ context.Context, itemID string, c ews.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.contacts {
		if m.contacts[i].ItemID == itemID {
			c.ItemID = itemID
			m.contacts[i] = c
			return nil
		}
	}
	return fmt.Errorf("contact %q not found", itemID)
}

func (m *mockRemote) ListMessages(_ context.Context, _ string, offset, limit int) ([]ews.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return pageSlice(m.messages, offset, limit), nil
}

func (m *mockRemote) CreateMessage(_ context.Context, _ string, msg ews.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	msg.ItemID = m.newID()
	m.messages = append(m.messages, msg)
	return msg.ItemID, nil
}

func (m *mockRemote) UpdateMessageFlags(_ context.Context, itemID string, read, flagged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.messages {
		if m.messages[i].ItemID == itemID {
			m.messages[i].IsRead = read
			m.messages[i].Flagged = flagged
			return nil
		}
	}
	return fmt.Errorf("message %q not found", itemID)
}

func (m *mockRemote) ListCalendarItems(_ context.Context, _ string, window model.SyncWindow, offset, limit int) ([]ews.CalendarItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastWindow = window
	if m.listErr != nil {
		return nil, m.listErr
	}
	var in []ews.CalendarItem
	for _, e := range m.events {
		if window.Contains(e.Start) {
			in = append(in, e)
		}
	}
	return pageSlice(in, offset, limit), nil
}

func (m *mockRemote) CreateCalendarItem(_ context.Context, _ string, e ews.CalendarItem) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	e.ItemID = m.newID()
	m.events = append(m.events, e)
	return e.ItemID, nil
}

func (m *mockRemote) UpdateCalendarItem(_ context.Context, itemID string, e ews.CalendarItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.events {
		if m.events[i].ItemID == itemID {
			e.ItemID = itemID
			m.events[i] = e
			return nil
		}
	}
	return fmt.Errorf("event %q not found", itemID)
}

// --- Mock local store --------------------------------------------------------

type mockLocal struct {
	mu       sync.Mutex
	folders  []localstore.Folder
	contacts []localstore.Contact
	messages []localstore.Message
	events   []localstore.Event
	nextID   int64

	ensureErr error // returned by EnsureFolder when set
}

func (m *mockLocal) newID() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockLocal) EnsureFolder(_ context.Context, accountID, kind, name string) (localstore.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return localstore.Folder{}, m.ensureErr
	}
	for _, f := range m.folders {
		if f.AccountID == accountID && f.Kind == kind && f.Name == name {
			return f, nil
		}
	}
	f := localstore.Folder{ID: m.newID(), AccountID: accountID, Kind: kind, Name: name}
	m.folders = append(m.folders, f)
	return f, nil
}

func (m *mockLocal) ListContacts(_ context.Context, folderID int64) ([]localstore.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []localstore.Contact
	for _, c := range m.contacts {
		if c.FolderID == folderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockLocal) CreateContact(_ context.Context, c localstore.Contact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.newID()
	m.contacts = append(m.contacts, c)
	return c.ID, nil
}

func (m *mockLocal) UpdateContact(_ context.Context, c localstore.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == c.ID {
			m.contacts[i] = c
			return nil
		}
	}
	return fmt.Errorf("contact id=%d not found", c.ID)
}

func (m *mockLocal) ListMessages(_ context.Context, folderID int64) ([]localstore.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []localstore.Message
	for _, msg := range m.messages {
		if msg.FolderID == folderID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockLocal) CreateMessage(_ context.Context, msg localstore.Message) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.newID()
	m.messages = append(m.messages, msg)
	return msg.ID, nil
}

func (m *mockLocal) UpdateMessageFlags(_ context.Context, remoteID string, read, flagged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].RemoteID == remoteID {
			m.messages[i].Read = read
			m.messages[i].Flagged = flagged
			return nil
		}
	}
	return fmt.Errorf("message %q not found", remoteID)
}

func (m *mockLocal) SetMessageRemoteID(_ context.Context, id int64, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].RemoteID = remoteID
			return nil
		}
	}
	return fmt.Errorf("message id=%d not found", id)
}

func (m *mockLocal) ListEvents(_ context.Context, folderID int64) ([]localstore.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []localstore.Event
	for _, e := range m.events {
		if e.FolderID == folderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLocal) CreateEvent(_ context.Context, e localstore.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.newID()
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *mockLocal) UpdateEvent(_ context.Context, e localstore.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == e.ID {
			m.events[i] = e
			return nil
		}
	}
	return fmt.Errorf("event id=%d not found", e.ID)
}

// --- Mock run store ----------------------------------------------------------

type mockRunStore struct {
	mu       sync.Mutex
	runs     []*state.Run
	lastSync map[string]time.Time // accountID + "/" + entity
}

func newMockRunStore() *mockRunStore {
	return &mockRunStore{lastSync: make(map[string]time.Time)}
}

func (m *mockRunStore) RecordRun(_ context.Context, run *state.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	cp.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, &cp)
	run.ID = cp.ID
	return nil
}

func (m *mockRunStore) LastSyncTime(_ context.Context, accountID, entity string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync[accountID+"/"+entity], nil
}

func (m *mockRunStore) recorded() []*state.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*state.Run, len(m.runs))
	copy(out, m.runs)
	return out
}
