package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-local.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFolder(t *testing.T, s *Store, kind string) Folder {
	t.Helper()
	f, err := s.EnsureFolder(context.Background(), "acct-1", kind, "Exchange - Work")
	if err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	return f
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("s1.Close: %v", err)
	}

	// Re-opening the same file must not fail or wipe data.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("s2.Close: %v", err)
	}
}

func TestEnsureFolder_ReturnsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f1, err := s.EnsureFolder(ctx, "acct-1", KindContacts, "Exchange - Work")
	if err != nil {
		t.Fatalf("first EnsureFolder: %v", err)
	}
	f2, err := s.EnsureFolder(ctx, "acct-1", KindContacts, "Exchange - Work")
	if err != nil {
		t.Fatalf("second EnsureFolder: %v", err)
	}
	if f1.ID != f2.ID {
		t.Errorf("EnsureFolder created a second folder: ids %d and %d", f1.ID, f2.ID)
	}

	all, err := s.ListFolders(ctx, "acct-1", KindContacts)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d folders, want 1", len(all))
	}
}

func TestEnsureFolder_KindScopesName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// The same display name may exist once per kind.
	fm, err := s.EnsureFolder(ctx, "acct-1", KindMail, "Exchange - Work")
	if err != nil {
		t.Fatalf("EnsureFolder(mail): %v", err)
	}
	fc, err := s.EnsureFolder(ctx, "acct-1", KindCalendar, "Exchange - Work")
	if err != nil {
		t.Fatalf("EnsureFolder(calendar): %v", err)
	}
	if fm.ID == fc.ID {
		t.Error("mail and calendar folders share an id")
	}
}

func TestContactRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindContacts)

	id, err := s.CreateContact(ctx, Contact{
		FolderID:     f.ID,
		DisplayName:  "Ada Lovelace",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PrimaryEmail: "ada@example.com",
		WorkPhone:    "+44 20 7946 0001",
		Company:      "Analytical Engines Ltd",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if id == 0 {
		t.Error("CreateContact returned id 0")
	}

	contacts, err := s.ListContacts(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	got := contacts[0]
	if got.PrimaryEmail != "ada@example.com" {
		t.Errorf("PrimaryEmail = %q, want %q", got.PrimaryEmail, "ada@example.com")
	}
	if got.Company != "Analytical Engines Ltd" {
		t.Errorf("Company = %q, want %q", got.Company, "Analytical Engines Ltd")
	}
}

func TestUpdateContact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindContacts)

	id, err := s.CreateContact(ctx, Contact{FolderID: f.ID, DisplayName: "Ada", PrimaryEmail: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	err = s.UpdateContact(ctx, Contact{
		ID:           id,
		DisplayName:  "Ada Lovelace",
		PrimaryEmail: "ada@example.com",
		Company:      "Analytical Engines Ltd",
	})
	if err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}

	contacts, err := s.ListContacts(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	if contacts[0].DisplayName != "Ada Lovelace" {
		t.Errorf("DisplayName = %q, want %q", contacts[0].DisplayName, "Ada Lovelace")
	}
	if contacts[0].Company != "Analytical Engines Ltd" {
		t.Errorf("Company = %q, want %q", contacts[0].Company, "Analytical Engines Ltd")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindMail)

	received := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	_, err := s.CreateMessage(ctx, Message{
		FolderID:   f.ID,
		RemoteID:   "AAMkAGI1",
		Subject:    "Quarterly report",
		Sender:     "boss@example.com",
		Recipients: []string{"me@example.com", "team@example.com"},
		Received:   received,
		Read:       false,
		Flagged:    true,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	messages, err := s.ListMessages(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	got := messages[0]
	if got.RemoteID != "AAMkAGI1" {
		t.Errorf("RemoteID = %q, want %q", got.RemoteID, "AAMkAGI1")
	}
	if len(got.Recipients) != 2 || got.Recipients[1] != "team@example.com" {
		t.Errorf("Recipients = %v, want two entries ending in team@example.com", got.Recipients)
	}
	if !got.Received.Equal(received) {
		t.Errorf("Received = %v, want %v", got.Received, received)
	}
	if !got.Flagged {
		t.Error("Flagged = false, want true")
	}
}

func TestUpdateMessageFlags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindMail)

	_, err := s.CreateMessage(ctx, Message{FolderID: f.ID, RemoteID: "AAMkAGI1", Subject: "Hello"})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := s.UpdateMessageFlags(ctx, "AAMkAGI1", true, true); err != nil {
		t.Fatalf("UpdateMessageFlags: %v", err)
	}

	messages, err := s.ListMessages(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if !messages[0].Read || !messages[0].Flagged {
		t.Errorf("flags = read=%v flagged=%v, want both true", messages[0].Read, messages[0].Flagged)
	}
}

func TestCreateMessage_DuplicateRemoteIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindMail)

	if _, err := s.CreateMessage(ctx, Message{FolderID: f.ID, RemoteID: "AAMkAGI1"}); err != nil {
		t.Fatalf("first CreateMessage: %v", err)
	}
	if _, err := s.CreateMessage(ctx, Message{FolderID: f.ID, RemoteID: "AAMkAGI1"}); err == nil {
		t.Error("second CreateMessage with same remote id succeeded, want unique violation")
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindCalendar)

	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	id, err := s.CreateEvent(ctx, Event{
		FolderID: f.ID,
		Subject:  "Design review",
		Location: "Room 4",
		Start:    start,
		End:      start.Add(time.Hour),
		Status:   StatusOutOfOffice,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	events, err := s.ListEvents(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	if got.Status != StatusOutOfOffice {
		t.Errorf("Status = %q, want %q", got.Status, StatusOutOfOffice)
	}
	if !got.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", got.Start, start)
	}

	got.Location = "Room 7"
	got.Status = StatusTentative
	if err := s.UpdateEvent(ctx, got); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	events, err = s.ListEvents(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListEvents after update: %v", err)
	}
	if events[0].ID != id {
		t.Errorf("event id changed on update: %d -> %d", id, events[0].ID)
	}
	if events[0].Location != "Room 7" || events[0].Status != StatusTentative {
		t.Errorf("update not persisted: %+v", events[0])
	}
}

func TestZeroTimesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := testFolder(t, s, KindCalendar)

	if _, err := s.CreateEvent(ctx, Event{FolderID: f.ID, Subject: "No times", Status: StatusBusy}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	events, err := s.ListEvents(ctx, f.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if !events[0].Start.IsZero() || !events[0].End.IsZero() {
		t.Errorf("expected zero times, got start=%v end=%v", events[0].Start, events[0].End)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if path == "" {
		t.Error("DefaultDBPath returned empty string")
	}
}
