package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id TEXT    NOT NULL,
    kind       TEXT    NOT NULL,
    name       TEXT    NOT NULL,
    UNIQUE (account_id, kind, name)
);

CREATE TABLE IF NOT EXISTS contacts (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_id     INTEGER NOT NULL REFERENCES folders(id),
    display_name  TEXT    NOT NULL DEFAULT '',
    first_name    TEXT    NOT NULL DEFAULT '',
    last_name     TEXT    NOT NULL DEFAULT '',
    primary_email TEXT    NOT NULL DEFAULT '',
    work_phone    TEXT    NOT NULL DEFAULT '',
    company       TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_id  INTEGER NOT NULL REFERENCES folders(id),
    remote_id  TEXT    NOT NULL DEFAULT '',
    subject    TEXT    NOT NULL DEFAULT '',
    sender     TEXT    NOT NULL DEFAULT '',
    recipients TEXT    NOT NULL DEFAULT '',
    received   TEXT    NOT NULL DEFAULT '',
    is_read    INTEGER NOT NULL DEFAULT 0,
    flagged    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_id INTEGER NOT NULL REFERENCES folders(id),
    subject   TEXT    NOT NULL DEFAULT '',
    location  TEXT    NOT NULL DEFAULT '',
    start_at  TEXT    NOT NULL DEFAULT '',
    end_at    TEXT    NOT NULL DEFAULT '',
    status    TEXT    NOT NULL DEFAULT 'busy'
);

CREATE INDEX IF NOT EXISTS idx_contacts_folder ON contacts (folder_id);
CREATE INDEX IF NOT EXISTS idx_messages_folder ON messages (folder_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_remote ON messages (remote_id) WHERE remote_id != '';
CREATE INDEX IF NOT EXISTS idx_events_folder   ON events (folder_id);
`

// Store is the SQLite-backed local mail client store.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the local store database:
// ~/.local/share/ewsync/local.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ewsync", "local.db"), nil
}

// Open opens (or creates) the database at path, applies the schema, and
// configures WAL mode.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- folders -----------------------------------------------------------------

// ListFolders returns all folders of the given kind for an account.
func (s *Store) ListFolders(ctx context.Context, accountID, kind string) ([]Folder, error) {
	const q = `SELECT id, account_id, kind, name FROM folders WHERE account_id = ? AND kind = ?`
	rows, err := s.db.QueryContext(ctx, q, accountID, kind)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.AccountID, &f.Kind, &f.Name); err != nil {
			return nil, fmt.Errorf("scanning folder row: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// EnsureFolder returns the folder with the given name and kind, creating it
// if it does not exist yet.
func (s *Store) EnsureFolder(ctx context.Context, accountID, kind, name string) (Folder, error) {
	f := Folder{AccountID: accountID, Kind: kind, Name: name}

	const sel = `SELECT id FROM folders WHERE account_id = ? AND kind = ? AND name = ?`
	err := s.db.QueryRowContext(ctx, sel, accountID, kind, name).Scan(&f.ID)
	if err == nil {
		return f, nil
	}
	if err != sql.ErrNoRows {
		return Folder{}, fmt.Errorf("looking up folder %q: %w", name, err)
	}

	const ins = `INSERT INTO folders (account_id, kind, name) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, ins, accountID, kind, name)
	if err != nil {
		return Folder{}, fmt.Errorf("creating folder %q: %w", name, err)
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return Folder{}, fmt.Errorf("reading new folder id: %w", err)
	}
	return f, nil
}

// --- contacts ----------------------------------------------------------------

// ListContacts returns all contacts in a folder.
func (s *Store) ListContacts(ctx context.Context, folderID int64) ([]Contact, error) {
	const q = `
		SELECT id, folder_id, display_name, first_name, last_name, primary_email, work_phone, company
		FROM contacts WHERE folder_id = ?`
	rows, err := s.db.QueryContext(ctx, q, folderID)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		err := rows.Scan(&c.ID, &c.FolderID, &c.DisplayName, &c.FirstName, &c.LastName,
			&c.PrimaryEmail, &c.WorkPhone, &c.Company)
		if err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CreateContact inserts a contact and returns its row id.
func (s *Store) CreateContact(ctx context.Context, c Contact) (int64, error) {
	const q = `
		INSERT INTO contacts (folder_id, display_name, first_name, last_name, primary_email, work_phone, company)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, c.FolderID, c.DisplayName, c.FirstName, c.LastName,
		c.PrimaryEmail, c.WorkPhone, c.Company)
	if err != nil {
		return 0, fmt.Errorf("inserting contact %q: %w", c.DisplayName, err)
	}
	return res.LastInsertId()
}

// UpdateContact overwrites the tracked fields of an existing contact row.
func (s *Store) UpdateContact(ctx context.Context, c Contact) error {
	const q = `
		UPDATE contacts
		SET display_name = ?, first_name = ?, last_name = ?, primary_email = ?, work_phone = ?, company = ?
		WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, c.DisplayName, c.FirstName, c.LastName,
		c.PrimaryEmail, c.WorkPhone, c.Company, c.ID); err != nil {
		return fmt.Errorf("updating contact id=%d: %w", c.ID, err)
	}
	return nil
}

// --- messages ----------------------------------------------------------------

// ListMessages returns all messages in a folder.
func (s *Store) ListMessages(ctx context.Context, folderID int64) ([]Message, error) {
	const q = `
		SELECT id, folder_id, remote_id, subject, sender, recipients, received, is_read, flagged
		FROM messages WHERE folder_id = ?`
	rows, err := s.db.QueryContext(ctx, q, folderID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		var m Message
		var recipients, received string
		err := rows.Scan(&m.ID, &m.FolderID, &m.RemoteID, &m.Subject, &m.Sender,
			&recipients, &received, &m.Read, &m.Flagged)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		m.Recipients = splitRecipients(recipients)
		m.Received, _ = parseTime(received)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateMessage inserts a message and returns its row id.
func (s *Store) CreateMessage(ctx context.Context, m Message) (int64, error) {
	const q = `
		INSERT INTO messages (folder_id, remote_id, subject, sender, recipients, received, is_read, flagged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, m.FolderID, m.RemoteID, m.Subject, m.Sender,
		joinRecipients(m.Recipients), formatTime(m.Received), m.Read, m.Flagged)
	if err != nil {
		return 0, fmt.Errorf("inserting message %q: %w", m.Subject, err)
	}
	return res.LastInsertId()
}

// UpdateMessageFlags sets the read/flagged state of the message with the
// given remote id.
func (s *Store) UpdateMessageFlags(ctx context.Context, remoteID string, read, flagged bool) error {
	const q = `UPDATE messages SET is_read = ?, flagged = ? WHERE remote_id = ?`
	if _, err := s.db.ExecContext(ctx, q, read, flagged, remoteID); err != nil {
		return fmt.Errorf("updating flags for %q: %w", remoteID, err)
	}
	return nil
}

// SetMessageRemoteID records the provider-assigned id for a locally created
// message after it has been pushed to the server.
func (s *Store) SetMessageRemoteID(ctx context.Context, id int64, remoteID string) error {
	const q = `UPDATE messages SET remote_id = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, remoteID, id); err != nil {
		return fmt.Errorf("recording remote id for message id=%d: %w", id, err)
	}
	return nil
}

// --- events ------------------------------------------------------------------

// ListEvents returns all events in a folder.
func (s *Store) ListEvents(ctx context.Context, folderID int64) ([]Event, error) {
	const q = `
		SELECT id, folder_id, subject, location, start_at, end_at, status
		FROM events WHERE folder_id = ?`
	rows, err := s.db.QueryContext(ctx, q, folderID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var start, end string
		if err := rows.Scan(&e.ID, &e.FolderID, &e.Subject, &e.Location, &start, &end, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.Start, _ = parseTime(start)
		e.End, _ = parseTime(end)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateEvent inserts an event and returns its row id.
func (s *Store) CreateEvent(ctx context.Context, e Event) (int64, error) {
	const q = `
		INSERT INTO events (folder_id, subject, location, start_at, end_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, e.FolderID, e.Subject, e.Location,
		formatTime(e.Start), formatTime(e.End), e.Status)
	if err != nil {
		return 0, fmt.Errorf("inserting event %q: %w", e.Subject, err)
	}
	return res.LastInsertId()
}

// UpdateEvent overwrites the tracked fields of an existing event row.
func (s *Store) UpdateEvent(ctx context.Context, e Event) error {
	const q = `
		UPDATE events SET subject = ?, location = ?, start_at = ?, end_at = ?, status = ?
		WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, e.Subject, e.Location,
		formatTime(e.Start), formatTime(e.End), e.Status, e.ID); err != nil {
		return fmt.Errorf("updating event id=%d: %w", e.ID, err)
	}
	return nil
}

// --- helpers -----------------------------------------------------------------

func joinRecipients(to []string) string {
	return strings.Join(to, ",")
}

func splitRecipients(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
