package model

import (
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// ContactNeedsUpdate
// ---------------------------------------------------------------------------

func TestContactNeedsUpdate_Identical(t *testing.T) {
	c := Contact{
		DisplayName: "Ada Lovelace",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		WorkPhone:   "+44 20 7946 0000",
		Company:     "Analytical Engines Ltd",
	}
	if ContactNeedsUpdate(c, c) {
		t.Error("identical contacts reported as needing update")
	}
}

func TestContactNeedsUpdate_SingleFieldDiffers(t *testing.T) {
	base := Contact{DisplayName: "Ada", Email: "ada@example.com", Company: "Acme"}
	tests := []struct {
		name   string
		mutate func(*Contact)
	}{
		{"display name", func(c *Contact) { c.DisplayName = "Ada L" }},
		{"first name", func(c *Contact) { c.FirstName = "Ada" }},
		{"last name", func(c *Contact) { c.LastName = "Lovelace" }},
		{"email", func(c *Contact) { c.Email = "ada@other.com" }},
		{"work phone", func(c *Contact) { c.WorkPhone = "123" }},
		{"company", func(c *Contact) { c.Company = "Other" }},
	}
	for _, tt := range tests {
		remote := base
		tt.mutate(&remote)
		if !ContactNeedsUpdate(base, remote) {
			t.Errorf("%s differs but NeedsUpdate = false", tt.name)
		}
	}
}

// ---------------------------------------------------------------------------
// ContactPushNeedsUpdate — blank local never overwrites remote
// ---------------------------------------------------------------------------

func TestContactPushNeedsUpdate_BlankLocalFieldSkipped(t *testing.T) {
	local := Contact{DisplayName: "Ada", Email: "ada@example.com"} // no company
	remote := Contact{DisplayName: "Ada", Email: "ada@example.com", Company: "Acme"}
	if ContactPushNeedsUpdate(local, remote) {
		t.Error("blank local company triggered a push update")
	}
}

func TestContactPushNeedsUpdate_PopulatedLocalFieldStillCompared(t *testing.T) {
	local := Contact{DisplayName: "Ada", Company: "NewCo"}
	remote := Contact{DisplayName: "Ada", Company: "Acme"}
	if !ContactPushNeedsUpdate(local, remote) {
		t.Error("populated differing company did not trigger a push update")
	}
}

func TestContactPushNeedsUpdate_AllBlankLocal(t *testing.T) {
	remote := Contact{DisplayName: "Ada", Email: "a@x.com", Company: "Acme"}
	if ContactPushNeedsUpdate(Contact{}, remote) {
		t.Error("entirely blank local contact triggered a push update")
	}
}

// ---------------------------------------------------------------------------
// EventNeedsUpdate
// ---------------------------------------------------------------------------

func TestEventNeedsUpdate_Identical(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	e := Event{Subject: "Sync", Location: "Room 4", Start: start, End: start.Add(time.Hour), Status: FreeBusyTentative}
	if EventNeedsUpdate(e, e) {
		t.Error("identical events reported as needing update")
	}
}

func TestEventNeedsUpdate_StartDiffers(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	local := Event{Subject: "Sync", Start: start, End: start.Add(time.Hour)}
	remote := local
	remote.Start = start.Add(30 * time.Minute)
	if !EventNeedsUpdate(local, remote) {
		t.Error("shifted start not detected")
	}
}

func TestEventNeedsUpdate_StatusDiffers(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	local := Event{Subject: "Sync", Start: start, End: start.Add(time.Hour), Status: FreeBusyBusy}
	remote := local
	remote.Status = FreeBusyOOF
	if !EventNeedsUpdate(local, remote) {
		t.Error("status change not detected")
	}
}

func TestEventNeedsUpdate_BothTimesAbsent(t *testing.T) {
	// Both sides lacking instants default to "now" within the same call and
	// must compare equal.
	local := Event{Subject: "Sync"}
	remote := Event{Subject: "Sync"}
	if EventNeedsUpdate(local, remote) {
		t.Error("events with absent times reported as differing")
	}
}

// ---------------------------------------------------------------------------
// EventPushNeedsUpdate
// ---------------------------------------------------------------------------

func TestEventPushNeedsUpdate_ZeroLocalTimesSkipped(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	local := Event{Subject: "Sync"}
	remote := Event{Subject: "Sync", Start: start, End: start.Add(time.Hour)}
	if EventPushNeedsUpdate(local, remote) {
		t.Error("zero local instants triggered a push update")
	}
}

func TestEventPushNeedsUpdate_PopulatedLocationCompared(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	local := Event{Subject: "Sync", Location: "Room 5", Start: start}
	remote := Event{Subject: "Sync", Location: "Room 4", Start: start}
	if !EventPushNeedsUpdate(local, remote) {
		t.Error("differing location not detected on push")
	}
}

// ---------------------------------------------------------------------------
// Sync windows
// ---------------------------------------------------------------------------

func TestFullSyncWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	w := FullSyncWindow(now)
	if got := w.Start; !got.Equal(now.AddDate(0, 0, -30)) {
		t.Errorf("Start = %v, want now-30d", got)
	}
	if got := w.End; !got.Equal(now.AddDate(0, 0, 60)) {
		t.Errorf("End = %v, want now+60d", got)
	}
	if !w.Contains(now) {
		t.Error("window does not contain now")
	}
	if w.Contains(w.End) {
		t.Error("window contains its own End (range must be half-open)")
	}
}

func TestIncrementalSyncWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	last := now.Add(-6 * time.Hour)
	w := IncrementalSyncWindow(last, now)
	if got := w.Start; !got.Equal(last.Add(-time.Hour)) {
		t.Errorf("Start = %v, want lastSync-1h", got)
	}
	if got := w.End; !got.Equal(now.AddDate(0, 0, 30)) {
		t.Errorf("End = %v, want now+30d", got)
	}
}
