package ews

import (
	"testing"
	"time"

	"github.com/njoerd114/ewsync/internal/model"
)

// ---------------------------------------------------------------------------
// Free/busy status table
// ---------------------------------------------------------------------------

func TestStatusMapping_Roundtrip(t *testing.T) {
	for _, wire := range []string{
		FreeBusyFree, FreeBusyTentative, FreeBusyBusy, FreeBusyOOF, FreeBusyWorkingElsewhere,
	} {
		if got := StatusFromModel(StatusToModel(wire)); got != wire {
			t.Errorf("roundtrip(%q) = %q", wire, got)
		}
	}
}

func TestStatusToModel_UnknownDefaultsToBusy(t *testing.T) {
	if got := StatusToModel("NoData"); got != model.FreeBusyBusy {
		t.Errorf("StatusToModel(NoData) = %v, want busy", got)
	}
	if got := StatusToModel(""); got != model.FreeBusyBusy {
		t.Errorf("StatusToModel(empty) = %v, want busy", got)
	}
}

func TestStatusOOF_MapsToOutOfOffice(t *testing.T) {
	fb := StatusToModel(FreeBusyOOF)
	if fb.String() != "out-of-office" {
		t.Errorf("canonical label = %q, want out-of-office", fb.String())
	}
	if got := StatusFromModel(fb); got != FreeBusyOOF {
		t.Errorf("back to wire = %q, want OOF", got)
	}
}

// ---------------------------------------------------------------------------
// Item conversions
// ---------------------------------------------------------------------------

func TestContactConversion_Roundtrip(t *testing.T) {
	wire := Contact{
		ItemID:        "AAMk1",
		DisplayName:   "Ada Lovelace",
		GivenName:     "Ada",
		Surname:       "Lovelace",
		EmailAddress1: "ada@example.com",
		BusinessPhone: "+44 20 7946 0000",
		CompanyName:   "Analytical Engines Ltd",
	}
	back := ContactFromModel(ContactToModel(wire))
	if back != wire {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", back, wire)
	}
}

func TestContactToModel_AbsentFieldsStayAbsent(t *testing.T) {
	m := ContactToModel(Contact{ItemID: "id", DisplayName: "Ada"})
	if m.Email != "" || m.Company != "" || m.WorkPhone != "" {
		t.Errorf("absent wire fields produced non-empty canonical fields: %+v", m)
	}
}

func TestEventConversion_Roundtrip(t *testing.T) {
	start := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)
	wire := CalendarItem{
		ItemID:               "AAMk2",
		Subject:              "Planning",
		Location:             "Room 4",
		Start:                start,
		End:                  start.Add(time.Hour),
		LegacyFreeBusyStatus: FreeBusyTentative,
	}
	back := EventFromModel(EventToModel(wire))
	if back != wire {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", back, wire)
	}
}

func TestEventFromModel_DefaultStatusIsBusy(t *testing.T) {
	e := EventFromModel(model.Event{Subject: "x"})
	if e.LegacyFreeBusyStatus != FreeBusyBusy {
		t.Errorf("status = %q, want Busy default", e.LegacyFreeBusyStatus)
	}
}

func TestMessageConversion(t *testing.T) {
	received := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	wire := Message{
		ItemID:           "AAMk3",
		Subject:          "Status Update",
		From:             "boss@example.com",
		ToRecipients:     []string{"team@example.com"},
		DateTimeReceived: received,
		IsRead:           true,
		Flagged:          true,
	}
	m := MessageToModel(wire)
	if m.ID != "AAMk3" || m.Sender != "boss@example.com" || !m.Read || !m.Flagged {
		t.Errorf("MessageToModel = %+v", m)
	}
	if !m.Received.Equal(received) {
		t.Errorf("Received = %v, want %v", m.Received, received)
	}
	back := MessageFromModel(m)
	if back.ItemID != wire.ItemID || back.From != wire.From || len(back.ToRecipients) != 1 {
		t.Errorf("MessageFromModel = %+v", back)
	}
}
