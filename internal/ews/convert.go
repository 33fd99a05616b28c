package ews

import "github.com/njoerd114/ewsync/internal/model"

// Conversions between wire shapes and canonical model items. Only fields
// present on the source are copied; the free/busy status routes through a
// fixed bidirectional table with Busy as the default for unknown values in
// both directions.

var freeBusyToModel = map[string]model.FreeBusy{
	FreeBusyFree:             model.FreeBusyFree,
	FreeBusyTentative:        model.FreeBusyTentative,
	FreeBusyBusy:             model.FreeBusyBusy,
	FreeBusyOOF:              model.FreeBusyOOF,
	FreeBusyWorkingElsewhere: model.FreeBusyWorkingElsewhere,
}

var freeBusyFromModel = map[model.FreeBusy]string{
	model.FreeBusyFree:             FreeBusyFree,
	model.FreeBusyTentative:        FreeBusyTentative,
	model.FreeBusyBusy:             FreeBusyBusy,
	model.FreeBusyOOF:              FreeBusyOOF,
	model.FreeBusyWorkingElsewhere: FreeBusyWorkingElsewhere,
}

// StatusToModel maps a wire LegacyFreeBusyStatus to the canonical enum.
// Unknown values map to Busy.
func StatusToModel(s string) model.FreeBusy {
	if fb, ok := freeBusyToModel[s]; ok {
		return fb
	}
	return model.FreeBusyBusy
}

// StatusFromModel maps a canonical status back to the wire value.
func StatusFromModel(fb model.FreeBusy) string {
	if s, ok := freeBusyFromModel[fb]; ok {
		return s
	}
	return FreeBusyBusy
}

// ContactToModel converts a wire contact to its canonical form.
func ContactToModel(c Contact) model.Contact {
	return model.Contact{
		ID:          c.ItemID,
		DisplayName: c.DisplayName,
		FirstName:   c.GivenName,
		LastName:    c.Surname,
		Email:       c.EmailAddress1,
		WorkPhone:   c.BusinessPhone,
		Company:     c.CompanyName,
	}
}

// ContactFromModel converts a canonical contact to the wire shape.
func ContactFromModel(c model.Contact) Contact {
	return Contact{
		ItemID:        c.ID,
		DisplayName:   c.DisplayName,
		GivenName:     c.FirstName,
		Surname:       c.LastName,
		EmailAddress1: c.Email,
		BusinessPhone: c.WorkPhone,
		CompanyName:   c.Company,
	}
}

// MessageToModel converts a wire message to its canonical form.
func MessageToModel(m Message) model.Message {
	return model.Message{
		ID:       m.ItemID,
		Subject:  m.Subject,
		Sender:   m.From,
		To:       m.ToRecipients,
		Received: m.DateTimeReceived,
		Read:     m.IsRead,
		Flagged:  m.Flagged,
	}
}

// MessageFromModel converts a canonical message to the wire shape.
func MessageFromModel(m model.Message) Message {
	return Message{
		ItemID:           m.ID,
		Subject:          m.Subject,
		From:             m.Sender,
		ToRecipients:     m.To,
		DateTimeReceived: m.Received,
		IsRead:           m.Read,
		Flagged:          m.Flagged,
	}
}

// EventToModel converts a wire calendar item to its canonical form.
func EventToModel(e CalendarItem) model.Event {
	return model.Event{
		ID:       e.ItemID,
		Subject:  e.Subject,
		Location: e.Location,
		Start:    e.Start,
		End:      e.End,
		Status:   StatusToModel(e.LegacyFreeBusyStatus),
	}
}

// EventFromModel converts a canonical event to the wire shape.
func EventFromModel(e model.Event) CalendarItem {
	return CalendarItem{
		ItemID:               e.ID,
		Subject:              e.Subject,
		Location:             e.Location,
		Start:                e.Start,
		End:                  e.End,
		LegacyFreeBusyStatus: StatusFromModel(e.Status),
	}
}
