package localstore

import (
	"strconv"

	"github.com/njoerd114/ewsync/internal/model"
)

// Conversions between local row shapes and canonical model items. The
// counterpart of internal/ews/convert.go for the other side of the sync.

var statusToModel = map[string]model.FreeBusy{
	StatusAvailable:        model.FreeBusyFree,
	StatusTentative:        model.FreeBusyTentative,
	StatusBusy:             model.FreeBusyBusy,
	StatusOutOfOffice:      model.FreeBusyOOF,
	StatusWorkingElsewhere: model.FreeBusyWorkingElsewhere,
}

var statusFromModel = map[model.FreeBusy]string{
	model.FreeBusyFree:             StatusAvailable,
	model.FreeBusyTentative:        StatusTentative,
	model.FreeBusyBusy:             StatusBusy,
	model.FreeBusyOOF:              StatusOutOfOffice,
	model.FreeBusyWorkingElsewhere: StatusWorkingElsewhere,
}

// StatusToModel maps a local status string to the canonical enum. Unknown
// values map to busy.
func StatusToModel(s string) model.FreeBusy {
	if fb, ok := statusToModel[s]; ok {
		return fb
	}
	return model.FreeBusyBusy
}

// StatusFromModel maps a canonical status to the local string.
func StatusFromModel(fb model.FreeBusy) string {
	if s, ok := statusFromModel[fb]; ok {
		return s
	}
	return StatusBusy
}

// ContactToModel converts a local contact row to its canonical form.
func ContactToModel(c Contact) model.Contact {
	return model.Contact{
		ID:          strconv.FormatInt(c.ID, 10),
		DisplayName: c.DisplayName,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.PrimaryEmail,
		WorkPhone:   c.WorkPhone,
		Company:     c.Company,
	}
}

// ContactFromModel converts a canonical contact to a local row shape.
// The row and folder ids are left for the caller to assign.
func ContactFromModel(c model.Contact) Contact {
	return Contact{
		DisplayName:  c.DisplayName,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		PrimaryEmail: c.Email,
		WorkPhone:    c.WorkPhone,
		Company:      c.Company,
	}
}

// MessageToModel converts a local message row to its canonical form. The
// canonical id is the remote provider id, which is mail's sync identity.
func MessageToModel(m Message) model.Message {
	return model.Message{
		ID:       m.RemoteID,
		Subject:  m.Subject,
		Sender:   m.Sender,
		To:       m.Recipients,
		Received: m.Received,
		Read:     m.Read,
		Flagged:  m.Flagged,
	}
}

// MessageFromModel converts a canonical message to a local row shape.
func MessageFromModel(m model.Message) Message {
	return Message{
		RemoteID:   m.ID,
		Subject:    m.Subject,
		Sender:     m.Sender,
		Recipients: m.To,
		Received:   m.Received,
		Read:       m.Read,
		Flagged:    m.Flagged,
	}
}

// EventToModel converts a local event row to its canonical form.
func EventToModel(e Event) model.Event {
	return model.Event{
		ID:       strconv.FormatInt(e.ID, 10),
		Subject:  e.Subject,
		Location: e.Location,
		Start:    e.Start,
		End:      e.End,
		Status:   StatusToModel(e.Status),
	}
}

// EventFromModel converts a canonical event to a local row shape.
func EventFromModel(e model.Event) Event {
	return Event{
		Subject:  e.Subject,
		Location: e.Location,
		Start:    e.Start,
		End:      e.End,
		Status:   StatusFromModel(e.Status),
	}
}
