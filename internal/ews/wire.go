package ews

import (
	"encoding/xml"
	"time"
)

// Request and response structs for the EWS operations the sync engines use:
// FindItem (indexed paging, optional date restriction), GetItem, CreateItem,
// UpdateItem, and DeleteItem. Outgoing structs carry literal "m:"/"t:"
// prefixes in their element names; the prefixes are declared on the envelope
// in soap.go. Incoming structs match on local names only, which is how
// encoding/xml resolves namespaced documents.

// --- shared ------------------------------------------------------------------

type itemShape struct {
	XMLName   xml.Name `xml:"m:ItemShape"`
	BaseShape string   `xml:"t:BaseShape"`
}

type distinguishedFolderID struct {
	XMLName xml.Name `xml:"t:DistinguishedFolderId"`
	ID      string   `xml:"Id,attr"`
}

type parentFolderIDs struct {
	XMLName xml.Name `xml:"m:ParentFolderIds"`
	Folder  distinguishedFolderID
}

type outItemID struct {
	XMLName xml.Name `xml:"t:ItemId"`
	ID      string   `xml:"Id,attr"`
}

type fieldURI struct {
	XMLName xml.Name `xml:"t:FieldURI"`
	URI     string   `xml:"FieldURI,attr"`
}

type indexedFieldURI struct {
	XMLName xml.Name `xml:"t:IndexedFieldURI"`
	URI     string   `xml:"FieldURI,attr"`
	Index   string   `xml:"FieldIndex,attr"`
}

// respStatus is embedded in every per-operation response message.
type respStatus struct {
	ResponseClass string `xml:"ResponseClass,attr"`
	ResponseCode  string `xml:"ResponseCode"`
	MessageText   string `xml:"MessageText"`
}

// err converts an error-class response message into a typed [Fault].
func (s respStatus) err() error {
	if s.ResponseClass == "Error" {
		return &Fault{ResponseCode: s.ResponseCode, Message: s.MessageText}
	}
	return nil
}

type respItemID struct {
	ID string `xml:"Id,attr"`
}

type dictEntry struct {
	Key   string `xml:"Key,attr"`
	Value string `xml:",chardata"`
}

// --- FindItem ----------------------------------------------------------------

type findItemRequest struct {
	XMLName     xml.Name `xml:"m:FindItem"`
	Traversal   string   `xml:"Traversal,attr"`
	ItemShape   itemShape
	Page        indexedPageView
	Restriction *restriction
	Parent      parentFolderIDs
}

type indexedPageView struct {
	XMLName    xml.Name `xml:"m:IndexedPageItemView"`
	MaxEntries int      `xml:"MaxEntriesReturned,attr"`
	Offset     int      `xml:"Offset,attr"`
	BasePoint  string   `xml:"BasePoint,attr"`
}

type restriction struct {
	XMLName xml.Name `xml:"m:Restriction"`
	And     struct {
		XMLName xml.Name `xml:"t:And"`
		GTE     compareExpr `xml:"t:IsGreaterThanOrEqualTo"`
		LT      compareExpr `xml:"t:IsLessThan"`
	}
}

type compareExpr struct {
	FieldURI fieldURI
	Constant struct {
		Value string `xml:"Value,attr"`
	} `xml:"t:FieldURIOrConstant>t:Constant"`
}

// windowRestriction builds a calendar:Start range restriction for the given
// half-open sync window.
func windowRestriction(start, end time.Time) *restriction {
	var r restriction
	r.And.GTE.FieldURI.URI = "calendar:Start"
	r.And.GTE.Constant.Value = start.UTC().Format(time.RFC3339)
	r.And.LT.FieldURI.URI = "calendar:Start"
	r.And.LT.Constant.Value = end.UTC().Format(time.RFC3339)
	return &r
}

type findItemResponse struct {
	XMLName  xml.Name          `xml:"FindItemResponse"`
	Messages []findItemRespMsg `xml:"ResponseMessages>FindItemResponseMessage"`
}

type findItemRespMsg struct {
	respStatus
	RootFolder struct {
		Items respItems `xml:"Items"`
	} `xml:"RootFolder"`
}

type respItems struct {
	Messages      []respMessage      `xml:"Message"`
	Contacts      []respContact      `xml:"Contact"`
	CalendarItems []respCalendarItem `xml:"CalendarItem"`
}

type respContact struct {
	ItemID         respItemID  `xml:"ItemId"`
	DisplayName    string      `xml:"DisplayName"`
	GivenName      string      `xml:"GivenName"`
	Surname        string      `xml:"Surname"`
	CompanyName    string      `xml:"CompanyName"`
	EmailAddresses []dictEntry `xml:"EmailAddresses>Entry"`
	PhoneNumbers   []dictEntry `xml:"PhoneNumbers>Entry"`
}

type respMessage struct {
	ItemID           respItemID `xml:"ItemId"`
	Subject          string     `xml:"Subject"`
	From             struct {
		Mailbox respMailbox `xml:"Mailbox"`
	} `xml:"From"`
	ToRecipients     []respMailbox `xml:"ToRecipients>Mailbox"`
	DateTimeReceived string        `xml:"DateTimeReceived"`
	IsRead           bool          `xml:"IsRead"`
	Flag             struct {
		FlagStatus string `xml:"FlagStatus"`
	} `xml:"Flag"`
}

type respMailbox struct {
	EmailAddress string `xml:"EmailAddress"`
}

type respCalendarItem struct {
	ItemID               respItemID `xml:"ItemId"`
	Subject              string     `xml:"Subject"`
	Location             string     `xml:"Location"`
	Start                string     `xml:"Start"`
	End                  string     `xml:"End"`
	LegacyFreeBusyStatus string     `xml:"LegacyFreeBusyStatus"`
}

// --- response decoding -------------------------------------------------------

func decodeContact(rc respContact) Contact {
	c := Contact{
		ItemID:      rc.ItemID.ID,
		DisplayName: rc.DisplayName,
		GivenName:   rc.GivenName,
		Surname:     rc.Surname,
		CompanyName: rc.CompanyName,
	}
	c.EmailAddress1 = dictValue(rc.EmailAddresses, "EmailAddress1")
	c.BusinessPhone = dictValue(rc.PhoneNumbers, "BusinessPhone")
	return c
}

// dictValue returns the entry with the given key, falling back to the first
// entry so a contact whose only address is filed under another slot still
// carries it.
func dictValue(entries []dictEntry, key string) string {
	for _, e := range entries {
		if e.Key == key {
			return e.Value
		}
	}
	if len(entries) > 0 {
		return entries[0].Value
	}
	return ""
}

func decodeMessage(rm respMessage) Message {
	m := Message{
		ItemID:  rm.ItemID.ID,
		Subject: rm.Subject,
		From:    rm.From.Mailbox.EmailAddress,
		IsRead:  rm.IsRead,
		Flagged: rm.Flag.FlagStatus == "Flagged",
	}
	for _, to := range rm.ToRecipients {
		m.ToRecipients = append(m.ToRecipients, to.EmailAddress)
	}
	m.DateTimeReceived = parseWireTime(rm.DateTimeReceived)
	return m
}

func decodeCalendarItem(re respCalendarItem) CalendarItem {
	return CalendarItem{
		ItemID:               re.ItemID.ID,
		Subject:              re.Subject,
		Location:             re.Location,
		Start:                parseWireTime(re.Start),
		End:                  parseWireTime(re.End),
		LegacyFreeBusyStatus: re.LegacyFreeBusyStatus,
	}
}

// parseWireTime parses an EWS timestamp. Unparseable or absent values yield
// the zero time, which the diff layer treats as "absent".
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- GetItem -----------------------------------------------------------------

type getItemRequest struct {
	XMLName   xml.Name `xml:"m:GetItem"`
	ItemShape itemShape
	ItemIDs   struct {
		XMLName xml.Name `xml:"m:ItemIds"`
		ID      outItemID
	}
}

type getItemResponse struct {
	XMLName  xml.Name         `xml:"GetItemResponse"`
	Messages []getItemRespMsg `xml:"ResponseMessages>GetItemResponseMessage"`
}

type getItemRespMsg struct {
	respStatus
	Items respItems `xml:"Items"`
}

// --- CreateItem --------------------------------------------------------------

type createItemRequest struct {
	XMLName                xml.Name `xml:"m:CreateItem"`
	MessageDisposition     string   `xml:"MessageDisposition,attr,omitempty"`
	SendMeetingInvitations string   `xml:"SendMeetingInvitations,attr,omitempty"`
	SavedFolder            *savedItemFolderID
	Items                  outItems
}

type savedItemFolderID struct {
	XMLName xml.Name `xml:"m:SavedItemFolderId"`
	Folder  distinguishedFolderID
}

type outItems struct {
	XMLName xml.Name `xml:"m:Items"`
	Contact *outContact
	Message *outMessage
	Event   *outCalendarItem
}

type outContact struct {
	XMLName        xml.Name `xml:"t:Contact"`
	GivenName      string   `xml:"t:GivenName,omitempty"`
	CompanyName    string   `xml:"t:CompanyName,omitempty"`
	DisplayName    string   `xml:"t:DisplayName,omitempty"`
	EmailAddresses *outDict `xml:"t:EmailAddresses,omitempty"`
	PhoneNumbers   *outDict `xml:"t:PhoneNumbers,omitempty"`
	Surname        string   `xml:"t:Surname,omitempty"`
}

type outDict struct {
	Entries []outDictEntry `xml:"t:Entry"`
}

type outDictEntry struct {
	Key   string `xml:"Key,attr"`
	Value string `xml:",chardata"`
}

type outMessage struct {
	XMLName      xml.Name     `xml:"t:Message"`
	Subject      string       `xml:"t:Subject,omitempty"`
	ToRecipients *outMailboxes `xml:"t:ToRecipients,omitempty"`
	From         *outMailbox  `xml:"t:From,omitempty"`
	IsRead       *bool        `xml:"t:IsRead,omitempty"`
	Flag         *outFlag     `xml:"t:Flag,omitempty"`
}

type outMailboxes struct {
	Mailboxes []outMailboxInner `xml:"t:Mailbox"`
}

type outMailbox struct {
	Mailbox outMailboxInner `xml:"t:Mailbox"`
}

type outMailboxInner struct {
	EmailAddress string `xml:"t:EmailAddress"`
}

type outFlag struct {
	FlagStatus string `xml:"t:FlagStatus"`
}

type outCalendarItem struct {
	XMLName              xml.Name `xml:"t:CalendarItem"`
	Subject              string   `xml:"t:Subject,omitempty"`
	Start                string   `xml:"t:Start,omitempty"`
	End                  string   `xml:"t:End,omitempty"`
	LegacyFreeBusyStatus string   `xml:"t:LegacyFreeBusyStatus,omitempty"`
	Location             string   `xml:"t:Location,omitempty"`
}

func encodeContact(c Contact) *outContact {
	out := &outContact{
		GivenName:   c.GivenName,
		CompanyName: c.CompanyName,
		DisplayName: c.DisplayName,
		Surname:     c.Surname,
	}
	if c.EmailAddress1 != "" {
		out.EmailAddresses = &outDict{Entries: []outDictEntry{{Key: "EmailAddress1", Value: c.EmailAddress1}}}
	}
	if c.BusinessPhone != "" {
		out.PhoneNumbers = &outDict{Entries: []outDictEntry{{Key: "BusinessPhone", Value: c.BusinessPhone}}}
	}
	return out
}

func encodeMessage(m Message) *outMessage {
	out := &outMessage{Subject: m.Subject}
	if m.From != "" {
		out.From = &outMailbox{Mailbox: outMailboxInner{EmailAddress: m.From}}
	}
	if len(m.ToRecipients) > 0 {
		boxes := make([]outMailboxInner, 0, len(m.ToRecipients))
		for _, to := range m.ToRecipients {
			boxes = append(boxes, outMailboxInner{EmailAddress: to})
		}
		out.ToRecipients = &outMailboxes{Mailboxes: boxes}
	}
	isRead := m.IsRead
	out.IsRead = &isRead
	if m.Flagged {
		out.Flag = &outFlag{FlagStatus: "Flagged"}
	}
	return out
}

func encodeCalendarItem(e CalendarItem) *outCalendarItem {
	out := &outCalendarItem{
		Subject:              e.Subject,
		Location:             e.Location,
		LegacyFreeBusyStatus: e.LegacyFreeBusyStatus,
	}
	if !e.Start.IsZero() {
		out.Start = e.Start.UTC().Format(time.RFC3339)
	}
	if !e.End.IsZero() {
		out.End = e.End.UTC().Format(time.RFC3339)
	}
	return out
}

type createItemResponse struct {
	XMLName  xml.Name            `xml:"CreateItemResponse"`
	Messages []createItemRespMsg `xml:"ResponseMessages>CreateItemResponseMessage"`
}

type createItemRespMsg struct {
	respStatus
	Items struct {
		Created []struct {
			ItemID respItemID `xml:"ItemId"`
		} `xml:",any"`
	} `xml:"Items"`
}

// --- UpdateItem --------------------------------------------------------------

type updateItemRequest struct {
	XMLName                               xml.Name `xml:"m:UpdateItem"`
	ConflictResolution                    string   `xml:"ConflictResolution,attr"`
	MessageDisposition                    string   `xml:"MessageDisposition,attr,omitempty"`
	SendMeetingInvitationsOrCancellations string   `xml:"SendMeetingInvitationsOrCancellations,attr,omitempty"`
	Changes                               itemChanges
}

type itemChanges struct {
	XMLName xml.Name `xml:"m:ItemChanges"`
	Change  itemChange
}

type itemChange struct {
	XMLName xml.Name `xml:"t:ItemChange"`
	ItemID  outItemID
	Updates struct {
		XMLName xml.Name `xml:"t:Updates"`
		Sets    []setItemField
	}
}

type setItemField struct {
	XMLName  xml.Name `xml:"t:SetItemField"`
	FieldURI *fieldURI
	Indexed  *indexedFieldURI
	Contact  *outContact
	Message  *outMessage
	Event    *outCalendarItem
}

// contactUpdates builds one SetItemField per populated contact field. Empty
// fields are left untouched on the server, matching the push-direction diff
// policy that produced the update.
func contactUpdates(c Contact) []setItemField {
	var sets []setItemField
	set := func(uri string, payload *outContact) {
		sets = append(sets, setItemField{FieldURI: &fieldURI{URI: uri}, Contact: payload})
	}
	if c.DisplayName != "" {
		set("contact:DisplayName", &outContact{DisplayName: c.DisplayName})
	}
	if c.GivenName != "" {
		set("contact:GivenName", &outContact{GivenName: c.GivenName})
	}
	if c.Surname != "" {
		set("contact:Surname", &outContact{Surname: c.Surname})
	}
	if c.CompanyName != "" {
		set("contact:CompanyName", &outContact{CompanyName: c.CompanyName})
	}
	if c.EmailAddress1 != "" {
		sets = append(sets, setItemField{
			Indexed: &indexedFieldURI{URI: "contact:EmailAddress", Index: "EmailAddress1"},
			Contact: &outContact{EmailAddresses: &outDict{Entries: []outDictEntry{{Key: "EmailAddress1", Value: c.EmailAddress1}}}},
		})
	}
	if c.BusinessPhone != "" {
		sets = append(sets, setItemField{
			Indexed: &indexedFieldURI{URI: "contact:PhoneNumber", Index: "BusinessPhone"},
			Contact: &outContact{PhoneNumbers: &outDict{Entries: []outDictEntry{{Key: "BusinessPhone", Value: c.BusinessPhone}}}},
		})
	}
	return sets
}

func calendarUpdates(e CalendarItem) []setItemField {
	var sets []setItemField
	set := func(uri string, payload *outCalendarItem) {
		sets = append(sets, setItemField{FieldURI: &fieldURI{URI: uri}, Event: payload})
	}
	if e.Subject != "" {
		set("item:Subject", &outCalendarItem{Subject: e.Subject})
	}
	if e.Location != "" {
		set("calendar:Location", &outCalendarItem{Location: e.Location})
	}
	if !e.Start.IsZero() {
		set("calendar:Start", &outCalendarItem{Start: e.Start.UTC().Format(time.RFC3339)})
	}
	if !e.End.IsZero() {
		set("calendar:End", &outCalendarItem{End: e.End.UTC().Format(time.RFC3339)})
	}
	if e.LegacyFreeBusyStatus != "" {
		set("calendar:LegacyFreeBusyStatus", &outCalendarItem{LegacyFreeBusyStatus: e.LegacyFreeBusyStatus})
	}
	return sets
}

func flagUpdates(read, flagged bool) []setItemField {
	isRead := read
	status := "NotFlagged"
	if flagged {
		status = "Flagged"
	}
	return []setItemField{
		{FieldURI: &fieldURI{URI: "message:IsRead"}, Message: &outMessage{IsRead: &isRead}},
		{FieldURI: &fieldURI{URI: "item:Flag"}, Message: &outMessage{Flag: &outFlag{FlagStatus: status}}},
	}
}

type updateItemResponse struct {
	XMLName  xml.Name `xml:"UpdateItemResponse"`
	Messages []struct {
		respStatus
	} `xml:"ResponseMessages>UpdateItemResponseMessage"`
}

// --- DeleteItem --------------------------------------------------------------

type deleteItemRequest struct {
	XMLName                  xml.Name `xml:"m:DeleteItem"`
	DeleteType               string   `xml:"DeleteType,attr"`
	SendMeetingCancellations string   `xml:"SendMeetingCancellations,attr,omitempty"`
	ItemIDs                  struct {
		XMLName xml.Name `xml:"m:ItemIds"`
		ID      outItemID
	}
}

type deleteItemResponse struct {
	XMLName  xml.Name `xml:"DeleteItemResponse"`
	Messages []struct {
		respStatus
	} `xml:"ResponseMessages>DeleteItemResponseMessage"`
}
