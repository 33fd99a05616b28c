package ews

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/njoerd114/ewsync/internal/model"
)

// Client implements the sync engines' remote-store interfaces on top of a
// [Caller]. Every operation runs inside the Retrier, and protocol-level
// error responses are surfaced as typed [Fault] values before the retry
// classification, so throttling response codes are retried the same way
// transport failures are.
type Client struct {
	caller Caller
	retry  *Retrier
	log    *slog.Logger
}

// NewClient creates a Client with the default retry budget.
func NewClient(caller Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, retry: NewRetrier(), log: logger}
}

// --- mail --------------------------------------------------------------------

// ListMessages returns one page of messages from the given well-known folder.
func (c *Client) ListMessages(ctx context.Context, folderID string, offset, limit int) ([]Message, error) {
	msg, err := c.findItem(ctx, newFindItemRequest(folderID, offset, limit, nil))
	if err != nil {
		return nil, err
	}
	items := msg.RootFolder.Items.Messages
	out := make([]Message, 0, len(items))
	for _, rm := range items {
		out = append(out, decodeMessage(rm))
	}
	return out, nil
}

// CreateMessage saves a message into the given folder without sending it and
// returns the new item id.
func (c *Client) CreateMessage(ctx context.Context, folderID string, m Message) (string, error) {
	req := &createItemRequest{
		MessageDisposition: "SaveOnly",
		SavedFolder:        &savedItemFolderID{Folder: distinguishedFolderID{ID: folderID}},
		Items:              outItems{Message: encodeMessage(m)},
	}
	return c.createItem(ctx, req)
}

// UpdateMessageFlags sets the read and flagged state of an existing message.
func (c *Client) UpdateMessageFlags(ctx context.Context, itemID string, read, flagged bool) error {
	req := &updateItemRequest{
		ConflictResolution: "AlwaysOverwrite",
		MessageDisposition: "SaveOnly",
	}
	req.Changes.Change.ItemID = outItemID{ID: itemID}
	req.Changes.Change.Updates.Sets = flagUpdates(read, flagged)
	return c.updateItem(ctx, req)
}

// --- contacts ----------------------------------------------------------------

// ListContacts returns one page of contacts.
func (c *Client) ListContacts(ctx context.Context, folderID string, offset, limit int) ([]Contact, error) {
	msg, err := c.findItem(ctx, newFindItemRequest(folderID, offset, limit, nil))
	if err != nil {
		return nil, err
	}
	items := msg.RootFolder.Items.Contacts
	out := make([]Contact, 0, len(items))
	for _, rc := range items {
		out = append(out, decodeContact(rc))
	}
	return out, nil
}

// CreateContact creates a contact and returns the new item id.
func (c *Client) CreateContact(ctx context.Context, folderID string, contact Contact) (string, error) {
	req := &createItemRequest{
		SavedFolder: &savedItemFolderID{Folder: distinguishedFolderID{ID: folderID}},
		Items:       outItems{Contact: encodeContact(contact)},
	}
	return c.createItem(ctx, req)
}

// UpdateContact overwrites the populated fields of an existing contact.
func (c *Client) UpdateContact(ctx context.Context, itemID string, contact Contact) error {
	sets := contactUpdates(contact)
	if len(sets) == 0 {
		return nil
	}
	req := &updateItemRequest{ConflictResolution: "AlwaysOverwrite"}
	req.Changes.Change.ItemID = outItemID{ID: itemID}
	req.Changes.Change.Updates.Sets = sets
	return c.updateItem(ctx, req)
}

// --- calendar ----------------------------------------------------------------

// ListCalendarItems returns one page of events whose start time falls inside
// the sync window.
func (c *Client) ListCalendarItems(ctx context.Context, folderID string, window model.SyncWindow, offset, limit int) ([]CalendarItem, error) {
	restr := windowRestriction(window.Start, window.End)
	msg, err := c.findItem(ctx, newFindItemRequest(folderID, offset, limit, restr))
	if err != nil {
		return nil, err
	}
	items := msg.RootFolder.Items.CalendarItems
	out := make([]CalendarItem, 0, len(items))
	for _, re := range items {
		out = append(out, decodeCalendarItem(re))
	}
	return out, nil
}

// CreateCalendarItem creates an event without sending invitations and
// returns the new item id.
func (c *Client) CreateCalendarItem(ctx context.Context, folderID string, e CalendarItem) (string, error) {
	req := &createItemRequest{
		SendMeetingInvitations: "SendToNone",
		SavedFolder:            &savedItemFolderID{Folder: distinguishedFolderID{ID: folderID}},
		Items:                  outItems{Event: encodeCalendarItem(e)},
	}
	return c.createItem(ctx, req)
}

// UpdateCalendarItem overwrites the populated fields of an existing event.
func (c *Client) UpdateCalendarItem(ctx context.Context, itemID string, e CalendarItem) error {
	sets := calendarUpdates(e)
	if len(sets) == 0 {
		return nil
	}
	req := &updateItemRequest{
		ConflictResolution:                    "AlwaysOverwrite",
		SendMeetingInvitationsOrCancellations: "SendToNone",
	}
	req.Changes.Change.ItemID = outItemID{ID: itemID}
	req.Changes.Change.Updates.Sets = sets
	return c.updateItem(ctx, req)
}

// --- shared ------------------------------------------------------------------

// Item is the result of fetching a single item by id. Exactly one field is
// populated, depending on the item's class.
type Item struct {
	Message *Message
	Contact *Contact
	Event   *CalendarItem
}

// GetItem fetches one item of any class by its id.
func (c *Client) GetItem(ctx context.Context, itemID string) (Item, error) {
	req := &getItemRequest{ItemShape: itemShape{BaseShape: "AllProperties"}}
	req.ItemIDs.ID = outItemID{ID: itemID}

	var item Item
	err := c.retry.Do(ctx, func() error {
		var resp getItemResponse
		if err := c.caller.Call(ctx, req, &resp); err != nil {
			return err
		}
		if len(resp.Messages) == 0 {
			return fmt.Errorf("get item: empty response")
		}
		msg := resp.Messages[0]
		if err := msg.err(); err != nil {
			return err
		}
		switch items := msg.Items; {
		case len(items.Messages) > 0:
			m := decodeMessage(items.Messages[0])
			item = Item{Message: &m}
		case len(items.Contacts) > 0:
			ct := decodeContact(items.Contacts[0])
			item = Item{Contact: &ct}
		case len(items.CalendarItems) > 0:
			ev := decodeCalendarItem(items.CalendarItems[0])
			item = Item{Event: &ev}
		default:
			return fmt.Errorf("get item %q: no item in response", itemID)
		}
		return nil
	})
	return item, err
}

// DeleteItem moves any item to the deleted-items folder.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	req := &deleteItemRequest{
		DeleteType:               "MoveToDeletedItems",
		SendMeetingCancellations: "SendToNone",
	}
	req.ItemIDs.ID = outItemID{ID: itemID}

	return c.retry.Do(ctx, func() error {
		var resp deleteItemResponse
		if err := c.caller.Call(ctx, req, &resp); err != nil {
			return err
		}
		if len(resp.Messages) == 0 {
			return fmt.Errorf("delete item: empty response")
		}
		return resp.Messages[0].err()
	})
}

func newFindItemRequest(folderID string, offset, limit int, restr *restriction) *findItemRequest {
	return &findItemRequest{
		Traversal: "Shallow",
		ItemShape: itemShape{BaseShape: "AllProperties"},
		Page: indexedPageView{
			MaxEntries: limit,
			Offset:     offset,
			BasePoint:  "Beginning",
		},
		Restriction: restr,
		Parent:      parentFolderIDs{Folder: distinguishedFolderID{ID: folderID}},
	}
}

func (c *Client) findItem(ctx context.Context, req *findItemRequest) (*findItemRespMsg, error) {
	var msg findItemRespMsg
	err := c.retry.Do(ctx, func() error {
		var resp findItemResponse
		if err := c.caller.Call(ctx, req, &resp); err != nil {
			return err
		}
		if len(resp.Messages) == 0 {
			return fmt.Errorf("find item: empty response")
		}
		if err := resp.Messages[0].err(); err != nil {
			return err
		}
		msg = resp.Messages[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) createItem(ctx context.Context, req *createItemRequest) (string, error) {
	var id string
	err := c.retry.Do(ctx, func() error {
		var resp createItemResponse
		if err := c.caller.Call(ctx, req, &resp); err != nil {
			return err
		}
		if len(resp.Messages) == 0 {
			return fmt.Errorf("create item: empty response")
		}
		if err := resp.Messages[0].err(); err != nil {
			return err
		}
		if created := resp.Messages[0].Items.Created; len(created) > 0 {
			id = created[0].ItemID.ID
		}
		return nil
	})
	return id, err
}

func (c *Client) updateItem(ctx context.Context, req *updateItemRequest) error {
	return c.retry.Do(ctx, func() error {
		var resp updateItemResponse
		if err := c.caller.Call(ctx, req, &resp); err != nil {
			return err
		}
		if len(resp.Messages) == 0 {
			return fmt.Errorf("update item: empty response")
		}
		return resp.Messages[0].err()
	})
}
