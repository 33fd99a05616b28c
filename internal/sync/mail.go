package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/njoerd114/ewsync/internal/ews"
	"github.com/njoerd114/ewsync/internal/localstore"
	"github.com/njoerd114/ewsync/internal/model"
)

// MailEngine reconciles the remote inbox against the local mail folder.
//
// Mail deviates from the other engines in the pull direction: a message is
// immutable once synced, so the remote→local pass is existence-check-then-skip
// with no update path. Read/flagged changes flow through the narrower
// syncMessageFlags step, keyed by the provider-assigned message id.
type MailEngine struct {
	account model.Account
	remote  MailRemote
	local   MailLocal
	status  status
	log     *slog.Logger
	sleep   sleepFunc
}

// NewMailEngine creates the mail engine for one account.
func NewMailEngine(account model.Account, remote MailRemote, local MailLocal, logger *slog.Logger) *MailEngine {
	return &MailEngine{
		account: account,
		remote:  remote,
		local:   local,
		log:     logger.With("account", account.ID, "entity", model.EntityMail),
		sleep:   sleepCtx,
	}
}

// Entity implements [Engine].
func (e *MailEngine) Entity() model.EntityType { return model.EntityMail }

// Status implements [Engine].
func (e *MailEngine) Status() Snapshot { return e.status.snapshot() }

// Sync runs one full bidirectional mail pass pair.
func (e *MailEngine) Sync(ctx context.Context) (Result, error) {
	if !e.status.tryStart() {
		e.log.Warn("sync already in progress")
		return Result{Skipped: true}, nil
	}
	start := time.Now()
	stats, err := e.run(ctx)
	d := time.Since(start)
	e.status.finish(stats, d, err)
	return Result{Stats: stats, Duration: d}, err
}

// IncrementalSync runs a full pass regardless of lastSync. Mail has no
// reliable remote change tracking, so narrowing by timestamp would miss
// messages that arrived since the last run; the full reconcile is the only
// correct refresh.
func (e *MailEngine) IncrementalSync(ctx context.Context, lastSync time.Time) (Result, error) {
	if !lastSync.IsZero() {
		e.log.Debug("no change tracking for mail, running full pass")
	}
	return e.Sync(ctx)
}

func (e *MailEngine) run(ctx context.Context) (Stats, error) {
	var stats Stats

	folder, err := e.local.EnsureFolder(ctx, e.account.ID, localstore.KindMail, e.account.FolderName())
	if err != nil {
		return stats, fmt.Errorf("resolving local mail folder: %w", err)
	}

	remoteItems, remoteErr := fetchAll(ctx, mailBatchSize, e.sleep,
		func(ctx context.Context, offset, limit int) ([]ews.Message, error) {
			return e.remote.ListMessages(ctx, ews.FolderInbox, offset, limit)
		})
	if remoteErr != nil {
		e.log.Error("listing remote messages", "fetched", len(remoteItems), "error", remoteErr)
		stats.Errors++
	}

	localItems, err := e.local.ListMessages(ctx, folder.ID)
	if err != nil {
		return stats, fmt.Errorf("listing local messages: %w", err)
	}

	localByRemoteID := make(map[string]localstore.Message, len(localItems))
	for _, lm := range localItems {
		if lm.RemoteID != "" {
			localByRemoteID[strings.ToLower(lm.RemoteID)] = lm
		}
	}

	// Remote → local: create-only. Messages already present are skipped, not
	// updated; flag state is reconciled separately below.
	for _, rm := range remoteItems {
		key := strings.ToLower(rm.ItemID)

		lm, ok := localByRemoteID[key]
		if ok {
			if err := e.syncMessageFlags(ctx, lm, rm); err != nil {
				e.log.Error("syncing message flags", "remote_id", rm.ItemID, "error", err)
				stats.Errors++
				continue
			}
			if lm.Read != rm.IsRead || lm.Flagged != rm.Flagged {
				stats.Updated++
			}
			continue
		}

		nm := localstore.MessageFromModel(ews.MessageToModel(rm))
		nm.FolderID = folder.ID
		if _, err := e.local.CreateMessage(ctx, nm); err != nil {
			e.log.Error("creating local message", "remote_id", rm.ItemID, "error", err)
			stats.Errors++
			continue
		}
		stats.Created++
	}

	remoteByKey := make(map[string]ews.Message, len(remoteItems))
	for _, rm := range remoteItems {
		remoteByKey[model.MessageKey(ews.MessageToModel(rm))] = rm
	}

	// Local → remote: push messages created locally (no provider id yet) and
	// record the assigned id so the next pass treats them as synced. The
	// re-fetch picks up the messages the pull pass just created, whose keys
	// all resolve to known remote ids.
	localItems, err = e.local.ListMessages(ctx, folder.ID)
	if err != nil {
		return stats, fmt.Errorf("listing local messages for push: %w", err)
	}
	for _, lm := range localItems {
		key := model.MessageKey(localstore.MessageToModel(lm))
		if _, ok := remoteByKey[key]; ok {
			continue
		}

		id, err := e.remote.CreateMessage(ctx, ews.FolderInbox, ews.MessageFromModel(localstore.MessageToModel(lm)))
		if err != nil {
			e.log.Error("creating remote message", "subject", lm.Subject, "error", err)
			stats.Errors++
			continue
		}
		if err := e.local.SetMessageRemoteID(ctx, lm.ID, id); err != nil {
			e.log.Error("recording remote id", "subject", lm.Subject, "error", err)
			stats.Errors++
			continue
		}
		stats.Created++
	}

	stats.TotalSynced = stats.Created + stats.Updated
	e.log.Info("mail sync complete",
		"created", stats.Created, "updated", stats.Updated, "errors", stats.Errors)
	return stats, nil
}

// syncMessageFlags pulls remote read/flagged state onto the matched local
// message. The flags are the only mutable part of a synced message.
func (e *MailEngine) syncMessageFlags(ctx context.Context, lm localstore.Message, rm ews.Message) error {
	if lm.Read == rm.IsRead && lm.Flagged == rm.Flagged {
		return nil
	}
	return e.local.UpdateMessageFlags(ctx, lm.RemoteID, rm.IsRead, rm.Flagged)
}
