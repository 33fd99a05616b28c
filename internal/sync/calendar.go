package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/njoerd114/ewsync/internal/ews"
	"github.com/njoerd114/ewsync/internal/localstore"
	"github.com/njoerd114/ewsync/internal/model"
)

// CalendarEngine reconciles remote calendar items against the local calendar
// inside a bounded sync window. Only events whose start time falls in the
// window are fetched and compared; local events outside the window are left
// untouched.
type CalendarEngine struct {
	account model.Account
	remote  CalendarRemote
	local   CalendarLocal
	status  status
	log     *slog.Logger
	sleep   sleepFunc
	now     func() time.Time
}

// NewCalendarEngine creates the calendar engine for one account.
func NewCalendarEngine(account model.Account, remote CalendarRemote, local CalendarLocal, logger *slog.Logger) *CalendarEngine {
	return &CalendarEngine{
		account: account,
		remote:  remote,
		local:   local,
		log:     logger.With("account", account.ID, "entity", model.EntityCalendar),
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// Entity implements [Engine].
func (e *CalendarEngine) Entity() model.EntityType { return model.EntityCalendar }

// Status implements [Engine].
func (e *CalendarEngine) Status() Snapshot { return e.status.snapshot() }

// Sync runs one full bidirectional calendar pass pair over the full window.
func (e *CalendarEngine) Sync(ctx context.Context) (Result, error) {
	return e.syncWindow(ctx, model.FullSyncWindow(e.now()))
}

// IncrementalSync narrows the window to [lastSync - 1h, now + 30d], or
// delegates to a full sync when no prior sync exists.
func (e *CalendarEngine) IncrementalSync(ctx context.Context, lastSync time.Time) (Result, error) {
	if lastSync.IsZero() {
		return e.Sync(ctx)
	}
	return e.syncWindow(ctx, model.IncrementalSyncWindow(lastSync, e.now()))
}

func (e *CalendarEngine) syncWindow(ctx context.Context, window model.SyncWindow) (Result, error) {
	if !e.status.tryStart() {
		e.log.Warn("sync already in progress")
		return Result{Skipped: true}, nil
	}
	start := time.Now()
	stats, err := e.run(ctx, window)
	d := time.Since(start)
	e.status.finish(stats, d, err)
	return Result{Stats: stats, Duration: d}, err
}

func (e *CalendarEngine) run(ctx context.Context, window model.SyncWindow) (Stats, error) {
	var stats Stats

	folder, err := e.local.EnsureFolder(ctx, e.account.ID, localstore.KindCalendar, e.account.FolderName())
	if err != nil {
		return stats, fmt.Errorf("resolving local calendar: %w", err)
	}

	remoteItems, remoteErr := fetchAll(ctx, calendarBatchSize, e.sleep,
		func(ctx context.Context, offset, limit int) ([]ews.CalendarItem, error) {
			return e.remote.ListCalendarItems(ctx, ews.FolderCalendar, window, offset, limit)
		})
	if remoteErr != nil {
		e.log.Error("listing remote calendar items", "fetched", len(remoteItems), "error", remoteErr)
		stats.Errors++
	}

	allLocal, err := e.local.ListEvents(ctx, folder.ID)
	if err != nil {
		return stats, fmt.Errorf("listing local events: %w", err)
	}
	var localItems []localstore.Event
	for _, le := range allLocal {
		if window.Contains(le.Start) {
			localItems = append(localItems, le)
		}
	}

	localByKey := make(map[string]localstore.Event, len(localItems))
	for _, le := range localItems {
		localByKey[model.EventKey(localstore.EventToModel(le))] = le
	}
	remoteByKey := make(map[string]ews.CalendarItem, len(remoteItems))
	for _, re := range remoteItems {
		remoteByKey[model.EventKey(ews.EventToModel(re))] = re
	}

	// Remote → local.
	for _, re := range remoteItems {
		rm := ews.EventToModel(re)
		key := model.EventKey(rm)

		le, ok := localByKey[key]
		if !ok {
			ne := localstore.EventFromModel(rm)
			ne.FolderID = folder.ID
			if _, err := e.local.CreateEvent(ctx, ne); err != nil {
				e.log.Error("creating local event", "key", key, "error", err)
				stats.Errors++
				continue
			}
			stats.Created++
			continue
		}
		if model.EventNeedsUpdate(localstore.EventToModel(le), rm) {
			upd := localstore.EventFromModel(rm)
			upd.ID = le.ID
			upd.FolderID = le.FolderID
			if err := e.local.UpdateEvent(ctx, upd); err != nil {
				e.log.Error("updating local event", "key", key, "error", err)
				stats.Errors++
				continue
			}
			stats.Updated++
		}
	}

	// Local → remote. Re-fetch so the pass sees the pull results and never
	// pushes a stale local snapshot back to the server.
	allLocal, err = e.local.ListEvents(ctx, folder.ID)
	if err != nil {
		return stats, fmt.Errorf("listing local events for push: %w", err)
	}
	localItems = localItems[:0]
	for _, le := range allLocal {
		if window.Contains(le.Start) {
			localItems = append(localItems, le)
		}
	}
	for _, le := range localItems {
		lm := localstore.EventToModel(le)
		key := model.EventKey(lm)

		re, ok := remoteByKey[key]
		if !ok {
			if _, err := e.remote.CreateCalendarItem(ctx, ews.FolderCalendar, ews.EventFromModel(lm)); err != nil {
				e.log.Error("creating remote event", "key", key, "error", err)
				stats.Errors++
				continue
			}
			stats.Created++
			continue
		}
		if model.EventPushNeedsUpdate(lm, ews.EventToModel(re)) {
			if err := e.remote.UpdateCalendarItem(ctx, re.ItemID, ews.EventFromModel(lm)); err != nil {
				e.log.Error("updating remote event", "key", key, "error", err)
				stats.Errors++
				continue
			}
			stats.Updated++
		}
	}

	stats.TotalSynced = stats.Created + stats.Updated
	e.log.Info("calendar sync complete",
		"window_start", window.Start, "window_end", window.End,
		"created", stats.Created, "updated", stats.Updated, "errors", stats.Errors)
	return stats, nil
}
