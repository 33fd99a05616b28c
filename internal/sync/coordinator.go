package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/ewsync/internal/model"
	"github.com/njoerd114/ewsync/internal/state"
)

const (
	otelScope     = "ewsync/sync"
	spanAccount   = "sync.account"
	metricCreated = "ewsync.sync.items.created"
	metricUpdated = "ewsync.sync.items.updated"
	metricDeleted = "ewsync.sync.items.deleted"
	metricErrors  = "ewsync.sync.errors"
)

// AccountResult aggregates one coordinator-triggered sync of all enabled
// entity types for a single account. Err carries the first engine-level
// error; per-item errors only show up in the statistics.
type AccountResult struct {
	AccountID string
	RunID     string
	Results   map[model.EntityType]Result
	Err       error
}

// registration is the coordinator's per-account record: the account, its
// engines, and the cancel func of its running timer loop (nil when stopped).
// No state about an account lives outside its registration.
type registration struct {
	account model.Account
	engines []Engine
	cancel  context.CancelFunc
}

// Coordinator drives the entity engines per account. A trigger (manual or
// the account's recurring timer) runs all enabled engines concurrently,
// awaits them all, and persists a run record per entity. One entity type's
// failure never cancels its siblings.
type Coordinator struct {
	store RunStore
	log   *slog.Logger

	mu       sync.Mutex
	accounts map[string]*registration
	wg       sync.WaitGroup

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer     trace.Tracer
	cntCreated metric.Int64Counter
	cntUpdated metric.Int64Counter
	cntDeleted metric.Int64Counter
	cntErrors  metric.Int64Counter
}

// NewCoordinator creates a Coordinator persisting run records to store.
func NewCoordinator(store RunStore, logger *slog.Logger) *Coordinator {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Coordinator{
		store:    store,
		log:      logger,
		accounts: make(map[string]*registration),

		tracer:     tracer,
		cntCreated: mustCounter(metricCreated, "Number of items created during sync"),
		cntUpdated: mustCounter(metricUpdated, "Number of items updated during sync"),
		cntDeleted: mustCounter(metricDeleted, "Number of items deleted during sync"),
		cntErrors:  mustCounter(metricErrors, "Number of errors encountered during sync"),
	}
}

// Register adds an account and its engines. Engines for disabled entity
// types may be passed; they are filtered at trigger time, so toggles can
// change without re-registering.
func (c *Coordinator) Register(account model.Account, engines ...Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account.ID] = &registration{account: account, engines: engines}
}

// Remove stops the account's timer, if running, and drops its registration.
// In-flight per-item work is abandoned at its next context check.
func (c *Coordinator) Remove(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reg, ok := c.accounts[accountID]; ok && reg.cancel != nil {
		reg.cancel()
	}
	delete(c.accounts, accountID)
}

// SyncAccount runs all enabled engines for the account concurrently and
// awaits them all. With incremental set, each engine gets its last
// successful sync time and may narrow or skip its work.
func (c *Coordinator) SyncAccount(ctx context.Context, accountID string, incremental bool) (AccountResult, error) {
	c.mu.Lock()
	reg, ok := c.accounts[accountID]
	c.mu.Unlock()
	if !ok {
		return AccountResult{AccountID: accountID}, errUnknownAccount(accountID)
	}

	res := AccountResult{
		AccountID: accountID,
		RunID:     uuid.NewString(),
		Results:   make(map[model.EntityType]Result),
	}

	ctx, span := c.tracer.Start(ctx, spanAccount, trace.WithAttributes(
		attribute.String("sync.account_id", accountID),
		attribute.String("sync.run_id", res.RunID),
		attribute.Bool("sync.incremental", incremental),
	))
	defer span.End()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, eng := range reg.engines {
		if !reg.account.Settings.Enabled(eng.Entity()) {
			continue
		}
		wg.Add(1)
		go func(eng Engine) {
			defer wg.Done()
			r, err := c.syncEntity(ctx, reg.account, eng, incremental, res.RunID)
			mu.Lock()
			defer mu.Unlock()
			res.Results[eng.Entity()] = r
			if err != nil && res.Err == nil {
				res.Err = err
			}
		}(eng)
	}
	wg.Wait()

	if res.Err != nil {
		span.RecordError(res.Err)
	}
	return res, res.Err
}

// syncEntity runs one engine, records the run, and bumps the counters. A
// skipped run (single-flight rejection) is not recorded.
func (c *Coordinator) syncEntity(ctx context.Context, account model.Account, eng Engine, incremental bool, runID string) (Result, error) {
	entity := string(eng.Entity())
	started := time.Now().UTC()

	var lastSync time.Time
	if incremental {
		t, err := c.store.LastSyncTime(ctx, account.ID, entity)
		if err != nil {
			c.log.Warn("reading last sync time, falling back to full sync",
				"account", account.ID, "entity", entity, "error", err)
		} else {
			lastSync = t
		}
	}

	var res Result
	var err error
	if incremental {
		res, err = eng.IncrementalSync(ctx, lastSync)
	} else {
		res, err = eng.Sync(ctx)
	}
	if res.Skipped {
		c.log.Info("sync skipped, already in progress",
			"account", account.ID, "entity", entity, "run_id", runID)
		return res, err
	}

	run := &state.Run{
		AccountID:  account.ID,
		Entity:     entity,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Created:    res.Stats.Created,
		Updated:    res.Stats.Updated,
		Deleted:    res.Stats.Deleted,
		Errors:     res.Stats.Errors,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if rerr := c.store.RecordRun(ctx, run); rerr != nil {
		c.log.Error("recording sync run",
			"account", account.ID, "entity", entity, "error", rerr)
	}

	attrs := metric.WithAttributes(
		attribute.String("account_id", account.ID),
		attribute.String("entity", entity),
	)
	if res.Stats.Created > 0 {
		c.cntCreated.Add(ctx, int64(res.Stats.Created), attrs)
	}
	if res.Stats.Updated > 0 {
		c.cntUpdated.Add(ctx, int64(res.Stats.Updated), attrs)
	}
	if res.Stats.Deleted > 0 {
		c.cntDeleted.Add(ctx, int64(res.Stats.Deleted), attrs)
	}
	if res.Stats.Errors > 0 {
		c.cntErrors.Add(ctx, int64(res.Stats.Errors), attrs)
	}
	return res, err
}

// Start launches the account's recurring sync timer: an immediate full pass,
// then an incremental pass every sync interval. It is a no-op if the timer
// is already running.
func (c *Coordinator) Start(ctx context.Context, accountID string) error {
	c.mu.Lock()
	reg, ok := c.accounts[accountID]
	if !ok {
		c.mu.Unlock()
		return errUnknownAccount(accountID)
	}
	if reg.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	reg.cancel = cancel
	interval := reg.account.Settings.Interval
	c.wg.Add(1)
	c.mu.Unlock()

	go c.loop(loopCtx, accountID, interval)
	return nil
}

// Reschedule changes the account's sync interval by cancelling its timer and
// starting a fresh one. Other accounts' timers are untouched.
func (c *Coordinator) Reschedule(ctx context.Context, accountID string, interval time.Duration) error {
	c.mu.Lock()
	reg, ok := c.accounts[accountID]
	if !ok {
		c.mu.Unlock()
		return errUnknownAccount(accountID)
	}
	if reg.cancel != nil {
		reg.cancel()
		reg.cancel = nil
	}
	reg.account.Settings.Interval = interval
	c.mu.Unlock()

	return c.Start(ctx, accountID)
}

// StopAll cancels every account timer and waits for the loops to exit.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	for _, reg := range c.accounts {
		if reg.cancel != nil {
			reg.cancel()
			reg.cancel = nil
		}
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) loop(ctx context.Context, accountID string, interval time.Duration) {
	defer c.wg.Done()

	if _, err := c.SyncAccount(ctx, accountID, false); err != nil {
		c.log.Error("initial sync failed", "account", accountID, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("sync timer stopped", "account", accountID)
			return
		case <-ticker.C:
			if _, err := c.SyncAccount(ctx, accountID, true); err != nil {
				c.log.Error("scheduled sync failed", "account", accountID, "error", err)
			}
		}
	}
}

type errUnknownAccount string

func (e errUnknownAccount) Error() string {
	return "unknown account " + string(e)
}
