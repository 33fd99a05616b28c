package sync

import (
	"sync"
	"time"
)

// Stats tracks the number of mutations performed in a single sync pass pair.
type Stats struct {
	TotalSynced int
	Created     int
	Updated     int
	Deleted     int
	Errors      int
}

func (s *Stats) add(o Stats) {
	s.TotalSynced += o.TotalSynced
	s.Created += o.Created
	s.Updated += o.Updated
	s.Deleted += o.Deleted
	s.Errors += o.Errors
}

// Result is the outcome of one engine sync call. Skipped is true when another
// sync for the same account and entity type was already running; no pass was
// started and Stats is zero.
type Result struct {
	Stats    Stats
	Duration time.Duration
	Skipped  bool
}

// Snapshot is a point-in-time copy of an engine's status.
type Snapshot struct {
	Running      bool
	LastError    string
	LastSyncAt   time.Time
	LastDuration time.Duration
	Totals       Stats
}

// status is the per-(account, entity) state machine: idle or running, with
// the last error, last successful sync time, and cumulative statistics. The
// running flag is an advisory in-process single-flight guard, not a lock —
// concurrent sync calls are rejected, never queued.
type status struct {
	mu           sync.Mutex
	running      bool
	lastError    string
	lastSyncAt   time.Time
	lastDuration time.Duration
	totals       Stats
}

// tryStart transitions idle → running and clears the last error. It reports
// false, without transitioning, if a sync is already running.
func (s *status) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.lastError = ""
	return true
}

// finish transitions running → idle, accumulates stats, and stamps the sync
// time on success only: a failed run must not advance lastSyncAt.
func (s *status) finish(stats Stats, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.totals.add(stats)
	s.lastDuration = d
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.lastSyncAt = time.Now().UTC()
}

func (s *status) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Running:      s.running,
		LastError:    s.lastError,
		LastSyncAt:   s.lastSyncAt,
		LastDuration: s.lastDuration,
		Totals:       s.totals,
	}
}
