package model

import "time"

// SyncWindow is the half-open [Start, End) date range limiting which remote
// calendar events a pass fetches and compares.
type SyncWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w SyncWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FullSyncWindow returns the window used by a full calendar sync:
// 30 days back to 60 days ahead of now.
func FullSyncWindow(now time.Time) SyncWindow {
	return SyncWindow{
		Start: now.AddDate(0, 0, -30),
		End:   now.AddDate(0, 0, 60),
	}
}

// IncrementalSyncWindow returns the window used by an incremental calendar
// sync: one hour before the last successful sync to 30 days ahead of now.
// The hour of overlap absorbs clock skew between the two sides.
func IncrementalSyncWindow(lastSync, now time.Time) SyncWindow {
	return SyncWindow{
		Start: lastSync.Add(-time.Hour),
		End:   now.AddDate(0, 0, 30),
	}
}
