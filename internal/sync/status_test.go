package sync

import (
	"errors"
	"testing"
	"time"
)

func TestStatus_SingleFlight(t *testing.T) {
	var s status
	if !s.tryStart() {
		t.Fatal("first tryStart rejected")
	}
	if s.tryStart() {
		t.Error("second tryStart accepted while running")
	}

	s.finish(Stats{}, time.Second, nil)
	if !s.tryStart() {
		t.Error("tryStart rejected after finish")
	}
}

func TestStatus_FinishOnSuccessStampsSyncTime(t *testing.T) {
	var s status
	s.tryStart()
	s.finish(Stats{Created: 2}, time.Second, nil)

	snap := s.snapshot()
	if snap.Running {
		t.Error("still running after finish")
	}
	if snap.LastSyncAt.IsZero() {
		t.Error("LastSyncAt not stamped on success")
	}
	if snap.LastError != "" {
		t.Errorf("LastError = %q, want empty", snap.LastError)
	}
}

func TestStatus_FailedRunDoesNotAdvanceSyncTime(t *testing.T) {
	var s status
	s.tryStart()
	s.finish(Stats{Errors: 1}, time.Second, errors.New("folder resolution failed"))

	snap := s.snapshot()
	if !snap.LastSyncAt.IsZero() {
		t.Errorf("LastSyncAt = %v, want zero after failure", snap.LastSyncAt)
	}
	if snap.LastError != "folder resolution failed" {
		t.Errorf("LastError = %q", snap.LastError)
	}

	// A later success clears the error and stamps the time.
	s.tryStart()
	s.finish(Stats{}, time.Second, nil)
	snap = s.snapshot()
	if snap.LastError != "" {
		t.Errorf("LastError = %q after success, want empty", snap.LastError)
	}
	if snap.LastSyncAt.IsZero() {
		t.Error("LastSyncAt still zero after success")
	}
}

func TestStatus_TotalsAccumulate(t *testing.T) {
	var s status
	for range 3 {
		s.tryStart()
		s.finish(Stats{TotalSynced: 2, Created: 1, Updated: 1}, time.Second, nil)
	}

	snap := s.snapshot()
	if snap.Totals.Created != 3 || snap.Totals.Updated != 3 || snap.Totals.TotalSynced != 6 {
		t.Errorf("totals = %+v, want created=3 updated=3 total=6", snap.Totals)
	}
}
