package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("ledger.apply_transfer", "success", 10*time.Millisecond)
	h.ObserveOperation("ledger.mutate_balance", "insufficient_funds", time.Millisecond)
	h.IncConflict("ledger.apply_transfer")
	h.IncRetry("ledger.apply_transfer")

	if got := h.Statuses("ledger.apply_transfer"); len(got) != 1 || got[0] != "success" {
		t.Fatalf("unexpected statuses: %+v", got)
	}
	if len(h.Operations()) != 2 {
		t.Fatalf("expected 2 op events, got %d", len(h.Operations()))
	}
	if h.Conflicts() != 1 || h.Retries() != 1 {
		t.Fatalf("unexpected conflicts=%d retries=%d", h.Conflicts(), h.Retries())
	}
}

func TestHooksRecorder_ConcurrentUse(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.IncRetry("op")
		}()
	}
	wg.Wait()
	if h.Retries() != 50 {
		t.Fatalf("expected 50 retries, got %d", h.Retries())
	}
}
