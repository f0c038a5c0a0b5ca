package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	operations []OperationEvent
	conflicts  []string
	retries    []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.operations = append(h.operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conflicts = append(h.conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retries = append(h.retries, name)
}

func (h *HooksRecorder) Operations() []OperationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]OperationEvent(nil), h.operations...)
}

// Statuses returns the recorded statuses for op, in order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.operations {
		if ev.Name == op {
			out = append(out, ev.Status)
		}
	}
	return out
}

func (h *HooksRecorder) Conflicts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conflicts)
}

func (h *HooksRecorder) Retries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.retries)
}
