package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/identity-backend/internal/data/aggregates"
)

// HooksRecorder keeps every aggregate signal for assertions. Read the
// exported fields only after the writes under test have returned.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string

	// ContactsCreated counts inserted contacts by link precedence.
	ContactsCreated map[string]int
	// Merges is the total number of primaries demoted.
	Merges int
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var (
	_ aggregates.Hooks             = (*HooksRecorder)(nil)
	_ aggregates.ReconcileObserver = (*HooksRecorder)(nil)
)

func (h *HooksRecorder) locked(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.locked(func() { h.Operations = append(h.Operations, OperationEvent{name, status, dur}) })
}

func (h *HooksRecorder) IncConflict(name string) {
	h.locked(func() { h.Conflicts = append(h.Conflicts, name) })
}

func (h *HooksRecorder) IncRetry(name string) {
	h.locked(func() { h.Retries = append(h.Retries, name) })
}

func (h *HooksRecorder) ObserveReconciled(r aggregates.Reconciled) {
	h.locked(func() {
		if r.Created != "" {
			if h.ContactsCreated == nil {
				h.ContactsCreated = map[string]int{}
			}
			h.ContactsCreated[string(r.Created)]++
		}
		h.Merges += r.Demoted
	})
}

// Statuses lists operation statuses in the order they were observed.
func (h *HooksRecorder) Statuses() []string {
	var out []string
	h.locked(func() {
		out = make([]string, len(h.Operations))
		for i, op := range h.Operations {
			out[i] = op.Status
		}
	})
	return out
}
