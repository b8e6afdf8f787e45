package aggregates

import (
	"time"

	types "github.com/yungbote/identity-backend/internal/domain"
	"github.com/yungbote/identity-backend/internal/observability"
)

// Hooks receives one signal per aggregate write. Implementations must be safe
// for concurrent use.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

// Reconciled describes what a committed Identify changed.
type Reconciled struct {
	// Created is the precedence of the new contact, or "" if none was inserted.
	Created types.LinkPrecedence
	Demoted int
}

// ReconcileObserver is implemented by Hooks that also want Identify outcomes.
type ReconcileObserver interface {
	ObserveReconciled(Reconciled)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// metricsHooks forwards aggregate signals to the process metrics set.
type metricsHooks struct{ m *observability.Metrics }

func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(name) }

func (h metricsHooks) ObserveReconciled(r Reconciled) {
	if r.Created != "" {
		h.m.IncContactsCreated(string(r.Created))
	}
	h.m.IncMerges(r.Demoted)
}
