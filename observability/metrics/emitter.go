package metrics

import "totemchain/core/events"

// Emitter forwards engine events into the Prometheus registry. It wraps
// another emitter so metrics collection composes with journaling.
type Emitter struct {
	next    events.Emitter
	metrics *TotemMetrics
}

func NewEmitter(next events.Emitter) *Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Emitter{next: next, metrics: Totem()}
}

func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	e.metrics.ObserveEvent(evt.EventType())
	e.next.Emit(evt)
}
