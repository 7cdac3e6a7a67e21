package events

// Staged buffers events emitted during one sequenced operation and forwards
// them downstream only once the operation has committed. A failed operation
// discards its buffer, so subscribers like the audit journal never observe a
// record for state changes that were rolled back.
type Staged struct {
	next    Emitter
	pending []Event
}

// NewStaged wraps the downstream emitter. A nil downstream discards flushed
// events.
func NewStaged(next Emitter) *Staged {
	if next == nil {
		next = NoopEmitter{}
	}
	return &Staged{next: next}
}

// Emit implements the Emitter interface by buffering the event.
func (s *Staged) Emit(evt Event) {
	if s == nil || evt == nil {
		return
	}
	s.pending = append(s.pending, evt)
}

// Pending reports the number of buffered events.
func (s *Staged) Pending() int {
	if s == nil {
		return 0
	}
	return len(s.pending)
}

// Flush forwards the buffered events downstream in emission order and clears
// the buffer.
func (s *Staged) Flush() {
	if s == nil {
		return
	}
	for _, evt := range s.pending {
		s.next.Emit(evt)
	}
	s.pending = nil
}

// Discard drops the buffered events without forwarding them.
func (s *Staged) Discard() {
	if s == nil {
		return
	}
	s.pending = nil
}
