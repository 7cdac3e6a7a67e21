package events

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"lukechampine.com/blake3"
)

// JournalEntry is one appended audit record together with its position in the
// chain and the hash linking it to its predecessor.
type JournalEntry struct {
	Sequence uint64
	Type     string
	Attrs    map[string]string
	Hash     [32]byte
	PrevHash [32]byte
}

// Journal is an append-only audit log. Every entry is hashed together with
// the hash of the previous entry, so any replica replaying the same operation
// stream can verify it observed the same sequence of state changes.
type Journal struct {
	mu      sync.RWMutex
	entries []JournalEntry
	head    [32]byte
}

// NewJournal constructs an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Emit implements the Emitter interface by appending the event to the chain.
// Non-record events are appended with an empty attribute set.
func (j *Journal) Emit(evt Event) {
	if j == nil || evt == nil {
		return
	}
	var attrs map[string]string
	if rec, ok := evt.(*Record); ok && rec != nil {
		attrs = rec.Attributes
	}
	j.Append(evt.EventType(), attrs)
}

// Append adds a record to the journal and returns its sequence number.
func (j *Journal) Append(eventType string, attrs map[string]string) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := JournalEntry{
		Sequence: uint64(len(j.entries)),
		Type:     eventType,
		PrevHash: j.head,
	}
	if len(attrs) > 0 {
		entry.Attrs = make(map[string]string, len(attrs))
		for k, v := range attrs {
			entry.Attrs[k] = v
		}
	}
	entry.Hash = hashEntry(entry)
	j.entries = append(j.entries, entry)
	j.head = entry.Hash
	return entry.Sequence
}

// Head returns the hash of the most recent entry, or the zero hash when the
// journal is empty.
func (j *Journal) Head() [32]byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.head
}

// Len reports the number of appended entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Entries returns a copy of the appended entries in order.
func (j *Journal) Entries() []JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]JournalEntry, len(j.entries))
	copy(out, j.entries)
	for i := range out {
		if out[i].Attrs == nil {
			continue
		}
		attrs := make(map[string]string, len(out[i].Attrs))
		for k, v := range out[i].Attrs {
			attrs[k] = v
		}
		out[i].Attrs = attrs
	}
	return out
}

// Verify walks the chain and reports the first entry whose hash does not
// match its recomputed value, or -1 when the chain is intact.
func (j *Journal) Verify() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var prev [32]byte
	for i, entry := range j.entries {
		check := entry
		check.PrevHash = prev
		if hashEntry(check) != entry.Hash || entry.PrevHash != prev {
			return i
		}
		prev = entry.Hash
	}
	return -1
}

// hashEntry derives the chained hash over a canonical rendering of the entry.
// Attributes are folded in sorted key order so the hash is independent of map
// iteration order.
func hashEntry(entry JournalEntry) [32]byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%s\n", entry.Sequence, entry.Type)
	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, entry.Attrs[k])
	}
	h := blake3.New(32, nil)
	h.Write(entry.PrevHash[:])
	h.Write([]byte(b.String()))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
