// Package rollback keeps the LIFO ledger of dispatch snapshots used for undo.
package rollback

// DefaultCapacity is the number of snapshots kept when none is configured.
const DefaultCapacity = 100

// Ledger is an append-only snapshot stack. Once full, new snapshots are
// dropped and the corresponding operations become non-undoable.
type Ledger struct {
	entries  []Snapshot
	capacity int
	dropped  int
}

// NewLedger returns an empty ledger. capacity <= 0 selects DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Record pushes s and reports whether it was kept.
func (l *Ledger) Record(s Snapshot) bool {
	if len(l.entries) >= l.capacity {
		l.dropped++
		return false
	}
	l.entries = append(l.entries, s)
	return true
}

// Peek returns the newest snapshot without removing it.
func (l *Ledger) Peek() (Snapshot, bool) {
	if len(l.entries) == 0 {
		return Snapshot{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Pop removes and returns the newest snapshot.
func (l *Ledger) Pop() (Snapshot, bool) {
	s, ok := l.Peek()
	if ok {
		l.entries = l.entries[:len(l.entries)-1]
	}
	return s, ok
}

// Len returns the number of undoable snapshots.
func (l *Ledger) Len() int { return len(l.entries) }

// Capacity returns the configured maximum size.
func (l *Ledger) Capacity() int { return l.capacity }

// Dropped returns how many snapshots were discarded because the ledger was full.
func (l *Ledger) Dropped() int { return l.dropped }

// CanRollback reports whether at least one snapshot is available.
func (l *Ledger) CanRollback() bool { return len(l.entries) > 0 }

// Entries returns a copy of the snapshots, newest first.
func (l *Ledger) Entries() []Snapshot {
	out := make([]Snapshot, len(l.entries))
	for i, s := range l.entries {
		out[len(l.entries)-1-i] = s
	}
	return out
}

// Clear forgets every snapshot.
func (l *Ledger) Clear() {
	l.entries = nil
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{capacity: l.capacity, dropped: l.dropped}
	c.entries = make([]Snapshot, len(l.entries))
	for i, s := range l.entries {
		if s.History != nil {
			h := *s.History
			s.History = &h
		}
		c.entries[i] = s
	}
	return c
}

// Restore replaces the ledger contents with those of other.
func (l *Ledger) Restore(other *Ledger) {
	c := other.Clone()
	l.entries, l.capacity, l.dropped = c.entries, c.capacity, c.dropped
}
