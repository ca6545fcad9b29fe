package tracking

import (
	"sync"
	"time"
)

// DefaultMaxRecords is the default number of records kept.
const DefaultMaxRecords = 10000

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMaxRecords sets the number of records kept. Older records are
// dropped as new ones arrive.
func WithMaxRecords(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.max = n
		}
	}
}

// Tracker records applied operations and named document snapshots.
type Tracker struct {
	mu sync.RWMutex

	// ring buffer of recent records
	records []Record
	head    int
	count   int
	max     int

	rev RevisionID

	snapshots *SnapshotManager
}

// NewTracker creates a tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		max:       DefaultMaxRecords,
		snapshots: NewSnapshotManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.records = make([]Record, t.max)
	return t
}

// Append assigns r the next revision, stamps it and stores it.
func (t *Tracker) Append(r Record) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rev++
	r.Revision = t.rev
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	idx := (t.head + t.count) % t.max
	if t.count < t.max {
		t.count++
	} else {
		t.head = (t.head + 1) % t.max
	}
	t.records[idx] = r
	return r
}

// Revision returns the revision of the last record.
func (t *Tracker) Revision() RevisionID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rev
}

// Since returns the kept records after rev, oldest first.
func (t *Tracker) Since(rev RevisionID) []Record {
	return t.Between(rev, t.Revision())
}

// Between returns the kept records after from up to and including to.
func (t *Tracker) Between(from, to RevisionID) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Record
	for i := 0; i < t.count; i++ {
		r := t.records[(t.head+i)%t.max]
		if r.Revision > from && r.Revision <= to {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns up to n of the newest records, oldest first.
func (t *Tracker) Latest(n int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n = min(n, t.count)
	out := make([]Record, 0, n)
	for i := t.count - n; i < t.count; i++ {
		out = append(out, t.records[(t.head+i)%t.max])
	}
	return out
}

// Count returns the number of kept records.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Export encodes the records after rev as a JSON array.
func (t *Tracker) Export(rev RevisionID) ([]byte, error) {
	return EncodeLog(t.Since(rev))
}

// Snapshots returns the snapshot manager.
func (t *Tracker) Snapshots() *SnapshotManager {
	return t.snapshots
}

// SinceSnapshot returns the records applied after the named snapshot.
func (t *Tracker) SinceSnapshot(name string) ([]Record, error) {
	snap, err := t.snapshots.GetByName(name)
	if err != nil {
		return nil, err
	}
	return t.Since(snap.Revision), nil
}

// Clear drops all records and snapshots. Revisions keep counting.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.records)
	t.head, t.count = 0, 0
	t.snapshots.Clear()
}
