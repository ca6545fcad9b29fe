package tracking

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// ErrSnapshotNotFound is returned for unknown snapshot names.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a named copy of a document taken at a revision.
type Snapshot struct {
	Name      string
	Revision  RevisionID
	Timestamp time.Time

	doc *tree.Tree
}

// Document returns a copy of the document as it was.
func (s *Snapshot) Document() *tree.Tree {
	return s.doc.Snapshot()
}

// Markup returns the document markup as it was.
func (s *Snapshot) Markup() string {
	return s.doc.String(s.doc.Root())
}

// Age returns how long ago the snapshot was taken.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.Timestamp)
}

// SnapshotManager keeps named snapshots.
type SnapshotManager struct {
	mu     sync.RWMutex
	byName map[string]*Snapshot
}

// NewSnapshotManager creates an empty manager.
func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{byName: make(map[string]*Snapshot)}
}

// Create copies doc under name, replacing any snapshot of that name.
func (sm *SnapshotManager) Create(name string, doc *tree.Tree, rev RevisionID) *Snapshot {
	snap := &Snapshot{
		Name:      name,
		Revision:  rev,
		Timestamp: time.Now(),
		doc:       doc.Snapshot(),
	}
	sm.mu.Lock()
	sm.byName[name] = snap
	sm.mu.Unlock()
	return snap
}

// GetByName returns the named snapshot.
func (sm *SnapshotManager) GetByName(name string) (*Snapshot, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	snap, ok := sm.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	return snap, nil
}

// Delete removes the named snapshot.
func (sm *SnapshotManager) Delete(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.byName, name)
}

// List returns all snapshots, oldest first.
func (sm *SnapshotManager) List() []*Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]*Snapshot, 0, len(sm.byName))
	for _, s := range sm.byName {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Snapshot) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return int(a.Revision) - int(b.Revision)
	})
	return out
}

// Count returns the number of snapshots.
func (sm *SnapshotManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.byName)
}

// Prune removes snapshots older than maxAge and returns how many it
// removed.
func (sm *SnapshotManager) Prune(maxAge time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	n := 0
	for name, s := range sm.byName {
		if s.Timestamp.Before(cutoff) {
			delete(sm.byName, name)
			n++
		}
	}
	return n
}

// Clear removes all snapshots.
func (sm *SnapshotManager) Clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	clear(sm.byName)
}
