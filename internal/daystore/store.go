// Package daystore holds the in-memory snapshot of Days shown by the view.
//
// Every mutation publishes a new top-level slice; a published slice and the Days
// it points to are never modified afterwards, so readers can keep a Snapshot
// for as long as they like without locking.
package daystore

import (
	"errors"
	"fmt"
	"sync"

	"newsdays/internal/model"
)

var (
	// ErrNotFound is returned when a targeted merge names a Day that is not in the snapshot.
	ErrNotFound = errors.New("day not found in snapshot")
	// ErrStale is returned when a patch was issued against an epoch that has since been replaced.
	ErrStale = errors.New("snapshot replaced since request was issued")
	// ErrDuplicateDate is returned by ReplaceAll when two Days share a date.
	ErrDuplicateDate = errors.New("duplicate date in snapshot")
)

// Snapshot is a read-only view of the store at one point in time.
type Snapshot struct {
	Days []*model.Day
	// Epoch increments on every ReplaceAll. Targeted merges keep it.
	Epoch uint64
}

// Len reports the number of Days.
func (s Snapshot) Len() int { return len(s.Days) }

// Find returns the Day with the given id.
func (s Snapshot) Find(id model.ID) (*model.Day, bool) {
	if i := indexOf(s.Days, id); i >= 0 {
		return s.Days[i], true
	}
	return nil, false
}

// Store is safe for concurrent use. Writers are serialized; readers never block on
// anything but the pointer swap.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func New() *Store {
	return &Store{}
}

// Snapshot returns the current view. It is O(1) and the result is never mutated.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Epoch returns the current replacement epoch.
func (s *Store) Epoch() uint64 {
	return s.Snapshot().Epoch
}

// ReplaceAll swaps in a whole new snapshot. The input slice is copied; the Days are
// adopted as-is and must not be modified by the caller afterwards.
// On ErrDuplicateDate the current snapshot is left untouched.
func (s *Store) ReplaceAll(days []*model.Day) (Snapshot, error) {
	next := make([]*model.Day, 0, len(days))
	seen := make(map[string]model.ID, len(days))
	for _, d := range days {
		if d == nil {
			continue
		}
		key := d.Date.String()
		if other, ok := seen[key]; ok {
			return s.Snapshot(), fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateDate, key, other, d.ID)
		}
		seen[key] = d.ID
		next = append(next, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Days: next, Epoch: s.snap.Epoch + 1}
	return s.snap, nil
}

// PatchDaySummary replaces only the summary of one Day. Unrelated Days keep their
// identity and the patched Day keeps its newsletter slice.
func (s *Store) PatchDaySummary(id model.ID, summary model.Summary) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchLocked(id, summary)
}

// PatchDaySummaryAt is PatchDaySummary guarded by the epoch the caller observed when
// it issued its request. A ReplaceAll in between makes the patch ErrStale.
func (s *Store) PatchDaySummaryAt(epoch uint64, id model.ID, summary model.Summary) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.snap.Epoch {
		return s.snap, fmt.Errorf("%w: day %s issued at epoch %d, now %d", ErrStale, id, epoch, s.snap.Epoch)
	}
	return s.patchLocked(id, summary)
}

func (s *Store) patchLocked(id model.ID, summary model.Summary) (Snapshot, error) {
	i := indexOf(s.snap.Days, id)
	if i < 0 {
		return s.snap, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := make([]*model.Day, len(s.snap.Days))
	copy(next, s.snap.Days)
	next[i] = s.snap.Days[i].WithSummary(summary)
	s.snap = Snapshot{Days: next, Epoch: s.snap.Epoch}
	return s.snap, nil
}

// ReplaceDay swaps one Day (matched by id) for a freshly fetched copy, newsletters
// included. It does not start a new epoch.
func (s *Store) ReplaceDay(day *model.Day) (Snapshot, error) {
	if day == nil {
		return s.Snapshot(), fmt.Errorf("replace day: nil day")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.snap.Days, day.ID)
	if i < 0 {
		return s.snap, fmt.Errorf("%w: %s", ErrNotFound, day.ID)
	}
	for j, d := range s.snap.Days {
		if j != i && d.Date.String() == day.Date.String() {
			return s.snap, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateDate, day.Date, d.ID, day.ID)
		}
	}
	next := make([]*model.Day, len(s.snap.Days))
	copy(next, s.snap.Days)
	next[i] = day
	s.snap = Snapshot{Days: next, Epoch: s.snap.Epoch}
	return s.snap, nil
}

func indexOf(days []*model.Day, id model.ID) int {
	for i, d := range days {
		if d.ID == id {
			return i
		}
	}
	return -1
}
