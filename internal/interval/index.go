// Package interval maintains the per-property in-memory index of active
// booking date ranges. It is a rebuildable cache over the persisted booking
// set, never an independent source of truth; its job is to answer overlap
// queries in logarithmic time and to give the booking guard an exclusive
// critical section per property so check-then-insert is atomic.
package interval

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/domain"
	"github.com/homestay-labs/service-availability/internal/domain/booking"
)

// DefaultLockWait bounds how long a caller waits for a property's lock
// before giving up with a retriable timeout error.
const DefaultLockWait = 3 * time.Second

// Entry is one active booking's occupancy of a property.
type Entry struct {
	BookingID uuid.UUID
	Range     booking.DateRange
}

// shard holds one property's entries, sorted by range start. Because active
// entries never overlap, sorting by start also sorts by end, which lets the
// overlap query binary-search and short-circuit.
type shard struct {
	// sem is a capacity-1 semaphore. Unlike sync.Mutex it supports a
	// bounded wait: acquisition races a timer.
	sem     chan struct{}
	entries []Entry

	// stale is set by Rebuild, under sem, when the shard has been
	// replaced. A waiter that acquires the semaphore afterwards must not
	// mutate the shard; it re-fetches the live one instead.
	stale bool
}

func newShard() *shard {
	return &shard{sem: make(chan struct{}, 1)}
}

// Index maps property ids to their active-interval shards. Operations on
// different properties never block one another.
type Index struct {
	mu       sync.RWMutex
	shards   map[uuid.UUID]*shard
	lockWait time.Duration
}

// New creates an empty Index. A non-positive lockWait falls back to
// DefaultLockWait.
func New(lockWait time.Duration) *Index {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Index{
		shards:   make(map[uuid.UUID]*shard),
		lockWait: lockWait,
	}
}

func (ix *Index) shardFor(propertyID uuid.UUID) *shard {
	ix.mu.RLock()
	sh, ok := ix.shards[propertyID]
	ix.mu.RUnlock()
	if ok {
		return sh
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sh, ok = ix.shards[propertyID]; ok {
		return sh
	}
	sh = newShard()
	ix.shards[propertyID] = sh
	return sh
}

func (ix *Index) acquire(sh *shard) error {
	timer := time.NewTimer(ix.lockWait)
	defer timer.Stop()
	select {
	case sh.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.NewTimeoutError(fmt.Sprintf("property lock not acquired within %s", ix.lockWait))
	}
}

func (sh *shard) release() {
	<-sh.sem
}

// Tx is a view over a single locked property shard. It is only valid inside
// the WithProperty callback that produced it.
type Tx struct {
	sh *shard
}

// WithProperty runs fn while holding the property's exclusive lock, so a
// conflict check and the subsequent insert observe and mutate the same
// state. Returns a timeout error if the lock is not acquired within the
// configured wait.
func (ix *Index) WithProperty(propertyID uuid.UUID, fn func(tx *Tx) error) error {
	for {
		sh := ix.shardFor(propertyID)
		if err := ix.acquire(sh); err != nil {
			return err
		}
		if sh.stale {
			// A rebuild swapped the shard out while we waited on its
			// semaphore. Mutating it now would write into a discarded
			// shard, so retry against the live one.
			sh.release()
			continue
		}
		err := func() error {
			defer sh.release()
			return fn(&Tx{sh: sh})
		}()
		return err
	}
}

// QueryOverlap returns the booking ids of all active entries whose range
// intersects [r.Start, r.End). An empty result means the slot is free.
func (tx *Tx) QueryOverlap(r booking.DateRange) []uuid.UUID {
	entries := tx.sh.entries

	// First entry that could still overlap: end strictly after the query
	// start (half-open, so end == start does not count).
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Range.End.After(r.Start)
	})

	var conflicts []uuid.UUID
	for ; i < len(entries); i++ {
		if !entries[i].Range.Start.Before(r.End) {
			break
		}
		conflicts = append(conflicts, entries[i].BookingID)
	}
	return conflicts
}

// Insert adds an entry assumed already verified non-overlapping. The overlap
// re-check is defensive: a hit means the locking discipline was broken
// somewhere and the no-overlap guarantee is no longer trustworthy.
func (tx *Tx) Insert(e Entry) error {
	if conflicts := tx.QueryOverlap(e.Range); len(conflicts) > 0 {
		return domain.NewInvariantViolationError(
			fmt.Sprintf("insert of %s for booking %s overlaps %d active interval(s)",
				e.Range, e.BookingID, len(conflicts)))
	}

	entries := tx.sh.entries
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Range.Start.After(e.Range.Start)
	})
	entries = append(entries, Entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	tx.sh.entries = entries
	return nil
}

// Remove deletes the entry for the given booking id, used on cancellation.
func (tx *Tx) Remove(bookingID uuid.UUID) error {
	entries := tx.sh.entries
	for i := range entries {
		if entries[i].BookingID == bookingID {
			tx.sh.entries = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("interval entry", bookingID.String())
}

// --- Single-operation conveniences; each takes the property lock itself. ---

// QueryOverlap reports the active bookings conflicting with [r.Start, r.End)
// on the property.
func (ix *Index) QueryOverlap(propertyID uuid.UUID, r booking.DateRange) ([]uuid.UUID, error) {
	var conflicts []uuid.UUID
	err := ix.WithProperty(propertyID, func(tx *Tx) error {
		conflicts = tx.QueryOverlap(r)
		return nil
	})
	return conflicts, err
}

// Insert adds a single entry under the property lock.
func (ix *Index) Insert(propertyID uuid.UUID, e Entry) error {
	return ix.WithProperty(propertyID, func(tx *Tx) error {
		return tx.Insert(e)
	})
}

// Remove deletes a single entry under the property lock.
func (ix *Index) Remove(propertyID, bookingID uuid.UUID) error {
	return ix.WithProperty(propertyID, func(tx *Tx) error {
		return tx.Remove(bookingID)
	})
}

// Snapshot returns a copy of the property's entries in start order.
func (ix *Index) Snapshot(propertyID uuid.UUID) ([]Entry, error) {
	var out []Entry
	err := ix.WithProperty(propertyID, func(tx *Tx) error {
		out = append(out, tx.sh.entries...)
		return nil
	})
	return out, err
}

// Rebuild replaces the entire index contents from a persisted set of active
// bookings, e.g. on startup or after reconciliation. Canceled bookings must
// already be filtered out by the caller. Fails with an invariant violation
// if the persisted set itself contains overlapping intervals, or with a
// timeout if a property lock cannot be acquired within the configured wait.
func (ix *Index) Rebuild(entries map[uuid.UUID][]Entry) error {
	shards := make(map[uuid.UUID]*shard, len(entries))
	for propertyID, propEntries := range entries {
		sh := newShard()
		sh.entries = append(sh.entries, propEntries...)
		sort.Slice(sh.entries, func(i, j int) bool {
			return sh.entries[i].Range.Start.Before(sh.entries[j].Range.Start)
		})
		for i := 1; i < len(sh.entries); i++ {
			if sh.entries[i-1].Range.Overlaps(sh.entries[i].Range) {
				return domain.NewInvariantViolationError(
					fmt.Sprintf("persisted bookings %s and %s overlap on property %s",
						sh.entries[i-1].BookingID, sh.entries[i].BookingID, propertyID))
			}
		}
		shards[propertyID] = sh
	}

	// Holding mu for the whole swap keeps shardFor from minting shards
	// the new map would not contain. Each existing shard's semaphore is
	// acquired before the swap so an in-flight critical section finishes
	// against its shard first; waiters that get the semaphore afterwards
	// see the stale flag and retry on the live shard.
	ix.mu.Lock()
	defer ix.mu.Unlock()

	held := make([]*shard, 0, len(ix.shards))
	releaseHeld := func() {
		for _, sh := range held {
			sh.release()
		}
	}
	for _, sh := range ix.shards {
		if err := ix.acquire(sh); err != nil {
			releaseHeld()
			return err
		}
		held = append(held, sh)
	}

	for _, sh := range held {
		sh.stale = true
	}
	ix.shards = shards
	releaseHeld()
	return nil
}
