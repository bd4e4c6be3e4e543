package interval

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestay-labs/service-availability/internal/domain"
	"github.com/homestay-labs/service-availability/internal/domain/booking"
)

func dr(t *testing.T, start, end string) booking.DateRange {
	t.Helper()
	s, err := time.Parse(time.DateOnly, start)
	require.NoError(t, err)
	e, err := time.Parse(time.DateOnly, end)
	require.NoError(t, err)
	r, err := booking.NewDateRange(s, e)
	require.NoError(t, err)
	return r
}

func TestIndex_InsertAndQuery(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()
	id1, id2 := uuid.New(), uuid.New()

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: id1, Range: dr(t, "2024-03-01", "2024-03-05")}))
	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: id2, Range: dr(t, "2024-03-10", "2024-03-12")}))

	conflicts, err := ix.QueryOverlap(propertyID, dr(t, "2024-03-04", "2024-03-06"))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id1}, conflicts)

	conflicts, err = ix.QueryOverlap(propertyID, dr(t, "2024-03-06", "2024-03-09"))
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Spans both existing intervals.
	conflicts, err = ix.QueryOverlap(propertyID, dr(t, "2024-03-02", "2024-03-11"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{id1, id2}, conflicts)
}

func TestIndex_AdjacentRangesDoNotConflict(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")}))

	// Checkout day equals the next check-in day: free under half-open semantics.
	conflicts, err := ix.QueryOverlap(propertyID, dr(t, "2024-03-05", "2024-03-10"))
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-05", "2024-03-10")}))
}

func TestIndex_InsertOverlapIsInvariantViolation(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")}))

	err := ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-04", "2024-03-06")})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvariantViolation))
}

func TestIndex_RemoveFreesSlot(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()
	id := uuid.New()
	r := dr(t, "2024-03-01", "2024-03-05")

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: id, Range: r}))
	require.NoError(t, ix.Remove(propertyID, id))

	conflicts, err := ix.QueryOverlap(propertyID, r)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	err = ix.Remove(propertyID, id)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestIndex_PropertiesAreIsolated(t *testing.T) {
	ix := New(0)
	propA, propB := uuid.New(), uuid.New()
	r := dr(t, "2024-03-01", "2024-03-05")

	require.NoError(t, ix.Insert(propA, Entry{BookingID: uuid.New(), Range: r}))

	conflicts, err := ix.QueryOverlap(propB, r)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestIndex_LockTimeout(t *testing.T) {
	ix := New(20 * time.Millisecond)
	propertyID := uuid.New()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = ix.WithProperty(propertyID, func(tx *Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeTimeout))
	close(release)

	// A different property is not blocked.
	require.NoError(t, ix.Insert(uuid.New(), Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")}))
}

func TestIndex_RebuildRoundTrip(t *testing.T) {
	propertyID := uuid.New()
	entries := []Entry{
		{BookingID: uuid.New(), Range: dr(t, "2024-03-10", "2024-03-12")},
		{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")},
		{BookingID: uuid.New(), Range: dr(t, "2024-03-20", "2024-03-25")},
	}

	ix := New(0)
	require.NoError(t, ix.Rebuild(map[uuid.UUID][]Entry{propertyID: entries}))

	// The rebuilt index answers overlap queries identically to scanning
	// the persisted set directly.
	queries := []booking.DateRange{
		dr(t, "2024-03-04", "2024-03-06"),
		dr(t, "2024-03-05", "2024-03-10"),
		dr(t, "2024-03-11", "2024-03-21"),
		dr(t, "2024-02-01", "2024-04-01"),
		dr(t, "2024-03-13", "2024-03-19"),
	}
	for _, q := range queries {
		var want []uuid.UUID
		for _, e := range entries {
			if e.Range.Overlaps(q) {
				want = append(want, e.BookingID)
			}
		}
		got, err := ix.QueryOverlap(propertyID, q)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, got, "query %s", q)
	}
}

func TestIndex_RebuildWaitsForInFlightSection(t *testing.T) {
	ix := New(time.Second)
	propertyID := uuid.New()
	persisted := Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")}

	entered := make(chan struct{})
	release := make(chan struct{})
	sectionDone := make(chan struct{})
	go func() {
		_ = ix.WithProperty(propertyID, func(tx *Tx) error {
			close(entered)
			<-release
			return tx.Insert(Entry{BookingID: uuid.New(), Range: dr(t, "2024-03-10", "2024-03-12")})
		})
		close(sectionDone)
	}()
	<-entered

	rebuildDone := make(chan error, 1)
	go func() {
		rebuildDone <- ix.Rebuild(map[uuid.UUID][]Entry{propertyID: {persisted}})
	}()

	// Swapping mid-section would let the insert land in a discarded shard.
	select {
	case err := <-rebuildDone:
		t.Fatalf("rebuild finished during a critical section: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-sectionDone
	require.NoError(t, <-rebuildDone)

	// The persisted set is authoritative after the swap, and the rebuilt
	// shard still guards its ranges.
	snap, err := ix.Snapshot(propertyID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, persisted.BookingID, snap[0].BookingID)

	conflicts, err := ix.QueryOverlap(propertyID, dr(t, "2024-03-04", "2024-03-06"))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{persisted.BookingID}, conflicts)
}

func TestIndex_MutationsAfterRebuildLandInLiveShards(t *testing.T) {
	ix := New(time.Second)
	propertyID := uuid.New()
	r := dr(t, "2024-03-01", "2024-03-05")

	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: uuid.New(), Range: r}))
	require.NoError(t, ix.Rebuild(nil))

	// Post-rebuild operations go against the rebuilt (empty) state...
	id := uuid.New()
	require.NoError(t, ix.Insert(propertyID, Entry{BookingID: id, Range: r}))

	// ...and are visible to every later query and remove.
	conflicts, err := ix.QueryOverlap(propertyID, r)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, conflicts)
	require.NoError(t, ix.Remove(propertyID, id))
}

func TestIndex_RebuildRejectsOverlappingPersistedSet(t *testing.T) {
	propertyID := uuid.New()
	entries := []Entry{
		{BookingID: uuid.New(), Range: dr(t, "2024-03-01", "2024-03-05")},
		{BookingID: uuid.New(), Range: dr(t, "2024-03-04", "2024-03-06")},
	}

	ix := New(0)
	err := ix.Rebuild(map[uuid.UUID][]Entry{propertyID: entries})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvariantViolation))
}

func TestIndex_ConcurrentCheckThenInsert(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()
	slot := dr(t, "2024-03-01", "2024-03-05")

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ix.WithProperty(propertyID, func(tx *Tx) error {
				if hits := tx.QueryOverlap(slot); len(hits) > 0 {
					return domain.NewSlotUnavailableError(hits)
				}
				return tx.Insert(Entry{BookingID: uuid.New(), Range: slot})
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.IsCode(err, domain.CodeSlotUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one request must win the slot")
	assert.Equal(t, n-1, conflicts)

	snap, err := ix.Snapshot(propertyID)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestIndex_NoOverlapInvariantAcrossMixedWorkload(t *testing.T) {
	ix := New(0)
	propertyID := uuid.New()

	// Alternating inserts and removes across several goroutines; whatever
	// interleaving happens, the surviving entries must be pairwise
	// non-overlapping.
	var wg sync.WaitGroup
	starts := []string{"2024-03-01", "2024-03-03", "2024-03-05", "2024-03-07", "2024-03-09"}
	ends := []string{"2024-03-04", "2024-03-06", "2024-03-08", "2024-03-10", "2024-03-12"}
	for i := range starts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = ix.WithProperty(propertyID, func(tx *Tx) error {
				r := dr(t, starts[i], ends[i])
				if hits := tx.QueryOverlap(r); len(hits) > 0 {
					return nil
				}
				return tx.Insert(Entry{BookingID: uuid.New(), Range: r})
			})
		}(i)
	}
	wg.Wait()

	snap, err := ix.Snapshot(propertyID)
	require.NoError(t, err)
	for i := range snap {
		for j := i + 1; j < len(snap); j++ {
			assert.False(t, snap[i].Range.Overlaps(snap[j].Range),
				"%s overlaps %s", snap[i].Range, snap[j].Range)
		}
	}
}
