package availability

import (
	"sort"
	"sync"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// Entry is one claimed interval, tagged with the reservation that owns it.
type Entry struct {
	RoomID        string
	ReservationID string
	Range         domain.DateRange
}

type interval struct {
	reservationID string
	rng           domain.DateRange
}

// roomSet holds the active intervals of a single room, ordered by start.
// Each room carries its own lock so distinct rooms never contend.
type roomSet struct {
	mu        sync.Mutex
	intervals []interval
}

// Index answers overlap queries and performs atomic check-and-insert of
// intervals per room. It is an in-process structure hydrated from the
// reservation store at startup; the booking service is its only writer.
type Index struct {
	mu    sync.RWMutex
	rooms map[string]*roomSet
}

func NewIndex() *Index {
	return &Index{rooms: make(map[string]*roomSet)}
}

func (ix *Index) room(roomID string) *roomSet {
	ix.mu.RLock()
	set, ok := ix.rooms[roomID]
	ix.mu.RUnlock()
	if ok {
		return set
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if set, ok = ix.rooms[roomID]; ok {
		return set
	}
	set = &roomSet{}
	ix.rooms[roomID] = set
	return set
}

// Hydrate bulk-loads active intervals, replacing any previous contents.
func (ix *Index) Hydrate(entries []Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.rooms = make(map[string]*roomSet)
	for _, e := range entries {
		set, ok := ix.rooms[e.RoomID]
		if !ok {
			set = &roomSet{}
			ix.rooms[e.RoomID] = set
		}
		set.intervals = append(set.intervals, interval{reservationID: e.ReservationID, rng: e.Range})
	}
	for _, set := range ix.rooms {
		sort.Slice(set.intervals, func(i, j int) bool {
			return set.intervals[i].rng.Start.Before(set.intervals[j].rng.Start)
		})
	}
}

// Query reports whether any active interval for the room intersects rng.
func (ix *Index) Query(roomID string, rng domain.DateRange) bool {
	set := ix.room(roomID)
	set.mu.Lock()
	defer set.mu.Unlock()
	return set.conflicts(rng) >= 0
}

// Reserve atomically re-checks for conflicts and inserts the interval.
// The check and the insert run under the room's lock, so two racing
// calls for overlapping ranges cannot both succeed.
func (ix *Index) Reserve(roomID string, rng domain.DateRange, reservationID string) error {
	set := ix.room(roomID)
	set.mu.Lock()
	defer set.mu.Unlock()

	if set.conflicts(rng) >= 0 {
		return domain.ErrRoomUnavailable
	}

	pos := sort.Search(len(set.intervals), func(i int) bool {
		return !set.intervals[i].rng.Start.Before(rng.Start)
	})
	set.intervals = append(set.intervals, interval{})
	copy(set.intervals[pos+1:], set.intervals[pos:])
	set.intervals[pos] = interval{reservationID: reservationID, rng: rng}
	return nil
}

// Release removes the interval owned by the reservation. Releasing an
// unknown or already-released id is a no-op.
func (ix *Index) Release(roomID, reservationID string) {
	set := ix.room(roomID)
	set.mu.Lock()
	defer set.mu.Unlock()

	for i, iv := range set.intervals {
		if iv.reservationID == reservationID {
			set.intervals = append(set.intervals[:i], set.intervals[i+1:]...)
			return
		}
	}
}

// conflicts returns the position of an interval overlapping rng, or -1.
// Intervals are sorted by start, so the scan can stop at the first
// interval starting at or past rng.End.
func (set *roomSet) conflicts(rng domain.DateRange) int {
	for i, iv := range set.intervals {
		if !iv.rng.Start.Before(rng.End) {
			break
		}
		if iv.rng.Overlaps(rng) {
			return i
		}
	}
	return -1
}
