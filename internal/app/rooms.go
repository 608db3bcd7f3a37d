package app

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

// RoomTracker owns two-party session rooms, the alternate pairing mode.
// Occupancy is an ordered list capped at domain.RoomCapacity; a room vanishes
// when its last occupant leaves.
type RoomTracker struct {
	mu    sync.Mutex
	rooms map[domain.RoomID][]core.SessionID
}

// RoomLeave names a room a departing session was in, with whoever stayed.
type RoomLeave struct {
	Room      domain.RoomID
	Remaining []core.SessionID
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{rooms: make(map[domain.RoomID][]core.SessionID)}
}

// Join enters sid into the room. The first occupant learns it is first; a
// second occupant gets the existing peers back for the connected notice; a
// third attempt is rejected with ErrRoomFull and changes nothing.
func (t *RoomTracker) Join(sid core.SessionID, room domain.RoomID) (isFirst bool, peers []core.SessionID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	occupants := t.rooms[room]
	if i := slices.Index(occupants, sid); i >= 0 {
		// Rejoin of a current occupant: answer as before, mutate nothing.
		return i == 0, nil, nil
	}
	if len(occupants) >= domain.RoomCapacity {
		return false, nil, domain.ErrRoomFull
	}

	isFirst = len(occupants) == 0
	peers = slices.Clone(occupants)
	t.rooms[room] = append(occupants, sid)
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).
		Str("room", string(room)).Bool("first", isFirst).Msg("joined room")
	return isFirst, peers, nil
}

// Peers returns the other occupants of room, for relay-minus-sender fan-out.
// No validation that sid actually occupies the room.
func (t *RoomTracker) Peers(room domain.RoomID, except core.SessionID) []core.SessionID {
	t.mu.Lock()
	defer t.mu.Unlock()
	occupants := t.rooms[room]
	out := make([]core.SessionID, 0, len(occupants))
	for _, s := range occupants {
		if s != except {
			out = append(out, s)
		}
	}
	return out
}

// Leave removes sid from every room containing it, deleting rooms that end
// up empty, and reports who remained per room.
func (t *RoomTracker) Leave(sid core.SessionID) []RoomLeave {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []RoomLeave
	for room, occupants := range t.rooms {
		i := slices.Index(occupants, sid)
		if i < 0 {
			continue
		}
		occupants = append(occupants[:i], occupants[i+1:]...)
		if len(occupants) == 0 {
			delete(t.rooms, room)
		} else {
			t.rooms[room] = occupants
		}
		out = append(out, RoomLeave{Room: room, Remaining: slices.Clone(occupants)})
		log.Info().Str("module", "app.rooms").Str("sid", string(sid)).
			Str("room", string(room)).Int("remaining", len(occupants)).Msg("left room")
	}
	return out
}
