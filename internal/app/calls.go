package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/domain"
)

// CallTracker owns which identities are engaged in an unresolved call.
// Calls are tracked as explicit pairs, not a flat busy set, so tearing one
// call down never touches an unrelated session. An identity is busy iff it
// has a peer entry; at most one call per identity system-wide.
type CallTracker struct {
	mu    sync.Mutex
	peers map[domain.UserID]domain.UserID
}

func NewCallTracker() *CallTracker {
	return &CallTracker{peers: make(map[domain.UserID]domain.UserID)}
}

// Begin marks both parties busy. The busy-check and the insert happen under
// one lock: two near-simultaneous calls to the same target cannot both win.
func (t *CallTracker) Begin(from, to domain.UserID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.peers[from]; busy {
		return domain.ErrBusy
	}
	if _, busy := t.peers[to]; busy {
		return domain.ErrBusy
	}
	t.peers[from] = to
	t.peers[to] = from
	log.Info().Str("module", "app.calls").Str("from", string(from)).Str("to", string(to)).Msg("call started")
	return nil
}

// InCall reports whether uid currently participates in an unresolved call.
func (t *CallTracker) InCall(uid domain.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.peers[uid]
	return busy
}

// Resolve releases a and b and whoever each was actually paired with.
// Decline and end both land here; releasing an already idle identity is a
// no-op.
func (t *CallTracker) Resolve(a, b domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unpair(a)
	t.unpair(b)
}

// Drop releases uid on connection loss and returns the surviving peer, so
// the caller can tell it the call ended. Only the one pair is cleared.
func (t *CallTracker) Drop(uid domain.UserID) (domain.UserID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	peer, busy := t.peers[uid]
	if !busy {
		return "", false
	}
	t.unpair(uid)
	if peer == uid {
		return "", false
	}
	return peer, true
}

// Active returns the number of identities currently in a call.
func (t *CallTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// unpair is called with t.mu held.
func (t *CallTracker) unpair(uid domain.UserID) {
	peer, busy := t.peers[uid]
	if !busy {
		return
	}
	delete(t.peers, uid)
	delete(t.peers, peer)
	log.Info().Str("module", "app.calls").Str("user", string(uid)).Str("peer", string(peer)).Msg("call resolved")
}
