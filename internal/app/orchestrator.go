package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/dkeye/Ring/internal/metrics"
)

// Orchestrator wires presence, call state and rooms behind one entry point
// for the transport adapters. It owns the state transitions; adapters own
// encoding and the actual sends.
type Orchestrator struct {
	Presence *Presence
	Calls    *CallTracker
	Rooms    *RoomTracker
	Policy   Policy
	Metrics  *metrics.Metrics
}

// DisconnectResult tells the adapter who must hear about a connection loss.
type DisconnectResult struct {
	// CallPeer is the surviving counterpart of an in-flight call, nil if the
	// session was idle. It gets a call-ended notice.
	CallPeer core.SignalConnection
	// RoomPeers are remaining occupants of every room the session was in.
	RoomPeers []core.SignalConnection
	// Roster is the post-removal snapshot; broadcast only when the session
	// had registered an identity.
	Roster        core.RosterUpdate
	WasRegistered bool
}

// Connect binds a freshly upgraded transport connection.
func (o *Orchestrator) Connect(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	o.Presence.Bind(sid, conn, cancel)
}

// Register attaches an identity to the session and returns the roster
// broadcast. A session displaced by a duplicate userId gets kicked.
func (o *Orchestrator) Register(sid core.SessionID, id domain.Identity) (core.RosterUpdate, bool) {
	orphaned, ok := o.Presence.Register(sid, id)
	if !ok {
		return core.RosterUpdate{}, false
	}
	if orphaned != "" {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(orphaned)).
			Str("user", string(id.ID)).Msg("duplicate userId, kicking previous session")
		o.Metrics.Inc(metrics.EventOrphaned)
		o.Presence.Cancel(orphaned)
	}
	o.Metrics.Inc(metrics.EventRegister)
	return o.Presence.Snapshot(), true
}

// PlaceCall validates call eligibility and resolves the callee. Busy is
// checked before resolution so an engaged caller hears busy, not not-found;
// Begin re-checks under its own lock, so two simultaneous requests cannot
// double-book a target.
func (o *Orchestrator) PlaceCall(sid core.SessionID, to domain.UserID) (core.CallRoute, error) {
	caller, ok := o.Presence.IdentityOf(sid)
	if !ok {
		return core.CallRoute{}, domain.ErrNotRegistered
	}
	if o.Calls.InCall(caller.ID) || o.Calls.InCall(to) {
		o.Metrics.Inc(metrics.EventCallBusy)
		return core.CallRoute{}, domain.ErrBusy
	}
	target, ok := o.Presence.Resolve(to)
	if !ok {
		log.Info().Str("module", "app.orchestrator").Str("from", string(caller.ID)).
			Str("to", string(to)).Msg("call target not found")
		o.Metrics.Inc(metrics.EventCallNotFound)
		return core.CallRoute{}, domain.ErrNotFound
	}
	if err := o.Calls.Begin(caller.ID, to); err != nil {
		o.Metrics.Inc(metrics.EventCallBusy)
		return core.CallRoute{}, err
	}
	o.Metrics.Inc(metrics.EventCallPlaced)
	return core.CallRoute{Caller: caller, Target: target}, nil
}

// AcceptCall resolves the caller's connection for the acceptance relay.
// Call state stays as PlaceCall left it.
func (o *Orchestrator) AcceptCall(to domain.UserID) (core.SignalConnection, error) {
	target, ok := o.Presence.Resolve(to)
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Metrics.Inc(metrics.EventCallAccepted)
	return target, nil
}

// FinishCall backs both decline and end: it releases the sender and the named
// counterpart from call state and resolves the counterpart for the notice.
// Release happens even when the counterpart is gone.
func (o *Orchestrator) FinishCall(sid core.SessionID, to domain.UserID) (core.SignalConnection, error) {
	if sender, ok := o.Presence.IdentityOf(sid); ok {
		o.Calls.Resolve(sender.ID, to)
	} else {
		o.Calls.Resolve(to, to)
	}
	target, ok := o.Presence.Resolve(to)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return target, nil
}

// JoinRoom enters the two-party room and resolves the already-present peers.
func (o *Orchestrator) JoinRoom(sid core.SessionID, room domain.RoomID) (core.JoinResult, error) {
	isFirst, peers, err := o.Rooms.Join(sid, room)
	if err != nil {
		o.Metrics.Inc(metrics.EventRoomFull)
		return core.JoinResult{}, err
	}
	o.Metrics.Inc(metrics.EventRoomJoin)
	return core.JoinResult{IsFirst: isFirst, Peers: o.connections(peers)}, nil
}

// RoomPeers resolves every other occupant of room for relay fan-out.
func (o *Orchestrator) RoomPeers(sid core.SessionID, room domain.RoomID) []core.SignalConnection {
	return o.connections(o.Rooms.Peers(room, sid))
}

// Disconnect reconciles all state after a connection loss: the session's call
// pair is released (only that pair), its rooms are left, and its presence
// entry is removed.
func (o *Orchestrator) Disconnect(sid core.SessionID) DisconnectResult {
	var res DisconnectResult

	if id, ok := o.Presence.IdentityOf(sid); ok {
		if peer, had := o.Calls.Drop(id.ID); had {
			o.Metrics.Inc(metrics.EventCallEnded)
			if conn, live := o.Presence.Resolve(peer); live {
				res.CallPeer = conn
			}
		}
	}

	for _, left := range o.Rooms.Leave(sid) {
		res.RoomPeers = append(res.RoomPeers, o.connections(left.Remaining)...)
	}

	_, res.WasRegistered = o.Presence.Unbind(sid)
	if res.WasRegistered {
		res.Roster = o.Presence.Snapshot()
	}
	o.Metrics.Inc(metrics.EventDisconnect)
	return res
}

// ReportBackpressure lets adapters escalate a full send buffer.
func (o *Orchestrator) ReportBackpressure(sid core.SessionID) {
	o.Metrics.Inc(metrics.EventSendDropped)
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(sid) {
	case KickMember:
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("kicking slow consumer")
		o.Presence.Cancel(sid)
	case DropFrame, NoAction:
	}
}

func (o *Orchestrator) connections(sids []core.SessionID) []core.SignalConnection {
	out := make([]core.SignalConnection, 0, len(sids))
	for _, sid := range sids {
		if conn, ok := o.Presence.Connection(sid); ok {
			out = append(out, conn)
		}
	}
	return out
}
