package core

import "github.com/dkeye/Ring/internal/domain"

// Frame is a raw encoded signaling message.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PresenceDTO is a read-only roster view for clients (no transport fields).
type PresenceDTO struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

// RosterTarget pairs a live registered connection with its session, so the
// adapter can report backpressure against a concrete session.
type RosterTarget struct {
	SID  SessionID
	Conn SignalConnection
}

// RosterUpdate carries one consistent roster snapshot plus the connections it
// must be fanned out to.
type RosterUpdate struct {
	Users   []PresenceDTO
	Targets []RosterTarget
}

// CallRoute is the resolved destination of a call-lifecycle relay.
type CallRoute struct {
	Caller domain.Identity
	Target SignalConnection
}

// JoinResult reports the outcome of entering a two-party room.
type JoinResult struct {
	IsFirst bool
	// Peers are the connections already in the room, to be told peer-connected.
	Peers []SignalConnection
}
