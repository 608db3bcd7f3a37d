package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

type presenceEntry struct {
	Conn     core.SignalConnection
	Cancel   context.CancelFunc
	Identity *domain.Identity
}

// Presence owns the live connection<->identity mapping and the derived
// roster. A session is bound when the transport comes up and registered once
// the client presents an identity; only registered sessions appear in the
// roster. The userId index is maintained alongside the session map so
// resolving a callee never scans.
type Presence struct {
	mu        sync.RWMutex
	bySession map[core.SessionID]*presenceEntry
	byUser    map[domain.UserID]core.SessionID
	order     []core.SessionID // registration order
}

func NewPresence() *Presence {
	return &Presence{
		bySession: make(map[core.SessionID]*presenceEntry),
		byUser:    make(map[domain.UserID]core.SessionID),
	}
}

// Bind attaches a freshly upgraded connection before any identity is known.
func (p *Presence) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bySession[sid] = &presenceEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("bound connection")
}

// Register attaches an identity to a bound session. Re-registering replaces
// the prior identity in place. A duplicate userId held by another session
// displaces that session's registration (overwrite-and-orphan); the orphaned
// session is returned so the caller can kick it.
func (p *Presence) Register(sid core.SessionID, id domain.Identity) (orphaned core.SessionID, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, bound := p.bySession[sid]
	if !bound {
		return "", false
	}

	if prev := entry.Identity; prev != nil {
		if owner, held := p.byUser[prev.ID]; held && owner == sid {
			delete(p.byUser, prev.ID)
		}
	} else {
		p.order = append(p.order, sid)
	}

	if other, held := p.byUser[id.ID]; held && other != sid {
		if otherEntry, live := p.bySession[other]; live {
			otherEntry.Identity = nil
		}
		p.dropFromOrder(other)
		orphaned = other
	}

	entry.Identity = &id
	p.byUser[id.ID] = sid
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).
		Str("user", string(id.ID)).Str("name", id.Name).Msg("registered identity")
	return orphaned, true
}

// Resolve translates a logical identity into its addressable connection.
func (p *Presence) Resolve(uid domain.UserID) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sid, ok := p.byUser[uid]
	if !ok {
		return nil, false
	}
	entry, ok := p.bySession[sid]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// Connection returns the transport endpoint of a bound session.
func (p *Presence) Connection(sid core.SessionID) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.bySession[sid]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// IdentityOf returns the identity a session registered, if any.
func (p *Presence) IdentityOf(sid core.SessionID) (domain.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.bySession[sid]
	if !ok || entry.Identity == nil {
		return domain.Identity{}, false
	}
	return *entry.Identity, true
}

// Cancel tears the session down: the cancel func stops its pumps and the
// connection is closed so a blocked read unblocks immediately. Without the
// close, a silent kicked client would keep its socket and goroutine until it
// next spoke.
func (p *Presence) Cancel(sid core.SessionID) bool {
	p.mu.RLock()
	entry, ok := p.bySession[sid]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	if entry.Cancel != nil {
		entry.Cancel()
	}
	if entry.Conn != nil {
		entry.Conn.Close()
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("canceled session")
	return true
}

// Unbind removes the session entirely. No-op if absent. Returns the identity
// that was registered on it, if any.
func (p *Presence) Unbind(sid core.SessionID) (domain.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.bySession[sid]
	if !ok {
		return domain.Identity{}, false
	}
	delete(p.bySession, sid)
	if entry.Identity == nil {
		return domain.Identity{}, false
	}
	id := *entry.Identity
	if owner, held := p.byUser[id.ID]; held && owner == sid {
		delete(p.byUser, id.ID)
	}
	p.dropFromOrder(sid)
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).
		Str("user", string(id.ID)).Msg("unbound session")
	return id, true
}

// Snapshot returns the roster in registration order together with every
// bound connection, under one lock, so a broadcast never mixes two
// generations of the roster. Connections that have not registered yet still
// receive the roster; they can see who is online before presenting an
// identity.
func (p *Presence) Snapshot() core.RosterUpdate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	up := core.RosterUpdate{
		Users:   make([]core.PresenceDTO, 0, len(p.order)),
		Targets: make([]core.RosterTarget, 0, len(p.bySession)),
	}
	for _, sid := range p.order {
		entry, ok := p.bySession[sid]
		if !ok || entry.Identity == nil {
			continue
		}
		up.Users = append(up.Users, core.PresenceDTO{ID: entry.Identity.ID, Name: entry.Identity.Name})
	}
	for sid, entry := range p.bySession {
		up.Targets = append(up.Targets, core.RosterTarget{SID: sid, Conn: entry.Conn})
	}
	return up
}

// dropFromOrder is called with p.mu held.
func (p *Presence) dropFromOrder(sid core.SessionID) {
	for i, s := range p.order {
		if s == sid {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
