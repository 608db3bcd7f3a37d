package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestPresence_RegisterThenResolve(t *testing.T) {
	p := NewPresence()
	conn := &fakeConn{}
	p.Bind("s1", conn, nil)

	_, ok := p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	require.True(t, ok)

	got, ok := p.Resolve("u1")
	require.True(t, ok)
	require.Same(t, conn, got.(*fakeConn))
}

func TestPresence_RegisterUnboundSession(t *testing.T) {
	p := NewPresence()
	_, ok := p.Register("ghost", domain.Identity{ID: "u1", Name: "Alice"})
	require.False(t, ok)
}

func TestPresence_ReRegisterReplacesIdentity(t *testing.T) {
	p := NewPresence()
	p.Bind("s1", &fakeConn{}, nil)

	_, ok := p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	require.True(t, ok)
	_, ok = p.Register("s1", domain.Identity{ID: "u1b", Name: "Alice B"})
	require.True(t, ok)

	snap := p.Snapshot()
	require.Len(t, snap.Users, 1)
	require.Equal(t, domain.UserID("u1b"), snap.Users[0].ID)
	require.Equal(t, "Alice B", snap.Users[0].Name)

	_, found := p.Resolve("u1")
	require.False(t, found, "old userId must not resolve after re-register")
}

func TestPresence_DuplicateUserIDOrphansPrevious(t *testing.T) {
	p := NewPresence()
	first := &fakeConn{}
	second := &fakeConn{}
	p.Bind("s1", first, nil)
	p.Bind("s2", second, nil)

	_, ok := p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	require.True(t, ok)
	orphaned, ok := p.Register("s2", domain.Identity{ID: "u1", Name: "Alice Again"})
	require.True(t, ok)
	require.Equal(t, core.SessionID("s1"), orphaned)

	snap := p.Snapshot()
	require.Len(t, snap.Users, 1)
	require.Equal(t, "Alice Again", snap.Users[0].Name)

	got, found := p.Resolve("u1")
	require.True(t, found)
	require.Same(t, second, got.(*fakeConn))
}

func TestPresence_UnbindRemovesEverything(t *testing.T) {
	p := NewPresence()
	p.Bind("s1", &fakeConn{}, nil)
	_, ok := p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	require.True(t, ok)

	id, wasRegistered := p.Unbind("s1")
	require.True(t, wasRegistered)
	require.Equal(t, domain.UserID("u1"), id.ID)

	require.Empty(t, p.Snapshot().Users)
	_, found := p.Resolve("u1")
	require.False(t, found)
	_, found = p.Connection("s1")
	require.False(t, found)

	// Second unbind is a no-op.
	_, wasRegistered = p.Unbind("s1")
	require.False(t, wasRegistered)
}

func TestPresence_SnapshotKeepsRegistrationOrder(t *testing.T) {
	p := NewPresence()
	for _, s := range []core.SessionID{"s1", "s2", "s3"} {
		p.Bind(s, &fakeConn{}, nil)
	}
	_, _ = p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	_, _ = p.Register("s2", domain.Identity{ID: "u2", Name: "Bob"})
	_, _ = p.Register("s3", domain.Identity{ID: "u3", Name: "Carol"})

	snap := p.Snapshot()
	require.Equal(t, []domain.UserID{"u1", "u2", "u3"}, rosterIDs(snap))

	p.Unbind("s2")
	snap = p.Snapshot()
	require.Equal(t, []domain.UserID{"u1", "u3"}, rosterIDs(snap))
	require.Len(t, snap.Targets, 2)
}

func TestPresence_CancelFiresSessionCancel(t *testing.T) {
	p := NewPresence()
	var fired bool
	p.Bind("s1", &fakeConn{}, func() { fired = true })

	require.True(t, p.Cancel("s1"))
	require.True(t, fired)
	require.False(t, p.Cancel("ghost"))
}

func TestPresence_CancelClosesConnection(t *testing.T) {
	p := NewPresence()
	conn := &fakeConn{}
	p.Bind("s1", conn, func() {})

	require.True(t, p.Cancel("s1"))
	require.True(t, conn.isClosed(), "cancel must close the transport so a blocked read unblocks")
}

func TestPresence_SnapshotTargetsIncludeUnregisteredConnections(t *testing.T) {
	p := NewPresence()
	lurker := &fakeConn{}
	p.Bind("sLurk", lurker, nil)
	p.Bind("s1", &fakeConn{}, nil)
	_, ok := p.Register("s1", domain.Identity{ID: "u1", Name: "Alice"})
	require.True(t, ok)

	snap := p.Snapshot()
	require.Len(t, snap.Users, 1, "only registered identities appear in the roster")
	require.Len(t, snap.Targets, 2, "every bound connection is a broadcast target")

	var found bool
	for _, tgt := range snap.Targets {
		if tgt.SID == "sLurk" {
			found = true
			require.Same(t, lurker, tgt.Conn.(*fakeConn))
		}
	}
	require.True(t, found)
}

func rosterIDs(up core.RosterUpdate) []domain.UserID {
	out := make([]domain.UserID, 0, len(up.Users))
	for _, u := range up.Users {
		out = append(out, u.ID)
	}
	return out
}
