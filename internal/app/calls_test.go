package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ring/internal/domain"
)

func TestCallTracker_BeginMarksBothBusy(t *testing.T) {
	c := NewCallTracker()
	require.NoError(t, c.Begin("a", "b"))

	require.True(t, c.InCall("a"))
	require.True(t, c.InCall("b"))
	require.Equal(t, 2, c.Active())
}

func TestCallTracker_BusyPartiesCannotStartAnotherCall(t *testing.T) {
	c := NewCallTracker()
	require.NoError(t, c.Begin("a", "b"))

	require.ErrorIs(t, c.Begin("a", "c"), domain.ErrBusy)
	require.ErrorIs(t, c.Begin("c", "b"), domain.ErrBusy)
	require.False(t, c.InCall("c"), "rejected attempt must not change state")
}

func TestCallTracker_ResolveReleasesBothSides(t *testing.T) {
	c := NewCallTracker()
	require.NoError(t, c.Begin("a", "b"))

	c.Resolve("a", "b")
	require.False(t, c.InCall("a"))
	require.False(t, c.InCall("b"))

	// Either party can start a fresh call afterwards.
	require.NoError(t, c.Begin("b", "a"))
}

func TestCallTracker_ResolveReleasesActualPeers(t *testing.T) {
	c := NewCallTracker()
	require.NoError(t, c.Begin("a", "b"))
	require.NoError(t, c.Begin("c", "d"))

	// Coarse cleanup names b, but b's real peer is a; c/d stay untouched.
	c.Resolve("b", "b")
	require.False(t, c.InCall("a"))
	require.False(t, c.InCall("b"))
	require.True(t, c.InCall("c"))
	require.True(t, c.InCall("d"))
}

func TestCallTracker_DropClearsOnlyOwnPair(t *testing.T) {
	c := NewCallTracker()
	require.NoError(t, c.Begin("a", "b"))
	require.NoError(t, c.Begin("c", "d"))

	peer, had := c.Drop("a")
	require.True(t, had)
	require.Equal(t, domain.UserID("b"), peer)

	require.False(t, c.InCall("b"))
	require.True(t, c.InCall("c"))
	require.True(t, c.InCall("d"))
}

func TestCallTracker_DropIdleIsNoop(t *testing.T) {
	c := NewCallTracker()
	_, had := c.Drop("nobody")
	require.False(t, had)
}
