package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

func TestRoomTracker_JoinSequence(t *testing.T) {
	r := NewRoomTracker()

	isFirst, peers, err := r.Join("s1", "lobby")
	require.NoError(t, err)
	require.True(t, isFirst)
	require.Empty(t, peers)

	isFirst, peers, err = r.Join("s2", "lobby")
	require.NoError(t, err)
	require.False(t, isFirst)
	require.Equal(t, []core.SessionID{"s1"}, peers)

	_, _, err = r.Join("s3", "lobby")
	require.ErrorIs(t, err, domain.ErrRoomFull)
	require.Equal(t, []core.SessionID{"s1"}, r.Peers("lobby", "s2"), "full join must not change membership")
}

func TestRoomTracker_RejoinDoesNotDuplicate(t *testing.T) {
	r := NewRoomTracker()
	_, _, err := r.Join("s1", "lobby")
	require.NoError(t, err)

	isFirst, peers, err := r.Join("s1", "lobby")
	require.NoError(t, err)
	require.True(t, isFirst)
	require.Empty(t, peers)
	require.Empty(t, r.Peers("lobby", "s1"))
}

func TestRoomTracker_PeersExcludesSender(t *testing.T) {
	r := NewRoomTracker()
	_, _, _ = r.Join("s1", "lobby")
	_, _, _ = r.Join("s2", "lobby")

	require.Equal(t, []core.SessionID{"s2"}, r.Peers("lobby", "s1"))
	require.Equal(t, []core.SessionID{"s1"}, r.Peers("lobby", "s2"))
}

func TestRoomTracker_LeaveNotifiesRemainingAndDeletesEmpty(t *testing.T) {
	r := NewRoomTracker()
	_, _, _ = r.Join("s1", "lobby")
	_, _, _ = r.Join("s2", "lobby")

	left := r.Leave("s1")
	require.Len(t, left, 1)
	require.Equal(t, domain.RoomID("lobby"), left[0].Room)
	require.Equal(t, []core.SessionID{"s2"}, left[0].Remaining)

	left = r.Leave("s2")
	require.Len(t, left, 1)
	require.Empty(t, left[0].Remaining)

	// Room is gone: the next join starts fresh.
	isFirst, _, err := r.Join("s3", "lobby")
	require.NoError(t, err)
	require.True(t, isFirst)
}

func TestRoomTracker_LeaveUnknownSession(t *testing.T) {
	r := NewRoomTracker()
	require.Empty(t, r.Leave("ghost"))
}
