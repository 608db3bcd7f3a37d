package domain

import "errors"

type RoomID string

// RoomCapacity caps a two-party session room. A third join attempt is
// rejected, never queued.
const RoomCapacity = 2

var ErrRoomFull = errors.New("room full")
