package lobby

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrRoomExists    = errors.Register("lobby", 1, "room already exists")
	ErrUnknownRoom   = errors.Register("lobby", 2, "unknown room")
	ErrRoomStarted   = errors.Register("lobby", 3, "room has an active game")
	ErrUnknownPlayer = errors.Register("lobby", 4, "unknown player")
	ErrBadPassword   = errors.Register("lobby", 5, "wrong password")
)
