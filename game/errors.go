package game

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrGameStarted       = errors.Register("game", 1, "game already started")
	ErrGameNotStarted    = errors.Register("game", 2, "game not started")
	ErrNotMember         = errors.Register("game", 3, "player is not a member of the room")
	ErrAlreadyMember     = errors.Register("game", 4, "player is already a member of the room")
	ErrUnknownInstrument = errors.Register("game", 5, "unknown instrument")
	ErrInstrumentExists  = errors.Register("game", 6, "instrument already exists")
	ErrInvalidStrike     = errors.Register("game", 7, "strike missing or not positive")
	ErrInvalidSymbol     = errors.Register("game", 8, "symbol does not resolve to a payoff")
	ErrDeckExhausted     = errors.Register("game", 9, "deck exhausted")
	ErrInvalidOrder      = errors.Register("game", 10, "invalid order parameters")
)
