package book

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidPrice = errors.Register("book", 1, "invalid price")
	ErrInvalidSize  = errors.Register("book", 2, "invalid size")
	ErrInvalidSide  = errors.Register("book", 3, "invalid order side")
	ErrOverfill     = errors.Register("book", 4, "fill exceeds remaining size")
)
