package game

import (
	"cosmossdk.io/math"

	"github.com/openalpha/cardex/book"
)

// Position is a player's holding in one symbol. AveragePrice follows the
// VWAP recurrence over fills and is kept as an exact decimal; it only
// becomes a float at the wire boundary. For the CASH symbol, Size is cash in
// price units and AveragePrice is fixed at 1.
type Position struct {
	Size         int64
	AveragePrice math.LegacyDec
}

// PositionView is one entry of the PositionUpdate payload.
type PositionView struct {
	Size         int64   `json:"size"`
	AveragePrice float64 `json:"average_price"`
}

// View converts the position for broadcast.
func (p *Position) View() PositionView {
	avg, _ := p.AveragePrice.Float64()
	return PositionView{Size: p.Size, AveragePrice: avg}
}

// applyFill updates the position for a fill of size units at price. Bids
// grow the position, asks shrink it; the average price tracks the signed
// VWAP and resets to zero when the position flattens.
func (p *Position) applyFill(price, size int64, side book.Side) {
	prevSize := p.Size
	prevAvg := p.AveragePrice

	var newSize int64
	if side == book.SideBid {
		newSize = prevSize + size
	} else {
		newSize = prevSize - size
	}
	p.Size = newSize

	if newSize == 0 {
		p.AveragePrice = math.LegacyZeroDec()
		return
	}

	notional := math.LegacyNewDec(prevSize).Mul(prevAvg)
	fill := math.LegacyNewDec(size).MulInt64(price)
	if side == book.SideBid {
		notional = notional.Add(fill)
	} else {
		notional = notional.Sub(fill)
	}
	p.AveragePrice = notional.QuoInt64(newSize)
}
