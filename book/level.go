package book

// PriceLevel holds the FIFO queue of resting orders at a single price.
// Size always equals the sum of remaining sizes in the queue, and Direction
// is SideNone exactly when the queue is empty.
type PriceLevel struct {
	Price     int64
	Size      int64
	Direction Side

	queue []*Order
}

// NewPriceLevel creates an empty price level.
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price, Direction: SideNone}
}

// Ingest admits an order at this level. Same-side orders append in time
// priority. An opposite-side order matches against the queue head-first at
// this level's price (the maker price). If the incoming order clears the
// queue and its own price equals the level price, the residual converts the
// level to the incoming side.
func (pl *PriceLevel) Ingest(o *Order) error {
	switch {
	case pl.Direction == SideNone:
		pl.Direction = o.Side
		pl.Size += o.Remaining
		pl.queue = append(pl.queue, o)

	case pl.Direction == o.Side:
		pl.Size += o.Remaining
		pl.queue = append(pl.queue, o)

	default:
		for o.Remaining > 0 && len(pl.queue) > 0 {
			head := pl.queue[0]
			qty := head.Remaining
			if qty > o.Remaining {
				qty = o.Remaining
			}
			headDone := head.Remaining == qty

			// Maker prints first, then the taker, both at the level price.
			if err := head.fill(qty, pl.Price, false); err != nil {
				return err
			}
			if err := o.fill(qty, pl.Price, true); err != nil {
				return err
			}

			pl.Size -= qty
			if headDone {
				pl.queue = pl.queue[1:]
			}
		}

		if o.Remaining > 0 && o.Price == pl.Price {
			// Level flip: the residual rests at the price it just cleared.
			pl.queue = append(pl.queue, o)
			pl.Direction = o.Side
			pl.Size = o.Remaining
		}

		if len(pl.queue) == 0 {
			pl.Direction = SideNone
		}
	}
	return nil
}

// Cancel removes every order at this level belonging to player, emitting a
// cancelled OrderUpdate per order. Returns the number of orders cancelled.
func (pl *PriceLevel) Cancel(player string) int {
	kept := pl.queue[:0]
	cancelled := 0
	for _, o := range pl.queue {
		if o.Player != player {
			kept = append(kept, o)
			continue
		}
		pl.Size -= o.Remaining
		o.cancel()
		cancelled++
	}
	pl.queue = kept
	if pl.Size == 0 {
		pl.Direction = SideNone
	}
	return cancelled
}

// Empty returns true when no orders rest at this level.
func (pl *PriceLevel) Empty() bool {
	return len(pl.queue) == 0
}

// Orders returns the resting orders in queue (time) order.
func (pl *PriceLevel) Orders() []*Order {
	out := make([]*Order, len(pl.queue))
	copy(out, pl.queue)
	return out
}
