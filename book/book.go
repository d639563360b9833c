package book

import (
	"github.com/huandu/skiplist"

	"github.com/openalpha/cardex/protocol"
)

// OrderBook maintains one instrument's resting liquidity as two sparse
// arrays of price levels, zero-indexed at the top of the book: asks[i] is
// the level at bestAsk + i*tick, bids[i] the level at bestBid - i*tick.
// Interior slots may be nil; the first and last slots never are. Top-of-book
// reads and same-price updates are O(1); trimming across a gap is O(n).
type OrderBook struct {
	Symbol   string
	TickSize int64

	bids []*PriceLevel
	asks []*PriceLevel

	bestBid int64 // valid while len(bids) > 0
	bestAsk int64 // valid while len(asks) > 0

	lastOrderID int64
	orders      *skiplist.SkipList // order id -> *Order, for replay
	ledger      Ledger
}

// New creates an empty order book for symbol. Fills are reported to ledger.
func New(symbol string, tickSize int64, ledger Ledger) *OrderBook {
	return &OrderBook{
		Symbol:   symbol,
		TickSize: tickSize,
		orders:   skiplist.New(skiplist.Int64),
		ledger:   ledger,
	}
}

// BestBid returns the highest resting bid price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	return b.bestBid, len(b.bids) > 0
}

// BestAsk returns the lowest resting ask price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	return b.bestAsk, len(b.asks) > 0
}

// NewOrder admits an order for player, assigns it the next order id, emits
// the initial OrderUpdate to the owner, and runs placement: match against
// crossing opposite levels at their resting prices, then rest any residual.
func (b *OrderBook) NewOrder(player string, owner protocol.Sink, price, size int64, side Side) (*Order, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice.Wrapf("price %d", price)
	}
	if size <= 0 {
		return nil, ErrInvalidSize.Wrapf("size %d", size)
	}
	if side != SideBid && side != SideAsk {
		return nil, ErrInvalidSide
	}

	b.lastOrderID++
	o := &Order{
		ID:         b.lastOrderID,
		Player:     player,
		Instrument: b.Symbol,
		Side:       side,
		Price:      price,
		Size:       size,
		Remaining:  size,
		Status:     StatusActive,
		owner:      owner,
		ledger:     b.ledger,
	}
	b.orders.Set(o.ID, o)
	o.sendUpdate()

	return o, b.place(o)
}

// place matches a crossing order and rests the residual. After a cross the
// residual no longer prices through the opposite top, so the recursion
// terminates on the resting path.
func (b *OrderBook) place(o *Order) error {
	if b.crosses(o) {
		if err := b.cross(o); err != nil {
			return err
		}
		if o.Status != StatusFilled {
			return b.place(o)
		}
		return nil
	}
	b.rest(o)
	return nil
}

// crosses reports whether o prices through the opposite top of book.
func (b *OrderBook) crosses(o *Order) bool {
	if o.Side == SideAsk {
		return len(b.bids) > 0 && o.Price <= b.bestBid
	}
	return len(b.asks) > 0 && o.Price >= b.bestAsk
}

// cross walks the opposite side from the top, matching o against each
// crossing level at the level's own price. Levels that empty, or that flip
// to o's side by absorbing the residual, are deleted afterwards; deletion
// advances the opposite best past any leading gap.
func (b *OrderBook) cross(o *Order) error {
	opposite := b.bids
	if o.Side == SideBid {
		opposite = b.asks
	}

	var deletions []int64
	for _, pl := range opposite {
		if pl == nil {
			continue
		}
		if o.Remaining == 0 {
			break
		}
		if o.Side == SideAsk && pl.Price < o.Price {
			break
		}
		if o.Side == SideBid && pl.Price > o.Price {
			break
		}
		if err := pl.Ingest(o); err != nil {
			return err
		}
		if pl.Size == 0 || pl.Direction == o.Side {
			deletions = append(deletions, pl.Price)
		}
	}

	for _, price := range deletions {
		b.delete(price, o.Side.Opposite())
	}
	return nil
}

// rest places a non-crossing order on its own side of the book.
func (b *OrderBook) rest(o *Order) {
	levels := &b.asks
	best := &b.bestAsk
	if o.Side == SideBid {
		levels = &b.bids
		best = &b.bestBid
	}

	if len(*levels) == 0 {
		pl := NewPriceLevel(o.Price)
		_ = pl.Ingest(o)
		*levels = append(*levels, pl)
		*best = o.Price
		return
	}

	var i int64
	if o.Side == SideAsk {
		i = (o.Price - b.bestAsk) / b.TickSize
	} else {
		i = (b.bestBid - o.Price) / b.TickSize
	}

	switch {
	case i > int64(len(*levels))-1:
		for int64(len(*levels)) <= i {
			*levels = append(*levels, nil)
		}
		pl := NewPriceLevel(o.Price)
		_ = pl.Ingest(o)
		(*levels)[i] = pl

	case i < 0:
		pad := make([]*PriceLevel, -i)
		*levels = append(pad, *levels...)
		pl := NewPriceLevel(o.Price)
		_ = pl.Ingest(o)
		(*levels)[0] = pl
		*best = o.Price

	case (*levels)[i] == nil:
		pl := NewPriceLevel(o.Price)
		_ = pl.Ingest(o)
		(*levels)[i] = pl

	default:
		_ = (*levels)[i].Ingest(o)
	}
}

// Cancel removes every resting order belonging to player at the given price
// and side. A price with no level is a no-op. Emptied levels are deleted.
func (b *OrderBook) Cancel(player string, price int64, side Side) int {
	levels := b.asks
	if side == SideBid {
		levels = b.bids
	}
	if len(levels) == 0 {
		return 0
	}

	var i int64
	if side == SideAsk {
		i = (price - b.bestAsk) / b.TickSize
	} else {
		i = (b.bestBid - price) / b.TickSize
	}
	if i < 0 || i > int64(len(levels))-1 {
		return 0
	}
	pl := levels[i]
	if pl == nil {
		return 0
	}

	cancelled := pl.Cancel(player)
	if pl.Size == 0 {
		b.delete(price, side)
	}
	return cancelled
}

// delete removes the level at price from the given side. Deleting index 0
// also drops the leading run of empty slots and re-anchors the best price at
// the new index 0; deleting the last index drops the trailing run; interior
// deletions leave a hole.
func (b *OrderBook) delete(price int64, side Side) bool {
	levels := &b.asks
	best := &b.bestAsk
	if side == SideBid {
		levels = &b.bids
		best = &b.bestBid
	}

	n := int64(len(*levels))
	if n == 0 {
		return false
	}

	var i int64
	if side == SideAsk {
		i = (price - b.bestAsk) / b.TickSize
	} else {
		i = (b.bestBid - price) / b.TickSize
	}

	switch {
	case i < 0 || i > n-1:
		return false

	case i == 0:
		j := int64(1)
		for j < n && (*levels)[j] == nil {
			j++
		}
		*levels = (*levels)[j:]
		if len(*levels) == 0 {
			*best = 0
		} else {
			*best = (*levels)[0].Price
		}
		return true

	case i == n-1:
		j := i - 1
		for j >= 0 && (*levels)[j] == nil {
			j--
		}
		*levels = (*levels)[:j+1]
		return true

	default:
		(*levels)[i] = nil
		return true
	}
}

// LevelView is one OrderbookUpdate entry.
type LevelView struct {
	Price int64  `json:"price"`
	Size  int64  `json:"size"`
	Type  string `json:"type"`
}

// Update returns the full-book OrderbookUpdate message: asks from the best
// outward, then bids from the best outward, empty slots omitted.
func (b *OrderBook) Update() protocol.Message {
	data := make([]LevelView, 0, len(b.asks)+len(b.bids))
	for _, pl := range b.asks {
		if pl != nil {
			data = append(data, LevelView{Price: pl.Price, Size: pl.Size, Type: "ask"})
		}
	}
	for _, pl := range b.bids {
		if pl != nil {
			data = append(data, LevelView{Price: pl.Price, Size: pl.Size, Type: "bid"})
		}
	}
	return protocol.Message{Type: protocol.TypeOrderbookUpdate, Symbol: b.Symbol, Data: data}
}

// TopN returns the best n levels per side in the OrderbookUpdate shape.
func (b *OrderBook) TopN(n int) protocol.Message {
	data := make([]LevelView, 0, 2*n)
	count := 0
	for _, pl := range b.asks {
		if count == n {
			break
		}
		if pl != nil {
			data = append(data, LevelView{Price: pl.Price, Size: pl.Size, Type: "ask"})
			count++
		}
	}
	count = 0
	for _, pl := range b.bids {
		if count == n {
			break
		}
		if pl != nil {
			data = append(data, LevelView{Price: pl.Price, Size: pl.Size, Type: "bid"})
			count++
		}
	}
	return protocol.Message{Type: protocol.TypeOrderbookUpdate, Symbol: b.Symbol, Data: data}
}

// SendOrders replays the player's open orders, in order-id order, to sink.
// Used when a player rejoins a started game.
func (b *OrderBook) SendOrders(player string, sink protocol.Sink) {
	for elem := b.orders.Front(); elem != nil; elem = elem.Next() {
		o := elem.Value.(*Order)
		if o.Player != player || o.Status != StatusActive {
			continue
		}
		_ = sink.Send(protocol.Message{Type: protocol.TypeOrderUpdate, Data: o.View()})
	}
}

// OpenOrders returns the player's resting orders in order-id order.
func (b *OrderBook) OpenOrders(player string) []*Order {
	var out []*Order
	for elem := b.orders.Front(); elem != nil; elem = elem.Next() {
		o := elem.Value.(*Order)
		if o.Player == player && o.Status == StatusActive {
			out = append(out, o)
		}
	}
	return out
}

// Levels returns the non-empty levels of one side, best outward.
func (b *OrderBook) Levels(side Side) []*PriceLevel {
	src := b.asks
	if side == SideBid {
		src = b.bids
	}
	out := make([]*PriceLevel, 0, len(src))
	for _, pl := range src {
		if pl != nil {
			out = append(out, pl)
		}
	}
	return out
}
