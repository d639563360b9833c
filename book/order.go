package book

import (
	"github.com/openalpha/cardex/protocol"
)

// Ledger receives fill accounting from the book. The room owning the book
// implements it; fills update positions at the executed trade price, and
// taker-side fills additionally print on the room trade tape.
type Ledger interface {
	ApplyFill(player, instrument string, price, size int64, side Side)
	RecordTrade(instrument string, price, size int64, takerSide Side)
}

// Order is a resting limit order. Size is immutable; Remaining decreases
// monotonically and Status transitions at most once, to filled or cancelled.
type Order struct {
	ID         int64
	Player     string
	Instrument string
	Side       Side
	Price      int64
	Size       int64
	Remaining  int64
	Status     Status

	owner  protocol.Sink
	ledger Ledger
}

// OrderView is the owner-private OrderUpdate payload.
type OrderView struct {
	Instrument    string `json:"instrument"`
	OrderID       int64  `json:"order_id"`
	Size          int64  `json:"size"`
	RemainingSize int64  `json:"remaining_size"`
	Price         int64  `json:"price"`
	Direction     string `json:"direction"`
	Status        string `json:"status"`
}

// TradeView is the owner-private TradeUpdate payload.
type TradeView struct {
	Price     int64  `json:"price"`
	Size      int64  `json:"size"`
	Direction string `json:"direction"`
}

// View returns the order's current OrderUpdate payload.
func (o *Order) View() OrderView {
	return OrderView{
		Instrument:    o.Instrument,
		OrderID:       o.ID,
		Size:          o.Size,
		RemainingSize: o.Remaining,
		Price:         o.Price,
		Direction:     o.Side.String(),
		Status:        o.Status.String(),
	}
}

// sendUpdate pushes the current order state to the owner. Transport failures
// do not affect book state; the owner catches up on rejoin.
func (o *Order) sendUpdate() {
	_ = o.owner.Send(protocol.Message{Type: protocol.TypeOrderUpdate, Data: o.View()})
}

// sendTrade pushes a fill confirmation to the owner.
func (o *Order) sendTrade(size, price int64) {
	_ = o.owner.Send(protocol.Message{
		Type: protocol.TypeTradeUpdate,
		Data: TradeView{Price: price, Size: size, Direction: o.Side.TradeDirection()},
	})
}

// fill executes a fill of size units at tradePrice. The owner receives an
// OrderUpdate and a TradeUpdate, positions update at the trade price, and
// taker fills print on the room tape. Filling more than the remaining size
// is a programming error and aborts the handler.
func (o *Order) fill(size, tradePrice int64, taker bool) error {
	if size > o.Remaining {
		return ErrOverfill.Wrapf("order %d: fill %d > remaining %d", o.ID, size, o.Remaining)
	}
	o.Remaining -= size
	if o.Remaining == 0 {
		o.Status = StatusFilled
	}

	o.sendUpdate()
	o.sendTrade(size, tradePrice)

	if taker {
		o.ledger.RecordTrade(o.Instrument, tradePrice, size, o.Side)
	}
	o.ledger.ApplyFill(o.Player, o.Instrument, tradePrice, size, o.Side)
	return nil
}

// cancel marks the order cancelled and notifies the owner.
func (o *Order) cancel() {
	o.Status = StatusCancelled
	o.Remaining = 0
	o.sendUpdate()
}
