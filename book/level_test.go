package book

import (
	"testing"

	"github.com/openalpha/cardex/protocol"
)

// nopSink discards messages.
type nopSink struct{}

func (nopSink) Send(protocol.Message) error { return nil }

// recordingLedger captures fills and tape prints for assertions.
type recordingLedger struct {
	fills  []fillRecord
	trades []tradeRecord
}

type fillRecord struct {
	player     string
	instrument string
	price      int64
	size       int64
	side       Side
}

type tradeRecord struct {
	instrument string
	price      int64
	size       int64
	takerSide  Side
}

func (l *recordingLedger) ApplyFill(player, instrument string, price, size int64, side Side) {
	l.fills = append(l.fills, fillRecord{player, instrument, price, size, side})
}

func (l *recordingLedger) RecordTrade(instrument string, price, size int64, takerSide Side) {
	l.trades = append(l.trades, tradeRecord{instrument, price, size, takerSide})
}

func makeOrder(id int64, player string, side Side, price, size int64, ledger Ledger) *Order {
	return &Order{
		ID:         id,
		Player:     player,
		Instrument: "A",
		Side:       side,
		Price:      price,
		Size:       size,
		Remaining:  size,
		Status:     StatusActive,
		owner:      nopSink{},
		ledger:     ledger,
	}
}

// TestPriceLevel_IngestSameSide tests time-priority queuing
func TestPriceLevel_IngestSameSide(t *testing.T) {
	ledger := &recordingLedger{}
	pl := NewPriceLevel(5)

	if err := pl.Ingest(makeOrder(1, "p1", SideBid, 5, 3, ledger)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := pl.Ingest(makeOrder(2, "p2", SideBid, 5, 2, ledger)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if pl.Direction != SideBid {
		t.Errorf("expected direction bid, got %s", pl.Direction)
	}
	if pl.Size != 5 {
		t.Errorf("expected size 5, got %d", pl.Size)
	}
	orders := pl.Orders()
	if len(orders) != 2 || orders[0].ID != 1 || orders[1].ID != 2 {
		t.Errorf("queue not in time priority: %+v", orders)
	}
}

// TestPriceLevel_MatchHeadFirst tests that an opposite order consumes the
// queue in time priority at the level's price
func TestPriceLevel_MatchHeadFirst(t *testing.T) {
	ledger := &recordingLedger{}
	pl := NewPriceLevel(5)
	_ = pl.Ingest(makeOrder(1, "p1", SideBid, 5, 2, ledger))
	_ = pl.Ingest(makeOrder(2, "p2", SideBid, 5, 2, ledger))

	taker := makeOrder(3, "p3", SideAsk, 5, 3, ledger)
	if err := pl.Ingest(taker); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if taker.Remaining != 0 || taker.Status != StatusFilled {
		t.Errorf("taker not filled: remaining=%d status=%s", taker.Remaining, taker.Status)
	}
	if pl.Size != 1 {
		t.Errorf("expected size 1 left, got %d", pl.Size)
	}
	orders := pl.Orders()
	if len(orders) != 1 || orders[0].ID != 2 || orders[0].Remaining != 1 {
		t.Errorf("head should be consumed first: %+v", orders)
	}
	// Maker fill precedes the taker fill for each match
	if len(ledger.fills) != 4 {
		t.Fatalf("expected 4 fills, got %d", len(ledger.fills))
	}
	if ledger.fills[0].player != "p1" || ledger.fills[1].player != "p3" {
		t.Errorf("maker should print before taker: %+v", ledger.fills[:2])
	}
	// Only taker fills hit the tape
	if len(ledger.trades) != 2 {
		t.Errorf("expected 2 tape prints, got %d", len(ledger.trades))
	}
}

// TestPriceLevel_Flip tests the residual converting the level
func TestPriceLevel_Flip(t *testing.T) {
	ledger := &recordingLedger{}
	pl := NewPriceLevel(5)
	_ = pl.Ingest(makeOrder(1, "p1", SideBid, 5, 5, ledger))

	taker := makeOrder(2, "p2", SideAsk, 5, 8, ledger)
	if err := pl.Ingest(taker); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if pl.Direction != SideAsk {
		t.Errorf("expected level to flip to ask, got %s", pl.Direction)
	}
	if pl.Size != 3 {
		t.Errorf("expected residual size 3, got %d", pl.Size)
	}
	if taker.Remaining != 3 || taker.Status != StatusActive {
		t.Errorf("taker residual wrong: remaining=%d status=%s", taker.Remaining, taker.Status)
	}
}

// TestPriceLevel_NoFlipAtBetterPrice tests that a residual priced through
// the level does not rest there
func TestPriceLevel_NoFlipAtBetterPrice(t *testing.T) {
	ledger := &recordingLedger{}
	pl := NewPriceLevel(5)
	_ = pl.Ingest(makeOrder(1, "p1", SideBid, 5, 2, ledger))

	taker := makeOrder(2, "p2", SideAsk, 3, 4, ledger)
	if err := pl.Ingest(taker); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if pl.Direction != SideNone {
		t.Errorf("cleared level should be directionless, got %s", pl.Direction)
	}
	if !pl.Empty() {
		t.Error("cleared level should be empty")
	}
	if taker.Remaining != 2 {
		t.Errorf("expected residual 2, got %d", taker.Remaining)
	}
	// Trade printed at the maker's resting price
	if ledger.trades[0].price != 5 {
		t.Errorf("expected print at 5, got %d", ledger.trades[0].price)
	}
}

// TestPriceLevel_Cancel tests cancelling one player's orders
func TestPriceLevel_Cancel(t *testing.T) {
	ledger := &recordingLedger{}
	pl := NewPriceLevel(4)
	_ = pl.Ingest(makeOrder(1, "p1", SideBid, 4, 2, ledger))
	_ = pl.Ingest(makeOrder(2, "p2", SideBid, 4, 3, ledger))
	_ = pl.Ingest(makeOrder(3, "p1", SideBid, 4, 1, ledger))

	n := pl.Cancel("p1")
	if n != 2 {
		t.Errorf("expected 2 cancelled, got %d", n)
	}
	if pl.Size != 3 {
		t.Errorf("expected size 3 after cancel, got %d", pl.Size)
	}
	orders := pl.Orders()
	if len(orders) != 1 || orders[0].Player != "p2" {
		t.Errorf("expected only p2 left: %+v", orders)
	}

	n = pl.Cancel("p2")
	if n != 1 {
		t.Errorf("expected 1 cancelled, got %d", n)
	}
	if pl.Direction != SideNone || pl.Size != 0 {
		t.Errorf("empty level should reset: dir=%s size=%d", pl.Direction, pl.Size)
	}
}
