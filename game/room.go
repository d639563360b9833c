package game

import (
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/openalpha/cardex/book"
	"github.com/openalpha/cardex/metrics"
	"github.com/openalpha/cardex/protocol"
)

// RoomStatus is the lifecycle state of a room's game.
type RoomStatus int

const (
	StatusWaiting RoomStatus = iota
	StatusStarted
	StatusSettled
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusStarted:
		return "started"
	case StatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Trade is one entry on the room trade tape. Direction is the taker's side.
type Trade struct {
	Price      int64   `json:"price"`
	Size       int64   `json:"size"`
	Direction  string  `json:"direction"`
	Instrument string  `json:"instrument"`
	Timestamp  float64 `json:"timestamp"`
}

// cardsPerPile dealt to each player's A and B piles at game start.
const cardsPerPile = 3

// Room owns one game: its members, instruments, order books, trade tape,
// positions, and deck. All mutation happens on the engine's consumer
// goroutine, so the room is single-writer by construction and carries no
// locks. The room is the ledger for its books: fills flow back in through
// ApplyFill and RecordTrade.
type Room struct {
	name   string
	status RoomStatus
	logger log.Logger

	players   map[string]*Player
	joinOrder []string

	instruments []string
	books       map[string]*book.OrderBook
	trades      []Trade
	positions   map[string]map[string]*Position

	deck          *Deck
	playerCards   map[string]*Piles
	revealedCards map[string]*Piles
	nCards        int

	settlement map[string]int64
}

// NewRoom creates a waiting room with a fresh deck.
func NewRoom(name string, logger log.Logger) *Room {
	return &Room{
		name:          name,
		status:        StatusWaiting,
		logger:        logger.With("room", name),
		players:       make(map[string]*Player),
		books:         make(map[string]*book.OrderBook),
		positions:     make(map[string]map[string]*Position),
		deck:          NewDeck(),
		playerCards:   make(map[string]*Piles),
		revealedCards: make(map[string]*Piles),
		nCards:        cardsPerPile,
		settlement:    make(map[string]int64),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// Status returns the room's lifecycle state.
func (r *Room) Status() RoomStatus { return r.status }

// Players returns the member names in join order.
func (r *Room) Players() []string {
	out := make([]string, len(r.joinOrder))
	copy(out, r.joinOrder)
	return out
}

// Instruments returns the symbols in creation order.
func (r *Room) Instruments() []string {
	out := make([]string, len(r.instruments))
	copy(out, r.instruments)
	return out
}

// Book returns the order book for a symbol.
func (r *Room) Book(symbol string) (*book.OrderBook, bool) {
	b, ok := r.books[symbol]
	return b, ok
}

// Position returns a player's position in a symbol.
func (r *Room) Position(player, symbol string) (Position, bool) {
	row, ok := r.positions[player]
	if !ok {
		return Position{}, false
	}
	p, ok := row[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Trades returns a copy of the trade tape.
func (r *Room) Trades() []Trade {
	out := make([]Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// Join admits a player while the room is waiting. Once the game has started
// only previous members may join again: the room replays its current state
// (players, cards, books, instruments, positions, trades, and the player's
// own open orders) to them. Returns true for such a rejoin.
func (r *Room) Join(p *Player) (bool, error) {
	name := p.Name()
	_, member := r.players[name]

	if r.status != StatusWaiting && !member {
		return false, ErrGameStarted.Wrapf("%s cannot join %s", name, r.name)
	}

	if r.status == StatusWaiting && member {
		return false, ErrAlreadyMember.Wrapf("%s in %s", name, r.name)
	}

	if r.status != StatusWaiting && member {
		r.logger.Info("player rejoining", "player", name)
		_ = p.Send(r.roomPlayersMessage())
		r.sendCards()
		r.sendRevealedCards()
		r.sendBooks()
		r.sendInstruments()
		r.sendPositions("")
		r.sendTrades()
		r.sendOrders(name)
		return true, nil
	}

	r.players[name] = p
	r.joinOrder = append(r.joinOrder, name)
	r.logger.Info("player joined", "player", name)
	r.tellRoom(r.roomPlayersMessage())
	return false, nil
}

// Leave removes a member while the room is waiting. After the game has
// started leaving is acknowledged but the member stays in the game and is
// settled with everyone else.
func (r *Room) Leave(name string) error {
	_, member := r.players[name]
	switch {
	case r.status == StatusWaiting && member:
		delete(r.players, name)
		for i, n := range r.joinOrder {
			if n == name {
				r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
				break
			}
		}
		r.logger.Info("player left", "player", name)
		r.tellRoom(r.roomPlayersMessage())
		return nil
	case r.status == StatusStarted && member:
		r.logger.Info("player left a started game", "player", name)
		return nil
	default:
		return ErrNotMember.Wrapf("%s in %s", name, r.name)
	}
}

// StartGame deals every member cardsPerPile cards into each pile, fixes the
// settlement values as the pile rank sums across all players, initialises
// the cash positions, and brings up the underlying instruments.
func (r *Room) StartGame() error {
	if r.status != StatusWaiting {
		r.tellRoom(protocol.Info("The game in room " + r.name + " has already started"))
		return ErrGameStarted.Wrap(r.name)
	}

	// Refuse up front so a failed start leaves no partial deal behind.
	need := 2 * r.nCards * len(r.joinOrder)
	if r.deck.Remaining() < need {
		r.tellRoom(protocol.Info("Not enough cards to start the game in room " + r.name))
		return ErrDeckExhausted.Wrapf("%s: need %d cards, have %d", r.name, need, r.deck.Remaining())
	}

	r.tellRoom(protocol.Info("The game in room " + r.name + " has begun"))
	r.settlement = map[string]int64{PileA: 0, PileB: 0}

	for _, name := range r.joinOrder {
		piles := &Piles{}
		for i := 0; i < r.nCards; i++ {
			for _, pile := range []string{PileA, PileB} {
				c, ok := r.deck.Deal()
				if !ok {
					return ErrDeckExhausted.Wrap(r.name)
				}
				dst := piles.pile(pile)
				*dst = append(*dst, c)
				r.settlement[pile] += int64(c.Rank)
			}
		}
		r.playerCards[name] = piles

		r.positions[name] = map[string]*Position{
			SymbolCash: {Size: 0, AveragePrice: math.LegacyOneDec()},
		}
	}

	r.sendCards()
	r.status = StatusStarted
	r.logger.Info("game started", "settlement_a", r.settlement[PileA], "settlement_b", r.settlement[PileB])
	metrics.GetCollector().GamesStarted.Inc()

	return r.InitUnderlying()
}

// InitUnderlying creates the A and B pile underlyings plus whichever spread
// is non-negative given the settlement values.
func (r *Room) InitUnderlying() error {
	if r.status != StatusStarted {
		r.tellRoom(protocol.Info("Unable to create instruments before the game starts"))
		return ErrGameNotStarted.Wrap(r.name)
	}
	if len(r.instruments) > 0 {
		r.tellRoom(protocol.Info("Instruments already initialised"))
		return ErrInstrumentExists.Wrap(PileA)
	}

	spread := SymbolSpreadAB
	if r.settlement[PileA] < r.settlement[PileB] {
		spread = SymbolSpreadBA
	}
	for _, symbol := range []string{PileA, PileB, spread} {
		r.addInstrument(symbol)
	}
	r.sendPositions("")
	return nil
}

// NewOption registers a new option instrument. The strike must be positive,
// the name must be new and must resolve under the payoff grammar, so that
// settlement can always price it.
func (r *Room) NewOption(name, optionType string, strike *int64) error {
	if strike == nil || *strike <= 0 {
		r.tellRoom(protocol.Info("Unable to create option"))
		return ErrInvalidStrike.Wrap(name)
	}
	if r.status != StatusStarted {
		r.tellRoom(protocol.Info("Unable to create option"))
		return ErrGameNotStarted.Wrap(r.name)
	}
	for _, existing := range r.instruments {
		if existing == name {
			r.tellRoom(protocol.Info("Unable to create option"))
			return ErrInstrumentExists.Wrap(name)
		}
	}
	if !ValidSymbol(name) {
		r.tellRoom(protocol.Info("Unable to create option"))
		return ErrInvalidSymbol.Wrap(name)
	}

	r.addInstrument(name)
	r.sendPositions("")
	return nil
}

// addInstrument registers a symbol, creates its empty book with tick size 1,
// and zero-initialises a position row for every member.
func (r *Room) addInstrument(symbol string) {
	r.logger.Info("instrument initialised", "symbol", symbol)
	r.instruments = append(r.instruments, symbol)
	r.books[symbol] = book.New(symbol, 1, r)
	r.sendInstruments()
	for _, name := range r.joinOrder {
		r.positions[name][symbol] = &Position{Size: 0, AveragePrice: math.LegacyZeroDec()}
	}
}

// NewOrder validates and routes a limit order to the instrument's book, then
// broadcasts fresh book snapshots for every instrument in the room.
func (r *Room) NewOrder(instrument, player string, price, size int64, direction string) error {
	p, ok := r.players[player]
	if !ok {
		r.tellRoom(protocol.Info("Invalid order params"))
		return ErrNotMember.Wrapf("%s in %s", player, r.name)
	}
	b, ok := r.books[instrument]
	if !ok {
		r.tellRoom(protocol.Info("Invalid order params"))
		return ErrUnknownInstrument.Wrap(instrument)
	}
	side, err := book.ParseSide(direction)
	if err != nil || price <= 0 || size <= 0 {
		r.tellRoom(protocol.Info("Invalid order params"))
		return ErrInvalidOrder.Wrapf("price=%d size=%d direction=%q", price, size, direction)
	}

	r.logger.Info("new order", "instrument", instrument, "player", player,
		"price", price, "size", size, "direction", direction)
	metrics.GetCollector().OrdersTotal.WithLabelValues(r.name, instrument, direction).Inc()

	if _, err := b.NewOrder(player, p, price, size, side); err != nil {
		return err
	}
	r.sendBooks()
	return nil
}

// CancelOrder cancels all of the player's resting orders at one price and
// direction, then broadcasts fresh book snapshots.
func (r *Room) CancelOrder(instrument, player string, price int64, direction string) error {
	b, ok := r.books[instrument]
	if !ok {
		r.tellRoom(protocol.Info("Invalid order params"))
		return ErrUnknownInstrument.Wrap(instrument)
	}
	side, err := book.ParseSide(direction)
	if err != nil {
		r.tellRoom(protocol.Info("Invalid order params"))
		return ErrInvalidOrder.Wrapf("direction=%q", direction)
	}

	metrics.GetCollector().CancelsTotal.WithLabelValues(r.name, instrument).Inc()
	cancelled := b.Cancel(player, price, side)
	r.logger.Info("cancel", "instrument", instrument, "player", player,
		"price", price, "direction", direction, "orders", cancelled)
	r.sendBooks()
	return nil
}

// RevealCard makes one of the player's private cards public. The card is
// recorded against whichever pile holds it; revealing an absent or already
// revealed card records nothing. The revealed set is always rebroadcast.
func (r *Room) RevealCard(player string, card Card) error {
	cards, ok := r.playerCards[player]
	if !ok {
		return ErrNotMember.Wrapf("%s in %s", player, r.name)
	}

	revealed, ok := r.revealedCards[player]
	if !ok {
		revealed = &Piles{}
		r.revealedCards[player] = revealed
	}
	for _, pile := range []string{PileA, PileB} {
		if cards.contains(pile, card) && !revealed.contains(pile, card) {
			dst := revealed.pile(pile)
			*dst = append(*dst, card)
			break
		}
	}

	r.sendRevealedCards()
	return nil
}

// SettleGame marks every position against the payoff of its symbol and
// broadcasts the resulting cash P&L per player.
func (r *Room) SettleGame() error {
	if r.status != StatusStarted {
		r.tellRoom(protocol.Info("The game in room " + r.name + " cannot be settled"))
		return ErrGameNotStarted.Wrap(r.name)
	}

	pnl := make(map[string]int64, len(r.players))
	for _, name := range r.joinOrder {
		var total int64
		for symbol, pos := range r.positions[name] {
			value, err := Payoff(symbol, r.settlement)
			if err != nil {
				return err
			}
			total += pos.Size * value
		}
		pnl[name] = total
	}

	r.status = StatusSettled
	r.logger.Info("game settled", "pnl", pnl)
	metrics.GetCollector().GamesSettled.Inc()
	r.tellRoom(protocol.Message{Type: protocol.TypeSettlement, Data: pnl})
	return nil
}

// ApplyFill implements book.Ledger: debit or credit cash by price*size and
// roll the instrument position's VWAP, then push the player's positions.
func (r *Room) ApplyFill(player, instrument string, price, size int64, side book.Side) {
	row := r.positions[player]
	if side == book.SideBid {
		row[SymbolCash].Size -= price * size
	} else {
		row[SymbolCash].Size += price * size
	}
	row[instrument].applyFill(price, size, side)
	r.sendPositions(player)
}

// RecordTrade implements book.Ledger: append the taker print to the trade
// tape and rebroadcast the whole tape.
func (r *Room) RecordTrade(instrument string, price, size int64, takerSide book.Side) {
	r.trades = append(r.trades, Trade{
		Price:      price,
		Size:       size,
		Direction:  takerSide.String(),
		Instrument: instrument,
		Timestamp:  float64(time.Now().UnixMilli()) / 1000,
	})
	c := metrics.GetCollector()
	c.TradesTotal.WithLabelValues(r.name, instrument).Inc()
	c.TradeVolume.WithLabelValues(r.name, instrument).Add(float64(size))
	r.sendTrades()
}

// ============ Broadcast helpers ============

// tellRoom sends a message to every member, dropping failures silently;
// a member behind a dead connection catches up on rejoin.
func (r *Room) tellRoom(msg protocol.Message) {
	for _, p := range r.players {
		_ = p.Send(msg)
	}
}

func (r *Room) roomPlayersMessage() protocol.Message {
	return protocol.Message{
		Type: protocol.TypeRoomPlayersUpdate,
		Data: map[string]any{"room": r.name, "players": r.Players()},
	}
}

// sendCards privately deals each member their own piles.
func (r *Room) sendCards() {
	for name, p := range r.players {
		cards, ok := r.playerCards[name]
		if !ok {
			continue
		}
		_ = p.Send(protocol.Message{
			Type: protocol.TypeGameStart,
			Data: map[string]*Piles{"cards": cards},
		})
	}
}

func (r *Room) sendRevealedCards() {
	r.tellRoom(protocol.Message{Type: protocol.TypeRevealedCards, Data: r.revealedCards})
}

func (r *Room) sendInstruments() {
	r.tellRoom(protocol.Message{Type: protocol.TypeInstrumentsUpdate, Data: r.instruments})
}

// sendPositions pushes position snapshots: to one player when named, or to
// every member their own.
func (r *Room) sendPositions(specific string) {
	send := func(name string, p *Player) {
		row, ok := r.positions[name]
		if !ok {
			return
		}
		data := make(map[string]PositionView, len(row))
		for symbol, pos := range row {
			data[symbol] = pos.View()
		}
		_ = p.Send(protocol.Message{Type: protocol.TypePositionUpdate, Data: data})
	}

	if specific != "" {
		if p, ok := r.players[specific]; ok {
			send(specific, p)
		}
		return
	}
	for name, p := range r.players {
		send(name, p)
	}
}

// sendBooks broadcasts a full snapshot of every book, in instrument order.
func (r *Room) sendBooks() {
	for _, symbol := range r.instruments {
		r.tellRoom(r.books[symbol].Update())
	}
}

func (r *Room) sendTrades() {
	r.tellRoom(protocol.Message{Type: protocol.TypeTrade, Data: r.trades})
}

// sendOrders replays a player's open orders across all books.
func (r *Room) sendOrders(player string) {
	p, ok := r.players[player]
	if !ok {
		return
	}
	for _, symbol := range r.instruments {
		r.books[symbol].SendOrders(player, p)
	}
}
