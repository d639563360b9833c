package lobby

import (
	"cosmossdk.io/log"
	"github.com/google/btree"

	"github.com/openalpha/cardex/game"
	"github.com/openalpha/cardex/metrics"
	"github.com/openalpha/cardex/protocol"
)

// btree degree for the room and player directories.
const directoryDegree = 8

type roomItem struct {
	name string
	room *game.Room
}

type playerItem struct {
	name   string
	player *game.Player
}

func lessRoom(a, b roomItem) bool     { return a.name < b.name }
func lessPlayer(a, b playerItem) bool { return a.name < b.name }

// Lobby is the directory of rooms and players, kept sorted by name so that
// RoomUpdate and PlayerUpdate frames list entries in a stable order. Like
// the rooms it owns, the lobby is mutated only from the engine's consumer
// goroutine and carries no locks.
type Lobby struct {
	logger  log.Logger
	rooms   *btree.BTreeG[roomItem]
	players *btree.BTreeG[playerItem]
}

// New creates an empty lobby.
func New(logger log.Logger) *Lobby {
	return &Lobby{
		logger:  logger.With("module", "lobby"),
		rooms:   btree.NewG(directoryDegree, lessRoom),
		players: btree.NewG(directoryDegree, lessPlayer),
	}
}

// NewRoom registers a room under a fresh name.
func (l *Lobby) NewRoom(name string) (*game.Room, error) {
	if _, ok := l.rooms.Get(roomItem{name: name}); ok {
		return nil, ErrRoomExists.Wrap(name)
	}
	r := game.NewRoom(name, l.logger)
	l.rooms.ReplaceOrInsert(roomItem{name: name, room: r})
	metrics.GetCollector().RoomsActive.Inc()
	l.logger.Info("room created", "room", name)
	return r, nil
}

// DeleteRoom removes a room. Rooms with a game in progress stay: deleting
// one would strand members mid-game with open positions.
func (l *Lobby) DeleteRoom(name string) error {
	item, ok := l.rooms.Get(roomItem{name: name})
	if !ok {
		return ErrUnknownRoom.Wrap(name)
	}
	if item.room.Status() == game.StatusStarted {
		return ErrRoomStarted.Wrap(name)
	}
	l.rooms.Delete(roomItem{name: name})
	metrics.GetCollector().RoomsActive.Dec()
	l.logger.Info("room deleted", "room", name)
	return nil
}

// Login resolves a player by name. A known name with the right password
// rebinds the player to the new connection; a known name with the wrong
// password is refused; a fresh name registers a new player. Returns true
// when the player already existed.
func (l *Lobby) Login(name, password string, sink protocol.Sink) (*game.Player, bool, error) {
	if item, ok := l.players.Get(playerItem{name: name}); ok {
		if !item.player.Authenticate(password) {
			return nil, true, ErrBadPassword.Wrap(name)
		}
		item.player.Attach(sink)
		l.logger.Info("player reconnected", "player", name)
		return item.player, true, nil
	}

	p := game.NewPlayer(name, password, sink)
	l.players.ReplaceOrInsert(playerItem{name: name, player: p})
	metrics.GetCollector().PlayersRegistered.Inc()
	l.logger.Info("player registered", "player", name)
	return p, false, nil
}

// DeletePlayer removes a player from the directory.
func (l *Lobby) DeletePlayer(name string) error {
	if _, ok := l.players.Get(playerItem{name: name}); !ok {
		return ErrUnknownPlayer.Wrap(name)
	}
	l.players.Delete(playerItem{name: name})
	metrics.GetCollector().PlayersRegistered.Dec()
	l.logger.Info("player deleted", "player", name)
	return nil
}

// Room looks up a room by name.
func (l *Lobby) Room(name string) (*game.Room, bool) {
	item, ok := l.rooms.Get(roomItem{name: name})
	if !ok {
		return nil, false
	}
	return item.room, true
}

// Player looks up a player by name.
func (l *Lobby) Player(name string) (*game.Player, bool) {
	item, ok := l.players.Get(playerItem{name: name})
	if !ok {
		return nil, false
	}
	return item.player, true
}

// Rooms returns all room names in sorted order.
func (l *Lobby) Rooms() []string {
	out := make([]string, 0, l.rooms.Len())
	l.rooms.Ascend(func(item roomItem) bool {
		out = append(out, item.name)
		return true
	})
	return out
}

// Players returns all player names in sorted order.
func (l *Lobby) Players() []string {
	out := make([]string, 0, l.players.Len())
	l.players.Ascend(func(item playerItem) bool {
		out = append(out, item.name)
		return true
	})
	return out
}

// RoomUpdate builds the lobby's room directory frame.
func (l *Lobby) RoomUpdate() protocol.Message {
	return protocol.Message{Type: protocol.TypeRoomUpdate, Data: l.Rooms()}
}

// PlayerUpdate builds the lobby's player directory frame.
func (l *Lobby) PlayerUpdate() protocol.Message {
	return protocol.Message{Type: protocol.TypePlayerUpdate, Data: l.Players()}
}
