package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"cosmossdk.io/log"

	"github.com/openalpha/cardex/game"
	"github.com/openalpha/cardex/lobby"
	"github.com/openalpha/cardex/metrics"
	"github.com/openalpha/cardex/protocol"
)

// queueSize bounds the inbound command queue shared by all connections.
const queueSize = 1024

type eventKind int

const (
	eventCommands eventKind = iota
	eventAttach
	eventDetach
)

type event struct {
	kind eventKind
	cmds []Command
	from protocol.Sink
}

// Stats counts engine activity for the periodic status log.
type Stats struct {
	CommandsProcessed atomic.Uint64
	FramesRejected    atomic.Uint64
	Connections       atomic.Int64
}

// Engine serializes every state mutation through a single queue consumer.
// Connections feed decoded commands in via Submit; Run dequeues one event at
// a time and applies it to the lobby and its rooms, so all game state is
// single-writer and lock-free.
type Engine struct {
	logger    log.Logger
	lobby     *lobby.Lobby
	queue     chan event
	connected map[protocol.Sink]struct{}
	stats     Stats
}

// New creates an engine around an empty lobby.
func New(logger log.Logger) *Engine {
	return &Engine{
		logger:    logger.With("module", "engine"),
		lobby:     lobby.New(logger),
		queue:     make(chan event, queueSize),
		connected: make(map[protocol.Sink]struct{}),
	}
}

// Lobby exposes the directory for inspection.
func (e *Engine) Lobby() *lobby.Lobby { return e.lobby }

// Stats exposes the engine counters.
func (e *Engine) Stats() *Stats { return &e.stats }

// Submit decodes a frame from one connection and enqueues its commands.
// Malformed frames are reported back to the sender only.
func (e *Engine) Submit(raw []byte, from protocol.Sink) {
	cmds, err := decodeFrame(raw)
	if err != nil {
		e.stats.FramesRejected.Add(1)
		e.logger.Debug("rejected frame", "err", err)
		_ = from.Send(protocol.Info("Invalid message"))
		return
	}
	e.queue <- event{kind: eventCommands, cmds: cmds, from: from}
}

// Attach registers a new connection. The connected set is only touched by
// the consumer, so registration rides the queue like any other event.
func (e *Engine) Attach(sink protocol.Sink) {
	e.queue <- event{kind: eventAttach, from: sink}
}

// Detach removes a closed connection.
func (e *Engine) Detach(sink protocol.Sink) {
	e.queue <- event{kind: eventDetach, from: sink}
}

// Run consumes the queue until the context is cancelled. It is the only
// goroutine that mutates the lobby, rooms, and connected set.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "commands", e.stats.CommandsProcessed.Load())
			return
		case ev := <-e.queue:
			switch ev.kind {
			case eventAttach:
				e.connected[ev.from] = struct{}{}
				e.stats.Connections.Add(1)
				_ = ev.from.Send(e.lobby.RoomUpdate())
				_ = ev.from.Send(e.lobby.PlayerUpdate())
			case eventDetach:
				delete(e.connected, ev.from)
				e.stats.Connections.Add(-1)
			case eventCommands:
				for _, cmd := range ev.cmds {
					err := e.handle(cmd, ev.from)
					e.stats.CommandsProcessed.Add(1)
					metrics.GetCollector().RecordCommand(cmd.Type, err)
					if err != nil {
						e.logger.Debug("command failed", "type", cmd.Type, "err", err)
					}
				}
			}
		}
	}
}

// handle applies one command. Errors are returned for accounting; every
// user-visible failure has already been reported as an Info message by the
// time handle returns.
func (e *Engine) handle(cmd Command, from protocol.Sink) error {
	d := cmd.Data
	switch cmd.Type {
	case protocol.CmdNewRoom:
		if _, err := e.lobby.NewRoom(d.Name); err != nil {
			e.broadcast(protocol.Info("Failed to create new room - duplicate name"))
			return err
		}
		e.broadcast(protocol.Info("New room successfully created"))
		e.broadcast(e.lobby.RoomUpdate())
		return nil

	case protocol.CmdDeleteRoom:
		if err := e.lobby.DeleteRoom(d.Name); err != nil {
			e.broadcast(protocol.Info("Failed to delete room - does not exist."))
			return err
		}
		e.broadcast(protocol.Info("Deleted room"))
		e.broadcast(e.lobby.RoomUpdate())
		return nil

	case protocol.CmdNewPlayer:
		p, _, err := e.lobby.Login(d.Name, d.Password, from)
		if err != nil {
			e.broadcast(protocol.Info("Failed to login - incorrect password"))
			return err
		}
		_ = p.Send(protocol.Message{Type: protocol.TypePlayerDetails, Data: d.Name})
		e.broadcast(protocol.Info(d.Name + " successfully joined game"))
		e.broadcast(e.lobby.PlayerUpdate())
		return nil

	case protocol.CmdDeletePlayer:
		if err := e.lobby.DeletePlayer(d.Name); err != nil {
			e.broadcast(protocol.Info("Failed to delete player - does not exist."))
			return err
		}
		e.broadcast(protocol.Info("Deleted player " + d.Name))
		e.broadcast(e.lobby.PlayerUpdate())
		return nil

	case protocol.CmdJoinRoom:
		room, player, err := e.resolve(d.Room, d.Player)
		if err != nil {
			e.broadcast(protocol.Info(d.Player + " failed to join " + d.Room))
			return err
		}
		if _, err := room.Join(player); err != nil {
			e.broadcast(protocol.Info(d.Player + " failed to join " + d.Room))
			return err
		}
		player.JoinRoom(d.Room)
		e.broadcast(protocol.Info(d.Player + " has joined " + d.Room))
		return nil

	case protocol.CmdLeaveRoom:
		room, player, err := e.resolve(d.Room, d.Player)
		if err != nil {
			e.broadcast(protocol.Info(d.Player + " failed to leave " + d.Room))
			return err
		}
		if !player.LeaveRoom(d.Room) {
			e.broadcast(protocol.Info(d.Player + " failed to leave " + d.Room))
			return lobby.ErrUnknownPlayer.Wrapf("%s not in %s", d.Player, d.Room)
		}
		if err := room.Leave(d.Player); err != nil {
			e.broadcast(protocol.Info(d.Player + " failed to leave " + d.Room))
			return err
		}
		e.broadcast(protocol.Info(d.Player + " has left " + d.Room))
		return nil

	case protocol.CmdStartGame:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		return room.StartGame()

	case protocol.CmdRevealCard:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		if d.Card == nil {
			return fmt.Errorf("reveal without a card")
		}
		return room.RevealCard(d.Player, *d.Card)

	case protocol.CmdNewInstrument:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		if d.Kind == game.UnderlyingType {
			return room.InitUnderlying()
		}
		return room.NewOption(d.Name, d.Kind, d.Strike)

	case protocol.CmdNewOrder:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		var price, size int64
		if d.Price != nil {
			price = *d.Price
		}
		if d.Size != nil {
			size = *d.Size
		}
		return room.NewOrder(d.Instrument, d.Player, price, size, d.Direction)

	case protocol.CmdCancelOrder:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		var price int64
		if d.Price != nil {
			price = *d.Price
		}
		return room.CancelOrder(d.Instrument, d.Player, price, d.Direction)

	case protocol.CmdSettleGame:
		room, ok := e.lobby.Room(d.Room)
		if !ok {
			e.broadcast(protocol.Info("Unknown room " + d.Room))
			return lobby.ErrUnknownRoom.Wrap(d.Room)
		}
		return room.SettleGame()

	default:
		e.logger.Debug("unknown command", "type", cmd.Type)
		_ = from.Send(protocol.Info("Unknown command " + cmd.Type))
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// resolve looks up a room and player together for the join/leave commands.
func (e *Engine) resolve(roomName, playerName string) (room *game.Room, player *game.Player, err error) {
	r, ok := e.lobby.Room(roomName)
	if !ok {
		return nil, nil, lobby.ErrUnknownRoom.Wrap(roomName)
	}
	p, ok := e.lobby.Player(playerName)
	if !ok {
		return nil, nil, lobby.ErrUnknownPlayer.Wrap(playerName)
	}
	return r, p, nil
}

// broadcast sends to every connection, dropping the ones whose send fails.
func (e *Engine) broadcast(msg protocol.Message) {
	for sink := range e.connected {
		if err := sink.Send(msg); err != nil {
			delete(e.connected, sink)
			e.stats.Connections.Add(-1)
		}
	}
}
