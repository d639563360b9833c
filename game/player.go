package game

import (
	"github.com/openalpha/cardex/protocol"
)

// Player is a named participant. The name is the stable identity across
// reconnects; the sink is the current transport connection and is replaced
// when the player logs in again. A player may be in several rooms; per-room
// state (cards, positions, orders) lives in the Room.
type Player struct {
	name     string
	password string
	sink     protocol.Sink
	rooms    map[string]struct{}
}

// NewPlayer creates a player bound to its first connection.
func NewPlayer(name, password string, sink protocol.Sink) *Player {
	return &Player{
		name:     name,
		password: password,
		sink:     sink,
		rooms:    make(map[string]struct{}),
	}
}

// Name returns the player's unique name.
func (p *Player) Name() string {
	return p.name
}

// Authenticate checks the re-login password.
func (p *Player) Authenticate(password string) bool {
	return p.password == password
}

// Attach replaces the player's outbound connection after a reconnect.
func (p *Player) Attach(sink protocol.Sink) {
	p.sink = sink
}

// Send forwards a message to the player's current connection. Implements
// protocol.Sink so orders and rooms can address the player directly.
func (p *Player) Send(msg protocol.Message) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Send(msg)
}

// JoinRoom records membership and privately confirms the current room.
// Returns false if the player is already in the room.
func (p *Player) JoinRoom(room string) bool {
	if _, ok := p.rooms[room]; ok {
		return false
	}
	p.rooms[room] = struct{}{}
	_ = p.Send(protocol.Message{
		Type: protocol.TypeCurrentRoom,
		Data: map[string]string{"name": room},
	})
	return true
}

// LeaveRoom drops membership. Returns false if the player was not in the room.
func (p *Player) LeaveRoom(room string) bool {
	if _, ok := p.rooms[room]; !ok {
		return false
	}
	delete(p.rooms, room)
	return true
}

// InRoom reports whether the player tracks membership of room.
func (p *Player) InRoom(room string) bool {
	_, ok := p.rooms[room]
	return ok
}
