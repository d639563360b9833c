package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cardex/protocol"
)

type recordingSink struct {
	msgs []protocol.Message
}

func (s *recordingSink) Send(msg protocol.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) byType(msgType string) []protocol.Message {
	var out []protocol.Message
	for _, m := range s.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// deadSink fails every send.
type deadSink struct{}

func (deadSink) Send(protocol.Message) error { return errSend }

var errSend = errors.New("send failed")

func ptr(v int64) *int64 { return &v }

// TestDecodeFrame tests single-object and array frames
func TestDecodeFrame(t *testing.T) {
	cmds, err := decodeFrame([]byte(`{"type":"NewRoom","data":{"name":"R"}}`))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, protocol.CmdNewRoom, cmds[0].Type)
	require.Equal(t, "R", cmds[0].Data.Name)

	cmds, err = decodeFrame([]byte(` [
		{"type":"NewPlayer","data":{"name":"P1","password":"pw"}},
		{"type":"JoinRoom","data":{"player":"P1","room":"R"}}
	]`))
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.Equal(t, "pw", cmds[0].Data.Password)
	require.Equal(t, "R", cmds[1].Data.Room)

	_, err = decodeFrame([]byte(`{"type":`))
	require.Error(t, err)

	cmds, err = decodeFrame([]byte(`{"type":"NewOrder","data":{"room":"R","player":"P1","instrument":"A","price":5,"size":3,"direction":"bid"}}`))
	require.NoError(t, err)
	require.NotNil(t, cmds[0].Data.Price)
	require.EqualValues(t, 5, *cmds[0].Data.Price)

	cmds, err = decodeFrame([]byte(`{"type":"RevealCard","data":{"room":"R","player":"P1","card":[5,"S"]}}`))
	require.NoError(t, err)
	require.NotNil(t, cmds[0].Data.Card)
	require.Equal(t, 5, cmds[0].Data.Card.Rank)
	require.Equal(t, "S", cmds[0].Data.Card.Suit)
}

// TestEngine_LobbyCommands tests room and player management end to end
func TestEngine_LobbyCommands(t *testing.T) {
	e := New(log.NewNopLogger())
	observer := &recordingSink{}
	e.connected[observer] = struct{}{}

	require.NoError(t, e.handle(Command{Type: protocol.CmdNewRoom, Data: CommandData{Name: "R"}}, observer))
	require.Error(t, e.handle(Command{Type: protocol.CmdNewRoom, Data: CommandData{Name: "R"}}, observer))

	_, ok := e.Lobby().Room("R")
	require.True(t, ok)

	updates := observer.byType(protocol.TypeRoomUpdate)
	require.NotEmpty(t, updates)
	require.Equal(t, []string{"R"}, updates[len(updates)-1].Data)

	p1 := &recordingSink{}
	require.NoError(t, e.handle(Command{Type: protocol.CmdNewPlayer, Data: CommandData{Name: "P1", Password: "pw"}}, p1))
	require.Len(t, p1.byType(protocol.TypePlayerDetails), 1)

	// Wrong password on an existing name
	require.Error(t, e.handle(Command{Type: protocol.CmdNewPlayer, Data: CommandData{Name: "P1", Password: "xx"}}, &recordingSink{}))

	require.NoError(t, e.handle(Command{Type: protocol.CmdJoinRoom, Data: CommandData{Player: "P1", Room: "R"}}, p1))
	require.Len(t, p1.byType(protocol.TypeCurrentRoom), 1)

	// Joining the same waiting room twice is refused and the roster keeps one entry
	require.Error(t, e.handle(Command{Type: protocol.CmdJoinRoom, Data: CommandData{Player: "P1", Room: "R"}}, p1))
	room, _ := e.Lobby().Room("R")
	require.Equal(t, []string{"P1"}, room.Players())

	// Unknown room or player reports Info, no crash
	require.Error(t, e.handle(Command{Type: protocol.CmdJoinRoom, Data: CommandData{Player: "P1", Room: "nope"}}, p1))
	require.Error(t, e.handle(Command{Type: protocol.CmdStartGame, Data: CommandData{Room: "nope"}}, p1))

	// Unknown command type answers the sender only
	require.Error(t, e.handle(Command{Type: "Bogus"}, p1))
	require.NotEmpty(t, p1.byType(protocol.TypeInfo))
}

// TestEngine_GameFlow tests a full game through the dispatcher
func TestEngine_GameFlow(t *testing.T) {
	e := New(log.NewNopLogger())
	p1 := &recordingSink{}
	p2 := &recordingSink{}
	e.connected[p1] = struct{}{}
	e.connected[p2] = struct{}{}

	steps := []struct {
		cmd  Command
		from protocol.Sink
	}{
		{Command{Type: protocol.CmdNewRoom, Data: CommandData{Name: "R"}}, p1},
		{Command{Type: protocol.CmdNewPlayer, Data: CommandData{Name: "P1", Password: "a"}}, p1},
		{Command{Type: protocol.CmdNewPlayer, Data: CommandData{Name: "P2", Password: "b"}}, p2},
		{Command{Type: protocol.CmdJoinRoom, Data: CommandData{Player: "P1", Room: "R"}}, p1},
		{Command{Type: protocol.CmdJoinRoom, Data: CommandData{Player: "P2", Room: "R"}}, p2},
		{Command{Type: protocol.CmdStartGame, Data: CommandData{Room: "R"}}, p1},
		{Command{Type: protocol.CmdNewOrder, Data: CommandData{
			Room: "R", Player: "P1", Instrument: "A",
			Price: ptr(5), Size: ptr(3), Direction: "bid",
		}}, p1},
		{Command{Type: protocol.CmdNewOrder, Data: CommandData{
			Room: "R", Player: "P2", Instrument: "A",
			Price: ptr(5), Size: ptr(2), Direction: "ask",
		}}, p2},
	}
	for _, step := range steps {
		require.NoError(t, e.handle(step.cmd, step.from), "command %s", step.cmd.Type)
	}

	room, ok := e.Lobby().Room("R")
	require.True(t, ok)

	pos, ok := room.Position("P1", "A")
	require.True(t, ok)
	require.EqualValues(t, 2, pos.Size)

	cash, _ := room.Position("P1", "CASH")
	require.EqualValues(t, -10, cash.Size)

	require.Len(t, room.Trades(), 1)
	require.NotEmpty(t, p1.byType(protocol.TypeOrderbookUpdate))
	require.NotEmpty(t, p1.byType(protocol.TypeGameStart))

	// Cancel the resting remainder
	require.NoError(t, e.handle(Command{Type: protocol.CmdCancelOrder, Data: CommandData{
		Room: "R", Player: "P1", Instrument: "A", Price: ptr(5), Direction: "bid",
	}}, p1))
	b, _ := room.Book("A")
	_, hasBid := b.BestBid()
	require.False(t, hasBid)

	require.NoError(t, e.handle(Command{Type: protocol.CmdSettleGame, Data: CommandData{Room: "R"}}, p1))
	require.NotEmpty(t, p1.byType(protocol.TypeSettlement))
}

// TestEngine_BroadcastEvictsDeadSinks tests transport failure isolation
func TestEngine_BroadcastEvictsDeadSinks(t *testing.T) {
	e := New(log.NewNopLogger())
	alive := &recordingSink{}
	e.connected[alive] = struct{}{}
	e.connected[deadSink{}] = struct{}{}

	e.broadcast(protocol.Info("ping"))

	require.Len(t, e.connected, 1)
	require.Len(t, alive.byType(protocol.TypeInfo), 1)
}

// TestEngine_RunLoop tests attach, submit, and serialization over the queue
func TestEngine_RunLoop(t *testing.T) {
	e := New(log.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	sink := &safeSink{}
	e.Attach(sink)
	e.Submit([]byte(`{"type":"NewRoom","data":{"name":"R"}}`), sink)

	require.Eventually(t, func() bool {
		return sink.count(protocol.TypeRoomUpdate) >= 2
	}, time.Second, 5*time.Millisecond, "expected the initial and post-create RoomUpdate")

	// Malformed frames answer the sender without touching the queue
	e.Submit([]byte(`{"type":`), sink)
	require.Eventually(t, func() bool {
		return sink.count(protocol.TypeInfo) >= 2
	}, time.Second, 5*time.Millisecond)
}

// safeSink is a concurrency-safe recorder for tests that run the queue.
type safeSink struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (s *safeSink) Send(msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *safeSink) count(msgType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}
