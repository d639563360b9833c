package protocol

// Outbound message types.
const (
	TypeInfo              = "Info"
	TypeRoomUpdate        = "RoomUpdate"
	TypePlayerUpdate      = "PlayerUpdate"
	TypePlayerDetails     = "PlayerDetails"
	TypeCurrentRoom       = "CurrentRoom"
	TypeRoomPlayersUpdate = "RoomPlayersUpdate"
	TypeGameStart         = "GameStart"
	TypeRevealedCards     = "RevealedCards"
	TypeInstrumentsUpdate = "InstrumentsUpdate"
	TypePositionUpdate    = "PositionUpdate"
	TypeOrderbookUpdate   = "OrderbookUpdate"
	TypeOrderUpdate       = "OrderUpdate"
	TypeTradeUpdate       = "TradeUpdate"
	TypeTrade             = "Trade"
	TypeSettlement        = "Settlement"
)

// Inbound command types.
const (
	CmdNewRoom       = "NewRoom"
	CmdDeleteRoom    = "DeleteRoom"
	CmdNewPlayer     = "NewPlayer"
	CmdDeletePlayer  = "DeletePlayer"
	CmdJoinRoom      = "JoinRoom"
	CmdLeaveRoom     = "LeaveRoom"
	CmdStartGame     = "StartGame"
	CmdRevealCard    = "RevealCard"
	CmdNewInstrument = "NewInstrument"
	CmdNewOrder      = "NewOrder"
	CmdCancelOrder   = "CancelOrder"
	CmdSettleGame    = "SettleGame"
)

// Message is the outbound wire envelope. Every outbound frame is a JSON
// object with a top-level "type"; Info carries "status", OrderbookUpdate
// carries "symbol", everything else puts its payload under "data".
type Message struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Info builds an informational status message.
func Info(status string) Message {
	return Message{Type: TypeInfo, Status: status}
}

// Sink is a destination for outbound messages: a live websocket connection,
// a player (which forwards to its current connection), or a test recorder.
type Sink interface {
	Send(msg Message) error
}
