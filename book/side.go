package book

// Side represents the direction of an order or price level.
type Side int

const (
	SideNone Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "none"
	}
}

// Opposite returns the other trading side. SideNone maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideBid:
		return SideAsk
	case SideAsk:
		return SideBid
	default:
		return SideNone
	}
}

// TradeDirection returns the buy/sell wording used in trade confirmations.
func (s Side) TradeDirection() string {
	if s == SideBid {
		return "buy"
	}
	return "sell"
}

// ParseSide parses the wire representation of a trading side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "bid":
		return SideBid, nil
	case "ask":
		return SideAsk, nil
	default:
		return SideNone, ErrInvalidSide
	}
}

// Status represents the order lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
