package game

import (
	"strconv"
	"strings"
)

// Pile and instrument symbols.
const (
	PileA = "A"
	PileB = "B"

	SymbolCash     = "CASH"
	SymbolSpreadAB = "A - B"
	SymbolSpreadBA = "B - A"
	OptionTypeCall = "CALL"
	OptionTypePut  = "PUT"
	UnderlyingType = "underlying"
)

// Payoff resolves a symbol to its settlement value given the pile rank sums.
// Grammar: the pile underlyings A and B, the non-negative spread, CASH
// (constant 1), and <underlying>-<strike>-CALL|PUT European options.
func Payoff(symbol string, settlement map[string]int64) (int64, error) {
	switch symbol {
	case PileA, PileB:
		return settlement[symbol], nil
	case SymbolSpreadAB:
		return settlement[PileA] - settlement[PileB], nil
	case SymbolSpreadBA:
		return settlement[PileB] - settlement[PileA], nil
	case SymbolCash:
		return 1, nil
	}

	parts := strings.Split(symbol, "-")
	if len(parts) != 3 {
		return 0, ErrInvalidSymbol.Wrapf("symbol %q", symbol)
	}
	underlying := parts[0]
	if underlying != PileA && underlying != PileB {
		return 0, ErrInvalidSymbol.Wrapf("unknown underlying %q", underlying)
	}
	strike, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidSymbol.Wrapf("strike %q", parts[1])
	}

	switch parts[2] {
	case OptionTypeCall:
		return max64(0, settlement[underlying]-strike), nil
	case OptionTypePut:
		return max64(0, strike-settlement[underlying]), nil
	default:
		return 0, ErrInvalidSymbol.Wrapf("option type %q", parts[2])
	}
}

// ValidSymbol reports whether a symbol resolves under the payoff grammar.
func ValidSymbol(symbol string) bool {
	_, err := Payoff(symbol, map[string]int64{PileA: 0, PileB: 0})
	return err == nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
