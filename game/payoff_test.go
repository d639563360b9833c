package game

import (
	"testing"
)

// TestPayoff tests the symbol grammar against fixed settlement values
func TestPayoff(t *testing.T) {
	settlement := map[string]int64{PileA: 45, PileB: 18}

	tests := []struct {
		symbol  string
		want    int64
		wantErr bool
	}{
		{symbol: "A", want: 45},
		{symbol: "B", want: 18},
		{symbol: "A - B", want: 27},
		{symbol: "B - A", want: -27},
		{symbol: "CASH", want: 1},
		{symbol: "A-20-CALL", want: 25},
		{symbol: "A-50-CALL", want: 0},
		{symbol: "A-50-PUT", want: 5},
		{symbol: "B-10-PUT", want: 0},
		{symbol: "B-10-CALL", want: 8},
		{symbol: "C-10-CALL", wantErr: true},
		{symbol: "A-x-CALL", wantErr: true},
		{symbol: "A-10-STRADDLE", wantErr: true},
		{symbol: "bogus", wantErr: true},
		{symbol: "A-10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := Payoff(tt.symbol, settlement)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.symbol)
				}
				return
			}
			if err != nil {
				t.Fatalf("payoff(%q): %v", tt.symbol, err)
			}
			if got != tt.want {
				t.Errorf("payoff(%q) = %d, expected %d", tt.symbol, got, tt.want)
			}
		})
	}
}

// TestValidSymbol tests grammar acceptance without settlement values
func TestValidSymbol(t *testing.T) {
	for _, symbol := range []string{"A", "B", "A - B", "B - A", "CASH", "A-13-CALL", "B-2-PUT"} {
		if !ValidSymbol(symbol) {
			t.Errorf("expected %q to be valid", symbol)
		}
	}
	for _, symbol := range []string{"", "AB", "A-B", "A-1-X", "D-5-CALL"} {
		if ValidSymbol(symbol) {
			t.Errorf("expected %q to be invalid", symbol)
		}
	}
}
