package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Suits in deck order.
var suits = []string{"S", "H", "C", "D"}

// Card is a rank (1..13) and a suit (S, H, C, D). On the wire a card is the
// two-element array [rank, suit].
type Card struct {
	Rank int
	Suit string
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Rank, c.Suit})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &c.Rank); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &c.Suit)
}

func (c Card) String() string {
	return fmt.Sprintf("%d%s", c.Rank, c.Suit)
}

// Piles is a player's two card piles. The rank sum of each pile, across all
// players, forms the settlement value of the matching underlying.
type Piles struct {
	A []Card `json:"A"`
	B []Card `json:"B"`
}

func (p *Piles) pile(name string) *[]Card {
	if name == PileB {
		return &p.B
	}
	return &p.A
}

func (p *Piles) contains(name string, c Card) bool {
	for _, have := range *p.pile(name) {
		if have == c {
			return true
		}
	}
	return false
}

// Deck is a 52-card deck dealt without replacement. The remaining cards are
// reshuffled before every deal.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a fresh 52-card deck.
func NewDeck() *Deck {
	d := &Deck{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for rank := 1; rank <= 13; rank++ {
		for _, suit := range suits {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	return d
}

// Deal removes and returns one card. Returns false when the deck is empty.
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	if d.rng != nil {
		d.rng.Shuffle(len(d.cards), func(i, j int) {
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		})
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, true
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
