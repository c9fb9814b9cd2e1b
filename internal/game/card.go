package game

import (
	"sort"
	"strings"
)

// Suit is the printable suit symbol used on the wire ("A♥", "10♠").
type Suit string

const (
	SuitSpades   Suit = "♠" // always trump
	SuitHearts   Suit = "♥"
	SuitDiamonds Suit = "♦"
	SuitClubs    Suit = "♣"
)

var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var rankValue = func() map[string]int {
	m := make(map[string]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i + 2
	}
	return m
}()

var suitOrder = func() map[Suit]int {
	m := make(map[Suit]int, len(Suits))
	for i, s := range Suits {
		m[s] = i
	}
	return m
}()

type Card struct {
	Rank string `json:"rank"`
	Suit Suit   `json:"suit"`
}

// Key renders the wire form, e.g. "10♠".
func (c Card) Key() string {
	return c.Rank + string(c.Suit)
}

// ParseCard parses the wire form back into a card. The suit symbol is the
// trailing rune; everything before it must be a known rank.
func ParseCard(key string) (Card, bool) {
	for _, s := range Suits {
		if strings.HasSuffix(key, string(s)) {
			rank := strings.TrimSuffix(key, string(s))
			if _, ok := rankValue[rank]; ok {
				return Card{Rank: rank, Suit: s}, true
			}
			return Card{}, false
		}
	}
	return Card{}, false
}

func RankValue(rank string) int {
	return rankValue[rank]
}

// NewDeck returns the full 52-card deck in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// SortHand orders a hand by suit (spades first) then ascending rank.
func SortHand(hand []Card) {
	sort.Slice(hand, func(i, j int) bool {
		if hand[i].Suit != hand[j].Suit {
			return suitOrder[hand[i].Suit] < suitOrder[hand[j].Suit]
		}
		return rankValue[hand[i].Rank] < rankValue[hand[j].Rank]
	})
}

// Compare reports whether a beats b (1), loses to b (-1) or ties (0) given
// the suit that led the trick. Trump beats any non-trump; same suit compares
// by rank; a lead-suit card beats an off-suit non-trump.
func Compare(a, b Card, lead Suit) int {
	aTrump := a.Suit == SuitSpades
	bTrump := b.Suit == SuitSpades
	if aTrump && !bTrump {
		return 1
	}
	if !aTrump && bTrump {
		return -1
	}

	if a.Suit == b.Suit {
		return compareInts(rankValue[a.Rank], rankValue[b.Rank])
	}

	aLead := a.Suit == lead
	bLead := b.Suit == lead
	if aLead && !bLead {
		return 1
	}
	if !aLead && bLead {
		return -1
	}

	return compareInts(rankValue[a.Rank], rankValue[b.Rank])
}

func compareInts(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func handContainsSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}
