package game

import "testing"

func TestParseCard(t *testing.T) {
	cases := []struct {
		key  string
		want Card
		ok   bool
	}{
		{"10♠", Card{Rank: "10", Suit: SuitSpades}, true},
		{"A♥", Card{Rank: "A", Suit: SuitHearts}, true},
		{"2♣", Card{Rank: "2", Suit: SuitClubs}, true},
		{"J♦", Card{Rank: "J", Suit: SuitDiamonds}, true},
		{"1♠", Card{}, false},
		{"T♠", Card{}, false},
		{"A", Card{}, false},
		{"", Card{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseCard(tc.key)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseCard(%q) = %+v, %v; want %+v, %v", tc.key, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCardKeyRoundTrip(t *testing.T) {
	for _, c := range NewDeck() {
		parsed, ok := ParseCard(c.Key())
		if !ok || parsed != c {
			t.Fatalf("round trip failed for %q: got %+v, %v", c.Key(), parsed, ok)
		}
	}
}

func TestCompareTrumpBeatsNonTrump(t *testing.T) {
	trump := Card{Rank: "2", Suit: SuitSpades}
	ace := Card{Rank: "A", Suit: SuitHearts}
	if Compare(trump, ace, SuitHearts) != 1 {
		t.Fatalf("expected lowest trump to beat off-suit ace")
	}
	if Compare(ace, trump, SuitHearts) != -1 {
		t.Fatalf("expected off-suit ace to lose to trump")
	}
}

func TestCompareSameSuitByRank(t *testing.T) {
	if Compare(Card{Rank: "A", Suit: SuitHearts}, Card{Rank: "K", Suit: SuitHearts}, SuitHearts) != 1 {
		t.Fatalf("expected A♥ to beat K♥")
	}
	if Compare(Card{Rank: "9", Suit: SuitClubs}, Card{Rank: "10", Suit: SuitClubs}, SuitClubs) != -1 {
		t.Fatalf("expected 9♣ to lose to 10♣")
	}
}

func TestCompareLeadSuitBeatsOffSuit(t *testing.T) {
	lead := Card{Rank: "3", Suit: SuitHearts}
	off := Card{Rank: "A", Suit: SuitDiamonds}
	if Compare(lead, off, SuitHearts) != 1 {
		t.Fatalf("expected low lead-suit card to beat off-suit ace")
	}
}

func TestSortHandSuitThenRank(t *testing.T) {
	hand := []Card{
		{Rank: "A", Suit: SuitClubs},
		{Rank: "2", Suit: SuitSpades},
		{Rank: "K", Suit: SuitHearts},
		{Rank: "3", Suit: SuitHearts},
	}
	SortHand(hand)
	want := []string{"2♠", "3♥", "K♥", "A♣"}
	for i, k := range want {
		if hand[i].Key() != k {
			t.Fatalf("position %d: got %q, want %q", i, hand[i].Key(), k)
		}
	}
}
