package game

import (
	"math/rand"
	"testing"
)

func TestCardsPerRoundSchedule(t *testing.T) {
	cases := []struct {
		round, n, want int
	}{
		{0, 4, 7},
		{6, 4, 1},
		{7, 4, 1},
		{13, 4, 7},
		{0, 8, 6},  // 52/8 = 6 caps the scheduled 7
		{0, 2, 7},  // plenty of deck for two players
		{13, 8, 6},
	}
	for _, tc := range cases {
		if got := CardsPerRound(tc.round, tc.n); got != tc.want {
			t.Fatalf("CardsPerRound(%d, %d) = %d, want %d", tc.round, tc.n, got, tc.want)
		}
	}
}

func TestDealConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := MinPlayers; n <= MaxPlayers; n++ {
		for round := 0; round < TotalRounds; round++ {
			hands, cardsPer := Deal(rng, n, round)
			if len(hands) != n {
				t.Fatalf("n=%d round=%d: got %d hands", n, round, len(hands))
			}
			seen := make(map[string]bool)
			for seat, hand := range hands {
				if len(hand) != cardsPer {
					t.Fatalf("n=%d round=%d seat=%d: hand size %d, want %d", n, round, seat, len(hand), cardsPer)
				}
				for _, c := range hand {
					if seen[c.Key()] {
						t.Fatalf("n=%d round=%d: duplicate card %s", n, round, c.Key())
					}
					seen[c.Key()] = true
				}
			}
			if len(seen) != cardsPer*n {
				t.Fatalf("n=%d round=%d: dealt %d distinct cards, want %d", n, round, len(seen), cardsPer*n)
			}
		}
	}
}

func TestDealHandsSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	hands, _ := Deal(rng, 4, 0)
	for seat, hand := range hands {
		for i := 1; i < len(hand); i++ {
			a, b := hand[i-1], hand[i]
			if suitOrder[a.Suit] > suitOrder[b.Suit] ||
				(a.Suit == b.Suit && rankValue[a.Rank] > rankValue[b.Rank]) {
				t.Fatalf("seat %d hand not sorted at %d: %s before %s", seat, i, a.Key(), b.Key())
			}
		}
	}
}

func TestDealOrderRoundRobin(t *testing.T) {
	seq := DealOrder(3, 2)
	want := []int{0, 1, 2, 0, 1, 2}
	if len(seq) != len(want) {
		t.Fatalf("got %d entries, want %d", len(seq), len(want))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("entry %d: got %d, want %d", i, seq[i], want[i])
		}
	}
}
