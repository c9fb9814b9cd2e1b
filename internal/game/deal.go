package game

import "math/rand"

const (
	DeckSize   = 52
	MinPlayers = 2
	MaxPlayers = 8
)

// RoundSchedule is the cards-per-player sequence over a full game:
// down from seven to one, one again, back up to seven.
var RoundSchedule = []int{7, 6, 5, 4, 3, 2, 1, 1, 2, 3, 4, 5, 6, 7}

// TotalRounds is the length of a full game.
var TotalRounds = len(RoundSchedule)

// CardsPerRound caps the scheduled hand size so the deck always suffices:
// cardsPer = max(1, min(schedule[round], 52/n)).
func CardsPerRound(roundIndex, n int) int {
	if n < 1 {
		n = 1
	}
	requested := RoundSchedule[roundIndex%len(RoundSchedule)]
	limit := DeckSize / n
	cardsPer := requested
	if cardsPer > limit {
		cardsPer = limit
	}
	if cardsPer < 1 {
		cardsPer = 1
	}
	return cardsPer
}

// Deal shuffles a fresh deck and distributes cardsPer*n cards round-robin
// starting at seat 0. Hands come back sorted for display.
func Deal(rng *rand.Rand, n, roundIndex int) ([][]Card, int) {
	cardsPer := CardsPerRound(roundIndex, n)
	needed := cardsPer * n

	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	hands := make([][]Card, n)
	for seat := range hands {
		hands[seat] = make([]Card, 0, cardsPer)
	}
	for i, c := range deck[:needed] {
		hands[i%n] = append(hands[i%n], c)
	}
	for seat := range hands {
		SortHand(hands[seat])
	}
	return hands, cardsPer
}

// DealOrder is the seat sequence cards leave the deck in, recorded per deal
// so clients can replay the animation; the rules ignore it.
func DealOrder(n, cardsPer int) []int {
	seq := make([]int, cardsPer*n)
	for i := range seq {
		seq[i] = i % n
	}
	return seq
}
