package game

import "math"

// BotBid estimates tricks from trump length and honor count: spades weigh
// 0.6 each, honors (J and up) 0.35, rounded and clamped to [0, maxBid].
func BotBid(hand []Card, maxBid int) int {
	spades := 0
	honors := 0
	for _, c := range hand {
		if c.Suit == SuitSpades {
			spades++
		}
		if RankValue(c.Rank) >= rankValue["J"] {
			honors++
		}
	}
	bid := int(math.Round(float64(spades)*0.6 + float64(honors)*0.35))
	if bid < 0 {
		bid = 0
	}
	if bid > maxBid {
		bid = maxBid
	}
	return bid
}

// BotCard picks the cheapest legal card: lowest of the lead suit if the
// hand can follow, else lowest trump, else the overall lowest card.
func BotCard(hand []Card, lead *Suit) (Card, bool) {
	if len(hand) == 0 {
		return Card{}, false
	}

	if lead != nil {
		if c, ok := lowestOfSuit(hand, *lead); ok {
			return c, true
		}
	}
	if c, ok := lowestOfSuit(hand, SuitSpades); ok {
		return c, true
	}

	best := hand[0]
	for _, c := range hand[1:] {
		if rankValue[c.Rank] < rankValue[best.Rank] {
			best = c
		}
	}
	return best, true
}

func lowestOfSuit(hand []Card, suit Suit) (Card, bool) {
	var best Card
	found := false
	for _, c := range hand {
		if c.Suit != suit {
			continue
		}
		if !found || rankValue[c.Rank] < rankValue[best.Rank] {
			best = c
			found = true
		}
	}
	return best, found
}
