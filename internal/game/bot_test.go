package game

import "testing"

func TestBotBidWeighsTrumpAndHonors(t *testing.T) {
	hand := []Card{
		{Rank: "A", Suit: SuitSpades},
		{Rank: "K", Suit: SuitSpades},
		{Rank: "3", Suit: SuitSpades},
		{Rank: "Q", Suit: SuitHearts},
		{Rank: "4", Suit: SuitDiamonds},
	}
	// 3 spades, 3 honors: round(1.8 + 1.05) = 3
	if got := BotBid(hand, 5); got != 3 {
		t.Fatalf("BotBid = %d, want 3", got)
	}
}

func TestBotBidClampedToMax(t *testing.T) {
	hand := []Card{
		{Rank: "A", Suit: SuitSpades},
		{Rank: "K", Suit: SuitSpades},
	}
	if got := BotBid(hand, 1); got != 1 {
		t.Fatalf("BotBid = %d, want clamp to 1", got)
	}
	if got := BotBid(nil, 3); got != 0 {
		t.Fatalf("BotBid on empty hand = %d, want 0", got)
	}
}

func TestBotCardFollowsSuitCheaply(t *testing.T) {
	hand := []Card{
		{Rank: "A", Suit: SuitHearts},
		{Rank: "3", Suit: SuitHearts},
		{Rank: "2", Suit: SuitSpades},
	}
	lead := SuitHearts
	card, ok := BotCard(hand, &lead)
	if !ok || card.Key() != "3♥" {
		t.Fatalf("expected lowest heart, got %v %v", card, ok)
	}
}

func TestBotCardTrumpsWhenVoid(t *testing.T) {
	hand := []Card{
		{Rank: "9", Suit: SuitSpades},
		{Rank: "2", Suit: SuitSpades},
		{Rank: "A", Suit: SuitClubs},
	}
	lead := SuitHearts
	card, ok := BotCard(hand, &lead)
	if !ok || card.Key() != "2♠" {
		t.Fatalf("expected lowest trump, got %v %v", card, ok)
	}
}

func TestBotCardLeadsLowestOverall(t *testing.T) {
	hand := []Card{
		{Rank: "K", Suit: SuitDiamonds},
		{Rank: "4", Suit: SuitClubs},
	}
	card, ok := BotCard(hand, nil)
	if !ok || card.Key() != "4♣" {
		t.Fatalf("expected overall lowest, got %v %v", card, ok)
	}
	if _, ok := BotCard(nil, nil); ok {
		t.Fatalf("empty hand should yield no card")
	}
}
