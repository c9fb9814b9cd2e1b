package game

import "sort"

// Snapshot is the per-seat view broadcast after every accepted command.
// Hands are redacted to the viewer's own cards, except in the one-card
// round where bidding visibility inverts.
type Snapshot struct {
	N           int           `json:"n"`
	Names       []*string     `json:"names"`
	BotSeats    []int         `json:"botSeats"`
	Phase       Phase         `json:"phase"`
	RoundIndex  int           `json:"roundIndex"`
	CardsPer    int           `json:"cardsPer"`
	DealID      int           `json:"dealId"`
	DealSeq     []int         `json:"dealSeq,omitempty"`
	Hands       [][]Card      `json:"hands"`
	Bids        []*int        `json:"bids"`
	Leader      int           `json:"leader"`
	Turn        int           `json:"turn"`
	LeadSuit    *Suit         `json:"leadSuit"`
	Table       []*Card       `json:"table"`
	Winner      *int          `json:"winner"`
	TricksRound []int         `json:"tricksRound"`
	TricksTotal []int         `json:"tricksTotal"`
	PointsTotal []int         `json:"pointsTotal"`
	History     []RoundResult `json:"history"`
}

// ViewerNone builds a spectator snapshot with every hand hidden.
const ViewerNone = -1

// BuildSnapshot renders the state as seen from viewer's seat.
//
// Redaction: only hands[viewer] is present. When cardsPer == 1 during
// dealing/bidding the rule inverts: the viewer sees every hand except
// their own (each player bids on a card they cannot see).
func BuildSnapshot(s *State, viewer int) Snapshot {
	snap := Snapshot{
		N:           s.N,
		Names:       publicNames(s.Names),
		BotSeats:    sortedBotSeats(s.BotSeats),
		Phase:       s.Phase,
		RoundIndex:  s.RoundIndex,
		CardsPer:    s.CardsPer,
		DealID:      s.DealID,
		DealSeq:     s.DealSeq,
		Hands:       make([][]Card, s.N),
		Bids:        append([]*int(nil), s.Bids...),
		Leader:      s.Leader,
		Turn:        s.Turn,
		LeadSuit:    s.LeadSuit,
		Table:       append([]*Card(nil), s.Table...),
		Winner:      s.Winner,
		TricksRound: append([]int(nil), s.TricksRound...),
		TricksTotal: append([]int(nil), s.TricksTotal...),
		PointsTotal: append([]int(nil), s.PointsTotal...),
		History:     append([]RoundResult(nil), s.History...),
	}

	if viewer < 0 || viewer >= s.N {
		return snap
	}

	if s.CardsPer == 1 && (s.Phase == PhaseDealing || s.Phase == PhaseBidding) {
		for seat := 0; seat < s.N; seat++ {
			if seat != viewer {
				snap.Hands[seat] = cloneHand(s.Hands[seat])
			}
		}
		return snap
	}

	snap.Hands[viewer] = cloneHand(s.Hands[viewer])
	return snap
}

func cloneHand(hand []Card) []Card {
	if hand == nil {
		return []Card{}
	}
	return append([]Card{}, hand...)
}

func publicNames(names []string) []*string {
	out := make([]*string, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		n := name
		out[i] = &n
	}
	return out
}

func sortedBotSeats(bots map[int]bool) []int {
	seats := make([]int, 0, len(bots))
	for seat, isBot := range bots {
		if isBot {
			seats = append(seats, seat)
		}
	}
	sort.Ints(seats)
	return seats
}
