package game

import (
	"math/rand"

	appErr "piratwhist-service/pkg/errors"
)

type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseDealing       Phase = "dealing"
	PhaseBidding       Phase = "bidding"
	PhasePlaying       Phase = "playing"
	PhaseBetweenTricks Phase = "between_tricks"
	PhaseRoundFinished Phase = "round_finished"
	PhaseGameFinished  Phase = "game_finished"
)

// Command names the engine-level operations gated by the phase table.
type Command string

const (
	CmdUpdateLobby Command = "update_lobby"
	CmdStartGame   Command = "start_game"
	CmdSetBid      Command = "set_bid"
	CmdPlayCard    Command = "play_card"
	CmdNext        Command = "next"
)

// commandPhases is the single transition gate: command -> phases in which
// it is accepted. Handlers never re-check phase ad hoc.
var commandPhases = map[Command][]Phase{
	CmdUpdateLobby: {PhaseLobby},
	CmdStartGame:   {PhaseLobby},
	CmdSetBid:      {PhaseBidding},
	CmdPlayCard:    {PhasePlaying},
	CmdNext:        {PhaseBetweenTricks, PhaseRoundFinished},
}

// EnsurePhase rejects a command outside its allowed phases.
func (s *State) EnsurePhase(cmd Command) error {
	for _, p := range commandPhases[cmd] {
		if s.Phase == p {
			return nil
		}
	}
	return appErr.ErrPhaseMismatch
}

// RoundResult is one finalized, append-only history row.
type RoundResult struct {
	Round    int   `json:"round"` // 1-based, as shown on the scoresheet
	CardsPer int   `json:"cardsPer"`
	Bids     []int `json:"bids"`
	Taken    []int `json:"taken"`
	Points   []int `json:"points"`
}

// State is the full authority state of one room's game. All mutation goes
// through the command methods below; the room runtime serializes access.
type State struct {
	N        int
	Names    []string // "" = vacant seat
	BotSeats map[int]bool

	Phase      Phase
	RoundIndex int
	CardsPer   int

	DealID  int
	DealSeq []int

	Hands  [][]Card
	Bids   []*int
	Leader int
	Turn   int

	LeadSuit *Suit
	Table    []*Card
	Winner   *int

	TricksRound []int
	TricksTotal []int
	PointsTotal []int
	History     []RoundResult
}

// NewState returns a lobby-phase state for n seats.
func NewState(n int) *State {
	return &State{
		N:           n,
		Names:       make([]string, n),
		BotSeats:    make(map[int]bool),
		Phase:       PhaseLobby,
		Hands:       make([][]Card, n),
		Bids:        make([]*int, n),
		Table:       make([]*Card, n),
		TricksRound: make([]int, n),
		TricksTotal: make([]int, n),
		PointsTotal: make([]int, n),
		History:     []RoundResult{},
	}
}

// StartRound deals the current round and resets per-round fields. Dealing is
// a pure data operation: the state passes through "dealing" and lands in
// "bidding" within the same command; any deal animation is replayed
// client-side from dealId/dealSeq.
func (s *State) StartRound(rng *rand.Rand) {
	s.Phase = PhaseDealing

	hands, cardsPer := Deal(rng, s.N, s.RoundIndex)
	s.Hands = hands
	s.CardsPer = cardsPer
	s.DealID++
	s.DealSeq = DealOrder(s.N, cardsPer)

	s.Leader = s.RoundIndex % s.N
	s.Turn = s.Leader
	s.LeadSuit = nil
	s.Table = make([]*Card, s.N)
	s.Winner = nil
	s.Bids = make([]*int, s.N)
	s.TricksRound = make([]int, s.N)

	s.Phase = PhaseBidding
}

// SetBid records a seat's bid. Bids are immutable once set and bounded by
// the cards dealt this round. All bids in moves the state to playing.
func (s *State) SetBid(seat, bid int) error {
	if err := s.EnsurePhase(CmdSetBid); err != nil {
		return err
	}
	if seat < 0 || seat >= s.N {
		return appErr.ErrSeatUnavailable
	}
	if s.Bids[seat] != nil {
		return appErr.ErrInvalidBid
	}
	if bid < 0 || bid > s.CardsPer {
		return appErr.ErrInvalidBid
	}

	b := bid
	s.Bids[seat] = &b

	if s.AllBidsIn() {
		s.Phase = PhasePlaying
		s.Turn = s.Leader
	}
	return nil
}

func (s *State) AllBidsIn() bool {
	for _, b := range s.Bids {
		if b == nil {
			return false
		}
	}
	return true
}

// PlayCard plays the given card key for seat. On the trick's last card it
// resolves the winner immediately; on the round's last trick it scores the
// round. The engine never waits for presentation timing.
func (s *State) PlayCard(seat int, key string) error {
	if err := s.EnsurePhase(CmdPlayCard); err != nil {
		return err
	}
	if seat != s.Turn {
		return appErr.ErrNotYourTurn
	}

	hand := s.Hands[seat]
	idx := -1
	for i, c := range hand {
		if c.Key() == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return appErr.ErrIllegalMove
	}
	card := hand[idx]

	if s.LeadSuit != nil && card.Suit != *s.LeadSuit && handContainsSuit(hand, *s.LeadSuit) {
		return appErr.ErrIllegalMove
	}

	s.Hands[seat] = append(hand[:idx], hand[idx+1:]...)
	if s.LeadSuit == nil {
		suit := card.Suit
		s.LeadSuit = &suit
	}
	played := card
	s.Table[seat] = &played

	s.advanceTurn(seat)

	if s.tableFull() {
		s.resolveTrick()
	}
	return nil
}

func (s *State) advanceTurn(from int) {
	next := (from + 1) % s.N
	for i := 0; i < s.N; i++ {
		if s.Table[next] == nil {
			s.Turn = next
			return
		}
		next = (next + 1) % s.N
	}
}

func (s *State) tableFull() bool {
	for _, c := range s.Table {
		if c == nil {
			return false
		}
	}
	return true
}

func (s *State) resolveTrick() {
	winner := s.Leader
	best := *s.Table[winner]
	for seat := 0; seat < s.N; seat++ {
		c := s.Table[seat]
		if Compare(*c, best, *s.LeadSuit) > 0 {
			best = *c
			winner = seat
		}
	}

	w := winner
	s.Winner = &w
	s.TricksRound[winner]++
	s.TricksTotal[winner]++

	if s.handsEmpty() {
		s.scoreRound()
		s.Phase = PhaseRoundFinished
		return
	}
	s.Phase = PhaseBetweenTricks
}

func (s *State) handsEmpty() bool {
	for _, h := range s.Hands {
		if len(h) > 0 {
			return false
		}
	}
	return true
}

func (s *State) scoreRound() {
	bids := make([]int, s.N)
	for seat, b := range s.Bids {
		if b != nil {
			bids[seat] = *b
		}
	}
	taken := append([]int(nil), s.TricksRound...)
	points := make([]int, s.N)
	for seat := 0; seat < s.N; seat++ {
		points[seat] = PointsForRound(bids[seat], taken[seat])
		s.PointsTotal[seat] += points[seat]
	}
	s.History = append(s.History, RoundResult{
		Round:    s.RoundIndex + 1,
		CardsPer: s.CardsPer,
		Bids:     bids,
		Taken:    taken,
		Points:   points,
	})
}

// Next advances past a resolved trick or a finished round. From
// between_tricks the last trick's winner leads the next one; from
// round_finished the next round is dealt, or the game ends after the last
// scheduled round.
func (s *State) Next(rng *rand.Rand) error {
	if err := s.EnsurePhase(CmdNext); err != nil {
		return err
	}

	switch s.Phase {
	case PhaseBetweenTricks:
		s.Leader = *s.Winner
		s.Turn = s.Leader
		s.LeadSuit = nil
		s.Table = make([]*Card, s.N)
		s.Winner = nil
		s.Phase = PhasePlaying

	case PhaseRoundFinished:
		if s.RoundIndex+1 >= TotalRounds {
			s.Phase = PhaseGameFinished
			return nil
		}
		s.RoundIndex++
		s.StartRound(rng)
	}
	return nil
}

// PointsForRound implements the scoring rule: 10+bid on an exact match,
// otherwise minus the absolute miss.
func PointsForRound(bid, taken int) int {
	if bid == taken {
		return 10 + bid
	}
	diff := taken - bid
	if diff < 0 {
		diff = -diff
	}
	return -diff
}
