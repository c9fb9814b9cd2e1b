// Package score hosts shared scoresheet rooms: a synced pen-and-paper
// score table for games played around a real deck, with no rules engine
// behind it.
package score

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"piratwhist-service/internal/game"
	"piratwhist-service/internal/push"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"
	"piratwhist-service/pkg/utils/random"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseSetup Phase = "setup"
	PhaseGame  Phase = "game"
)

const (
	FieldBid    = "bid"
	FieldTricks = "tricks"

	defaultPlayers = 4
	defaultRounds  = 14
	minRounds      = 4
	maxRounds      = 14
)

// Cell is one editable scoresheet cell; nil means not filled in yet.
type Cell struct {
	Bid    *int `json:"bid"`
	Tricks *int `json:"tricks"`
}

type Player struct {
	Name string `json:"name"`
}

// Sheet is the full shared state of one scoresheet room, broadcast whole
// on every change.
type Sheet struct {
	Phase       Phase    `json:"phase"`
	PlayerCount int      `json:"playerCount"`
	Rounds      int      `json:"rounds"`
	Players     []Player `json:"players"`
	MaxByRound  []int    `json:"maxByRound"`
	Data        [][]Cell `json:"data"` // [round][player]
}

type JoinSheetRequest struct {
	Room string `json:"room"`
}

type SetPlayerCountRequest struct {
	Room        string `json:"room"`
	PlayerCount int    `json:"playerCount"`
}

type SetRoundsRequest struct {
	Room   string `json:"room"`
	Rounds int    `json:"rounds"`
}

type SetNameRequest struct {
	Room  string `json:"room"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type StartGameRequest struct {
	Room string `json:"room"`
}

type SetCellRequest struct {
	Room   string `json:"room"`
	Round  int    `json:"round"`
	Player int    `json:"player"`
	Field  string `json:"field"`
	Value  *int   `json:"value"` // nil clears the cell
}

type ResetRequest struct {
	Room string `json:"room"`
}

func maxByRound(rounds int) []int {
	out := make([]int, rounds)
	for i := range out {
		out[i] = game.RoundSchedule[i%len(game.RoundSchedule)]
	}
	return out
}

func defaultSheet() *Sheet {
	s := &Sheet{
		Phase:       PhaseSetup,
		PlayerCount: defaultPlayers,
		Rounds:      defaultRounds,
		MaxByRound:  maxByRound(defaultRounds),
	}
	for i := 0; i < defaultPlayers; i++ {
		s.Players = append(s.Players, Player{Name: fmt.Sprintf("Player %d", i+1)})
	}
	s.Data = make([][]Cell, defaultRounds)
	for r := range s.Data {
		s.Data[r] = make([]Cell, defaultPlayers)
	}
	return s
}

// sheetRoom is one live scoresheet with its subscribers.
type sheetRoom struct {
	code string

	mu          sync.Mutex
	sheet       *Sheet
	subscribers map[int64]chan push.Message
	seq         int64
	emptySince  time.Time
}

// Service is the registry of live scoresheet rooms. Sheets are in-memory
// only: they mirror a paper sheet on the table and die with it.
type Service struct {
	emptyTTL      time.Duration
	purgeInterval time.Duration

	mu     sync.Mutex
	sheets map[string]*sheetRoom
	conns  map[int64]string // connID -> sheet code
}

func NewService(emptyTTL, purgeInterval time.Duration) *Service {
	return &Service{
		emptyTTL:      emptyTTL,
		purgeInterval: purgeInterval,
		sheets:        make(map[string]*sheetRoom),
		conns:         make(map[int64]string),
	}
}

// Start runs the purge loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.purgeEmpty(now)
			}
		}
	}()
}

func (s *Service) purgeEmpty(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, sh := range s.sheets {
		sh.mu.Lock()
		stale := len(sh.subscribers) == 0 && !sh.emptySince.IsZero() &&
			now.Sub(sh.emptySince) > s.emptyTTL
		sh.mu.Unlock()
		if stale {
			delete(s.sheets, code)
			logger.Log.Info("purged empty scoresheet", zap.String("sheet", code))
		}
	}
}

// Create allocates a fresh sheet and subscribes the creator.
func (s *Service) Create(connID int64, ch chan push.Message) string {
	s.mu.Lock()
	var code string
	for {
		code = random.Code(6)
		if _, taken := s.sheets[code]; !taken {
			break
		}
	}
	sh := &sheetRoom{
		code:        code,
		sheet:       defaultSheet(),
		subscribers: make(map[int64]chan push.Message),
	}
	s.sheets[code] = sh
	s.conns[connID] = code
	s.mu.Unlock()

	sh.mu.Lock()
	sh.subscribers[connID] = ch
	sh.pushLocked(connID)
	sh.mu.Unlock()

	logger.Log.Info("scoresheet created", zap.String("sheet", code))
	return code
}

func (s *Service) Join(connID int64, ch chan push.Message, req JoinSheetRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conns[connID] = sh.code
	s.mu.Unlock()

	sh.mu.Lock()
	sh.subscribers[connID] = ch
	sh.emptySince = time.Time{}
	sh.pushLocked(connID)
	sh.mu.Unlock()
	return nil
}

// Leave unsubscribes; it never fails so the client always gets its ack.
func (s *Service) Leave(connID int64, code string) {
	s.detach(connID, code)
}

func (s *Service) Disconnect(connID int64) {
	s.mu.Lock()
	code := s.conns[connID]
	s.mu.Unlock()
	if code != "" {
		s.detach(connID, code)
	}
}

func (s *Service) detach(connID int64, code string) {
	s.mu.Lock()
	delete(s.conns, connID)
	sh := s.sheets[normalizeCode(code)]
	s.mu.Unlock()
	if sh == nil {
		return
	}

	sh.mu.Lock()
	delete(sh.subscribers, connID)
	if len(sh.subscribers) == 0 {
		sh.emptySince = time.Now()
	}
	sh.mu.Unlock()
}

func (s *Service) lookup(code string) (*sheetRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[normalizeCode(code)]
	if !ok {
		return nil, appErr.ErrSheetNotFound
	}
	return sh, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SetPlayerCount resizes the player axis, keeping filled cells. Setup only.
func (s *Service) SetPlayerCount(req SetPlayerCountRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.sheet.Phase != PhaseSetup {
		return appErr.ErrPhaseMismatch
	}

	n := clamp(req.PlayerCount, game.MinPlayers, game.MaxPlayers)
	sh.sheet.PlayerCount = n

	for len(sh.sheet.Players) < n {
		sh.sheet.Players = append(sh.sheet.Players,
			Player{Name: fmt.Sprintf("Player %d", len(sh.sheet.Players)+1)})
	}
	sh.sheet.Players = sh.sheet.Players[:n]

	for r := range sh.sheet.Data {
		row := sh.sheet.Data[r]
		for len(row) < n {
			row = append(row, Cell{})
		}
		sh.sheet.Data[r] = row[:n]
	}

	sh.broadcastLocked()
	return nil
}

// SetRounds resizes the round axis and rebuilds the per-round maximum.
// Setup only.
func (s *Service) SetRounds(req SetRoundsRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.sheet.Phase != PhaseSetup {
		return appErr.ErrPhaseMismatch
	}

	rounds := clamp(req.Rounds, minRounds, maxRounds)
	sh.sheet.Rounds = rounds
	sh.sheet.MaxByRound = maxByRound(rounds)

	for len(sh.sheet.Data) < rounds {
		sh.sheet.Data = append(sh.sheet.Data, make([]Cell, sh.sheet.PlayerCount))
	}
	sh.sheet.Data = sh.sheet.Data[:rounds]

	sh.broadcastLocked()
	return nil
}

func (s *Service) SetName(req SetNameRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.sheet.Phase != PhaseSetup {
		return appErr.ErrPhaseMismatch
	}
	if req.Index < 0 || req.Index >= sh.sheet.PlayerCount {
		return appErr.ErrBadCell
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Player %d", req.Index+1)
	}
	sh.sheet.Players[req.Index].Name = name

	sh.broadcastLocked()
	return nil
}

func (s *Service) StartGame(req StartGameRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sheet.Phase = PhaseGame
	sh.broadcastLocked()
	return nil
}

// SetCell writes one bid/tricks cell, clamped to the round's maximum.
// Game phase only.
func (s *Service) SetCell(req SetCellRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.sheet.Phase != PhaseGame {
		return appErr.ErrPhaseMismatch
	}
	if req.Round < 0 || req.Round >= sh.sheet.Rounds {
		return appErr.ErrBadCell
	}
	if req.Player < 0 || req.Player >= sh.sheet.PlayerCount {
		return appErr.ErrBadCell
	}
	if req.Field != FieldBid && req.Field != FieldTricks {
		return appErr.ErrBadCell
	}

	cell := &sh.sheet.Data[req.Round][req.Player]
	if req.Value == nil {
		if req.Field == FieldBid {
			cell.Bid = nil
		} else {
			cell.Tricks = nil
		}
	} else {
		v := clamp(*req.Value, 0, sh.sheet.MaxByRound[req.Round])
		if req.Field == FieldBid {
			cell.Bid = &v
		} else {
			cell.Tricks = &v
		}
	}

	sh.broadcastLocked()
	return nil
}

// Reset wipes the sheet back to a fresh setup state.
func (s *Service) Reset(req ResetRequest) error {
	sh, err := s.lookup(req.Room)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sheet = defaultSheet()
	sh.broadcastLocked()
	return nil
}

// State returns a copy of the sheet; used by tests and the admin surface.
func (s *Service) State(code string) (Sheet, error) {
	sh, err := s.lookup(code)
	if err != nil {
		return Sheet{}, err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.snapshotLocked(), nil
}

type statePayload struct {
	Room  string `json:"room"`
	Sheet Sheet  `json:"sheet"`
}

func (sh *sheetRoom) broadcastLocked() {
	sh.seq++
	snap := sh.snapshotLocked()
	for connID, ch := range sh.subscribers {
		sh.send(connID, ch, push.Message{
			Type: "sheet_state",
			Seq:  sh.seq,
			Data: statePayload{Room: sh.code, Sheet: snap},
		})
	}
}

func (sh *sheetRoom) pushLocked(connID int64) {
	ch, ok := sh.subscribers[connID]
	if !ok {
		return
	}
	sh.seq++
	sh.send(connID, ch, push.Message{
		Type: "sheet_state",
		Seq:  sh.seq,
		Data: statePayload{Room: sh.code, Sheet: sh.snapshotLocked()},
	})
}

func (sh *sheetRoom) send(connID int64, ch chan push.Message, msg push.Message) {
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("sheet subscriber channel full",
			zap.String("sheet", sh.code),
			zap.Int64("connID", connID),
		)
	}
}

// snapshotLocked deep-copies the sheet so frames never alias live state.
func (sh *sheetRoom) snapshotLocked() Sheet {
	src := sh.sheet
	out := Sheet{
		Phase:       src.Phase,
		PlayerCount: src.PlayerCount,
		Rounds:      src.Rounds,
		Players:     append([]Player(nil), src.Players...),
		MaxByRound:  append([]int(nil), src.MaxByRound...),
		Data:        make([][]Cell, len(src.Data)),
	}
	for r, row := range src.Data {
		cells := make([]Cell, len(row))
		for p, c := range row {
			if c.Bid != nil {
				v := *c.Bid
				cells[p].Bid = &v
			}
			if c.Tricks != nil {
				v := *c.Tricks
				cells[p].Tricks = &v
			}
		}
		out.Data[r] = cells
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
