package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"piratwhist-service/internal/game"
	"piratwhist-service/internal/push"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"

	"go.uber.org/zap"
)

type clientInfo struct {
	seat     int
	lastSeen time.Time
}

// Runtime owns all state for one room. Every command is serialized under
// one mutex: a room is a single-writer state machine, rooms are independent.
type Runtime struct {
	code string
	cfg  Config

	mu  sync.Mutex
	st  *game.State
	rng *rand.Rand

	members     map[int64]int    // connID -> seat
	connClients map[int64]string // connID -> stable clientId
	clients     map[string]*clientInfo
	subscribers map[int64]chan push.Message
	seq         int64

	createdAt  time.Time
	startedAt  time.Time
	emptySince time.Time

	takeoverMarks map[int]time.Time

	finished bool
	onFinish func(FinishedGame)
}

func newRuntime(code string, cfg Config, rng *rand.Rand, onFinish func(FinishedGame)) *Runtime {
	return &Runtime{
		code:          code,
		cfg:           cfg,
		rng:           rng,
		members:       make(map[int64]int),
		connClients:   make(map[int64]string),
		clients:       make(map[string]*clientInfo),
		subscribers:   make(map[int64]chan push.Message),
		createdAt:     time.Now(),
		takeoverMarks: make(map[int]time.Time),
		onFinish:      onFinish,
	}
}

func (rt *Runtime) Code() string { return rt.code }

// seatHost initializes the lobby for a freshly created room and seats the
// creator at 0.
func (rt *Runtime) seatHost(connID int64, ch chan push.Message, req CreateRoomRequest) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := req.Players
	if n < game.MinPlayers || n > game.MaxPlayers {
		n = 4
	}
	bots := req.Bots
	if bots < 0 {
		bots = 0
	}
	if bots > n-1 {
		bots = n - 1
	}

	st := game.NewState(n)
	st.Names[0] = nameOrDefault(req.Name, 0)
	for i := 0; i < bots; i++ {
		seat := i + 1
		st.BotSeats[seat] = true
		st.Names[seat] = fmt.Sprintf("Computer %d", i+1)
	}
	rt.st = st

	rt.members[connID] = 0
	rt.subscribers[connID] = ch
	if req.ClientID != "" {
		rt.clients[req.ClientID] = &clientInfo{seat: 0, lastSeen: time.Now()}
		rt.connClients[connID] = req.ClientID
	}

	rt.pushStateLocked(connID)
}

// Join seats a connection: a known clientId rebinds to its reserved seat,
// anyone else takes the lowest free human seat.
func (rt *Runtime) Join(connID int64, ch chan push.Message, req JoinRoomRequest) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.emptySince = time.Time{}
	now := time.Now()

	seat := -1
	if req.ClientID != "" {
		if ci, ok := rt.clients[req.ClientID]; ok {
			seat = ci.seat
			ci.lastSeen = now
		}
	}
	if seat < 0 {
		occupied := rt.occupiedSeatsLocked(now)
		for s := 0; s < rt.st.N; s++ {
			if !occupied[s] && !rt.st.BotSeats[s] {
				seat = s
				break
			}
		}
	}
	if seat < 0 {
		return appErr.ErrRoomFull
	}

	// A reconnecting client may still have a stale connection registered;
	// detach it so the seat has exactly one live subscriber.
	if req.ClientID != "" {
		for oldConn, cid := range rt.connClients {
			if cid == req.ClientID && oldConn != connID {
				delete(rt.members, oldConn)
				delete(rt.connClients, oldConn)
				delete(rt.subscribers, oldConn)
			}
		}
	}

	rt.members[connID] = seat
	rt.subscribers[connID] = ch
	if req.ClientID != "" {
		rt.clients[req.ClientID] = &clientInfo{seat: seat, lastSeen: now}
		rt.connClients[connID] = req.ClientID
	}
	rt.st.Names[seat] = nameOrDefault(req.Name, seat)
	delete(rt.takeoverMarks, seat)

	rt.broadcastStateLocked()
	return nil
}

// occupiedSeatsLocked counts live members plus seats reserved for recently
// seen clients (redirects and reloads keep their seat for a grace window).
func (rt *Runtime) occupiedSeatsLocked(now time.Time) map[int]bool {
	occupied := make(map[int]bool)
	for _, seat := range rt.members {
		occupied[seat] = true
	}
	for _, ci := range rt.clients {
		if now.Sub(ci.lastSeen) < rt.cfg.ReconnectGrace {
			occupied[ci.seat] = true
		}
	}
	return occupied
}

// Leave handles an explicit leave: the seat is really given up. Mid-game a
// bot takes over immediately; in the lobby the seat is vacated.
func (rt *Runtime) Leave(connID int64, clientID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, wasMember := rt.members[connID]
	delete(rt.members, connID)
	delete(rt.subscribers, connID)
	delete(rt.connClients, connID)
	if clientID != "" {
		delete(rt.clients, clientID)
	}

	if !wasMember {
		return
	}

	if rt.st.Phase == game.PhaseLobby {
		rt.st.Names[seat] = ""
		if len(rt.members) > 0 {
			rt.broadcastStateLocked()
		}
	} else {
		rt.botTakeoverLocked(seat)
	}

	if len(rt.members) == 0 {
		rt.emptySince = time.Now()
	}
}

// HandleDisconnect detaches a dropped connection but keeps the seat
// reserved for its clientId; mid-game a bot claims the seat after the
// takeover grace period unless the client comes back.
func (rt *Runtime) HandleDisconnect(connID int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, wasMember := rt.members[connID]
	clientID := rt.connClients[connID]
	delete(rt.members, connID)
	delete(rt.subscribers, connID)
	delete(rt.connClients, connID)

	if !wasMember {
		return
	}

	if clientID != "" {
		if ci, ok := rt.clients[clientID]; ok {
			ci.lastSeen = time.Now()
		}
	} else if rt.st.Phase == game.PhaseLobby {
		rt.st.Names[seat] = ""
	}

	if rt.st.Phase != game.PhaseLobby {
		rt.scheduleTakeoverLocked(seat, clientID)
	}

	if len(rt.members) == 0 {
		rt.emptySince = time.Now()
		return
	}
	rt.broadcastStateLocked()
}

// UpdateLobby reshapes the room: host only, lobby only, and only while the
// host is alone (other humans would lose their seats).
func (rt *Runtime) UpdateLobby(connID int64, req UpdateLobbyRequest) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.members[connID]
	if !ok {
		return appErr.ErrNotInRoom
	}
	if seat != 0 {
		return appErr.ErrNotHost
	}
	if err := rt.st.EnsurePhase(game.CmdUpdateLobby); err != nil {
		return err
	}
	if len(rt.members) > 1 {
		return appErr.ErrLobbyOccupied
	}

	n := req.Players
	if n < game.MinPlayers || n > game.MaxPlayers {
		return appErr.ErrLobbyConfig
	}
	bots := req.Bots
	if bots < 0 || bots > n-1 {
		return appErr.ErrLobbyConfig
	}

	hostName := req.Name
	if hostName == "" {
		hostName = rt.st.Names[0]
	}

	st := game.NewState(n)
	st.Names[0] = nameOrDefault(hostName, 0)
	for i := 0; i < bots; i++ {
		s := i + 1
		st.BotSeats[s] = true
		st.Names[s] = fmt.Sprintf("Computer %d", i+1)
	}
	rt.st = st

	rt.broadcastStateLocked()
	return nil
}

// StartGame begins round 0. Empty seats are filled with bots so the game
// always has n active players.
func (rt *Runtime) StartGame(connID int64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.members[connID]
	if !ok {
		return appErr.ErrNotInRoom
	}
	if seat != 0 {
		return appErr.ErrNotHost
	}
	if err := rt.st.EnsurePhase(game.CmdStartGame); err != nil {
		return err
	}

	humanSeats := make(map[int]bool)
	for _, s := range rt.members {
		humanSeats[s] = true
	}
	botIndex := 1
	for s := 0; s < rt.st.N; s++ {
		if humanSeats[s] {
			if rt.st.Names[s] == "" {
				rt.st.Names[s] = nameOrDefault("", s)
			}
			continue
		}
		rt.st.BotSeats[s] = true
		rt.st.Names[s] = fmt.Sprintf("Computer %d", botIndex)
		botIndex++
	}

	rt.startedAt = time.Now()
	rt.st.RoundIndex = 0
	rt.st.StartRound(rt.rng)
	rt.afterMutationLocked()
	return nil
}

func (rt *Runtime) SetBid(connID int64, bid int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.members[connID]
	if !ok {
		return appErr.ErrNotInRoom
	}
	if err := rt.st.SetBid(seat, bid); err != nil {
		return err
	}
	rt.afterMutationLocked()
	return nil
}

func (rt *Runtime) PlayCard(connID int64, cardKey string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.members[connID]
	if !ok {
		return appErr.ErrNotInRoom
	}
	if err := rt.st.EnsurePhase(game.CmdPlayCard); err != nil {
		return err
	}
	if rt.st.Turn != seat {
		return appErr.ErrNotYourTurn
	}
	if err := rt.st.PlayCard(seat, cardKey); err != nil {
		return err
	}
	rt.afterMutationLocked()
	return nil
}

func (rt *Runtime) Next(connID int64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.members[connID]; !ok {
		return appErr.ErrNotInRoom
	}
	if err := rt.st.Next(rt.rng); err != nil {
		return err
	}
	rt.afterMutationLocked()
	return nil
}

// afterMutationLocked runs the engine's follow-up work after any accepted
// command: bot bids, bot turns, scheduled auto-advances, game persistence,
// and the state broadcast. It never blocks on presentation timing.
func (rt *Runtime) afterMutationLocked() {
	if rt.st.Phase == game.PhaseBidding {
		rt.applyBotBidsLocked()
	}

	switch rt.st.Phase {
	case game.PhasePlaying:
		if rt.st.BotSeats[rt.st.Turn] {
			rt.scheduleBotTurnLocked()
		}
	case game.PhaseBetweenTricks:
		// Humans click through tricks themselves; only bot rooms advance
		// on their own.
		if len(rt.st.BotSeats) > 0 {
			rt.scheduleAutoNextLocked()
		}
	case game.PhaseRoundFinished:
		rt.scheduleAutoNextLocked()
	case game.PhaseGameFinished:
		rt.finishGameLocked()
	}

	rt.broadcastStateLocked()
}

func (rt *Runtime) applyBotBidsLocked() {
	for seat := 0; seat < rt.st.N; seat++ {
		if !rt.st.BotSeats[seat] || rt.st.Bids[seat] != nil {
			continue
		}
		bid := game.BotBid(rt.st.Hands[seat], rt.st.CardsPer)
		if err := rt.st.SetBid(seat, bid); err != nil {
			logger.Log.Warn("bot bid rejected",
				zap.String("room", rt.code),
				zap.Int("seat", seat),
				zap.Error(err),
			)
			return
		}
	}
}

func (rt *Runtime) scheduleBotTurnLocked() {
	expect := rt.st.Turn
	dealID := rt.st.DealID
	time.AfterFunc(rt.cfg.BotMoveDelay, func() {
		rt.botMove(expect, dealID)
	})
}

func (rt *Runtime) botMove(expectSeat, expectDeal int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.st == nil || rt.st.Phase != game.PhasePlaying {
		return
	}
	if rt.st.Turn != expectSeat || rt.st.DealID != expectDeal || !rt.st.BotSeats[expectSeat] {
		return
	}

	card, ok := game.BotCard(rt.st.Hands[expectSeat], rt.st.LeadSuit)
	if !ok {
		return
	}
	if err := rt.st.PlayCard(expectSeat, card.Key()); err != nil {
		logger.Log.Warn("bot play rejected",
			zap.String("room", rt.code),
			zap.Int("seat", expectSeat),
			zap.String("card", card.Key()),
			zap.Error(err),
		)
		return
	}
	rt.afterMutationLocked()
}

// scheduleAutoNextLocked arms a delayed Next. The captured phase, round and
// trick count guard against double-advancing if a human clicks first.
func (rt *Runtime) scheduleAutoNextLocked() {
	phase := rt.st.Phase
	round := rt.st.RoundIndex
	tricks := sumInts(rt.st.TricksRound)
	time.AfterFunc(rt.cfg.AutoAdvance, func() {
		rt.autoNext(phase, round, tricks)
	})
}

func (rt *Runtime) autoNext(phase game.Phase, round, tricks int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.st == nil || rt.st.Phase != phase || rt.st.RoundIndex != round {
		return
	}
	if sumInts(rt.st.TricksRound) != tricks {
		return
	}
	if err := rt.st.Next(rt.rng); err != nil {
		return
	}
	rt.afterMutationLocked()
}

func (rt *Runtime) scheduleTakeoverLocked(seat int, clientID string) {
	if _, pending := rt.takeoverMarks[seat]; pending {
		return
	}
	mark := time.Now()
	rt.takeoverMarks[seat] = mark
	time.AfterFunc(rt.cfg.BotTakeover, func() {
		rt.takeover(seat, clientID, mark)
	})
}

func (rt *Runtime) takeover(seat int, clientID string, mark time.Time) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.takeoverMarks[seat] != mark {
		return
	}
	delete(rt.takeoverMarks, seat)

	if rt.st == nil || rt.st.Phase == game.PhaseLobby {
		return
	}
	for _, s := range rt.members {
		if s == seat {
			return
		}
	}
	if clientID != "" {
		if ci, ok := rt.clients[clientID]; ok {
			if time.Since(ci.lastSeen) < rt.cfg.ReconnectGrace {
				return
			}
			delete(rt.clients, clientID)
		}
	}

	rt.botTakeoverLocked(seat)
}

func (rt *Runtime) botTakeoverLocked(seat int) {
	if rt.st.BotSeats[seat] {
		return
	}
	prev := rt.st.Names[seat]
	if prev == "" {
		prev = nameOrDefault("", seat)
	}
	rt.st.Names[seat] = fmt.Sprintf("Computer (took over %s)", prev)
	rt.st.BotSeats[seat] = true

	logger.Log.Info("bot took over abandoned seat",
		zap.String("room", rt.code),
		zap.Int("seat", seat),
	)
	rt.afterMutationLocked()
}

func (rt *Runtime) finishGameLocked() {
	if rt.finished {
		return
	}
	rt.finished = true

	summary := FinishedGame{
		RoomCode:   rt.code,
		Names:      append([]string(nil), rt.st.Names...),
		Points:     append([]int(nil), rt.st.PointsTotal...),
		WinnerSeat: winnerSeat(rt.st.PointsTotal),
		History:    append([]game.RoundResult(nil), rt.st.History...),
		StartedAt:  rt.startedAt,
		EndedAt:    time.Now(),
	}
	for seat := 0; seat < rt.st.N; seat++ {
		if rt.st.BotSeats[seat] {
			summary.BotSeats = append(summary.BotSeats, seat)
		}
	}

	if rt.onFinish != nil {
		go rt.onFinish(summary)
	}
}

func (rt *Runtime) pushStateLocked(connID int64) {
	seat := game.ViewerNone
	if s, ok := rt.members[connID]; ok {
		seat = s
	}
	rt.seq++
	rt.sendLocked(connID, push.Message{
		Type: "online_state",
		Seq:  rt.seq,
		Data: rt.statePayloadLocked(seat),
	})
}

func (rt *Runtime) broadcastStateLocked() {
	rt.seq++
	seq := rt.seq
	for connID := range rt.subscribers {
		seat := game.ViewerNone
		if s, ok := rt.members[connID]; ok {
			seat = s
		}
		rt.sendLocked(connID, push.Message{
			Type: "online_state",
			Seq:  seq,
			Data: rt.statePayloadLocked(seat),
		})
	}
}

func (rt *Runtime) statePayloadLocked(seat int) StatePayload {
	payload := StatePayload{
		Room:  rt.code,
		State: game.BuildSnapshot(rt.st, seat),
	}
	if seat >= 0 {
		s := seat
		payload.Seat = &s
	}
	return payload
}

func (rt *Runtime) sendLocked(connID int64, msg push.Message) {
	ch, ok := rt.subscribers[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("room subscriber channel full",
			zap.String("room", rt.code),
			zap.Int64("connID", connID),
		)
	}
}

// Info summarizes the room for the admin dashboard.
func (rt *Runtime) Info() Info {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return Info{
		Code:       rt.code,
		Players:    rt.st.N,
		Humans:     len(rt.members),
		Bots:       len(rt.st.BotSeats),
		Phase:      rt.st.Phase,
		RoundIndex: rt.st.RoundIndex,
		CreatedAt:  rt.createdAt,
	}
}

// purgeable reports whether the room has been empty longer than ttl.
// Empty rooms linger briefly so page navigations can re-attach.
func (rt *Runtime) purgeable(now time.Time, ttl time.Duration) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.members) > 0 || rt.emptySince.IsZero() {
		return false
	}
	return now.Sub(rt.emptySince) > ttl
}

func nameOrDefault(name string, seat int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Player %d", seat+1)
}

func winnerSeat(points []int) int {
	winner := 0
	for seat, p := range points {
		if p > points[winner] {
			winner = seat
		}
	}
	return winner
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
