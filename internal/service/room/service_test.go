package room

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"piratwhist-service/internal/game"
	"piratwhist-service/internal/model"
	"piratwhist-service/internal/push"
	appErr "piratwhist-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() Config {
	return Config{
		EmptyTTL:       50 * time.Millisecond,
		BotTakeover:    30 * time.Millisecond,
		ReconnectGrace: 10 * time.Millisecond,
		BotMoveDelay:   5 * time.Millisecond,
		AutoAdvance:    5 * time.Millisecond,
		PurgeInterval:  time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(nil, testConfig())
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:room_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.GameRecord{}, &model.GameRoundLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func subscriber() chan push.Message {
	return make(chan push.Message, 64)
}

// latestState drains ch and returns the last state frame, waiting up to
// the deadline for at least one to arrive.
func latestState(t *testing.T, ch chan push.Message) StatePayload {
	t.Helper()
	var payload StatePayload
	got := false
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Type != "online_state" {
				continue
			}
			payload = msg.Data.(StatePayload)
			got = true
		case <-deadline:
			if !got {
				t.Fatalf("no state frame received")
			}
			return payload
		default:
			if got {
				return payload
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// waitUntil polls cond against the freshest state frame on ch.
func waitUntil(t *testing.T, ch chan push.Message, what string, cond func(StatePayload) bool) StatePayload {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last StatePayload
	seen := false
	for time.Now().Before(deadline) {
		select {
		case msg := <-ch:
			if msg.Type != "online_state" {
				continue
			}
			last = msg.Data.(StatePayload)
			seen = true
			if cond(last) {
				return last
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !seen {
		t.Fatalf("waiting for %s: no state frames at all", what)
	}
	t.Fatalf("waiting for %s: last phase %s", what, last.State.Phase)
	return last
}

func TestCreateSeatsHost(t *testing.T) {
	svc := newTestService(t)
	ch := subscriber()

	rt, err := svc.Create(1, ch, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 4, Bots: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(rt.Code()) != 4 {
		t.Fatalf("room code %q, want 4 digits", rt.Code())
	}

	st := latestState(t, ch)
	if st.Seat == nil || *st.Seat != 0 {
		t.Fatalf("host not seated at 0: %v", st.Seat)
	}
	if st.State.N != 4 || len(st.State.BotSeats) != 2 {
		t.Fatalf("lobby shape wrong: n=%d bots=%v", st.State.N, st.State.BotSeats)
	}
	if st.State.Phase != game.PhaseLobby {
		t.Fatalf("fresh room phase %s", st.State.Phase)
	}
	if !svc.Exists(rt.Code()) {
		t.Fatalf("created room not listed")
	}
}

func TestCreateClampsBadPlayerCount(t *testing.T) {
	svc := newTestService(t)
	rt, err := svc.Create(1, subscriber(), CreateRoomRequest{Name: "x", Players: 99})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rt.Info().Players != 4 {
		t.Fatalf("invalid player count should fall back to 4, got %d", rt.Info().Players)
	}
}

func TestJoinAndRoomFull(t *testing.T) {
	svc := newTestService(t)
	rt, err := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ch2 := subscriber()
	if _, err := svc.Join(2, ch2, JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	st := latestState(t, ch2)
	if st.Seat == nil || *st.Seat != 1 {
		t.Fatalf("second player should take seat 1, got %v", st.Seat)
	}
	if st.State.Names[1] == nil || *st.State.Names[1] != "Bob" {
		t.Fatalf("joiner name not applied: %v", st.State.Names)
	}

	if _, err := svc.Join(3, subscriber(), JoinRoomRequest{Room: rt.Code(), ClientID: "c3", Name: "Eve"}); err != appErr.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Join(1, subscriber(), JoinRoomRequest{Room: "0000"}); err != appErr.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestUpdateLobbyRules(t *testing.T) {
	svc := newTestService(t)
	rt, _ := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 4})
	ch2 := subscriber()
	if _, err := svc.Join(2, ch2, JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := rt.UpdateLobby(2, UpdateLobbyRequest{Players: 3}); err != appErr.ErrNotHost {
		t.Fatalf("non-host update: got %v", err)
	}
	if err := rt.UpdateLobby(1, UpdateLobbyRequest{Players: 3}); err != appErr.ErrLobbyOccupied {
		t.Fatalf("occupied lobby update: got %v", err)
	}

	svc.Leave(2, LeaveRoomRequest{Room: rt.Code(), ClientID: "c2"})

	if err := rt.UpdateLobby(1, UpdateLobbyRequest{Players: 1}); err != appErr.ErrLobbyConfig {
		t.Fatalf("players=1: got %v", err)
	}
	if err := rt.UpdateLobby(1, UpdateLobbyRequest{Players: 3, Bots: 3}); err != appErr.ErrLobbyConfig {
		t.Fatalf("bots=n: got %v", err)
	}
	if err := rt.UpdateLobby(1, UpdateLobbyRequest{Players: 3, Bots: 2}); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
	info := rt.Info()
	if info.Players != 3 || info.Bots != 2 {
		t.Fatalf("lobby not reshaped: %+v", info)
	}
}

func TestStartGameFillsEmptySeatsWithBots(t *testing.T) {
	svc := newTestService(t)
	ch := subscriber()
	rt, _ := svc.Create(1, ch, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 3})

	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := latestState(t, ch)
	if st.State.Phase != game.PhaseBidding {
		t.Fatalf("phase after start: %s", st.State.Phase)
	}
	if len(st.State.BotSeats) != 2 {
		t.Fatalf("empty seats not botified: %v", st.State.BotSeats)
	}
	// Bots bid as part of the same command.
	for _, seat := range st.State.BotSeats {
		if st.State.Bids[seat] == nil {
			t.Fatalf("bot seat %d has no bid", seat)
		}
	}
	if st.State.Bids[0] != nil {
		t.Fatalf("human seat bid before acting")
	}
}

func TestStartGameHostOnly(t *testing.T) {
	svc := newTestService(t)
	rt, _ := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2})
	if _, err := svc.Join(2, subscriber(), JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rt.StartGame(2); err != appErr.ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestBotsPlayTheirTurns(t *testing.T) {
	svc := newTestService(t)
	ch := subscriber()
	rt, _ := svc.Create(1, ch, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 4, Bots: 3})

	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.SetBid(1, 2); err != nil {
		t.Fatalf("bid: %v", err)
	}

	st := waitUntil(t, ch, "human on lead", func(p StatePayload) bool {
		return p.State.Phase == game.PhasePlaying && p.State.Turn == 0
	})
	if len(st.State.Hands[0]) == 0 {
		t.Fatalf("own hand hidden from player")
	}
	if err := rt.PlayCard(1, st.State.Hands[0][0].Key()); err != nil {
		t.Fatalf("play: %v", err)
	}

	// The three bots complete the trick on their timers and between_tricks
	// auto-advances because the room has bots.
	waitUntil(t, ch, "bot-completed trick", func(p StatePayload) bool {
		if sum(p.State.TricksRound) < 1 {
			return false
		}
		return p.State.Phase == game.PhasePlaying || p.State.Phase == game.PhaseRoundFinished
	})
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestSetBidRequiresMembership(t *testing.T) {
	svc := newTestService(t)
	rt, _ := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2, Bots: 1})
	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.SetBid(99, 1); err != appErr.ErrNotInRoom {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
}

func TestLeaveMidGameBotTakesOverImmediately(t *testing.T) {
	svc := newTestService(t)
	ch1 := subscriber()
	rt, _ := svc.Create(1, ch1, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2})
	if _, err := svc.Join(2, subscriber(), JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Leave(2, LeaveRoomRequest{Room: rt.Code(), ClientID: "c2"})

	st := waitUntil(t, ch1, "takeover broadcast", func(p StatePayload) bool {
		return len(p.State.BotSeats) > 0
	})
	name := st.State.Names[1]
	if name == nil || !strings.HasPrefix(*name, "Computer (took over ") {
		t.Fatalf("takeover name wrong: %v", name)
	}
}

func TestDisconnectGraceThenTakeover(t *testing.T) {
	svc := newTestService(t)
	ch1 := subscriber()
	rt, _ := svc.Create(1, ch1, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2})
	if _, err := svc.Join(2, subscriber(), JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Disconnect(2)

	if info := rt.Info(); info.Bots != 0 {
		t.Fatalf("takeover fired before the grace window")
	}

	waitUntil(t, ch1, "grace expiry takeover", func(p StatePayload) bool {
		return len(p.State.BotSeats) == 1
	})
}

func TestReconnectKeepsSeat(t *testing.T) {
	svc := newTestService(t)
	rt, _ := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 3})
	if _, err := svc.Join(2, subscriber(), JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Disconnect(2)

	ch := subscriber()
	if _, err := svc.Join(3, ch, JoinRoomRequest{Room: rt.Code(), ClientID: "c2", Name: "Bob"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	st := latestState(t, ch)
	if st.Seat == nil || *st.Seat != 1 {
		t.Fatalf("reconnect lost seat: %v", st.Seat)
	}
	if info := rt.Info(); info.Bots != 1 {
		t.Fatalf("rejoined seat should not be botified: %d bots", info.Bots)
	}
}

func TestEmptyRoomPurgedAfterTTL(t *testing.T) {
	svc := newTestService(t)
	rt, _ := svc.Create(1, subscriber(), CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2})
	code := rt.Code()

	svc.Leave(1, LeaveRoomRequest{Room: code, ClientID: "c1"})

	svc.purgeEmpty(time.Now())
	if !svc.Exists(code) {
		t.Fatalf("room purged before TTL")
	}

	svc.purgeEmpty(time.Now().Add(time.Second))
	if svc.Exists(code) {
		t.Fatalf("empty room survived past TTL")
	}
	if _, err := svc.Lookup(code); err != appErr.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound after purge, got %v", err)
	}
}

func TestPersistFinishedWritesRecordAndRounds(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db, testConfig())

	started := time.Now().Add(-10 * time.Minute)
	svc.persistFinished(FinishedGame{
		RoomCode:   "1234",
		Names:      []string{"Alice", "Computer 1"},
		BotSeats:   []int{1},
		Points:     []int{42, 17},
		WinnerSeat: 0,
		History: []game.RoundResult{
			{Round: 1, CardsPer: 7, Bids: []int{2, 3}, Taken: []int{2, 5}, Points: []int{12, -2}},
			{Round: 2, CardsPer: 6, Bids: []int{1, 1}, Taken: []int{3, 3}, Points: []int{-2, -2}},
		},
		StartedAt: started,
		EndedAt:   time.Now(),
	})

	var record model.GameRecord
	if err := db.First(&record, "room_code = ?", "1234").Error; err != nil {
		t.Fatalf("record not written: %v", err)
	}
	if record.PlayerCount != 2 || record.BotCount != 1 || record.Rounds != 2 || record.WinnerSeat != 0 {
		t.Fatalf("record fields wrong: %+v", record)
	}
	var names []string
	if err := json.Unmarshal(record.NamesJSON, &names); err != nil || len(names) != 2 || names[0] != "Alice" {
		t.Fatalf("names json wrong: %s", record.NamesJSON)
	}

	var rounds []model.GameRoundLog
	if err := db.Order("round_no").Find(&rounds, "game_id = ?", record.ID).Error; err != nil {
		t.Fatalf("round logs: %v", err)
	}
	if len(rounds) != 2 || rounds[0].RoundNo != 1 || rounds[1].CardsPer != 6 {
		t.Fatalf("round rows wrong: %+v", rounds)
	}
}

func TestBroadcastSeqMonotonic(t *testing.T) {
	svc := newTestService(t)
	ch := subscriber()
	rt, _ := svc.Create(1, ch, CreateRoomRequest{ClientID: "c1", Name: "Alice", Players: 2, Bots: 1})
	if err := rt.StartGame(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.SetBid(1, 0); err != nil {
		t.Fatalf("bid: %v", err)
	}

	last := int64(0)
	frames := 0
	for {
		select {
		case msg := <-ch:
			if msg.Seq <= last {
				t.Fatalf("seq went backwards: %d after %d", msg.Seq, last)
			}
			last = msg.Seq
			frames++
		default:
			if frames < 2 {
				t.Fatalf("expected multiple frames, got %d", frames)
			}
			return
		}
	}
}
