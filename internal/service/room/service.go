package room

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"piratwhist-service/internal/model"
	"piratwhist-service/internal/push"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"
	"piratwhist-service/pkg/utils/random"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the registry of live rooms. Room lookup and creation are
// guarded by the service mutex; everything inside a room is guarded by
// that room's own mutex.
type Service struct {
	db  *gorm.DB
	cfg Config

	mu    sync.Mutex
	rooms map[string]*Runtime
	conns map[int64]string // connID -> room code
}

func NewService(db *gorm.DB, cfg Config) *Service {
	return &Service{
		db:    db,
		cfg:   cfg,
		rooms: make(map[string]*Runtime),
		conns: make(map[int64]string),
	}
}

// Start runs the purge loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.PurgeInterval)
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
	for code, rt := range s.rooms {
		if rt.purgeable(now, s.cfg.EmptyTTL) {
			delete(s.rooms, code)
			logger.Log.Info("purged empty room", zap.String("room", code))
		}
	}
}

// Create allocates a fresh room, seats the creator as host and returns the
// room code.
func (s *Service) Create(connID int64, ch chan push.Message, req CreateRoomRequest) (*Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		code = random.Numeric(4)
		if _, taken := s.rooms[code]; !taken {
			break
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rt := newRuntime(code, s.cfg, rng, s.persistFinished)
	s.rooms[code] = rt
	s.conns[connID] = code

	rt.seatHost(connID, ch, req)

	logger.Log.Info("room created",
		zap.String("room", code),
		zap.Int("players", req.Players),
		zap.Int("bots", req.Bots),
	)
	return rt, nil
}

// Lookup returns the live room for code.
func (s *Service) Lookup(code string) (*Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.rooms[code]
	if !ok {
		return nil, appErr.ErrRoomNotFound
	}
	return rt, nil
}

func (s *Service) Join(connID int64, ch chan push.Message, req JoinRoomRequest) (*Runtime, error) {
	rt, err := s.Lookup(req.Room)
	if err != nil {
		return nil, err
	}
	if err := rt.Join(connID, ch, req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.conns[connID] = req.Room
	s.mu.Unlock()
	return rt, nil
}

// Leave is the explicit leave command; it always succeeds so the client
// gets its online_left ack even when the room is already gone.
func (s *Service) Leave(connID int64, req LeaveRoomRequest) {
	s.mu.Lock()
	delete(s.conns, connID)
	rt, ok := s.rooms[req.Room]
	s.mu.Unlock()

	if ok {
		rt.Leave(connID, req.ClientID)
	}
}

// Disconnect detaches a dropped connection from whatever room it was in.
func (s *Service) Disconnect(connID int64) {
	s.mu.Lock()
	code, ok := s.conns[connID]
	delete(s.conns, connID)
	rt := s.rooms[code]
	s.mu.Unlock()

	if ok && rt != nil {
		rt.HandleDisconnect(connID)
	}
}

// Rooms lists all live rooms for the admin dashboard.
func (s *Service) Rooms() []Info {
	s.mu.Lock()
	rooms := make([]*Runtime, 0, len(s.rooms))
	for _, rt := range s.rooms {
		rooms = append(rooms, rt)
	}
	s.mu.Unlock()

	infos := make([]Info, 0, len(rooms))
	for _, rt := range rooms {
		infos = append(infos, rt.Info())
	}
	return infos
}

// Exists reports whether a room code is live; used by the join-page probe.
func (s *Service) Exists(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[code]
	return ok
}

// persistFinished writes a finished game and its per-round rows. Runs on
// its own goroutine off the room lock.
func (s *Service) persistFinished(g FinishedGame) {
	if s.db == nil {
		return
	}

	names, _ := json.Marshal(g.Names)
	points, _ := json.Marshal(g.Points)

	record := model.GameRecord{
		RoomCode:    g.RoomCode,
		PlayerCount: len(g.Names),
		BotCount:    len(g.BotSeats),
		Rounds:      len(g.History),
		NamesJSON:   datatypes.JSON(names),
		PointsJSON:  datatypes.JSON(points),
		WinnerSeat:  g.WinnerSeat,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, round := range g.History {
			bids, _ := json.Marshal(round.Bids)
			taken, _ := json.Marshal(round.Taken)
			pts, _ := json.Marshal(round.Points)
			row := model.GameRoundLog{
				GameID:     record.ID,
				RoundNo:    round.Round,
				CardsPer:   round.CardsPer,
				BidsJSON:   datatypes.JSON(bids),
				TakenJSON:  datatypes.JSON(taken),
				PointsJSON: datatypes.JSON(pts),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("persist finished game failed",
			zap.String("room", g.RoomCode),
			zap.Error(err),
		)
		return
	}

	logger.Log.Info("game persisted",
		zap.String("room", g.RoomCode),
		zap.Int64("gameID", record.ID),
		zap.Int("winnerSeat", g.WinnerSeat),
	)
}
