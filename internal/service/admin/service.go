// Package admin provides the token-gated operations dashboard: login and
// read-only analytics over rooms, games, feedback and telemetry.
package admin

import (
	"context"
	"errors"
	"time"

	"piratwhist-service/internal/model"
	"piratwhist-service/internal/service/room"
	"piratwhist-service/internal/service/telemetry"
	"piratwhist-service/pkg/auth"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	rooms     *room.Service
	telemetry *telemetry.Service
}

func NewService(db *gorm.DB, rooms *room.Service, tel *telemetry.Service) *Service {
	return &Service{db: db, rooms: rooms, telemetry: tel}
}

// EnsureDefaultAdmin seeds the first admin account from config. A no-op
// once any admin exists, so rotated passwords are never clobbered.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := model.Admin{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	logger.Log.Info("seeded default admin", zap.String("username", username))
	return nil
}

// Login verifies credentials and returns a signed admin token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.Admin, error) {
	var admin model.Admin
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, appErr.ErrInvalidAdminPassword
	}
	if err != nil {
		return "", nil, err
	}

	if admin.Status != "active" {
		return "", nil, appErr.ErrAdminDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, appErr.ErrInvalidAdminPassword
	}

	token, err := auth.GenerateAdminToken(admin.ID)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&admin).Update("last_login_at", &now).Error; err != nil {
		logger.Log.Warn("update last login failed", zap.Int64("adminID", admin.ID), zap.Error(err))
	}
	admin.LastLoginAt = &now

	logger.Log.Info("admin logged in", zap.String("username", admin.Username))
	return token, &admin, nil
}

// Overview is the dashboard's headline numbers.
type Overview struct {
	ActiveSessions int64            `json:"activeSessions"`
	LiveRooms      []room.Info      `json:"liveRooms"`
	GamesLast24h   int64            `json:"gamesLast24h"`
	RoundsLast24h  int64            `json:"roundsLast24h"`
	ErrorsLast24h  int64            `json:"errorsLast24h"`
	GamesTotal     int64            `json:"gamesTotal"`
	FeedbackTotal  int64            `json:"feedbackTotal"`
	DailyEvents    map[string]int64 `json:"dailyEvents"`
}

func (s *Service) BuildOverview(ctx context.Context) (*Overview, error) {
	out := &Overview{LiveRooms: s.rooms.Rooms()}

	active, err := s.telemetry.ActiveSessions(ctx, telemetry.DefaultActiveWindow)
	if err != nil {
		return nil, err
	}
	out.ActiveSessions = active

	dayAgo := time.Now().Add(-24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&model.GameRecord{}).
		Where("created_at > ?", dayAgo).Count(&out.GamesLast24h).Error; err != nil {
		return nil, err
	}
	if out.RoundsLast24h, err = s.telemetry.CountSince(ctx, telemetry.KindRound, dayAgo); err != nil {
		return nil, err
	}
	if out.ErrorsLast24h, err = s.telemetry.CountSince(ctx, telemetry.KindError, dayAgo); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&model.GameRecord{}).Count(&out.GamesTotal).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.FeedbackEntry{}).Count(&out.FeedbackTotal).Error; err != nil {
		return nil, err
	}

	if out.DailyEvents, err = s.telemetry.DailyCounts(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// ListGames returns finished games, newest first, with their round logs.
func (s *Service) ListGames(ctx context.Context, page, pageSize int) ([]model.GameRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.GameRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var games []model.GameRecord
	err := s.db.WithContext(ctx).
		Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&games).Error
	return games, total, err
}

// GetGame fetches one finished game and its per-round rows.
func (s *Service) GetGame(ctx context.Context, id int64) (*model.GameRecord, []model.GameRoundLog, error) {
	var game model.GameRecord
	err := s.db.WithContext(ctx).First(&game, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, appErr.ErrGameRecordNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var rounds []model.GameRoundLog
	if err := s.db.WithContext(ctx).
		Where("game_id = ?", id).
		Order("round_no").
		Find(&rounds).Error; err != nil {
		return nil, nil, err
	}
	return &game, rounds, nil
}
