// Package telemetry ingests lightweight client events and tracks active
// sessions. Events are capped per kind so the table stays a rolling
// window, not an audit log.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"piratwhist-service/internal/model"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KindFeedback = "feedback"
	KindLogin    = "login"
	KindRound    = "round"
	KindError    = "error"
	KindGame     = "game"
)

// kindLimits caps how many rows of each kind are retained.
var kindLimits = map[string]int{
	KindFeedback: 200,
	KindLogin:    500,
	KindRound:    1000,
	KindError:    200,
	KindGame:     500,
}

const (
	keySessions      = "piratwhist:telemetry:sessions"
	keyDailyCountFmt = "piratwhist:telemetry:count:%s:%s" // kind, yyyy-mm-dd

	sessionRetention = 24 * time.Hour
	counterRetention = 48 * time.Hour

	// DefaultActiveWindow is how far back a session ping still counts as
	// "active" on the dashboard.
	DefaultActiveWindow = 5 * time.Minute
)

type EventRequest struct {
	Kind      string                 `json:"kind" binding:"required"`
	SessionID string                 `json:"sessionId"`
	Room      string                 `json:"room"`
	Payload   map[string]interface{} `json:"payload"`
}

type SessionPing struct {
	SessionID string `json:"sessionId" binding:"required"`
	Page      string `json:"page"`
}

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// RecordEvent persists one event and prunes the kind back to its cap.
// Counter updates are best effort.
func (s *Service) RecordEvent(ctx context.Context, req EventRequest) error {
	limit, ok := kindLimits[req.Kind]
	if !ok {
		return appErr.ErrUnknownEventKind
	}

	var payload datatypes.JSON
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}

	event := model.TelemetryEvent{
		Kind:        req.Kind,
		SessionID:   req.SessionID,
		RoomCode:    req.Room,
		PayloadJSON: payload,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return err
	}

	s.pruneKind(ctx, req.Kind, limit)
	s.bumpDailyCount(ctx, req.Kind)
	return nil
}

// pruneKind deletes everything older than the newest limit rows.
func (s *Service) pruneKind(ctx context.Context, kind string, limit int) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.TelemetryEvent{}).
		Where("kind = ?", kind).
		Order("id desc").
		Offset(limit).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).
		Where("kind = ? AND id <= ?", kind, ids[0]).
		Delete(&model.TelemetryEvent{}).Error; err != nil {
		logger.Log.Warn("telemetry prune failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Service) bumpDailyCount(ctx context.Context, kind string) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf(keyDailyCountFmt, kind, time.Now().UTC().Format("2006-01-02"))
	pipe := s.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("telemetry counter bump failed", zap.String("kind", kind), zap.Error(err))
	}
}

// TouchSession records a liveness ping and drops sessions unseen for a day.
func (s *Service) TouchSession(ctx context.Context, req SessionPing) error {
	if s.rdb == nil {
		return nil
	}
	now := time.Now()
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, keySessions, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: req.SessionID,
	})
	cutoff := now.Add(-sessionRetention).UnixMilli()
	pipe.ZRemRangeByScore(ctx, keySessions, "-inf", strconv.FormatInt(cutoff, 10))
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveSessions counts sessions seen within the window.
func (s *Service) ActiveSessions(ctx context.Context, window time.Duration) (int64, error) {
	if s.rdb == nil {
		return 0, nil
	}
	min := strconv.FormatInt(time.Now().Add(-window).UnixMilli(), 10)
	return s.rdb.ZCount(ctx, keySessions, min, "+inf").Result()
}

// DailyCounts returns today's per-kind counters.
func (s *Service) DailyCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(kindLimits))
	if s.rdb == nil {
		return counts, nil
	}
	day := time.Now().UTC().Format("2006-01-02")
	for kind := range kindLimits {
		key := fmt.Sprintf(keyDailyCountFmt, kind, day)
		v, err := s.rdb.Get(ctx, key).Int64()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		counts[kind] = v
	}
	return counts, nil
}

// CountSince reports stored events of one kind newer than since; the admin
// overview uses it for its recent-activity numbers.
func (s *Service) CountSince(ctx context.Context, kind string, since time.Time) (int64, error) {
	if _, ok := kindLimits[kind]; !ok {
		return 0, appErr.ErrUnknownEventKind
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.TelemetryEvent{}).
		Where("kind = ? AND created_at > ?", kind, since).
		Count(&count).Error
	return count, err
}

// RecentEvents lists the newest events of one kind.
func (s *Service) RecentEvents(ctx context.Context, kind string, limit int) ([]model.TelemetryEvent, error) {
	if _, ok := kindLimits[kind]; !ok {
		return nil, appErr.ErrUnknownEventKind
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var events []model.TelemetryEvent
	err := s.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("id desc").
		Limit(limit).
		Find(&events).Error
	return events, err
}
