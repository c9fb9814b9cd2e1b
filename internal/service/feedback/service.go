// Package feedback stores player-submitted feedback for the admin
// dashboard.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"piratwhist-service/internal/model"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"
	netutil "piratwhist-service/pkg/utils/net"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxMessageLen = 4000

type CreateRequest struct {
	Message   string                 `json:"message" binding:"required"`
	Contact   string                 `json:"contact"`
	SessionID string                 `json:"sessionId"`
	PageURL   string                 `json:"url"`
	UserAgent string                 `json:"userAgent"`
	Meta      map[string]interface{} `json:"meta"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores one feedback entry. Only the sender's /24 prefix is kept,
// never the full address.
func (s *Service) Create(ctx context.Context, req CreateRequest, remoteIP string) (*model.FeedbackEntry, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErr.ErrEmptyFeedback
	}
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen]
	}

	var meta datatypes.JSON
	if req.Meta != nil {
		raw, err := json.Marshal(req.Meta)
		if err != nil {
			return nil, err
		}
		meta = datatypes.JSON(raw)
	}

	entry := model.FeedbackEntry{
		Message:   message,
		Contact:   strings.TrimSpace(req.Contact),
		SessionID: req.SessionID,
		PageURL:   req.PageURL,
		UserAgent: req.UserAgent,
		IPPrefix:  netutil.Subnet24(remoteIP),
		MetaJSON:  meta,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}

	logger.Log.Info("feedback received",
		zap.Int64("id", entry.ID),
		zap.String("sessionID", entry.SessionID),
	)
	return &entry, nil
}

// List returns one page of entries, newest first, plus the total count.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]model.FeedbackEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.FeedbackEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.FeedbackEntry
	err := s.db.WithContext(ctx).
		Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

// Get fetches one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (*model.FeedbackEntry, error) {
	var entry model.FeedbackEntry
	err := s.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErr.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
