package model

import (
	"time"

	"gorm.io/datatypes"
)

// 2.1 Admin

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 2.2 Finished games

// GameRecord is written once when a room reaches game_finished. Live rooms
// are in-memory only; this is the durable trace for the admin dashboard.
type GameRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RoomCode    string `gorm:"size:8;index"`
	PlayerCount int
	BotCount    int
	Rounds      int
	NamesJSON   datatypes.JSON `gorm:"type:jsonb"` // seat -> display name
	PointsJSON  datatypes.JSON `gorm:"type:jsonb"` // seat -> final score
	WinnerSeat  int
	StartedAt   time.Time
	EndedAt     time.Time
	CreatedAt   time.Time
}

type GameRoundLog struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	GameID     int64 `gorm:"index"`
	RoundNo    int
	CardsPer   int
	BidsJSON   datatypes.JSON `gorm:"type:jsonb"`
	TakenJSON  datatypes.JSON `gorm:"type:jsonb"`
	PointsJSON datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

// 2.3 Feedback & telemetry

type FeedbackEntry struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Message   string `gorm:"not null"`
	Contact   string
	SessionID string `gorm:"size:64;index"`
	PageURL   string
	UserAgent string
	IPPrefix  string         `gorm:"size:16"` // /24 only, never the full address
	MetaJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

type TelemetryEvent struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Kind        string `gorm:"size:16;index"` // login/round/error/game/feedback
	SessionID   string `gorm:"size:64;index"`
	RoomCode    string `gorm:"size:8"`
	PayloadJSON datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index"`
}
