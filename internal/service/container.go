package service

import (
	"context"
	"time"

	"piratwhist-service/internal/config"
	"piratwhist-service/internal/service/admin"
	"piratwhist-service/internal/service/feedback"
	"piratwhist-service/internal/service/room"
	"piratwhist-service/internal/service/score"
	"piratwhist-service/internal/service/telemetry"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Room      *room.Service
	Score     *score.Service
	Feedback  *feedback.Service
	Telemetry *telemetry.Service
	Admin     *admin.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	roomCfg := room.FromGlobalConfig()
	roomSvc := room.NewService(db, roomCfg)
	telemetrySvc := telemetry.NewService(db, rdb)

	return &Container{
		Room:      roomSvc,
		Score:     score.NewService(roomCfg.EmptyTTL, 30*time.Second),
		Feedback:  feedback.NewService(db),
		Telemetry: telemetrySvc,
		Admin:     admin.NewService(db, roomSvc, telemetrySvc),
	}
}

// Start seeds the default admin and launches the room purge loops.
func (c *Container) Start(ctx context.Context) error {
	seed := config.GlobalConfig.Admin
	if err := c.Admin.EnsureDefaultAdmin(ctx, seed.DefaultUsername, seed.DefaultPassword); err != nil {
		return err
	}
	c.Room.Start(ctx)
	c.Score.Start(ctx)
	return nil
}
