package repo

import (
	"log"

	"piratwhist-service/internal/config"
	"piratwhist-service/internal/model"
	"piratwhist-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	err = DB.AutoMigrate(
		&model.Admin{},
		&model.GameRecord{},
		&model.GameRoundLog{},
		&model.FeedbackEntry{},
		&model.TelemetryEvent{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
