package room

import (
	"time"

	"piratwhist-service/internal/config"
)

// Config carries the room timing knobs as durations so tests can shrink
// them without touching global config.
type Config struct {
	EmptyTTL       time.Duration
	BotTakeover    time.Duration
	ReconnectGrace time.Duration
	BotMoveDelay   time.Duration
	AutoAdvance    time.Duration
	PurgeInterval  time.Duration
}

func FromGlobalConfig() Config {
	rc := config.GlobalConfig.Rooms
	return Config{
		EmptyTTL:       time.Duration(rc.EmptyTTLSeconds) * time.Second,
		BotTakeover:    time.Duration(rc.BotTakeoverSeconds) * time.Second,
		ReconnectGrace: time.Duration(rc.ReconnectGraceSecs) * time.Second,
		BotMoveDelay:   time.Duration(rc.BotMoveDelayMillis) * time.Millisecond,
		AutoAdvance:    time.Duration(rc.AutoAdvanceDelaySec) * time.Second,
		PurgeInterval:  30 * time.Second,
	}
}
