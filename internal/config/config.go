package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Rooms    RoomConfig      `mapstructure:"rooms"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type RoomConfig struct {
	EmptyTTLSeconds     int `mapstructure:"emptyTtlSeconds"`     // keep empty rooms briefly (redirects/reloads)
	BotTakeoverSeconds  int `mapstructure:"botTakeoverSeconds"`  // grace before a bot claims an abandoned seat
	ReconnectGraceSecs  int `mapstructure:"reconnectGraceSecs"`  // seat reservation window for a known clientId
	BotMoveDelayMillis  int `mapstructure:"botMoveDelayMillis"`  // pause before a bot acts
	AutoAdvanceDelaySec int `mapstructure:"autoAdvanceDelaySec"` // bot-room auto next trick/round
}

type AdminSeedConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	applyRoomDefaults(&cfg.Rooms)
	GlobalConfig = &cfg
}

func applyRoomDefaults(rc *RoomConfig) {
	if rc.EmptyTTLSeconds <= 0 {
		rc.EmptyTTLSeconds = 120
	}
	if rc.BotTakeoverSeconds <= 0 {
		rc.BotTakeoverSeconds = 30
	}
	if rc.ReconnectGraceSecs <= 0 {
		rc.ReconnectGraceSecs = 30
	}
	if rc.BotMoveDelayMillis <= 0 {
		rc.BotMoveDelayMillis = 600
	}
	if rc.AutoAdvanceDelaySec <= 0 {
		rc.AutoAdvanceDelaySec = 2
	}
}
