// Package config loads server settings from a YAML file with environment
// overrides. Search order: explicit path, ./configs/server.yaml, then
// built-in defaults; environment variables win over whatever the file set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full server configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	Auth AuthConfig `yaml:"auth"`
	Save SaveConfig `yaml:"save"`
	Game GameConfig `yaml:"game"`
}

type AuthConfig struct {
	Mode       string   `yaml:"mode"` // memory, sqlite, postgres
	DBPath     string   `yaml:"db_path"`
	DSN        string   `yaml:"dsn"`
	JWTSecret  string   `yaml:"jwt_secret"`
	SessionTTL Duration `yaml:"session_ttl"`
}

type SaveConfig struct {
	Mode   string `yaml:"mode"` // memory, sqlite
	DBPath string `yaml:"db_path"`
}

type GameConfig struct {
	Seed               int64    `yaml:"seed"`
	BotPlayInterval    Duration `yaml:"bot_play_interval"`
	MaxBotPlayInterval Duration `yaml:"max_bot_play_interval"`
	OfflineSeatTTL     Duration `yaml:"offline_seat_ttl"`
	MatchIdleTTL       Duration `yaml:"match_idle_ttl"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Auth: AuthConfig{
			Mode:       "memory",
			DBPath:     "data/ludi_local.db",
			SessionTTL: Duration(30 * 24 * time.Hour),
		},
		Save: SaveConfig{
			Mode:   "memory",
			DBPath: "data/ludi_saves.db",
		},
		Game: GameConfig{
			BotPlayInterval:    Duration(time.Second),
			MaxBotPlayInterval: Duration(10 * time.Second),
			OfflineSeatTTL:     Duration(30 * time.Second),
			MatchIdleTTL:       Duration(10 * time.Minute),
		},
	}
}

// Load builds the effective configuration.
func Load(customPath string) (Config, error) {
	cfg := Default()

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
	} else if data, err := os.ReadFile("configs/server.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse configs/server.yaml: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Game.MaxBotPlayInterval <= 0 {
		cfg.Game.MaxBotPlayInterval = Duration(10 * time.Second)
	}
	if cfg.Game.BotPlayInterval < 0 {
		cfg.Game.BotPlayInterval = 0
	}
	if cfg.Game.BotPlayInterval > cfg.Game.MaxBotPlayInterval {
		cfg.Game.BotPlayInterval = cfg.Game.MaxBotPlayInterval
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Addr, "LUDI_ADDR")
	setString(&cfg.LogLevel, "LUDI_LOG_LEVEL")

	setString(&cfg.Auth.Mode, "AUTH_MODE")
	setString(&cfg.Auth.DBPath, "AUTH_LOCAL_DATABASE_PATH")
	setString(&cfg.Auth.DSN, "AUTH_DATABASE_DSN")
	setString(&cfg.Auth.DSN, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setDuration(&cfg.Auth.SessionTTL, "AUTH_SESSION_TTL")

	setString(&cfg.Save.Mode, "SAVE_MODE")
	setString(&cfg.Save.DBPath, "SAVE_LOCAL_DATABASE_PATH")

	setInt64(&cfg.Game.Seed, "GAME_SEED")
	setDuration(&cfg.Game.BotPlayInterval, "BOT_PLAY_INTERVAL")
	setDuration(&cfg.Game.MaxBotPlayInterval, "MAX_BOT_PLAY_INTERVAL")
	setDuration(&cfg.Game.OfflineSeatTTL, "OFFLINE_SEAT_TTL")
	setDuration(&cfg.Game.MatchIdleTTL, "MATCH_IDLE_TTL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = Duration(d)
	}
}

func setInt64(dst *int64, key string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*dst = n
	}
}
