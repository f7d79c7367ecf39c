package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	SetupDurationSeconds     int
	TurnDurationSeconds      int
	MaxPlayers               int
	ShowScore                bool
	GracePeriodSeconds       int
	BoardSize                int
	BotDelayMinMillis        int
	BotDelayMaxMillis        int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		SetupDurationSeconds:     60,
		TurnDurationSeconds:      20,
		MaxPlayers:               8,
		ShowScore:                false,
		GracePeriodSeconds:       15,
		BoardSize:                5,
		BotDelayMinMillis:        3000,
		BotDelayMaxMillis:        5000,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("SETUP_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SetupDurationSeconds = value
		}
	}
	if raw := os.Getenv("TURN_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TurnDurationSeconds = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 1 {
			cfg.MaxPlayers = value
		}
	}
	if raw := os.Getenv("SHOW_SCORE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.ShowScore = value
		}
	}
	if raw := os.Getenv("GRACE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GracePeriodSeconds = value
		}
	}
	if raw := os.Getenv("BOARD_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 5 && value <= 10 {
			cfg.BoardSize = value
		}
	}
	if raw := os.Getenv("BOT_DELAY_MIN_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.BotDelayMinMillis = value
		}
	}
	if raw := os.Getenv("BOT_DELAY_MAX_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.BotDelayMaxMillis = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if cfg.BotDelayMaxMillis < cfg.BotDelayMinMillis {
		cfg.BotDelayMaxMillis = cfg.BotDelayMinMillis
	}
	return cfg
}
