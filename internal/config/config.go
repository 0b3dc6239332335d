package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port          string   `env:"PORT" envDefault:"8080"`
	DBPath        string   `env:"DB_PATH" envDefault:"./data/focusflow.db"`
	MigrationsDir string   `env:"MIGRATIONS_DIR" envDefault:"./migrations"`
	JWTSecret     string   `env:"JWT_SECRET" envDefault:"change-this-secret"`
	TokenTTLHours int      `env:"TOKEN_TTL_HOURS" envDefault:"72"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	LogLevel      string   `env:"LOG_LEVEL" envDefault:"info"`

	FocusMinutes      int `env:"FOCUS_MINUTES" envDefault:"25"`
	ShortBreakMinutes int `env:"SHORT_BREAK_MINUTES" envDefault:"5"`
	LongBreakMinutes  int `env:"LONG_BREAK_MINUTES" envDefault:"15"`
	LongBreakEvery    int `env:"LONG_BREAK_EVERY" envDefault:"3"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FocusMinutes <= 0 || cfg.ShortBreakMinutes <= 0 || cfg.LongBreakMinutes <= 0 {
		return Config{}, fmt.Errorf("durations must be positive minutes")
	}
	if cfg.LongBreakEvery <= 0 {
		return Config{}, fmt.Errorf("LONG_BREAK_EVERY must be positive")
	}
	return cfg, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c Config) Addr() string {
	return ":" + c.Port
}
