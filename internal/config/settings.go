package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Settings are process-level knobs read from the environment.
type Settings struct {
	DataDir  string `env:"DIFFBENCH_DATA_DIR" envDefault:"./data"`
	DB       string `env:"DIFFBENCH_DB"`
	LogLevel string `env:"DIFFBENCH_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads [Settings] from environment variables.
func ParseEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// DBPath is the SQLite database path, defaulting to bench.db under the
// data directory.
func (s Settings) DBPath() string {
	if s.DB != "" {
		return s.DB
	}
	return filepath.Join(s.DataDir, "bench.db")
}
