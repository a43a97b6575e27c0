// Package config loads emberctl's CLI defaults from a TOML file, the
// innermost layer of root.go's viper-based config/env/flag stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the CLI defaults stored on disk. Every field has a zero
// value that Default fills in, so a missing or partial file is never an
// error by itself.
type Config struct {
	DataDir               string  `toml:"data_dir"`
	CorruptAlertThreshold float64 `toml:"corrupt_alert_threshold"`
	TimestampData         bool    `toml:"timestamp_data"`
	WatchExternalWrites   bool    `toml:"watch_external_writes"`
}

// Default returns the configuration emberctl uses when no config file is
// present.
func Default() Config {
	dir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".ember")
	}
	return Config{
		DataDir:               dir,
		CorruptAlertThreshold: 0.1,
		TimestampData:         true,
		WatchExternalWrites:   false,
	}
}

// Load reads cfg from path, starting from Default and overlaying whatever
// the file declares. A missing file yields Default with no error — the CLI
// falls back to defaults rather than requiring a config file to exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating its parent directory if needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
