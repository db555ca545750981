package app

import (
	"fmt"
	"os"
	"path/filepath"

	env "github.com/netflix/go-env"
)

// environment holds the variables that relocate geosnag's files.
type environment struct {
	ConfigPath string `env:"GEOSNAG_CONFIG_PATH"`
	Home       string `env:"GEOSNAG_HOME"`
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - GEOSNAG_CONFIG_PATH: config file location (default: ~/.config/geosnag.toml)
//   - GEOSNAG_HOME: base directory for geosnag data (default: ~/.local/share/geosnag)
func GetDefaults() (map[string]string, error) {
	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil && (e.ConfigPath == "" || e.Home == "") {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	configPath := e.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(homeDir, ".config", "geosnag.toml")
	}
	baseDir := e.Home
	if baseDir == "" {
		baseDir = filepath.Join(homeDir, ".local", "share", "geosnag")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}
