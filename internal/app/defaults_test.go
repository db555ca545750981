package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("GEOSNAG_CONFIG_PATH", "/custom/geosnag.toml")
		t.Setenv("GEOSNAG_HOME", "/custom/geosnag")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/geosnag.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/geosnag.toml")
		}
		if defaults["base_dir"] != "/custom/geosnag" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/geosnag")
		}
		if defaults["log_dir"] != "/custom/geosnag/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/geosnag/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("GEOSNAG_CONFIG_PATH", "")
		t.Setenv("GEOSNAG_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "geosnag.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}
		wantBase := filepath.Join(homeDir, ".local", "share", "geosnag")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
	})
}
