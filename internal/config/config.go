package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"geosnag-go/internal/geosnag"
)

// Config represents the main configuration for geosnag.
type Config struct {
	ScanDirs        []string `toml:"scan_dirs" yaml:"scan_dirs"`
	Extensions      []string `toml:"extensions,omitempty" yaml:"extensions"`
	ExcludePatterns []string `toml:"exclude_patterns" yaml:"exclude_patterns"`
	Recursive       bool     `toml:"recursive" yaml:"recursive"`

	Workers       int    `toml:"workers" yaml:"workers"`
	WriteMode     string `toml:"write_mode" yaml:"write_mode"` // "exif", "xmp_sidecar" or "both"
	DryRun        bool   `toml:"dry_run" yaml:"dry_run"`
	SkipProcessed bool   `toml:"skip_processed" yaml:"skip_processed"`

	UseIndex       bool   `toml:"use_index" yaml:"use_index"`
	IndexPath      string `toml:"index_path" yaml:"index_path"`
	MatchCachePath string `toml:"match_cache_path" yaml:"match_cache_path"`

	BaseDir  string `toml:"base_dir" yaml:"base_dir"`
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
	LogLevel string `toml:"log_level" yaml:"log_level"`

	Matching MatchingConfig  `toml:"matching" yaml:"matching"`
	Exiftool ExiftoolConfig  `toml:"exiftool" yaml:"exiftool"`
	Database DatabaseConfig  `toml:"database" yaml:"database"`
	Report   ReportConfig    `toml:"report" yaml:"report"`
	Archives []ArchiveConfig `toml:"archives" yaml:"archives"`

	// Older YAML layouts split directories and extensions by device.
	CameraDirs       []string `toml:"-" yaml:"camera_dirs"`
	MobileDirs       []string `toml:"-" yaml:"mobile_dirs"`
	CameraExtensions []string `toml:"-" yaml:"camera_extensions"`
	MobileExtensions []string `toml:"-" yaml:"mobile_extensions"`
}

// MatchingConfig bounds the matcher.
type MatchingConfig struct {
	MaxDeltaMinutes float64 `toml:"max_delta_minutes" yaml:"max_time_delta_minutes"`
	MinConfidence   float64 `toml:"min_confidence" yaml:"min_confidence"`
}

// ExiftoolConfig pins the exiftool binary. Empty means probe the usual locations.
type ExiftoolConfig struct {
	Path string `toml:"path,omitempty" yaml:"path"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" yaml:"type"`                   // "sqlite", "memory" or "" (disabled)
	DataDir string `toml:"data_dir,omitempty" yaml:"data_dir"` // only used for type=sqlite
}

// ReportConfig controls CSV reports. Reports contain locations, so they can
// be encrypted; Encryption selects how ("" for plaintext, "age" or "test").
type ReportConfig struct {
	Dir           string `toml:"dir" yaml:"dir"`
	Encryption    string `toml:"encryption" yaml:"encryption"`
	RecipientPath string `toml:"recipient_path" yaml:"recipient_path"`
	IdentityPath  string `toml:"identity_path" yaml:"identity_path"`
}

// Encrypted reports whether reports are written encrypted.
func (r ReportConfig) Encrypted() bool {
	return r.Encryption != ""
}

// ArchiveConfig represents configuration for a report archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type" yaml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name" yaml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty" yaml:"s3_bucket"`
	S3Prefix   string `toml:"s3_prefix,omitempty" yaml:"s3_prefix"`
	S3Region   string `toml:"s3_region,omitempty" yaml:"s3_region"`
	S3Endpoint string `toml:"s3_endpoint,omitempty" yaml:"s3_endpoint"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" yaml:"fs_root"`
}

// Default returns the settings used for anything a config file leaves out.
func Default() *Config {
	return &Config{
		Recursive:     true,
		Workers:       4,
		WriteMode:     string(geosnag.WriteModeEXIF),
		DryRun:        true,
		SkipProcessed: true,
		UseIndex:      true,
		LogLevel:      "info",
		Matching: MatchingConfig{
			MaxDeltaMinutes: 120,
		},
	}
}

// NewConfig creates a Config with defaults and every path derived from baseDir.
func NewConfig(baseDir string) *Config {
	cfg := Default()
	cfg.BaseDir = baseDir
	cfg.LogDir = filepath.Join(baseDir, "log")
	cfg.IndexPath = filepath.Join(baseDir, "index.json")
	cfg.MatchCachePath = filepath.Join(baseDir, "match_cache.json")
	cfg.Database = DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")}
	cfg.Report = ReportConfig{
		Dir:           filepath.Join(baseDir, "reports"),
		RecipientPath: filepath.Join(baseDir, "keys", "report.pub"),
		IdentityPath:  filepath.Join(baseDir, "keys", "report.key"),
	}
	return cfg
}

// fillPaths derives every path the file left empty from BaseDir. An empty
// BaseDir becomes dir, the directory holding the config file.
func (c *Config) fillPaths(dir string) {
	if c.BaseDir == "" {
		c.BaseDir = dir
	}
	def := NewConfig(c.BaseDir)
	setDefault(&c.LogDir, def.LogDir)
	setDefault(&c.IndexPath, def.IndexPath)
	setDefault(&c.MatchCachePath, def.MatchCachePath)
	setDefault(&c.Report.Dir, def.Report.Dir)
	setDefault(&c.Report.RecipientPath, def.Report.RecipientPath)
	setDefault(&c.Report.IdentityPath, def.Report.IdentityPath)
	if c.Database.Type == "sqlite" && c.Database.DataDir == "" {
		c.Database.DataDir = def.Database.DataDir
	}
}

func setDefault(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

// normalize folds the legacy device-split fields into the unified ones.
func (c *Config) normalize() {
	if len(c.ScanDirs) == 0 {
		c.ScanDirs = append(append([]string{}, c.CameraDirs...), c.MobileDirs...)
	}
	if len(c.Extensions) == 0 {
		seen := make(map[string]bool)
		for _, e := range append(append([]string{}, c.CameraExtensions...), c.MobileExtensions...) {
			e = strings.ToLower(e)
			if !seen[e] {
				seen[e] = true
				c.Extensions = append(c.Extensions, e)
			}
		}
	}
	c.CameraDirs, c.MobileDirs, c.CameraExtensions, c.MobileExtensions = nil, nil, nil, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := geosnag.ParseWriteMode(c.WriteMode); err != nil {
		return err
	}
	if c.Matching.MaxDeltaMinutes < 0 {
		return fmt.Errorf("matching.max_delta_minutes must not be negative, got %v", c.Matching.MaxDeltaMinutes)
	}
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 100 {
		return fmt.Errorf("matching.min_confidence must be between 0 and 100, got %v", c.Matching.MinConfidence)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.Database.Type {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}
	switch c.Report.Encryption {
	case "", "test":
	case "age":
		if c.Report.RecipientPath == "" || c.Report.IdentityPath == "" {
			return fmt.Errorf("report.recipient_path and report.identity_path required for age encryption")
		}
	default:
		return fmt.Errorf("unknown report encryption: %q", c.Report.Encryption)
	}

	names := make(map[string]bool)
	for _, a := range c.Archives {
		switch a.Type {
		case "memory", "filesystem", "s3":
		default:
			return fmt.Errorf("archive %q: unknown type %q", a.Name, a.Type)
		}
		if a.Name == "" {
			return fmt.Errorf("archive of type %s has no name", a.Type)
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate archive name %q", a.Name)
		}
		names[a.Name] = true
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a TOML Config from the provided reader on top of Default().
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// ReadYAML decodes a YAML Config from the provided reader on top of Default().
func (m *Manager) ReadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path. Files ending in
// .yaml or .yml are decoded as YAML, everything else as TOML.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = m.ReadYAML(f)
	default:
		cfg, err = m.Read(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.fillPaths(filepath.Dir(abs))
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
