package archive

import (
	"context"
	"path/filepath"
	"testing"

	"geosnag-go/internal/config"
)

func TestNewArchiveFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ArchiveConfig
		wantErr bool
	}{
		{
			name: "memory archive",
			cfg:  config.ArchiveConfig{Type: "memory", Name: "test-memory"},
		},
		{
			name: "filesystem archive",
			cfg:  config.ArchiveConfig{Type: "filesystem", Name: "test-fs", FSRoot: filepath.Join(t.TempDir(), "reports")},
		},
		{
			name:    "filesystem archive without root",
			cfg:     config.ArchiveConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 archive without bucket",
			cfg:     config.ArchiveConfig{Type: "s3", Name: "test-s3", S3Region: "us-east-1"},
			wantErr: true,
		},
		{
			name:    "unknown archive type",
			cfg:     config.ArchiveConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewArchiveFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewArchiveFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("NewArchiveFromConfig() = %T, want nil on error", got)
				}
				return
			}
			if got.Name() != tt.cfg.Name {
				t.Errorf("Name() = %q, want %q", got.Name(), tt.cfg.Name)
			}
			if err := got.ValidateSetup(context.Background()); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}
