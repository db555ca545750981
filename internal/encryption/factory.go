package encryption

import (
	"fmt"

	"geosnag-go/internal/config"
	"geosnag-go/internal/geosnag"
)

// NewEncryptorFromConfig creates an Encryptor based on report.encryption.
// It returns nil for plaintext reports.
func NewEncryptorFromConfig(cfg config.ReportConfig) (geosnag.Encryptor, error) {
	switch cfg.Encryption {
	case "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Encryption)
	}
}
