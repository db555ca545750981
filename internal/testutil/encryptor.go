package testutil

import (
	"geosnag-go/internal/encryption"
	"geosnag-go/internal/geosnag"
)

// NewTestEncryptor creates a reversible, keyless encryptor for testing.
func NewTestEncryptor() geosnag.Encryptor {
	return encryption.NewTestEncryptor()
}
