package geosnag

import "io"

// Encryptor protects reports, which carry locations.
// Encryption uses the recipient (public) key only. Decryption requires a
// passphrase to unlock the identity, producing a DecryptionContext.
type Encryptor interface {
	// Setup generates a key pair, stores the recipient in plaintext, and
	// encrypts the identity with the passphrase. Called by `report keygen`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the identity using the passphrase.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool

	// Extension is appended to encrypted file names, e.g. ".age".
	Extension() string
}

// DecryptionContext holds an unlocked identity in memory for one session.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
