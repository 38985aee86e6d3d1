package audit

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltFile   = "signing.salt"
	secretFile = "signing.secret"

	saltSize    = 16
	iterations  = 3
	memoryKiB   = 64 * 1024
	parallelism = 4
)

// DeriveKey stretches secret with Argon2id into an Ed25519 signing key.
func DeriveKey(secret string, salt []byte) ed25519.PrivateKey {
	seed := argon2.IDKey([]byte(secret), salt, iterations, memoryKiB, parallelism, ed25519.SeedSize)
	return ed25519.NewKeyFromSeed(seed)
}

// LoadKey returns the signing key for the audit directory. The salt is
// created on first use. When secret is empty a random one is generated and
// kept next to the log with mode 0600.
func LoadKey(dir, secret string) (ed25519.PrivateKey, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, ErrInvalidKey.MsgErr("unable to create audit directory", err)
	}
	salt, err := loadOrCreate(filepath.Join(dir, saltFile), saltSize)
	if err != nil {
		return nil, ErrInvalidKey.MsgErr("unable to load salt", err)
	}
	if secret == "" {
		raw, err := loadOrCreate(filepath.Join(dir, secretFile), 32)
		if err != nil {
			return nil, ErrInvalidKey.MsgErr("unable to load generated secret", err)
		}
		secret = hex.EncodeToString(raw)
	}
	return DeriveKey(secret, salt), nil
}

// loadOrCreate reads a hex-encoded random value from path, creating it with
// n random bytes if missing.
func loadOrCreate(path string, n int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return hex.DecodeString(strings.TrimSpace(string(data)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(b)), 0o600); err != nil {
		return nil, err
	}
	return b, nil
}
