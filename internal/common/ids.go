// Package common holds small helpers shared across francine packages.
package common

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// IDKind selects the prefix of a short ID.
type IDKind int

const (
	IDGeneric       IDKind = iota // no prefix
	IDClarification               // "Q", pending questions on the HTTP API
	IDToken                       // "K", API token IDs (jti)
)

// ShortCodeLen is the length of the random part of a short ID.
const ShortCodeLen = 6

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	chars   = letters + digits
)

// secureRandomInt returns a uniform value in [0, max) from crypto/rand.
func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive, got %d", max)
	}
	if max > math.MaxInt32 {
		return 0, fmt.Errorf("max too large: %d", max)
	}
	// reject the tail of the range to avoid modulo bias
	limit := (math.MaxUint64 / uint64(max)) * uint64(max)
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate random bytes: %w", err)
		}
		n := binary.BigEndian.Uint64(buf[:])
		if n < limit {
			return int(n % uint64(max)), nil
		}
	}
}

// NewShortID returns a human-typable ID such as "QK7P2XA". These are short
// enough to type at a prompt and are not globally unique; callers that keep
// them in a map must check for collisions.
func NewShortID(kind IDKind) (string, error) {
	code, err := shortCode(ShortCodeLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate short ID: %w", err)
	}
	switch kind {
	case IDClarification:
		return "Q" + code, nil
	case IDToken:
		return "K" + code, nil
	}
	return code, nil
}

// shortCode is a letter followed by length-1 letters or digits.
func shortCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}
	out := make([]byte, length)
	i, err := secureRandomInt(len(letters))
	if err != nil {
		return "", err
	}
	out[0] = letters[i]
	for p := 1; p < length; p++ {
		i, err := secureRandomInt(len(chars))
		if err != nil {
			return "", err
		}
		out[p] = chars[i]
	}
	return string(out), nil
}
