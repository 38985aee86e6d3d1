// Package uuid issues time-ordered identifiers for sessions, requests and
// scheduled jobs. It wraps github.com/google/uuid and always produces UUIDv7.
package uuid

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UUID = uuid.UUID

var Nil = uuid.Nil

// New returns a UUIDv7. It falls back to a random v4 if the v7 clock read fails.
func New() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// NewString is New().String().
func NewString() string {
	return New().String()
}

// NewRequestID returns an identifier for log correlation. It never fails.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return id.String()
}

func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// Short returns the first eight hex characters, used in human-facing job lists.
func Short(id UUID) string {
	return id.String()[:8]
}

// Timestamp extracts the creation time encoded in the top 48 bits of a UUIDv7.
func Timestamp(id UUID) time.Time {
	ms := binary.BigEndian.Uint64(id[0:8]) >> 16
	return time.UnixMilli(int64(ms))
}
