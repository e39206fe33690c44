package internal

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// NewObjectID returns a 24-character hex identifier: a 4-byte big-endian unix
// timestamp followed by 8 random bytes. IDs sort roughly by creation time.
func NewObjectID() string {
	return objectIDAt(time.Now())
}

func objectIDAt(t time.Time) string {
	var raw [12]byte
	binary.BigEndian.PutUint32(raw[:4], uint32(t.Unix()))
	r := uuid.New()
	copy(raw[4:], r[:8])
	return hex.EncodeToString(raw[:])
}

// NewRequestID returns a random UUIDv4 string.
func NewRequestID() string {
	return uuid.NewString()
}
