package reference

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const prefix = "TTS"

// Generate produces a transaction reference: a UTC timestamp component
// followed by 48 bits of randomness, e.g. TTS20260829143015-a1b2c3d4e5f6.
// Safe for concurrent callers; the random suffix keeps collisions
// negligible across processes.
func Generate() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return prefix + time.Now().UTC().Format("20060102150405") + "-" + hex.EncodeToString(buf[:])
}
