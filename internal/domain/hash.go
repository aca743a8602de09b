package domain

import (
	"crypto/sha1" //nolint:gosec // identity key, not a security boundary
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// PointHash derives the stable identity key for one observation: the hex
// SHA-1 digest of the device (or site) key concatenated with the timestamp
// rendered as floating-point epoch seconds. The rendering always carries a
// fractional part ("1577836800.0", never "1577836800") so the input bytes
// are identical across runs and processes. Idempotent reloading depends on
// this: the store skips conflicting hashes on insert.
func PointHash(key string, ts time.Time) string {
	sum := sha1.Sum([]byte(key + formatEpoch(ts)))
	return hex.EncodeToString(sum[:])
}

func formatEpoch(ts time.Time) string {
	s := strconv.FormatFloat(float64(ts.Unix()), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
