// Package checksum fingerprints persisted values so watchers can tell a real
// change from an echo of their own write.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. Nil data yields "".
func Sum(data []byte) string {
	if data == nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Changed reports whether data differs from the value fingerprinted as prev,
// and returns the new fingerprint.
func Changed(prev string, data []byte) (string, bool) {
	sum := Sum(data)
	return sum, sum != prev
}
