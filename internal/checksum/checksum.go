package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns the version hash of a note: title and canonical content,
// separated by a NUL so that moving text between them changes the hash.
func Note(title, content string) string {
	return Sum([]byte(title + "\x00" + content))
}
