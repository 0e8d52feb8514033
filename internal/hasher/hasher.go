package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChunkHashLen is the number of hex characters a chunk hash is truncated to.
// The truncation keeps the wire header short; 64 bits of SHA-256 is still far
// beyond what a scanning error can collide.
const ChunkHashLen = 16

// ChunkHash returns the truncated SHA-256 digest of the plaintext chunk body.
func ChunkHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])[:ChunkHashLen]
}

// FileHash returns the full SHA-256 digest of the whole file content.
func FileHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
