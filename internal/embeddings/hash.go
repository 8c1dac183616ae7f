package embeddings

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentHashBytes is the truncation length of the content hash. 16 bytes
// (128 bits) keeps payloads small while making accidental collisions
// negligible at this corpus size.
const contentHashBytes = 16

// ContentHash returns the truncated SHA-256 digest of the text, hex encoded.
// It is the cache key component and the staleness marker stored in vector
// payloads: if the stored hash matches the current text, the vector is
// up to date and the record is never re-embedded.
func ContentHash(text string) string {
	digest := sha256.Sum256([]byte(text))
	return hex.EncodeToString(digest[:contentHashBytes])
}
