package card

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher maps raw card identifiers to HMAC-SHA256 hex digests. The raw identifier is never persisted.
type Hasher struct {
	key []byte
}

func NewHasher(secret string) *Hasher {
	return &Hasher{key: []byte(secret)}
}

func (h *Hasher) Hash(uid string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(strings.TrimSpace(uid)))
	return hex.EncodeToString(mac.Sum(nil))
}
