// Package password implements the credential hashing scheme: a deterministic
// HMAC-SHA256 keyed by a server-held secret, verified by recomputation. The
// same function serves storage and verification.
package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Hasher hashes and verifies raw passwords with a process-wide secret.
type Hasher struct {
	secret []byte
}

// NewHasher builds a Hasher. Callers must ensure the secret is non-empty;
// config validation treats a missing secret as a fatal startup condition.
func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the base64 HMAC-SHA256 of the raw password.
func (h *Hasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(raw))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether raw hashes to storedHash. Constant-time comparison.
func (h *Hasher) Verify(storedHash, raw string) bool {
	computed := h.Hash(raw)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(computed)) == 1
}
