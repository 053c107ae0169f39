// Package league models league metadata and the access-code check used by
// the subdomain-scoped HTTP surface.
package league

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// League is the per-tenant metadata record. Created once; only settings
// change afterwards.
type League struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"displayName"`
	Icon           string    `json:"icon,omitempty"`
	AccessCodeHash string    `json:"accessCodeHash"`
	OwnerEmail     string    `json:"ownerEmail,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HashAccessCode derives the stored hash from a plaintext access code.
func HashAccessCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CheckAccessCode compares a plaintext code against the stored hash in
// constant time.
func (l League) CheckAccessCode(code string) bool {
	if l.AccessCodeHash == "" {
		return false
	}
	provided := HashAccessCode(code)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(l.AccessCodeHash)) == 1
}
