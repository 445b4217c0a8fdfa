package admin

import (
	"golang.org/x/crypto/bcrypt"
)

// VerifyOverrideKey checks a plaintext override key against the
// configured bcrypt hash. The override key guards the unverified settle
// escape hatch; an empty configured hash disables the override entirely.
func VerifyOverrideKey(hashedKey, plainKey string) bool {
	if hashedKey == "" || plainKey == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(plainKey)) == nil
}

// HashOverrideKey produces the bcrypt hash to store in ADMIN_KEY_HASH
// (used by cmd/hash-admin-key).
func HashOverrideKey(plainKey string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
