// Package password implements one-way credential hashing with scrypt.
//
// The stored form is "saltHex:keyHex". The cost parameters are fixed: changing
// them would silently invalidate every stored hash, so treat them as part of
// the storage format.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 16
	keyLen  = 64

	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// Hash derives a key from the plaintext with a fresh random salt and returns
// the self-describing stored form.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// Verify re-derives the key using the stored salt and compares it to the
// stored key in constant time. Any malformed stored form fails closed.
func Verify(plaintext, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil || len(want) == 0 {
		return false
	}

	got, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(got, want) == 1
}
