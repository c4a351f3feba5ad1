// Package crypto hashes account passwords with Argon2id.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost settings.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultParams is the server-side cost: 3 passes over 64 MB.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32}

// SaltLen is the size of a per-user password salt.
const SaltLen = 16

// burnSalt feeds BurnVerify; its value is irrelevant.
var burnSalt = make([]byte, SaltLen)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewPassword generates a fresh salt and returns the Argon2id hash with it.
func NewPassword(password string) (hash, salt []byte, err error) {
	salt, err = RandBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return DefaultParams.Hash([]byte(password), salt), salt, nil
}

// Hash derives the Argon2id key of password under salt.
func (p Params) Hash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// HashPassword hashes with DefaultParams.
func HashPassword(password, salt []byte) []byte { return DefaultParams.Hash(password, salt) }

// VerifyPassword compares in constant time; an empty expected hash never matches.
func VerifyPassword(password, salt, expected []byte) bool {
	if len(expected) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(HashPassword(password, salt), expected) == 1
}

// BurnVerify spends one hash and always reports false. Login calls it for
// unknown emails so they take as long as a wrong password.
func BurnVerify(password []byte) bool {
	_ = HashPassword(password, burnSalt)
	return false
}
