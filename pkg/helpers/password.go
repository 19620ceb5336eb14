package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordCost is the bcrypt work factor used for new hashes. Tests lower it.
var PasswordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of plain. Inputs longer than
// MaxPasswordBytes are rejected instead of being silently truncated.
func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword reports whether plain matches the stored hash.
// An empty or malformed hash never matches.
func CompareHashAndPassword(hash, plain string) bool {
	if hash == "" || len(plain) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
