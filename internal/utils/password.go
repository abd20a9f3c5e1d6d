package utils

import (
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadEncoding is returned when a base64 credential does not decode to UTF-8 text.
var ErrBadEncoding = errors.New("credential is not base64 encoded utf-8")

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// DecodeCredential decodes the base64 form in which clients send passwords
// and client secrets.  The encoding only keeps the value out of casual
// sight; transport security comes from TLS.
func DecodeCredential(encoded string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrBadEncoding
	}
	if !utf8.Valid(b) {
		return "", ErrBadEncoding
	}
	return string(b), nil
}
