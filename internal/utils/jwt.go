package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"     // secure random number generation
    "encoding/base64" // bearer values are standard base64 of random bytes
    "errors"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// tokenBytes is the amount of randomness behind every bearer and refresh value.
const tokenBytes = 32

// NewTokenValue returns a fresh opaque token: 32 random bytes encoded
// with standard base64.  Access and refresh tokens are both minted here.
func NewTokenValue() (string, error) {
    buf := make([]byte, tokenBytes)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return base64.StdEncoding.EncodeToString(buf), nil
}

// ResetToken is a signed password reset token along with its expiry.
type ResetToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// ErrInvalidResetToken covers malformed, expired and wrongly signed reset tokens.
var ErrInvalidResetToken = errors.New("invalid reset token")

// NewResetToken builds and signs an HS256 JWT authorising a password
// reset for userID.  A random jti keeps two tokens issued in the same
// second distinct.
func NewResetToken(secret, userID string, ttl time.Duration) (ResetToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    jti, err := NewTokenValue()
    if err != nil {
        return ResetToken{}, err
    }
    claims := jwt.RegisteredClaims{
        Subject:   userID,
        ID:        jti,
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return ResetToken{}, err
    }
    return ResetToken{Token: signed, Exp: exp}, nil
}

// ParseResetToken verifies a reset token and returns the user id it was
// issued for.
func ParseResetToken(secret, raw string) (string, error) {
    var claims jwt.RegisteredClaims
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        // Reject anything but HMAC so a token cannot pick its own algorithm.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidResetToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid || claims.Subject == "" {
        return "", ErrInvalidResetToken
    }
    return claims.Subject, nil
}
