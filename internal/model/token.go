package model

import "time"

// TokenType distinguishes bearer tokens minted for a Phenom password login
// from those wrapping a third-party provider session.
type TokenType int

const (
    TokenTypePhenom   TokenType = 0
    TokenTypeFacebook TokenType = 1
    TokenTypeTwitter  TokenType = 2
)

// String returns the upper-case name used in logs and metrics.
func (t TokenType) String() string {
    switch t {
    case TokenTypePhenom:
        return "PHENOM"
    case TokenTypeFacebook:
        return "FACEBOOK"
    case TokenTypeTwitter:
        return "TWITTER"
    }
    return "UNKNOWN"
}

// AccessToken models an entry in the `access_tokens` table.  A token is
// owned by a (user, client) pair.  On refresh the row is rotated in place:
// Token and CreatedAt change, ID never does, so notification targets bound
// to the ID stay valid.
//
// Fields:
//  ID                  – primary key identifier.
//  UserID              – owner of the token.
//  ClientID            – client (clients.id) the token was issued to.
//  Token               – opaque bearer value, unique.
//  Type                – PHENOM, FACEBOOK or TWITTER.
//  TwitterAccessToken  – provider token for TWITTER tokens.
//  TwitterTokenSecret  – provider secret for TWITTER tokens.
//  FacebookAccessToken – provider token for FACEBOOK tokens.
//  CreatedAt           – issue (or last rotation) time.
type AccessToken struct {
    ID                  string    // access_tokens.id
    UserID              string    // access_tokens.user_id
    ClientID            string    // access_tokens.client_id
    Token               string    // access_tokens.token
    Type                TokenType // access_tokens.type
    TwitterAccessToken  string    // access_tokens.twitter_access_token
    TwitterTokenSecret  string    // access_tokens.twitter_token_secret
    FacebookAccessToken string    // access_tokens.facebook_access_token
    CreatedAt           time.Time // access_tokens.created_at
}

// AccessTokenQuery narrows an access token lookup.  Empty string fields
// are ignored; Type is ignored when nil.
type AccessTokenQuery struct {
    ID       string
    UserID   string
    ClientID string
    Token    string
    Type     *TokenType
}

// RefreshToken models an entry in the `refresh_tokens` table.  It is bound
// 1:1 to the access token it was issued with and is rotated together with
// it.
type RefreshToken struct {
    ID            string    // refresh_tokens.id
    UserID        string    // refresh_tokens.user_id
    ClientID      string    // refresh_tokens.client_id
    Token         string    // refresh_tokens.token
    AccessTokenID string    // refresh_tokens.access_token_id
    CreatedAt     time.Time // refresh_tokens.created_at
}
