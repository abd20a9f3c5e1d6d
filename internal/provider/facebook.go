package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
)

// FacebookVerifier resolves a Facebook access token through the Graph API.
type FacebookVerifier struct {
	GraphURL  string // e.g. https://graph.facebook.com/v19.0
	AppSecret string // optional; enables appsecret_proof
	Client    *http.Client
}

func NewFacebookVerifier(graphURL, appSecret string) *FacebookVerifier {
	return &FacebookVerifier{GraphURL: strings.TrimRight(graphURL, "/"), AppSecret: appSecret, Client: defaultClient()}
}

type facebookMe struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Verify fetches /me for the token.
func (v *FacebookVerifier) Verify(ctx context.Context, cred Credentials) (Profile, error) {
	if cred.AccessToken == "" {
		return Profile{}, ErrInvalidCredentials
	}
	q := url.Values{}
	q.Set("fields", "id,name,email")
	q.Set("access_token", cred.AccessToken)
	if v.AppSecret != "" {
		mac := hmac.New(sha256.New, []byte(v.AppSecret))
		mac.Write([]byte(cred.AccessToken))
		q.Set("appsecret_proof", hex.EncodeToString(mac.Sum(nil)))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.GraphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return Profile{}, err
	}
	var me facebookMe
	if err := getJSON(v.Client, req, &me); err != nil {
		return Profile{}, err
	}
	if me.ID == "" {
		return Profile{}, ErrInvalidCredentials
	}
	p := Profile{ID: me.ID, Username: me.Name}
	if me.Email != "" {
		p.Emails = []string{me.Email}
	}
	return p, nil
}
