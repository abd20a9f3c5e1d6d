// Package provider verifies Facebook and Twitter credentials against the
// provider APIs and returns the profile they belong to.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Kind names a third-party identity provider.
type Kind string

const (
	Facebook Kind = "facebook"
	Twitter  Kind = "twitter"
)

// ErrInvalidCredentials is returned when the provider rejects the credentials.
var ErrInvalidCredentials = errors.New("provider rejected credentials")

// Credentials are the provider tokens presented by the client.
type Credentials struct {
	AccessToken  string // Facebook access token or Twitter oauth_token
	TokenSecret  string // Twitter oauth_token_secret
	RefreshToken string // previously issued Phenom token being refreshed
}

// Profile is the identity a provider vouches for.
type Profile struct {
	ID       string
	Username string
	Emails   []string
}

// PrimaryEmail returns the first verified email, if any.
func (p Profile) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// Verifier checks credentials with a provider.
type Verifier interface {
	Verify(ctx context.Context, cred Credentials) (Profile, error)
}

// defaultClient bounds every provider round trip.
func defaultClient() *http.Client { return &http.Client{Timeout: 10 * time.Second} }

// getJSON performs req and decodes a 200 response into out.  401/400
// responses are reported as ErrInvalidCredentials.
func getJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("provider returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
