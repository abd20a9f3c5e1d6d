package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
)

// TwitterVerifier checks an OAuth 1.0a user token with
// account/verify_credentials.
type TwitterVerifier struct {
	APIURL string // e.g. https://api.twitter.com/1.1
	Config *oauth1.Config
	Client *http.Client // base client; requests are signed on top of its transport
}

func NewTwitterVerifier(apiURL, consumerKey, consumerSecret string) *TwitterVerifier {
	return &TwitterVerifier{
		APIURL: strings.TrimRight(apiURL, "/"),
		Config: oauth1.NewConfig(consumerKey, consumerSecret),
		Client: defaultClient(),
	}
}

type twitterUser struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Email      string `json:"email"`
}

// Verify signs a verify_credentials call with the user's token.
func (v *TwitterVerifier) Verify(ctx context.Context, cred Credentials) (Profile, error) {
	if cred.AccessToken == "" || cred.TokenSecret == "" {
		return Profile{}, ErrInvalidCredentials
	}
	query := url.Values{"include_email": {"true"}, "skip_status": {"true"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.APIURL+"/account/verify_credentials.json?"+query.Encode(), nil)
	if err != nil {
		return Profile{}, err
	}

	signed := v.Config.Client(context.WithValue(ctx, oauth1.HTTPClient, v.Client),
		oauth1.NewToken(cred.AccessToken, cred.TokenSecret))
	signed.Timeout = v.Client.Timeout

	var u twitterUser
	if err := getJSON(signed, req, &u); err != nil {
		return Profile{}, err
	}
	if u.IDStr == "" {
		return Profile{}, ErrInvalidCredentials
	}
	p := Profile{ID: u.IDStr, Username: u.ScreenName}
	if u.Email != "" {
		p.Emails = []string{u.Email}
	}
	return p, nil
}
