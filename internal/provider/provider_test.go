package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		if r.URL.Query().Get("access_token") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mac := hmac.New(sha256.New, []byte("app-secret"))
		mac.Write([]byte("good"))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.URL.Query().Get("appsecret_proof"))
		w.Write([]byte(`{"id":"fb-1","name":"Alice","email":"alice@example.com"}`))
	}))
	defer srv.Close()

	v := NewFacebookVerifier(srv.URL+"/", "app-secret")
	p, err := v.Verify(context.Background(), Credentials{AccessToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, "fb-1", p.ID)
	assert.Equal(t, "alice@example.com", p.PrimaryEmail())

	_, err = v.Verify(context.Background(), Credentials{AccessToken: "bad"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = v.Verify(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFacebookWithoutEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-2"}`))
	}))
	defer srv.Close()

	p, err := NewFacebookVerifier(srv.URL, "").Verify(context.Background(), Credentials{AccessToken: "t"})
	require.NoError(t, err)
	assert.Empty(t, p.PrimaryEmail())
}

func TestTwitterVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/verify_credentials.json", r.URL.Path)
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "))
		assert.Contains(t, auth, `oauth_token="user-token"`)
		assert.Contains(t, auth, `oauth_consumer_key="ck"`)
		assert.Contains(t, auth, `oauth_signature_method="HMAC-SHA1"`)
		assert.Contains(t, auth, `oauth_signature=`)
		assert.Equal(t, "true", r.URL.Query().Get("include_email"))
		w.Write([]byte(`{"id_str":"42","screen_name":"alice"}`))
	}))
	defer srv.Close()

	v := NewTwitterVerifier(srv.URL, "ck", "cs")
	p, err := v.Verify(context.Background(), Credentials{AccessToken: "user-token", TokenSecret: "user-secret"})
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "alice", p.Username)

	_, err = v.Verify(context.Background(), Credentials{AccessToken: "user-token"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTwitterVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewTwitterVerifier(srv.URL, "ck", "cs")
	_, err := v.Verify(context.Background(), Credentials{AccessToken: "revoked", TokenSecret: "s"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
