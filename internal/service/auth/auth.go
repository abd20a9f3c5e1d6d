// Package auth issues, rotates and validates bearer credentials.  A single
// Service is built at startup and handed to the HTTP layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/metrics"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/provider"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/utils"
)

var (
	// ErrNoToken is returned by the password and refresh grants when no
	// token can be issued.  Unknown users and wrong passwords are not told
	// apart.
	ErrNoToken = errors.New("auth: no token issued")
	// ErrUnauthorized is returned when a bearer token or client credential
	// does not check out.
	ErrUnauthorized = errors.New("auth: unauthorized")
)

// Provider grant types.
const (
	GrantAccessToken  = "access_token"
	GrantRefreshToken = "refresh_token"
)

// Config holds token lifetimes and hashing cost.
type Config struct {
	TokenLifetime         time.Duration
	FacebookTokenLifetime time.Duration
	TwitterTokenLifetime  time.Duration
	// EnforceExpiry deletes and rejects bearer tokens older than their lifetime.
	EnforceExpiry bool
	BcryptCost    int
}

// Deleter runs cascade deletes.
type Deleter interface {
	Delete(ctx context.Context, entity cascade.Entity, id string) error
}

// Grant is the result of a password or refresh grant.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
}

// ProviderExchange carries a verified third-party login.
type ProviderExchange struct {
	Client      *model.Client
	GrantType   string
	Credentials provider.Credentials
	Profile     provider.Profile
}

// ExchangeResult is the result of a provider exchange.  No refresh token
// is issued; clients refresh by presenting the old bearer value.
type ExchangeResult struct {
	AccessToken string
	ExpiresIn   int
}

// Service implements the token lifecycle.
type Service struct {
	stores   repository.Stores
	cascade  Deleter
	cfg      Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newToken func() (string, error)
}

// New builds the service.  log and m may be nil.
func New(stores repository.Stores, deleter Deleter, cfg Config, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		stores:   stores,
		cascade:  deleter,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		newToken: utils.NewTokenValue,
	}
}

// PasswordGrant exchanges a username and base64 password for a PHENOM
// access token and a refresh token bound to it.  A successful login also
// revokes any pending password reset.
func (s *Service) PasswordGrant(ctx context.Context, client *model.Client, username, passwordB64 string) (Grant, error) {
	user, err := s.stores.Users.GetByUsername(ctx, username)
	if err != nil {
		return Grant{}, noToken(err)
	}
	priv, err := s.stores.Privates.GetByUserID(ctx, user.ID)
	if err != nil {
		return Grant{}, noToken(err)
	}
	password, err := utils.DecodeCredential(passwordB64)
	if err != nil || !utils.VerifyPassword(priv.PasswordHash, password) {
		return Grant{}, ErrNoToken
	}

	tokenValue, err := s.newToken()
	if err != nil {
		return Grant{}, err
	}
	refreshValue, err := s.newToken()
	if err != nil {
		return Grant{}, err
	}

	now := s.now()
	at := &model.AccessToken{
		UserID:    user.ID,
		ClientID:  client.ID,
		Token:     tokenValue,
		Type:      model.TokenTypePhenom,
		CreatedAt: now,
	}
	if err := s.stores.AccessTokens.Create(ctx, at); err != nil {
		return Grant{}, fmt.Errorf("create access token: %w", err)
	}
	rt := &model.RefreshToken{
		UserID:        user.ID,
		ClientID:      client.ID,
		Token:         refreshValue,
		AccessTokenID: at.ID,
		CreatedAt:     now,
	}
	if err := s.stores.RefreshTokens.Create(ctx, rt); err != nil {
		return Grant{}, fmt.Errorf("create refresh token: %w", err)
	}

	if priv.ForgotPasswordToken != "" || priv.ForgotPasswordTokenAt != nil {
		priv.ForgotPasswordToken = ""
		priv.ForgotPasswordTokenAt = nil
		if err := s.stores.Privates.Update(ctx, priv); err != nil {
			return Grant{}, fmt.Errorf("clear reset token: %w", err)
		}
	}

	s.issued("password")
	return Grant{AccessToken: tokenValue, RefreshToken: refreshValue, ExpiresIn: seconds(s.cfg.TokenLifetime)}, nil
}

// RefreshGrant rotates the refresh token and the PHENOM access token it
// is bound to.  Both rows keep their ids so notification targets bound to
// the access token stay valid; only the values and CreatedAt change.
func (s *Service) RefreshGrant(ctx context.Context, client *model.Client, refreshToken string) (Grant, error) {
	if refreshToken == "" {
		return Grant{}, ErrNoToken
	}
	rt, err := s.stores.RefreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		return Grant{}, noToken(err)
	}
	phenom := model.TokenTypePhenom
	at, err := s.stores.AccessTokens.FindOne(ctx, model.AccessTokenQuery{
		ID:       rt.AccessTokenID,
		UserID:   rt.UserID,
		ClientID: client.ID,
		Type:     &phenom,
	})
	if err != nil {
		return Grant{}, noToken(err)
	}

	tokenValue, err := s.newToken()
	if err != nil {
		return Grant{}, err
	}
	refreshValue, err := s.newToken()
	if err != nil {
		return Grant{}, err
	}
	now := s.now()
	at.Token, at.CreatedAt = tokenValue, now
	rt.Token, rt.CreatedAt = refreshValue, now

	// Both writes go out together and are joined.  There is no rollback if
	// only one lands.
	var g errgroup.Group
	g.Go(func() error { return s.stores.AccessTokens.Update(ctx, at) })
	g.Go(func() error { return s.stores.RefreshTokens.Update(ctx, rt) })
	if err := g.Wait(); err != nil {
		return Grant{}, fmt.Errorf("rotate tokens: %w", err)
	}

	s.issued("refresh_token")
	return Grant{AccessToken: tokenValue, RefreshToken: refreshValue, ExpiresIn: seconds(s.cfg.TokenLifetime)}, nil
}

// FacebookExchange issues a FACEBOOK access token for a verified Facebook
// profile.  Errors are always catalog errors.
func (s *Service) FacebookExchange(ctx context.Context, in ProviderExchange) (ExchangeResult, error) {
	res, err := s.facebookExchange(ctx, in)
	return res, s.remap(provider.Facebook, err)
}

func (s *Service) facebookExchange(ctx context.Context, in ProviderExchange) (ExchangeResult, error) {
	user, err := s.stores.Users.GetByFacebookID(ctx, in.Profile.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ExchangeResult{}, s.unlinkedFacebookUser(ctx, in.Profile)
	}
	if err != nil {
		return ExchangeResult{}, err
	}
	at, err := s.providerToken(ctx, user, in, model.TokenTypeFacebook, func(at *model.AccessToken) {
		at.FacebookAccessToken = in.Credentials.AccessToken
	})
	if err != nil {
		return ExchangeResult{}, err
	}
	return ExchangeResult{AccessToken: at.Token, ExpiresIn: seconds(s.cfg.FacebookTokenLifetime)}, nil
}

// unlinkedFacebookUser tells a legacy account that still has to link
// Facebook apart from a profile nobody registered with.
func (s *Service) unlinkedFacebookUser(ctx context.Context, p provider.Profile) error {
	email := p.PrimaryEmail()
	if email == "" {
		return apperror.ServerUnknown.Wrap(errors.New("facebook profile without email"))
	}
	legacy, err := s.stores.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NoUserFound.With("email", email)
	}
	if err != nil {
		return err
	}
	return apperror.MissingFacebookLink.With("email", email).With("username", legacy.Username)
}

// TwitterExchange issues a TWITTER access token for a verified Twitter
// profile.  Errors are always catalog errors.
func (s *Service) TwitterExchange(ctx context.Context, in ProviderExchange) (ExchangeResult, error) {
	res, err := s.twitterExchange(ctx, in)
	return res, s.remap(provider.Twitter, err)
}

func (s *Service) twitterExchange(ctx context.Context, in ProviderExchange) (ExchangeResult, error) {
	user, err := s.stores.Users.GetByTwitterID(ctx, in.Profile.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ExchangeResult{}, apperror.NoUserFound
	}
	if err != nil {
		return ExchangeResult{}, err
	}
	at, err := s.providerToken(ctx, user, in, model.TokenTypeTwitter, func(at *model.AccessToken) {
		at.TwitterAccessToken = in.Credentials.AccessToken
		at.TwitterTokenSecret = in.Credentials.TokenSecret
	})
	if err != nil {
		return ExchangeResult{}, err
	}
	return ExchangeResult{AccessToken: at.Token, ExpiresIn: seconds(s.cfg.TwitterTokenLifetime)}, nil
}

// providerToken creates a token for the access_token grant.  For the
// refresh_token grant the token whose value was presented is rotated in
// place, falling back to a new token when there is none.
func (s *Service) providerToken(ctx context.Context, user *model.User, in ProviderExchange, typ model.TokenType, apply func(*model.AccessToken)) (*model.AccessToken, error) {
	value, err := s.newToken()
	if err != nil {
		return nil, err
	}
	grant := typ.String() + ":" + in.GrantType

	switch in.GrantType {
	case GrantAccessToken:
	case GrantRefreshToken:
		if in.Credentials.RefreshToken == "" {
			break
		}
		existing, err := s.stores.AccessTokens.FindOne(ctx, model.AccessTokenQuery{
			UserID: user.ID,
			Type:   &typ,
			Token:  in.Credentials.RefreshToken,
		})
		if errors.Is(err, repository.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		existing.Token = value
		existing.CreatedAt = s.now()
		apply(existing)
		if err := s.stores.AccessTokens.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.issued(grant)
		return existing, nil
	default:
		return nil, apperror.InvalidParams.With("grant_type", in.GrantType)
	}

	at := &model.AccessToken{
		UserID:    user.ID,
		ClientID:  in.Client.ID,
		Token:     value,
		Type:      typ,
		CreatedAt: s.now(),
	}
	apply(at)
	if err := s.stores.AccessTokens.Create(ctx, at); err != nil {
		return nil, err
	}
	s.issued(grant)
	return at, nil
}

// Logout deletes the access token with the given value together with its
// refresh token and notification targets.  Unknown values are ignored.
func (s *Service) Logout(ctx context.Context, bearer string) error {
	if bearer == "" {
		return nil
	}
	at, err := s.stores.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: bearer})
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.cascade.Delete(ctx, cascade.AccessToken, at.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// ValidateBearer resolves a bearer value to its token and user.
func (s *Service) ValidateBearer(ctx context.Context, bearer string) (*model.User, *model.AccessToken, error) {
	if bearer == "" {
		return nil, nil, ErrUnauthorized
	}
	at, err := s.stores.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: bearer})
	if err != nil {
		return nil, nil, unauthorized(err)
	}
	// An expired token is kept so its refresh token can still renew it.
	if s.cfg.EnforceExpiry && s.expired(at) {
		return nil, nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	user, err := s.stores.Users.GetByID(ctx, at.UserID)
	if err != nil {
		return nil, nil, unauthorized(err)
	}
	return user, at, nil
}

// ValidateClient checks a client id and base64 secret.
func (s *Service) ValidateClient(ctx context.Context, clientID, secretB64 string) (*model.Client, error) {
	if clientID == "" || secretB64 == "" {
		return nil, ErrUnauthorized
	}
	client, err := s.stores.Clients.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, unauthorized(err)
	}
	secret, err := utils.DecodeCredential(secretB64)
	if err != nil || !utils.VerifyPassword(client.ClientSecret, secret) {
		return nil, ErrUnauthorized
	}
	return client, nil
}

// CreateClient registers an API client.  secret is plain text and stored
// hashed.
func (s *Service) CreateClient(ctx context.Context, name, clientID, secret string) (*model.Client, error) {
	if name == "" || clientID == "" || secret == "" {
		return nil, apperror.InvalidParams
	}
	hash, err := utils.HashPassword(secret, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	c := &model.Client{Name: name, ClientID: clientID, ClientSecret: hash, CreatedAt: s.now()}
	if err := s.stores.Clients.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RotateSecret replaces a client's secret.  Tokens already issued to the
// client stay valid.
func (s *Service) RotateSecret(ctx context.Context, clientID, secret string) error {
	if secret == "" {
		return apperror.InvalidParams
	}
	hash, err := utils.HashPassword(secret, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.stores.Clients.UpdateSecret(ctx, clientID, hash)
}

func (s *Service) expired(at *model.AccessToken) bool {
	lifetime := s.cfg.TokenLifetime
	switch at.Type {
	case model.TokenTypeFacebook:
		lifetime = s.cfg.FacebookTokenLifetime
	case model.TokenTypeTwitter:
		lifetime = s.cfg.TwitterTokenLifetime
	}
	return lifetime > 0 && s.now().Sub(at.CreatedAt) > lifetime
}

// remap logs anything that is not a catalog error and replaces it with
// SERVER_UNKNOWN.
func (s *Service) remap(kind provider.Kind, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			s.log.Error("auth: provider exchange failed", zap.String("provider", string(kind)), zap.Error(err))
		}
		return appErr
	}
	s.log.Error("auth: provider exchange failed", zap.String("provider", string(kind)), zap.Error(err))
	return apperror.ServerUnknown.Wrap(err)
}

func (s *Service) issued(grant string) {
	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(grant).Inc()
	}
}

func noToken(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoToken
	}
	return err
}

func unauthorized(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnauthorized
	}
	return err
}

func seconds(d time.Duration) int { return int(d / time.Second) }
