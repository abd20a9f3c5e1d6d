// Package password implements forgotten-password resets and password
// changes.  Reset links are delivered out of band: RequestReset only
// stores the token and publishes an event for the mailer.
package password

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/queue"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/utils"
)

// EventPublisher hands reset requests to the mailer.
type EventPublisher interface {
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetRequestedEvent) error
}

// Config holds the reset token settings.
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Service is safe for concurrent use.
type Service struct {
	users    repository.UserStore
	privates repository.UserPrivateStore
	events   EventPublisher
	cfg      Config
	log      *zap.Logger
}

// New builds the service.  events and log may be nil.
func New(users repository.UserStore, privates repository.UserPrivateStore, events EventPublisher, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Service{users: users, privates: privates, events: events, cfg: cfg, log: log}
}

// RequestReset issues a reset token for the account registered with
// email.  Only the newest token is accepted by Reset.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	if email == "" {
		return apperror.InvalidParams
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.EmailNotFound
	}
	if err != nil {
		return s.fail("request reset", apperror.FailedToFind, err)
	}
	priv, err := s.privates.GetByUserID(ctx, user.ID)
	if err != nil {
		return s.fail("request reset", apperror.FailedToFind, err)
	}

	tok, err := utils.NewResetToken(s.cfg.Secret, user.ID, s.cfg.TokenTTL)
	if err != nil {
		return s.fail("request reset", apperror.FailedToUpdate, err)
	}
	issued := time.Now().UTC()
	priv.ForgotPasswordToken = tok.Token
	priv.ForgotPasswordTokenAt = &issued
	if err := s.privates.Update(ctx, priv); err != nil {
		return s.fail("request reset", apperror.FailedToUpdate, err)
	}

	if s.events != nil {
		ev := queue.PasswordResetRequestedEvent{
			UserID:    user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Token:     tok.Token,
			ExpiresAt: tok.Exp,
		}
		if err := s.events.PublishPasswordReset(ctx, ev); err != nil {
			s.log.Error("password: reset event not published", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// Reset sets a new password using a token from RequestReset.  The token
// must verify and still be the one on record; it is consumed on success.
func (s *Service) Reset(ctx context.Context, token, newPasswordB64 string) error {
	userID, err := utils.ParseResetToken(s.cfg.Secret, token)
	if err != nil {
		return apperror.InvalidPasswordResetToken
	}
	priv, err := s.privates.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.InvalidPasswordResetToken
	}
	if err != nil {
		return s.fail("reset", apperror.FailedToFind, err)
	}
	if priv.ForgotPasswordToken == "" || priv.ForgotPasswordToken != token {
		return apperror.InvalidPasswordResetToken
	}
	hash, err := s.hash(newPasswordB64)
	if err != nil {
		return err
	}
	priv.PasswordHash = hash
	priv.ForgotPasswordToken = ""
	priv.ForgotPasswordTokenAt = nil
	if err := s.privates.Update(ctx, priv); err != nil {
		return s.fail("reset", apperror.FailedToUpdate, err)
	}
	return nil
}

// Change replaces user's password after checking the current one.
func (s *Service) Change(ctx context.Context, user *model.User, oldPasswordB64, newPasswordB64 string) error {
	old, err := utils.DecodeCredential(oldPasswordB64)
	if err != nil {
		return apperror.InvalidParams
	}
	priv, err := s.privates.GetByUserID(ctx, user.ID)
	if err != nil {
		return s.fail("change", apperror.FailedToFind, err)
	}
	if !utils.VerifyPassword(priv.PasswordHash, old) {
		return apperror.InvalidPassword
	}
	hash, err := s.hash(newPasswordB64)
	if err != nil {
		return err
	}
	priv.PasswordHash = hash
	if err := s.privates.Update(ctx, priv); err != nil {
		return s.fail("change", apperror.FailedToUpdate, err)
	}
	return nil
}

func (s *Service) hash(passwordB64 string) (string, error) {
	plain, err := utils.DecodeCredential(passwordB64)
	if err != nil || plain == "" {
		return "", apperror.InvalidParams
	}
	if len(plain) > utils.MaxPasswordBytes {
		return "", apperror.InvalidParams.With("params", []string{"password"})
	}
	hash, err := utils.HashPassword(plain, s.cfg.BcryptCost)
	if err != nil {
		return "", s.fail("hash", apperror.ServerUnknown, err)
	}
	return hash, nil
}

func (s *Service) fail(op string, fallback *apperror.Error, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound
	}
	s.log.Error("password: "+op+" failed", zap.Error(err))
	return fallback.Wrap(err)
}
