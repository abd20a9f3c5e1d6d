// Package social implements the user-facing content operations: profiles,
// followings, moments, likes, comments, devices and notifications.  Every
// error it returns is a catalog error from package apperror.
package social

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/push"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
)

// Deleter runs cascade deletes.
type Deleter interface {
	Delete(ctx context.Context, entity cascade.Entity, id string) error
}

// Config tunes the service.
type Config struct {
	BcryptCost int
	// NotificationPageSize caps Notifications when the caller passes no limit.
	NotificationPageSize int
}

// Service is safe for concurrent use.
type Service struct {
	stores  repository.Stores
	cascade Deleter
	push    push.Service
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

// New builds the service.  log may be nil.
func New(stores repository.Stores, deleter Deleter, pusher push.Service, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.NotificationPageSize <= 0 {
		cfg.NotificationPageSize = 50
	}
	return &Service{
		stores:  stores,
		cascade: deleter,
		push:    pusher,
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// fail logs err and returns it mapped onto catalog entry fallback.
// Catalog errors pass through and a missing row becomes NOT_FOUND.
func (s *Service) fail(op string, fallback *apperror.Error, err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound
	}
	s.log.Error("social: "+op+" failed", zap.Error(err))
	return fallback.Wrap(err)
}
