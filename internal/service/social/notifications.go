package social

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/push"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/settle"
)

// notify stores n unless it would notify a user about their own action.
// Failures are logged only.
func (s *Service) notify(ctx context.Context, n model.Notification) {
	if n.UserID == "" || n.UserID == n.SourceUserID {
		return
	}
	n.CreatedAt = s.now()
	if err := s.stores.Notifications.Create(ctx, &n); err != nil {
		s.log.Error("social: create notification failed",
			zap.String("user_id", n.UserID), zap.Int("type", int(n.Type)), zap.Error(err))
	}
}

// notifyOnce is notify for events that should be reported once per
// source, type and moment, such as likes.
func (s *Service) notifyOnce(ctx context.Context, n model.Notification) {
	existing, err := s.stores.Notifications.ListByMoment(ctx, n.MomentID)
	if err != nil {
		s.log.Warn("social: notification lookup failed", zap.String("moment_id", n.MomentID), zap.Error(err))
		return
	}
	for _, e := range existing {
		if e.UserID == n.UserID && e.SourceUserID == n.SourceUserID && e.Type == n.Type {
			return
		}
	}
	s.notify(ctx, n)
}

// Notifications lists the newest notifications of user.  limit <= 0 uses
// the configured page size.
func (s *Service) Notifications(ctx context.Context, user *model.User, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > s.cfg.NotificationPageSize {
		limit = s.cfg.NotificationPageSize
	}
	out, err := s.stores.Notifications.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, s.fail("list notifications", apperror.FailedToFind, err)
	}
	if out == nil {
		out = []model.Notification{}
	}
	return out, nil
}

// Acknowledge marks every notification of user as seen.
func (s *Service) Acknowledge(ctx context.Context, user *model.User) error {
	if err := s.stores.Notifications.AcknowledgeAll(ctx, user.ID); err != nil {
		return s.fail("acknowledge", apperror.FailedToAcknowledge, err)
	}
	return nil
}

// RegisterDevice binds a push registration to the caller's access token.
// A device keeps one target per access token: targets for another device
// on this token, or for this device on another token, are removed first.
// An existing target for the same device and token is returned as is.
func (s *Service) RegisterDevice(ctx context.Context, user *model.User, token *model.AccessToken, deviceType model.DeviceType, deviceID string) (*model.NotificationTarget, error) {
	if deviceID == "" || (deviceType != model.DeviceTypeIOS && deviceType != model.DeviceTypeAndroid) {
		return nil, apperror.InvalidParams
	}
	current, err := s.stores.Targets.ListByDeviceOrAccessToken(ctx, deviceID, token.ID)
	if err != nil {
		return nil, s.fail("register device", apperror.FailedToUpdate, err)
	}

	var keep, obsolete []model.NotificationTarget
	for _, t := range current {
		if t.DeviceID == deviceID && t.AccessTokenID == token.ID {
			keep = append(keep, t)
		} else {
			obsolete = append(obsolete, t)
		}
	}
	res := settle.Each(ctx, obsolete, func(ctx context.Context, t model.NotificationTarget) error {
		return s.cascade.Delete(ctx, cascade.NotificationTarget, t.ID)
	})
	if err := res.Err(); err != nil {
		s.log.Warn("social: obsolete notification targets not removed", zap.Int("failed", len(res.Failed())), zap.Error(err))
	}
	if len(keep) > 0 {
		return &keep[0], nil
	}

	arn, err := s.push.Register(ctx, deviceType, deviceID)
	if errors.Is(err, push.ErrUnsupportedDevice) {
		return nil, apperror.InvalidParams.With("deviceType", int(deviceType))
	}
	if err != nil {
		return nil, s.fail("register device", apperror.FailedToCreate, err)
	}
	t := &model.NotificationTarget{
		UserID:        user.ID,
		AccessTokenID: token.ID,
		DeviceType:    deviceType,
		DeviceID:      deviceID,
		EndpointARN:   arn,
		CreatedAt:     s.now(),
	}
	if err := s.stores.Targets.Create(ctx, t); err != nil {
		if derr := s.push.Deregister(ctx, arn, deviceType); derr != nil {
			s.log.Warn("social: orphaned push endpoint", zap.String("endpoint_arn", arn), zap.Error(derr))
		}
		return nil, s.fail("register device", apperror.FailedToCreate, err)
	}
	return t, nil
}

// UnregisterDevice removes every push registration bound to token.
func (s *Service) UnregisterDevice(ctx context.Context, token *model.AccessToken) error {
	targets, err := s.stores.Targets.ListByAccessToken(ctx, token.ID)
	if err != nil {
		return s.fail("unregister device", apperror.FailedToDelete, err)
	}
	res := settle.Each(ctx, targets, func(ctx context.Context, t model.NotificationTarget) error {
		return s.cascade.Delete(ctx, cascade.NotificationTarget, t.ID)
	})
	if err := res.Err(); err != nil {
		return s.fail("unregister device", apperror.FailedToDelete, err)
	}
	return nil
}
