package social

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
)

// MomentInput is the input of CreateMoment.
type MomentInput struct {
	Headline   string
	Image      string
	Song       json.RawMessage
	ProductIDs []string
}

// CreateMoment posts a moment.  Users mentioned in the headline get a
// MomentReference and a notification.
func (s *Service) CreateMoment(ctx context.Context, user *model.User, in MomentInput) (*model.Moment, error) {
	in.Headline = strings.TrimSpace(in.Headline)
	if in.Headline == "" && in.Image == "" {
		return nil, apperror.InvalidParams
	}
	if len(in.Song) > 0 && !json.Valid(in.Song) {
		return nil, apperror.InvalidParams.With("field", "song")
	}
	headline, mentioned, err := s.resolveMentions(ctx, in.Headline)
	if err != nil {
		return nil, s.fail("create moment", apperror.FailedToCreate, err)
	}

	m := &model.Moment{
		UserID:            user.ID,
		Headline:          headline,
		Image:             in.Image,
		Song:              in.Song,
		ProductIDs:        in.ProductIDs,
		ReferencedUserIDs: mentioned,
		CreatedAt:         s.now(),
	}
	if m.ProductIDs == nil {
		m.ProductIDs = []string{}
	}
	if m.ReferencedUserIDs == nil {
		m.ReferencedUserIDs = []string{}
	}
	if err := s.stores.Moments.Create(ctx, m); err != nil {
		return nil, s.fail("create moment", apperror.FailedToCreate, err)
	}

	// A failed reference is logged and skipped; the moment stands.
	for _, target := range mentioned {
		ref := &model.MomentReference{MomentID: m.ID, TargetUserID: target}
		if err := s.stores.MomentReferences.Create(ctx, ref); err != nil {
			s.log.Error("social: create moment reference failed",
				zap.String("moment_id", m.ID), zap.String("user_id", target), zap.Error(err))
			continue
		}
		s.notify(ctx, model.Notification{
			UserID:       target,
			SourceUserID: user.ID,
			Type:         model.NotificationMomentHeadlineMention,
			Message:      user.Username + " mentioned you in a moment",
			MomentID:     m.ID,
		})
	}
	return m, nil
}

// Moment returns a moment.
func (s *Service) Moment(ctx context.Context, id string) (*model.Moment, error) {
	m, err := s.stores.Moments.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get moment", apperror.FailedToFind, err)
	}
	return m, nil
}

// DeleteMoment archives and removes a moment owned by user.
func (s *Service) DeleteMoment(ctx context.Context, user *model.User, id string) error {
	m, err := s.stores.Moments.GetByID(ctx, id)
	if err != nil {
		return s.fail("delete moment", apperror.FailedToDelete, err)
	}
	if m.UserID != user.ID {
		return apperror.InvalidAccess
	}
	if err := s.cascade.Delete(ctx, cascade.Moment, id); err != nil {
		return s.fail("delete moment", apperror.FailedToDelete, err)
	}
	return nil
}

// Like records that user likes the moment.  Liking twice is a no-op.
func (s *Service) Like(ctx context.Context, user *model.User, momentID string) error {
	m, err := s.stores.Moments.GetByID(ctx, momentID)
	if err != nil {
		return s.fail("like", apperror.FailedToLikeMoment, err)
	}
	_, err = s.stores.Likes.Get(ctx, user.ID, momentID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return s.fail("like", apperror.FailedToLikeMoment, err)
	}

	if err := s.stores.Likes.Create(ctx, &model.Like{UserID: user.ID, MomentID: momentID, CreatedAt: s.now()}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return s.fail("like", apperror.FailedToLikeMoment, err)
	}
	if err := s.stores.Moments.UpdateCounters(ctx, momentID, m.CommentCount, m.LikeCount+1); err != nil {
		return s.fail("like", apperror.FailedToLikeMoment, err)
	}
	s.notifyOnce(ctx, model.Notification{
		UserID:       m.UserID,
		SourceUserID: user.ID,
		Type:         model.NotificationMomentLike,
		Message:      user.Username + " liked your moment",
		MomentID:     momentID,
	})
	return nil
}

// Unlike removes user's like of the moment.
func (s *Service) Unlike(ctx context.Context, user *model.User, momentID string) error {
	m, err := s.stores.Moments.GetByID(ctx, momentID)
	if err != nil {
		return s.fail("unlike", apperror.FailedToUnlike, err)
	}
	like, err := s.stores.Likes.Get(ctx, user.ID, momentID)
	if err != nil {
		return s.fail("unlike", apperror.FailedToUnlike, err)
	}
	if err := s.stores.Likes.Delete(ctx, like.ID); err != nil {
		return s.fail("unlike", apperror.FailedToUnlike, err)
	}
	if err := s.stores.Moments.UpdateCounters(ctx, momentID, m.CommentCount, max(0, m.LikeCount-1)); err != nil {
		return s.fail("unlike", apperror.FailedToUnlike, err)
	}
	return nil
}
