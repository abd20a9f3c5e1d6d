package social

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
)

// CreateComment adds a comment to a moment and bumps its comment count.
// The moment's author and every mentioned user are notified.
func (s *Service) CreateComment(ctx context.Context, user *model.User, momentID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.InvalidParams
	}
	m, err := s.stores.Moments.GetByID(ctx, momentID)
	if err != nil {
		return nil, s.fail("create comment", apperror.FailedToCreate, err)
	}
	text, mentioned, err := s.resolveMentions(ctx, text)
	if err != nil {
		return nil, s.fail("create comment", apperror.FailedToCreate, err)
	}

	c := &model.Comment{
		AuthorID:       user.ID,
		Type:           model.CommentTypeMoment,
		TargetMomentID: momentID,
		Text:           text,
		CreatedAt:      s.now(),
	}
	if err := s.stores.Comments.Create(ctx, c); err != nil {
		return nil, s.fail("create comment", apperror.FailedToCreate, err)
	}
	if err := s.stores.Moments.UpdateCounters(ctx, momentID, m.CommentCount+1, m.LikeCount); err != nil {
		return nil, s.fail("create comment", apperror.FailedToCreate, err)
	}

	for _, target := range mentioned {
		ref := &model.CommentReference{CommentID: c.ID, TargetUserID: target}
		if err := s.stores.CommentReferences.Create(ctx, ref); err != nil {
			s.log.Error("social: create comment reference failed",
				zap.String("comment_id", c.ID), zap.String("user_id", target), zap.Error(err))
			continue
		}
		s.notify(ctx, model.Notification{
			UserID:       target,
			SourceUserID: user.ID,
			Type:         model.NotificationMomentCommentMention,
			Message:      user.Username + " mentioned you in a comment",
			MomentID:     momentID,
			CommentID:    c.ID,
		})
	}
	s.notify(ctx, model.Notification{
		UserID:       m.UserID,
		SourceUserID: user.ID,
		Type:         model.NotificationMomentComment,
		Message:      user.Username + " commented on your moment",
		MomentID:     momentID,
		CommentID:    c.ID,
	})
	return c, nil
}

// DeleteComment removes a comment.  The comment's author and the author of
// the moment it belongs to may delete it.
func (s *Service) DeleteComment(ctx context.Context, user *model.User, commentID string) error {
	c, err := s.stores.Comments.GetByID(ctx, commentID)
	if err != nil {
		return s.fail("delete comment", apperror.FailedToDelete, err)
	}
	m, err := s.stores.Moments.GetByID(ctx, c.TargetMomentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return s.fail("delete comment", apperror.FailedToDelete, err)
	}
	if c.AuthorID != user.ID && (m == nil || m.UserID != user.ID) {
		return apperror.InvalidAccess
	}
	if err := s.cascade.Delete(ctx, cascade.Comment, commentID); err != nil {
		return s.fail("delete comment", apperror.FailedToDelete, err)
	}
	if m == nil {
		return nil
	}

	// Re-read so a like that landed meanwhile is not overwritten.
	m, err = s.stores.Moments.GetByID(ctx, c.TargetMomentID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("social: comment count not updated", zap.String("moment_id", c.TargetMomentID), zap.Error(err))
		}
		return nil
	}
	if err := s.stores.Moments.UpdateCounters(ctx, m.ID, max(0, m.CommentCount-1), m.LikeCount); err != nil {
		return s.fail("delete comment", apperror.FailedToDelete, err)
	}
	return nil
}
