package cascade

import (
	"context"
	"errors"

	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/settle"
)

// AccessToken: refresh tokens, then every notification target through its
// own cascade.  A target whose endpoint cannot be deregistered stays.
func (m *Manager) accessTokenEntry() entry {
	st := m.deps.Stores
	return entry{
		load: func(ctx context.Context, id string) (any, error) {
			return st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{ID: id})
		},
		steps: []Step{
			{Name: "refresh_tokens", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				tokens, err := st.RefreshTokens.ListByAccessToken(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, tokens, func(ctx context.Context, rt model.RefreshToken) error {
					return ignoreNotFound(st.RefreshTokens.Delete(ctx, rt.ID))
				}).Err()
			}},
			{Name: "notification_targets", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				targets, err := st.Targets.ListByAccessToken(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, targets, func(ctx context.Context, nt model.NotificationTarget) error {
					return ignoreNotFound(m.Delete(ctx, NotificationTarget, nt.ID))
				}).Err()
			}},
		},
		remove: st.AccessTokens.Delete,
	}
}

// NotificationTarget: the push endpoint must be gone before the row is.
func (m *Manager) notificationTargetEntry() entry {
	st := m.deps.Stores
	return entry{
		load: func(ctx context.Context, id string) (any, error) {
			return st.Targets.GetByID(ctx, id)
		},
		steps: []Step{
			{Name: "push_endpoint", Mode: Required, Run: func(ctx context.Context, t Target) error {
				nt := t.Snapshot.(*model.NotificationTarget)
				return m.deps.Push.Deregister(ctx, nt.EndpointARN, nt.DeviceType)
			}},
		},
		remove: st.Targets.Delete,
	}
}

// User: profile image, following edges in both directions, moments,
// access tokens and credentials.
func (m *Manager) userEntry() entry {
	st := m.deps.Stores
	return entry{
		load: func(ctx context.Context, id string) (any, error) {
			return st.Users.GetByID(ctx, id)
		},
		steps: []Step{
			{Name: "profile_image", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				return m.deps.Media.Delete(ctx, media.ProfileImages, t.Snapshot.(*model.User).Image)
			}},
			{Name: "outgoing_followings", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				edges, err := st.Followings.ListBySource(ctx, t.ID, model.FollowingTypeUser)
				if err != nil {
					return err
				}
				return settle.Each(ctx, edges, func(ctx context.Context, f model.Following) error {
					followed, err := st.Users.GetByID(ctx, f.TargetID)
					switch {
					case err == nil:
						if err := st.Users.UpdateFollowersCount(ctx, followed.ID, max(0, followed.FollowersCount-1)); err != nil {
							return err
						}
					case ignoreNotFound(err) != nil:
						return err
					}
					return ignoreNotFound(st.Followings.Delete(ctx, f.ID))
				}).Err()
			}},
			{Name: "incoming_followings", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				edges, err := st.Followings.ListByTarget(ctx, model.FollowingTypeUser, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, edges, func(ctx context.Context, f model.Following) error {
					return ignoreNotFound(st.Followings.Delete(ctx, f.ID))
				}).Err()
			}},
			{Name: "moments", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				moments, err := st.Moments.ListByUser(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, moments, func(ctx context.Context, mo model.Moment) error {
					return ignoreNotFound(m.Delete(ctx, Moment, mo.ID))
				}).Err()
			}},
			{Name: "access_tokens", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				tokens, err := st.AccessTokens.ListByUser(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, tokens, func(ctx context.Context, at model.AccessToken) error {
					return ignoreNotFound(m.Delete(ctx, AccessToken, at.ID))
				}).Err()
			}},
			{Name: "private", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				return ignoreNotFound(st.Privates.Delete(ctx, t.ID))
			}},
		},
		remove: st.Users.Delete,
	}
}

// Moment: media, notifications, likes, comments and mentions, then the
// archive copy.  The archive is built from the row loaded up front so it
// is written no matter which cleanup failed.
func (m *Manager) momentEntry() entry {
	st := m.deps.Stores
	return entry{
		load: func(ctx context.Context, id string) (any, error) {
			return st.Moments.GetByID(ctx, id)
		},
		steps: []Step{
			{Name: "media", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				return m.deps.Media.Delete(ctx, media.MomentImages, t.Snapshot.(*model.Moment).Image)
			}},
			{Name: "notifications", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				notes, err := st.Notifications.ListByMoment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, notes, func(ctx context.Context, n model.Notification) error {
					return ignoreNotFound(st.Notifications.Delete(ctx, n.ID))
				}).Err()
			}},
			{Name: "likes", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				likes, err := st.Likes.ListByMoment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, likes, func(ctx context.Context, l model.Like) error {
					return ignoreNotFound(st.Likes.Delete(ctx, l.ID))
				}).Err()
			}},
			{Name: "comments", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				comments, err := st.Comments.ListByMoment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, comments, func(ctx context.Context, c model.Comment) error {
					return ignoreNotFound(m.Delete(ctx, Comment, c.ID))
				}).Err()
			}},
			{Name: "moment_references", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				refs, err := st.MomentReferences.ListByMoment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, refs, func(ctx context.Context, r model.MomentReference) error {
					return ignoreNotFound(st.MomentReferences.Delete(ctx, r.ID))
				}).Err()
			}},
			{Name: "archive", Mode: BestEffort, Run: func(ctx context.Context, t Target) error {
				archived := model.ArchiveOf(*t.Snapshot.(*model.Moment), m.now())
				// a retried delete finds the archive row already written
				if err := st.DeletedMoments.Create(ctx, &archived); !errors.Is(err, repository.ErrDuplicate) {
					return err
				}
				return nil
			}},
		},
		remove: st.Moments.Delete,
	}
}

// Comment: mentions and notifications are cleaned up in the background;
// the comment itself is removed right away.
func (m *Manager) commentEntry() entry {
	st := m.deps.Stores
	return entry{
		load: func(ctx context.Context, id string) (any, error) {
			return st.Comments.GetByID(ctx, id)
		},
		steps: []Step{
			{Name: "comment_references", Mode: Detached, Run: func(ctx context.Context, t Target) error {
				refs, err := st.CommentReferences.ListByComment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, refs, func(ctx context.Context, r model.CommentReference) error {
					return ignoreNotFound(st.CommentReferences.Delete(ctx, r.ID))
				}).Err()
			}},
			{Name: "notifications", Mode: Detached, Run: func(ctx context.Context, t Target) error {
				notes, err := st.Notifications.ListByComment(ctx, t.ID)
				if err != nil {
					return err
				}
				return settle.Each(ctx, notes, func(ctx context.Context, n model.Notification) error {
					return ignoreNotFound(st.Notifications.Delete(ctx, n.ID))
				}).Err()
			}},
		},
		remove: st.Comments.Delete,
	}
}
