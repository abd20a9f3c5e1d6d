package repository

import (
	"context"

	"github.com/iliyamo/phenom-api/internal/model"
)

// ClientStore persists OAuth clients.
type ClientStore interface {
	Create(ctx context.Context, c *model.Client) error
	GetByClientID(ctx context.Context, clientID string) (*model.Client, error)
	UpdateSecret(ctx context.Context, clientID, secretHash string) error
}

// UserStore persists public user profiles.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByFacebookID(ctx context.Context, facebookID string) (*model.User, error)
	GetByTwitterID(ctx context.Context, twitterID string) (*model.User, error)
	UpdateFollowersCount(ctx context.Context, id string, count int) error
	// Update writes the editable profile fields and the linked provider
	// ids.  A provider id already linked to another user is ErrDuplicate.
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

// UserPrivateStore persists user credentials.
type UserPrivateStore interface {
	Create(ctx context.Context, p *model.UserPrivate) error
	GetByUserID(ctx context.Context, userID string) (*model.UserPrivate, error)
	Update(ctx context.Context, p *model.UserPrivate) error
	Delete(ctx context.Context, userID string) error
}

// AccessTokenStore persists bearer tokens.  Token values are unique, so a
// lookup that includes Token matches at most one row.
type AccessTokenStore interface {
	Create(ctx context.Context, t *model.AccessToken) error
	FindOne(ctx context.Context, q model.AccessTokenQuery) (*model.AccessToken, error)
	ListByUser(ctx context.Context, userID string) ([]model.AccessToken, error)
	Update(ctx context.Context, t *model.AccessToken) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	ListByAccessToken(ctx context.Context, accessTokenID string) ([]model.RefreshToken, error)
	Update(ctx context.Context, t *model.RefreshToken) error
	Delete(ctx context.Context, id string) error
}

// NotificationTargetStore persists push registrations.
type NotificationTargetStore interface {
	Create(ctx context.Context, t *model.NotificationTarget) error
	GetByID(ctx context.Context, id string) (*model.NotificationTarget, error)
	ListByAccessToken(ctx context.Context, accessTokenID string) ([]model.NotificationTarget, error)
	ListByDeviceOrAccessToken(ctx context.Context, deviceID, accessTokenID string) ([]model.NotificationTarget, error)
	Delete(ctx context.Context, id string) error
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	ListByMoment(ctx context.Context, momentID string) ([]model.Notification, error)
	ListByComment(ctx context.Context, commentID string) ([]model.Notification, error)
	AcknowledgeAll(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
}

// MomentStore persists moments.
type MomentStore interface {
	Create(ctx context.Context, m *model.Moment) error
	GetByID(ctx context.Context, id string) (*model.Moment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Moment, error)
	UpdateCounters(ctx context.Context, id string, commentCount, likeCount int) error
	Delete(ctx context.Context, id string) error
}

// DeletedMomentStore persists the moment archive.
type DeletedMomentStore interface {
	Create(ctx context.Context, d *model.DeletedMoment) error
}

// MomentReferenceStore persists headline mentions.
type MomentReferenceStore interface {
	Create(ctx context.Context, r *model.MomentReference) error
	ListByMoment(ctx context.Context, momentID string) ([]model.MomentReference, error)
	Delete(ctx context.Context, id string) error
}

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByMoment(ctx context.Context, momentID string) ([]model.Comment, error)
	Delete(ctx context.Context, id string) error
}

// CommentReferenceStore persists comment mentions.
type CommentReferenceStore interface {
	Create(ctx context.Context, r *model.CommentReference) error
	ListByComment(ctx context.Context, commentID string) ([]model.CommentReference, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore persists likes.
type LikeStore interface {
	Create(ctx context.Context, l *model.Like) error
	Get(ctx context.Context, userID, momentID string) (*model.Like, error)
	ListByMoment(ctx context.Context, momentID string) ([]model.Like, error)
	Delete(ctx context.Context, id string) error
}

// FollowingStore persists following edges.
type FollowingStore interface {
	Create(ctx context.Context, f *model.Following) error
	Get(ctx context.Context, sourceUserID string, targetType model.FollowingType, targetID string) (*model.Following, error)
	ListBySource(ctx context.Context, sourceUserID string, targetType model.FollowingType) ([]model.Following, error)
	ListByTarget(ctx context.Context, targetType model.FollowingType, targetID string) ([]model.Following, error)
	Delete(ctx context.Context, id string) error
}

// Stores bundles every store so services can be wired from one value.
type Stores struct {
	Clients           ClientStore
	Users             UserStore
	Privates          UserPrivateStore
	AccessTokens      AccessTokenStore
	RefreshTokens     RefreshTokenStore
	Targets           NotificationTargetStore
	Notifications     NotificationStore
	Moments           MomentStore
	DeletedMoments    DeletedMomentStore
	MomentReferences  MomentReferenceStore
	Comments          CommentStore
	CommentReferences CommentReferenceStore
	Likes             LikeStore
	Followings        FollowingStore
}
