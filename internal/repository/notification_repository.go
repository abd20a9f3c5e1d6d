package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/phenom-api/internal/model"
)

const targetColumns = "id, user_id, access_token_id, device_type, device_id, endpoint_arn, created_at"

// NotificationTargetRepo provides access to the 'notification_targets' table.
type NotificationTargetRepo struct{ DB *sql.DB }

func NewNotificationTargetRepo(db *sql.DB) *NotificationTargetRepo {
	return &NotificationTargetRepo{DB: db}
}

// Create inserts a push registration.
func (r *NotificationTargetRepo) Create(ctx context.Context, t *model.NotificationTarget) error {
	ensureID(&t.ID)
	stamp(&t.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO notification_targets ("+targetColumns+") VALUES (?,?,?,?,?,?,?)",
		t.ID, t.UserID, t.AccessTokenID, int(t.DeviceType), t.DeviceID, t.EndpointARN, t.CreatedAt)
	return insertErr(err)
}

// GetByID fetches a registration by id.
func (r *NotificationTargetRepo) GetByID(ctx context.Context, id string) (*model.NotificationTarget, error) {
	t, err := scanTarget(r.DB.QueryRowContext(ctx,
		"SELECT "+targetColumns+" FROM notification_targets WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, rowErr(err)
	}
	return t, nil
}

// ListByAccessToken returns the registrations bound to an access token.
func (r *NotificationTargetRepo) ListByAccessToken(ctx context.Context, accessTokenID string) ([]model.NotificationTarget, error) {
	return r.list(ctx,
		"SELECT "+targetColumns+" FROM notification_targets WHERE access_token_id=?", accessTokenID)
}

// ListByDeviceOrAccessToken returns registrations for the device or the
// token; registering a device replaces both.
func (r *NotificationTargetRepo) ListByDeviceOrAccessToken(ctx context.Context, deviceID, accessTokenID string) ([]model.NotificationTarget, error) {
	return r.list(ctx,
		"SELECT "+targetColumns+" FROM notification_targets WHERE device_id=? OR access_token_id=?",
		deviceID, accessTokenID)
}

// Delete removes a registration row.  Callers deregister the endpoint first.
func (r *NotificationTargetRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM notification_targets WHERE id=?", id))
}

func (r *NotificationTargetRepo) list(ctx context.Context, query string, args ...any) ([]model.NotificationTarget, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.NotificationTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTarget(s rowScanner) (*model.NotificationTarget, error) {
	var (
		t   model.NotificationTarget
		dev int
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccessTokenID, &dev, &t.DeviceID, &t.EndpointARN, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.DeviceType = model.DeviceType(dev)
	return &t, nil
}

const notificationColumns = "id, user_id, source_user_id, type, message, moment_id, comment_id, acknowledged, created_at"

// NotificationRepo provides access to the 'notifications' table.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	ensureID(&n.ID)
	stamp(&n.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications ("+notificationColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		n.ID, n.UserID, n.SourceUserID, int(n.Type), n.Message, n.MomentID, n.CommentID, n.Acknowledged, n.CreatedAt)
	return insertErr(err)
}

// ListByUser returns the newest notifications addressed to a user.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	return r.list(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
}

// ListByMoment returns notifications about a moment.
func (r *NotificationRepo) ListByMoment(ctx context.Context, momentID string) ([]model.Notification, error) {
	return r.list(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE moment_id=?", momentID)
}

// ListByComment returns notifications about a comment.
func (r *NotificationRepo) ListByComment(ctx context.Context, commentID string) ([]model.Notification, error) {
	return r.list(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE comment_id=?", commentID)
}

// AcknowledgeAll marks every notification of a user as seen.
func (r *NotificationRepo) AcknowledgeAll(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET acknowledged=TRUE WHERE user_id=? AND acknowledged=FALSE", userID)
	return err
}

// Delete removes a notification.
func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM notifications WHERE id=?", id))
}

func (r *NotificationRepo) list(ctx context.Context, query string, args ...any) ([]model.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n   model.Notification
			typ int
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.SourceUserID, &typ, &n.Message,
			&n.MomentID, &n.CommentID, &n.Acknowledged, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}
