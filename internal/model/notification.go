package model

import "time"

// DeviceType is the push platform a notification target is registered on.
type DeviceType int

const (
    DeviceTypeIOS     DeviceType = 0
    DeviceTypeAndroid DeviceType = 1
)

// NotificationTarget is a push registration bound to a single access
// token.  Removing the row requires deregistering EndpointARN from the
// push service first.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – owner of the device.
//  AccessTokenID – access token the registration belongs to.
//  DeviceType    – IOS or ANDROID.
//  DeviceID      – platform device token.
//  EndpointARN   – push service endpoint.
//  CreatedAt     – registration time.
type NotificationTarget struct {
    ID            string     // notification_targets.id
    UserID        string     // notification_targets.user_id
    AccessTokenID string     // notification_targets.access_token_id
    DeviceType    DeviceType // notification_targets.device_type
    DeviceID      string     // notification_targets.device_id
    EndpointARN   string     // notification_targets.endpoint_arn
    CreatedAt     time.Time  // notification_targets.created_at
}

// NotificationType names the event a notification describes.
type NotificationType int

const (
    NotificationMomentLike             NotificationType = 0
    NotificationMomentComment          NotificationType = 1
    NotificationUserFollowing          NotificationType = 2
    NotificationMomentHeadlineMention  NotificationType = 3
    NotificationMomentCommentMention   NotificationType = 4
)

// Notification is an in-app notification addressed to UserID.  MomentID
// and CommentID link it to the content it describes so it can be removed
// when that content is deleted.
type Notification struct {
    ID           string           `json:"id"`                  // notifications.id
    UserID       string           `json:"userId"`              // notifications.user_id
    SourceUserID string           `json:"sourceUserId"`        // notifications.source_user_id
    Type         NotificationType `json:"type"`                // notifications.type
    Message      string           `json:"message"`             // notifications.message
    MomentID     string           `json:"momentId,omitempty"`  // notifications.moment_id
    CommentID    string           `json:"commentId,omitempty"` // notifications.comment_id
    Acknowledged bool             `json:"acknowledged"`        // notifications.acknowledged
    CreatedAt    time.Time        `json:"createdAt"`           // notifications.created_at
}
