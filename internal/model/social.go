package model

import "time"

// CommentType identifies what a comment is attached to.
type CommentType int

const (
    CommentTypeMoment  CommentType = 0
    CommentTypeProduct CommentType = 1
)

// Comment is a text reply on a moment.
type Comment struct {
    ID             string      `json:"id"`           // comments.id
    AuthorID       string      `json:"authorId"`     // comments.author_id
    Type           CommentType `json:"type"`         // comments.type
    TargetMomentID string      `json:"targetMoment"` // comments.target_moment_id
    Text           string      `json:"commentText"`  // comments.text
    CreatedAt      time.Time   `json:"createdAt"`    // comments.created_at
}

// CommentReference records a user mentioned in a comment.
type CommentReference struct {
    ID           string // comment_references.id
    CommentID    string // comment_references.comment_id
    TargetUserID string // comment_references.target_user_id
}

// Like is a user's like of a moment.  A user likes a moment at most once.
type Like struct {
    ID        string    // likes.id
    UserID    string    // likes.user_id
    MomentID  string    // likes.moment_id
    CreatedAt time.Time // likes.created_at
}

// FollowingType identifies what a following edge points at.
type FollowingType int

const (
    FollowingTypeUser FollowingType = 0
)

// Following is a directed edge from SourceUserID to TargetID.  For USER
// edges the target's FollowersCount mirrors the number of incoming edges.
type Following struct {
    ID           string        // followings.id
    SourceUserID string        // followings.source_user_id
    TargetType   FollowingType // followings.target_type
    TargetID     string        // followings.target_id
    CreatedAt    time.Time     // followings.created_at
}
