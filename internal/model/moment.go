package model

import (
    "encoding/json"
    "time"
)

// Moment is a post: a headline with an optional image and song.
// CommentCount and LikeCount are materialised counters maintained by the
// services, never computed at query time.
//
// Fields:
//  ID                       – primary key identifier.
//  UserID                   – author.
//  Headline                 – text; may contain @{userId} mentions.
//  Image                    – storage key of the attached media.
//  Song                     – raw JSON describing an attached track.
//  ProductIDs               – products tagged in the moment.
//  ReferencedUserIDs        – users mentioned in the headline.
//  CommentCount             – number of comments.
//  LikeCount                – number of likes.
//  FlaggedAsInappropriate   – moderation flag.
//  FlaggedAsInappropriateBy – user who raised the flag.
//  CreatedAt                – creation timestamp.
type Moment struct {
    ID                       string          `json:"id"`                       // moments.id
    UserID                   string          `json:"userId"`                   // moments.user_id
    Headline                 string          `json:"headline"`                 // moments.headline
    Image                    string          `json:"image"`                    // moments.image
    Song                     json.RawMessage `json:"song,omitempty"`           // moments.song
    ProductIDs               []string        `json:"productIds"`               // moments.product_ids (JSON)
    ReferencedUserIDs        []string        `json:"referencedUserIds"`        // moments.referenced_user_ids (JSON)
    CommentCount             int             `json:"commentCount"`             // moments.comment_count
    LikeCount                int             `json:"likeCount"`                // moments.like_count
    FlaggedAsInappropriate   bool            `json:"flaggedAsInappropriate"`   // moments.flagged_as_inappropriate
    FlaggedAsInappropriateBy string          `json:"-"`                        // moments.flagged_as_inappropriate_by
    CreatedAt                time.Time       `json:"createdAt"`                // moments.created_at
}

// DeletedMoment is the archive copy written when a moment is deleted.  It
// keeps a fixed projection of the original row.
type DeletedMoment struct {
    ID                       string          // deleted_moments.id
    MomentID                 string          // deleted_moments.moment_id
    UserID                   string          // deleted_moments.user_id
    ReferencedUserIDs        []string        // deleted_moments.referenced_user_ids
    ProductIDs               []string        // deleted_moments.product_ids
    Headline                 string          // deleted_moments.headline
    Song                     json.RawMessage // deleted_moments.song
    Image                    string          // deleted_moments.image
    CreatedAt                time.Time       // deleted_moments.created_at (of the original moment)
    FlaggedAsInappropriate   bool            // deleted_moments.flagged_as_inappropriate
    FlaggedAsInappropriateBy string          // deleted_moments.flagged_as_inappropriate_by
    DeletedAt                time.Time       // deleted_moments.deleted_at
}

// ArchiveOf projects a moment onto its archive record.
func ArchiveOf(m Moment, deletedAt time.Time) DeletedMoment {
    return DeletedMoment{
        MomentID:                 m.ID,
        UserID:                   m.UserID,
        ReferencedUserIDs:        m.ReferencedUserIDs,
        ProductIDs:               m.ProductIDs,
        Headline:                 m.Headline,
        Song:                     m.Song,
        Image:                    m.Image,
        CreatedAt:                m.CreatedAt,
        FlaggedAsInappropriate:   m.FlaggedAsInappropriate,
        FlaggedAsInappropriateBy: m.FlaggedAsInappropriateBy,
        DeletedAt:                deletedAt,
    }
}

// MomentReference records a user mentioned in a moment headline.
type MomentReference struct {
    ID           string // moment_references.id
    MomentID     string // moment_references.moment_id
    TargetUserID string // moment_references.target_user_id
}
