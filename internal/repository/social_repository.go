package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/phenom-api/internal/model"
)

// CommentRepo provides access to the 'comments' table.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

const commentColumns = "id, author_id, type, target_moment_id, text, created_at"

// Create inserts a comment.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	ensureID(&c.ID)
	stamp(&c.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments ("+commentColumns+") VALUES (?,?,?,?,?,?)",
		c.ID, c.AuthorID, int(c.Type), c.TargetMomentID, c.Text, c.CreatedAt)
	return insertErr(err)
}

// GetByID fetches a comment by id.
func (r *CommentRepo) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(r.DB.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, rowErr(err)
	}
	return c, nil
}

// ListByMoment returns the comments of a moment, oldest first.
func (r *CommentRepo) ListByMoment(ctx context.Context, momentID string) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE target_moment_id=? ORDER BY created_at", momentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete removes a comment row.
func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id))
}

func scanComment(s rowScanner) (*model.Comment, error) {
	var (
		c   model.Comment
		typ int
	)
	if err := s.Scan(&c.ID, &c.AuthorID, &typ, &c.TargetMomentID, &c.Text, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Type = model.CommentType(typ)
	return &c, nil
}

// CommentReferenceRepo provides access to the 'comment_references' table.
type CommentReferenceRepo struct{ DB *sql.DB }

func NewCommentReferenceRepo(db *sql.DB) *CommentReferenceRepo { return &CommentReferenceRepo{DB: db} }

// Create inserts a comment mention.
func (r *CommentReferenceRepo) Create(ctx context.Context, ref *model.CommentReference) error {
	ensureID(&ref.ID)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comment_references (id, comment_id, target_user_id) VALUES (?,?,?)",
		ref.ID, ref.CommentID, ref.TargetUserID)
	return insertErr(err)
}

// ListByComment returns the mentions of a comment.
func (r *CommentReferenceRepo) ListByComment(ctx context.Context, commentID string) ([]model.CommentReference, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, comment_id, target_user_id FROM comment_references WHERE comment_id=?", commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CommentReference
	for rows.Next() {
		var ref model.CommentReference
		if err := rows.Scan(&ref.ID, &ref.CommentID, &ref.TargetUserID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Delete removes a comment mention.
func (r *CommentReferenceRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM comment_references WHERE id=?", id))
}

// LikeRepo provides access to the 'likes' table.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Create inserts a like; a second like of the same moment is ErrDuplicate.
func (r *LikeRepo) Create(ctx context.Context, l *model.Like) error {
	ensureID(&l.ID)
	stamp(&l.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO likes (id, user_id, moment_id, created_at) VALUES (?,?,?,?)",
		l.ID, l.UserID, l.MomentID, l.CreatedAt)
	return insertErr(err)
}

// Get fetches the like of momentID by userID.
func (r *LikeRepo) Get(ctx context.Context, userID, momentID string) (*model.Like, error) {
	var l model.Like
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, moment_id, created_at FROM likes WHERE user_id=? AND moment_id=? LIMIT 1",
		userID, momentID).Scan(&l.ID, &l.UserID, &l.MomentID, &l.CreatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	return &l, nil
}

// ListByMoment returns the likes of a moment.
func (r *LikeRepo) ListByMoment(ctx context.Context, momentID string) ([]model.Like, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, moment_id, created_at FROM likes WHERE moment_id=?", momentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Like
	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.ID, &l.UserID, &l.MomentID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes a like.
func (r *LikeRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM likes WHERE id=?", id))
}

// FollowingRepo provides access to the 'followings' table.
type FollowingRepo struct{ DB *sql.DB }

func NewFollowingRepo(db *sql.DB) *FollowingRepo { return &FollowingRepo{DB: db} }

const followingColumns = "id, source_user_id, target_type, target_id, created_at"

// Create inserts an edge; an existing edge is ErrDuplicate.
func (r *FollowingRepo) Create(ctx context.Context, f *model.Following) error {
	ensureID(&f.ID)
	stamp(&f.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO followings ("+followingColumns+") VALUES (?,?,?,?,?)",
		f.ID, f.SourceUserID, int(f.TargetType), f.TargetID, f.CreatedAt)
	return insertErr(err)
}

// Get fetches a single edge.
func (r *FollowingRepo) Get(ctx context.Context, sourceUserID string, targetType model.FollowingType, targetID string) (*model.Following, error) {
	list, err := r.list(ctx,
		"SELECT "+followingColumns+" FROM followings WHERE source_user_id=? AND target_type=? AND target_id=? LIMIT 1",
		sourceUserID, int(targetType), targetID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListBySource returns the edges a user created.
func (r *FollowingRepo) ListBySource(ctx context.Context, sourceUserID string, targetType model.FollowingType) ([]model.Following, error) {
	return r.list(ctx,
		"SELECT "+followingColumns+" FROM followings WHERE source_user_id=? AND target_type=?",
		sourceUserID, int(targetType))
}

// ListByTarget returns the edges pointing at a target.
func (r *FollowingRepo) ListByTarget(ctx context.Context, targetType model.FollowingType, targetID string) ([]model.Following, error) {
	return r.list(ctx,
		"SELECT "+followingColumns+" FROM followings WHERE target_type=? AND target_id=?",
		int(targetType), targetID)
}

// Delete removes an edge.
func (r *FollowingRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM followings WHERE id=?", id))
}

func (r *FollowingRepo) list(ctx context.Context, query string, args ...any) ([]model.Following, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Following
	for rows.Next() {
		var (
			f   model.Following
			typ int
		)
		if err := rows.Scan(&f.ID, &f.SourceUserID, &typ, &f.TargetID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.TargetType = model.FollowingType(typ)
		out = append(out, f)
	}
	return out, rows.Err()
}

// NewMySQLStores wires every MySQL repository around one pool.
func NewMySQLStores(db *sql.DB) Stores {
	return Stores{
		Clients:           NewClientRepo(db),
		Users:             NewUserRepo(db),
		Privates:          NewUserPrivateRepo(db),
		AccessTokens:      NewAccessTokenRepo(db),
		RefreshTokens:     NewRefreshTokenRepo(db),
		Targets:           NewNotificationTargetRepo(db),
		Notifications:     NewNotificationRepo(db),
		Moments:           NewMomentRepo(db),
		DeletedMoments:    NewDeletedMomentRepo(db),
		MomentReferences:  NewMomentReferenceRepo(db),
		Comments:          NewCommentRepo(db),
		CommentReferences: NewCommentReferenceRepo(db),
		Likes:             NewLikeRepo(db),
		Followings:        NewFollowingRepo(db),
	}
}
