package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/phenom-api/internal/model"
)

const momentColumns = `id, user_id, headline, image, song, product_ids, referenced_user_ids,
	comment_count, like_count, flagged_as_inappropriate, flagged_as_inappropriate_by, created_at`

// MomentRepo provides access to the 'moments' table.
type MomentRepo struct{ DB *sql.DB }

func NewMomentRepo(db *sql.DB) *MomentRepo { return &MomentRepo{DB: db} }

// Create inserts a moment.  String lists are stored as JSON arrays.
func (r *MomentRepo) Create(ctx context.Context, m *model.Moment) error {
	ensureID(&m.ID)
	stamp(&m.CreatedAt)
	products, err := jsonList(m.ProductIDs)
	if err != nil {
		return err
	}
	refs, err := jsonList(m.ReferencedUserIDs)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO moments ("+momentColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		m.ID, m.UserID, m.Headline, m.Image, rawJSON(m.Song), products, refs,
		m.CommentCount, m.LikeCount, m.FlaggedAsInappropriate, m.FlaggedAsInappropriateBy, m.CreatedAt)
	return insertErr(err)
}

// GetByID fetches a moment by id.
func (r *MomentRepo) GetByID(ctx context.Context, id string) (*model.Moment, error) {
	m, err := scanMoment(r.DB.QueryRowContext(ctx,
		"SELECT "+momentColumns+" FROM moments WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, rowErr(err)
	}
	return m, nil
}

// ListByUser returns a user's moments, newest first.
func (r *MomentRepo) ListByUser(ctx context.Context, userID string) ([]model.Moment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+momentColumns+" FROM moments WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Moment
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateCounters stores the materialised comment and like counts.
func (r *MomentRepo) UpdateCounters(ctx context.Context, id string, commentCount, likeCount int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE moments SET comment_count=?, like_count=? WHERE id=?", commentCount, likeCount, id)
	return err
}

// Delete removes a moment row.
func (r *MomentRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM moments WHERE id=?", id))
}

func scanMoment(s rowScanner) (*model.Moment, error) {
	var (
		m                    model.Moment
		song, products, refs []byte
	)
	if err := s.Scan(&m.ID, &m.UserID, &m.Headline, &m.Image, &song, &products, &refs,
		&m.CommentCount, &m.LikeCount, &m.FlaggedAsInappropriate, &m.FlaggedAsInappropriateBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.ProductIDs, err = scanList(products); err != nil {
		return nil, err
	}
	if m.ReferencedUserIDs, err = scanList(refs); err != nil {
		return nil, err
	}
	if len(song) > 0 {
		m.Song = song
	}
	return &m, nil
}

// DeletedMomentRepo provides access to the 'deleted_moments' archive.
type DeletedMomentRepo struct{ DB *sql.DB }

func NewDeletedMomentRepo(db *sql.DB) *DeletedMomentRepo { return &DeletedMomentRepo{DB: db} }

// Create writes an archive row.
func (r *DeletedMomentRepo) Create(ctx context.Context, d *model.DeletedMoment) error {
	ensureID(&d.ID)
	products, err := jsonList(d.ProductIDs)
	if err != nil {
		return err
	}
	refs, err := jsonList(d.ReferencedUserIDs)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO deleted_moments (id, moment_id, user_id, headline, image, song, product_ids,
		 referenced_user_ids, flagged_as_inappropriate, flagged_as_inappropriate_by, created_at, deleted_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.MomentID, d.UserID, d.Headline, d.Image, rawJSON(d.Song), products, refs,
		d.FlaggedAsInappropriate, d.FlaggedAsInappropriateBy, d.CreatedAt, d.DeletedAt)
	return insertErr(err)
}

// MomentReferenceRepo provides access to the 'moment_references' table.
type MomentReferenceRepo struct{ DB *sql.DB }

func NewMomentReferenceRepo(db *sql.DB) *MomentReferenceRepo { return &MomentReferenceRepo{DB: db} }

// Create inserts a headline mention.
func (r *MomentReferenceRepo) Create(ctx context.Context, ref *model.MomentReference) error {
	ensureID(&ref.ID)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO moment_references (id, moment_id, target_user_id) VALUES (?,?,?)",
		ref.ID, ref.MomentID, ref.TargetUserID)
	return insertErr(err)
}

// ListByMoment returns the mentions of a moment.
func (r *MomentReferenceRepo) ListByMoment(ctx context.Context, momentID string) ([]model.MomentReference, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, moment_id, target_user_id FROM moment_references WHERE moment_id=?", momentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MomentReference
	for rows.Next() {
		var ref model.MomentReference
		if err := rows.Scan(&ref.ID, &ref.MomentID, &ref.TargetUserID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Delete removes a mention.
func (r *MomentReferenceRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM moment_references WHERE id=?", id))
}
