package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/phenom-api/internal/model"
)

const accessTokenColumns = "id, user_id, client_id, token, type, twitter_access_token, twitter_token_secret, facebook_access_token, created_at"

// AccessTokenRepo provides access to the 'access_tokens' table.
type AccessTokenRepo struct{ DB *sql.DB }

func NewAccessTokenRepo(db *sql.DB) *AccessTokenRepo { return &AccessTokenRepo{DB: db} }

// Create inserts an access token row.
func (r *AccessTokenRepo) Create(ctx context.Context, t *model.AccessToken) error {
	ensureID(&t.ID)
	stamp(&t.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO access_tokens ("+accessTokenColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		t.ID, t.UserID, t.ClientID, t.Token, int(t.Type),
		t.TwitterAccessToken, t.TwitterTokenSecret, t.FacebookAccessToken, t.CreatedAt)
	return insertErr(err)
}

// FindOne returns the most recent token matching every non-empty field of q.
func (r *AccessTokenRepo) FindOne(ctx context.Context, q model.AccessTokenQuery) (*model.AccessToken, error) {
	var (
		where []string
		args  []any
	)
	add := func(col string, v any) {
		where = append(where, col+"=?")
		args = append(args, v)
	}
	if q.ID != "" {
		add("id", q.ID)
	}
	if q.UserID != "" {
		add("user_id", q.UserID)
	}
	if q.ClientID != "" {
		add("client_id", q.ClientID)
	}
	if q.Token != "" {
		add("token", q.Token)
	}
	if q.Type != nil {
		add("type", int(*q.Type))
	}
	if len(where) == 0 {
		return nil, errors.New("access token query has no criteria")
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accessTokenColumns+" FROM access_tokens WHERE "+strings.Join(where, " AND ")+
			" ORDER BY created_at DESC LIMIT 1", args...)
	t, err := scanAccessToken(row)
	if err != nil {
		return nil, rowErr(err)
	}
	return t, nil
}

// ListByUser returns every token held by a user across clients.
func (r *AccessTokenRepo) ListByUser(ctx context.Context, userID string) ([]model.AccessToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+accessTokenColumns+" FROM access_tokens WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AccessToken
	for rows.Next() {
		t, err := scanAccessToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a token; the id never changes.
func (r *AccessTokenRepo) Update(ctx context.Context, t *model.AccessToken) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE access_tokens SET token=?, type=?, twitter_access_token=?, twitter_token_secret=?,
		 facebook_access_token=?, created_at=? WHERE id=?`,
		t.Token, int(t.Type), t.TwitterAccessToken, t.TwitterTokenSecret, t.FacebookAccessToken, t.CreatedAt, t.ID)
	return insertErr(err)
}

// Delete removes an access token row.
func (r *AccessTokenRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM access_tokens WHERE id=?", id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccessToken(s rowScanner) (*model.AccessToken, error) {
	var (
		t   model.AccessToken
		typ int
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.ClientID, &t.Token, &typ,
		&t.TwitterAccessToken, &t.TwitterTokenSecret, &t.FacebookAccessToken, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = model.TokenType(typ)
	return &t, nil
}

const refreshTokenColumns = "id, user_id, client_id, token, access_token_id, created_at"

// RefreshTokenRepo provides access to the 'refresh_tokens' table.
type RefreshTokenRepo struct{ DB *sql.DB }

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo { return &RefreshTokenRepo{DB: db} }

// Create inserts a refresh token row.
func (r *RefreshTokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	ensureID(&t.ID)
	stamp(&t.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens ("+refreshTokenColumns+") VALUES (?,?,?,?,?,?)",
		t.ID, t.UserID, t.ClientID, t.Token, t.AccessTokenID, t.CreatedAt)
	return insertErr(err)
}

// GetByToken fetches a refresh token by value.
func (r *RefreshTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+refreshTokenColumns+" FROM refresh_tokens WHERE token=? LIMIT 1", token).
		Scan(&t.ID, &t.UserID, &t.ClientID, &t.Token, &t.AccessTokenID, &t.CreatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	return &t, nil
}

// ListByAccessToken returns the refresh tokens bound to an access token.
func (r *RefreshTokenRepo) ListByAccessToken(ctx context.Context, accessTokenID string) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+refreshTokenColumns+" FROM refresh_tokens WHERE access_token_id=?", accessTokenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.ClientID, &t.Token, &t.AccessTokenID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update rotates the value of a refresh token in place.
func (r *RefreshTokenRepo) Update(ctx context.Context, t *model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET token=?, created_at=? WHERE id=?", t.Token, t.CreatedAt, t.ID)
	return insertErr(err)
}

// Delete removes a refresh token row.
func (r *RefreshTokenRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", id))
}
