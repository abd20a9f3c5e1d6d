package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/phenom-api/internal/model"
)

const userColumns = "id, username, email, first_name, last_name, image, facebook_id, twitter_id, followers_count, created_at, updated_at"

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user.  Emails are normalised to lower case.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	ensureID(&u.ID)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	stamp(&u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Image,
		nullable(u.FacebookID), nullable(u.TwitterID), u.FollowersCount, u.CreatedAt, u.UpdatedAt)
	return insertErr(err)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*model.User, error) {
	var (
		u      model.User
		fb, tw sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+"=? LIMIT 1", value).
		Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Image,
			&fb, &tw, &u.FollowersCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	u.FacebookID, u.TwitterID = fb.String, tw.String
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername fetches a user by Phenom ID.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByEmail fetches a user by normalised email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetByFacebookID fetches the user linked to a Facebook profile.
func (r *UserRepo) GetByFacebookID(ctx context.Context, facebookID string) (*model.User, error) {
	if facebookID == "" {
		return nil, ErrNotFound
	}
	return r.getBy(ctx, "facebook_id", facebookID)
}

// GetByTwitterID fetches the user linked to a Twitter profile.
func (r *UserRepo) GetByTwitterID(ctx context.Context, twitterID string) (*model.User, error) {
	if twitterID == "" {
		return nil, ErrNotFound
	}
	return r.getBy(ctx, "twitter_id", twitterID)
}

// UpdateFollowersCount stores the materialised follower count.
func (r *UserRepo) UpdateFollowersCount(ctx context.Context, id string, count int) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET followers_count=?, updated_at=? WHERE id=?", count, now(), id))
}

// Update writes the profile names and linked provider ids.  Clearing a
// provider id stores NULL.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = now()
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, facebook_id=?, twitter_id=?, updated_at=? WHERE id=?",
		u.FirstName, u.LastName, nullable(u.FacebookID), nullable(u.TwitterID), u.UpdatedAt, u.ID)
	return insertErr(err)
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}

// UserPrivateRepo provides access to the 'user_privates' table.
type UserPrivateRepo struct{ DB *sql.DB }

func NewUserPrivateRepo(db *sql.DB) *UserPrivateRepo { return &UserPrivateRepo{DB: db} }

// Create inserts the credential row for a user.
func (r *UserPrivateRepo) Create(ctx context.Context, p *model.UserPrivate) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_privates (user_id, password_hash, forgot_password_token, forgot_password_token_at) VALUES (?,?,?,?)",
		p.UserID, p.PasswordHash, p.ForgotPasswordToken, p.ForgotPasswordTokenAt)
	return insertErr(err)
}

// GetByUserID fetches the credential row of a user.
func (r *UserPrivateRepo) GetByUserID(ctx context.Context, userID string) (*model.UserPrivate, error) {
	var (
		p  model.UserPrivate
		at sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, password_hash, forgot_password_token, forgot_password_token_at FROM user_privates WHERE user_id=? LIMIT 1",
		userID).Scan(&p.UserID, &p.PasswordHash, &p.ForgotPasswordToken, &at)
	if err != nil {
		return nil, rowErr(err)
	}
	if at.Valid {
		t := at.Time
		p.ForgotPasswordTokenAt = &t
	}
	return &p, nil
}

// Update overwrites the password hash and reset token fields.
func (r *UserPrivateRepo) Update(ctx context.Context, p *model.UserPrivate) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_privates SET password_hash=?, forgot_password_token=?, forgot_password_token_at=? WHERE user_id=?",
		p.PasswordHash, p.ForgotPasswordToken, p.ForgotPasswordTokenAt, p.UserID)
	return err
}

// Delete removes the credential row.
func (r *UserPrivateRepo) Delete(ctx context.Context, userID string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM user_privates WHERE user_id=?", userID))
}
