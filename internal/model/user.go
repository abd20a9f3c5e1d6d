package model

import "time"

// User represents the public profile of an account as stored in the
// `users` table.  Credentials live in UserPrivate so that profile rows
// can be loaded and serialised without ever touching the password hash.
//
// Fields:
//  ID             – primary key identifier (uuid).
//  Username       – unique Phenom ID chosen by the user.
//  Email          – contact address; used to detect legacy accounts on
//                   Facebook login.
//  FirstName      – optional given name.
//  LastName       – optional family name.
//  Image          – storage key of the profile image (may be empty).
//  FacebookID     – linked Facebook profile id (empty when unlinked).
//  TwitterID      – linked Twitter profile id (empty when unlinked).
//  FollowersCount – materialised number of followers, never negative.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             string    `json:"id"`             // users.id
    Username       string    `json:"username"`       // users.username
    Email          string    `json:"email"`          // users.email
    FirstName      string    `json:"firstName"`      // users.first_name
    LastName       string    `json:"lastName"`       // users.last_name
    Image          string    `json:"image"`          // users.image
    FacebookID     string    `json:"-"`              // users.facebook_id
    TwitterID      string    `json:"-"`              // users.twitter_id
    FollowersCount int       `json:"followersCount"` // users.followers_count
    CreatedAt      time.Time `json:"createdAt"`      // users.created_at
    UpdatedAt      time.Time `json:"updatedAt"`      // users.updated_at
}

// UserPrivate holds the credentials of a user in the `user_privates`
// table.  It is one-to-one with User through UserID.  PasswordHash is
// always a bcrypt hash, never plaintext.
//
// Fields:
//  UserID                – owner of the record (primary key).
//  PasswordHash          – bcrypt hash of the password.
//  ForgotPasswordToken   – pending password reset token, empty when none.
//  ForgotPasswordTokenAt – when the reset token was issued (nullable).
type UserPrivate struct {
    UserID                string     // user_privates.user_id
    PasswordHash          string     // user_privates.password_hash
    ForgotPasswordToken   string     // user_privates.forgot_password_token
    ForgotPasswordTokenAt *time.Time // user_privates.forgot_password_token_at (nullable)
}

// Client identifies an API consumer such as the iOS application.  The
// secret is stored as a bcrypt hash.
type Client struct {
    ID           string    // clients.id
    Name         string    // clients.name
    ClientID     string    // clients.client_id
    ClientSecret string    // clients.client_secret (bcrypt hash)
    CreatedAt    time.Time // clients.created_at
}
