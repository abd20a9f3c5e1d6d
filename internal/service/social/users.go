package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/utils"
)

// Registration is the input of Register.  Password is base64 encoded.
// FacebookID and TwitterID link the account to a provider profile up front.
type Registration struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	FacebookID string
	TwitterID  string
}

// Register creates a user and its credentials.
func (s *Service) Register(ctx context.Context, in Registration) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.InvalidParams
	}
	password, err := utils.DecodeCredential(in.Password)
	if err != nil || password == "" {
		return nil, apperror.InvalidParams
	}
	if len(password) > utils.MaxPasswordBytes {
		return nil, apperror.InvalidParams.With("params", []string{"password"})
	}
	in.FacebookID, in.TwitterID = strings.TrimSpace(in.FacebookID), strings.TrimSpace(in.TwitterID)

	if _, err := s.stores.Users.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperror.DuplicateUsername
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}
	if _, err := s.stores.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.DuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}
	if err := s.providerIDsFree(ctx, "", in.FacebookID, in.TwitterID); err != nil {
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}
	now := s.now()
	u := &model.User{
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		FacebookID: in.FacebookID,
		TwitterID:  in.TwitterID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.stores.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with another registration
			return nil, apperror.DuplicateUsername
		}
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}
	if err := s.stores.Privates.Create(ctx, &model.UserPrivate{UserID: u.ID, PasswordHash: hash}); err != nil {
		if delErr := s.stores.Users.Delete(ctx, u.ID); delErr != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, delErr)
		}
		return nil, s.fail("register", apperror.FailedToCreate, err)
	}
	return u, nil
}

// User returns a profile.
func (s *Service) User(ctx context.Context, id string) (*model.User, error) {
	u, err := s.stores.Users.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get user", apperror.FailedToFind, err)
	}
	return u, nil
}

// ProfileUpdate lists the fields UpdateProfile changes.  A nil field is
// left alone; an empty provider id unlinks the provider.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	FacebookID *string
	TwitterID  *string
}

// UpdateProfile edits the caller's names and links or unlinks Facebook and
// Twitter.  A provider profile can belong to one user only.
func (s *Service) UpdateProfile(ctx context.Context, user *model.User, in ProfileUpdate) (*model.User, error) {
	u, err := s.stores.Users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, s.fail("update user", apperror.FailedToUpdate, err)
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	fb, tw := "", ""
	if in.FacebookID != nil && strings.TrimSpace(*in.FacebookID) != u.FacebookID {
		u.FacebookID = strings.TrimSpace(*in.FacebookID)
		fb = u.FacebookID
	}
	if in.TwitterID != nil && strings.TrimSpace(*in.TwitterID) != u.TwitterID {
		u.TwitterID = strings.TrimSpace(*in.TwitterID)
		tw = u.TwitterID
	}
	if err := s.providerIDsFree(ctx, u.ID, fb, tw); err != nil {
		return nil, s.fail("update user", apperror.FailedToUpdate, err)
	}

	if err := s.stores.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// linked elsewhere between the check and the write
			if fb == "" {
				return nil, apperror.DuplicateTwitterAccount
			}
			return nil, apperror.DuplicateFacebookAccount
		}
		return nil, s.fail("update user", apperror.FailedToUpdate, err)
	}
	return u, nil
}

// providerIDsFree fails with the matching duplicate error when a non-empty
// provider id belongs to a user other than self.
func (s *Service) providerIDsFree(ctx context.Context, self, facebookID, twitterID string) error {
	if facebookID != "" {
		other, err := s.stores.Users.GetByFacebookID(ctx, facebookID)
		switch {
		case err == nil && other.ID != self:
			return apperror.DuplicateFacebookAccount
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}
	if twitterID != "" {
		other, err := s.stores.Users.GetByTwitterID(ctx, twitterID)
		switch {
		case err == nil && other.ID != self:
			return apperror.DuplicateTwitterAccount
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}
	return nil
}

// DeleteUser removes the caller's account and everything hanging off it.
func (s *Service) DeleteUser(ctx context.Context, user *model.User) error {
	if err := s.cascade.Delete(ctx, cascade.User, user.ID); err != nil {
		return s.fail("delete user", apperror.FailedToDelete, err)
	}
	return nil
}

// Follow adds a following edge from user to targetID.  Following twice
// is a no-op.
func (s *Service) Follow(ctx context.Context, user *model.User, targetID string) error {
	if targetID == "" || targetID == user.ID {
		return apperror.InvalidParams
	}
	target, err := s.stores.Users.GetByID(ctx, targetID)
	if err != nil {
		return s.fail("follow", apperror.FailedToFollowUser, err)
	}
	_, err = s.stores.Followings.Get(ctx, user.ID, model.FollowingTypeUser, targetID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return s.fail("follow", apperror.FailedToFollowUser, err)
	}

	edge := &model.Following{
		SourceUserID: user.ID,
		TargetType:   model.FollowingTypeUser,
		TargetID:     targetID,
		CreatedAt:    s.now(),
	}
	if err := s.stores.Followings.Create(ctx, edge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return s.fail("follow", apperror.FailedToFollowUser, err)
	}
	s.notify(ctx, model.Notification{
		UserID:       targetID,
		SourceUserID: user.ID,
		Type:         model.NotificationUserFollowing,
		Message:      user.Username + " started following you",
	})
	if err := s.stores.Users.UpdateFollowersCount(ctx, targetID, target.FollowersCount+1); err != nil {
		return s.fail("follow", apperror.FailedToFollowUser, err)
	}
	return nil
}

// Unfollow removes the following edge from user to targetID.
func (s *Service) Unfollow(ctx context.Context, user *model.User, targetID string) error {
	if targetID == "" || targetID == user.ID {
		return apperror.InvalidParams
	}
	edge, err := s.stores.Followings.Get(ctx, user.ID, model.FollowingTypeUser, targetID)
	if err != nil {
		return s.fail("unfollow", apperror.FailedToUnfollow, err)
	}
	if err := s.stores.Followings.Delete(ctx, edge.ID); err != nil {
		return s.fail("unfollow", apperror.FailedToUnfollow, err)
	}
	target, err := s.stores.Users.GetByID(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return s.fail("unfollow", apperror.FailedToUnfollow, err)
	}
	if err := s.stores.Users.UpdateFollowersCount(ctx, targetID, max(0, target.FollowersCount-1)); err != nil {
		return s.fail("unfollow", apperror.FailedToUnfollow, err)
	}
	return nil
}
