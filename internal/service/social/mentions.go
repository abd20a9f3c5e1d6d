package social

import (
	"context"
	"errors"
	"regexp"
	"slices"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// mentionPattern matches "@{userId}" and "@username".
var mentionPattern = regexp.MustCompile(`@\{([^{}\s]+)\}|@([A-Za-z0-9_.]+)`)

// resolveMentions rewrites "@username" mentions of existing users to the
// canonical "@{userId}" form and returns the distinct ids of every user
// mentioned.  Mentions of unknown users are left untouched.
func (s *Service) resolveMentions(ctx context.Context, text string) (string, []string, error) {
	var (
		ids     []string
		lookErr error
	)
	out := mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		if lookErr != nil {
			return m
		}
		u, err := s.mentioned(ctx, mentionPattern.FindStringSubmatch(m))
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return m
		case err != nil:
			lookErr = err
			return m
		}
		if !slices.Contains(ids, u.ID) {
			ids = append(ids, u.ID)
		}
		return "@{" + u.ID + "}"
	})
	if lookErr != nil {
		return "", nil, lookErr
	}
	return out, ids, nil
}

func (s *Service) mentioned(ctx context.Context, sub []string) (*model.User, error) {
	if sub[1] != "" {
		return s.stores.Users.GetByID(ctx, sub[1])
	}
	return s.stores.Users.GetByUsername(ctx, sub[2])
}
