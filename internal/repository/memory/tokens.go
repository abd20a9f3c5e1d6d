package memory

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// ---------- Access tokens ----------

type accessTokenStore struct{ s *Store }

func (a accessTokenStore) Create(_ context.Context, t *model.AccessToken) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.check("accessTokens.Create"); err != nil {
		return err
	}
	if _, dup := a.s.accessTokens.first(func(x model.AccessToken) bool { return x.Token == t.Token }); dup {
		return repository.ErrDuplicate
	}
	ensureID(&t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	a.s.accessTokens.put(t.ID, *t)
	return nil
}

func (a accessTokenStore) FindOne(_ context.Context, q model.AccessTokenQuery) (*model.AccessToken, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if err := a.s.check("accessTokens.FindOne"); err != nil {
		return nil, err
	}
	if q == (model.AccessTokenQuery{}) {
		return nil, errors.New("access token query has no criteria")
	}
	matches := a.s.accessTokens.filter(func(x model.AccessToken) bool {
		return (q.ID == "" || x.ID == q.ID) &&
			(q.UserID == "" || x.UserID == q.UserID) &&
			(q.ClientID == "" || x.ClientID == q.ClientID) &&
			(q.Token == "" || x.Token == q.Token) &&
			(q.Type == nil || x.Type == *q.Type)
	})
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	// Most recent wins, like ORDER BY created_at DESC.
	best := matches[0]
	for _, m := range matches[1:] {
		if !m.CreatedAt.Before(best.CreatedAt) {
			best = m
		}
	}
	return &best, nil
}

func (a accessTokenStore) ListByUser(_ context.Context, userID string) ([]model.AccessToken, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if err := a.s.check("accessTokens.ListByUser"); err != nil {
		return nil, err
	}
	return a.s.accessTokens.filter(func(x model.AccessToken) bool { return x.UserID == userID }), nil
}

func (a accessTokenStore) Update(_ context.Context, t *model.AccessToken) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.check("accessTokens.Update"); err != nil {
		return err
	}
	cur, ok := a.s.accessTokens.get(t.ID)
	if !ok {
		return nil
	}
	if _, dup := a.s.accessTokens.first(func(x model.AccessToken) bool {
		return x.ID != t.ID && x.Token == t.Token
	}); dup {
		return repository.ErrDuplicate
	}
	cur.Token = t.Token
	cur.Type = t.Type
	cur.TwitterAccessToken = t.TwitterAccessToken
	cur.TwitterTokenSecret = t.TwitterTokenSecret
	cur.FacebookAccessToken = t.FacebookAccessToken
	cur.CreatedAt = t.CreatedAt
	a.s.accessTokens.put(cur.ID, cur)
	return nil
}

func (a accessTokenStore) Delete(_ context.Context, id string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.check("accessTokens.Delete"); err != nil {
		return err
	}
	if !a.s.accessTokens.del(id) {
		return repository.ErrNotFound
	}
	return nil
}

// ---------- Refresh tokens ----------

type refreshTokenStore struct{ s *Store }

func (r refreshTokenStore) Create(_ context.Context, t *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("refreshTokens.Create"); err != nil {
		return err
	}
	if _, dup := r.s.refreshTokens.first(func(x model.RefreshToken) bool { return x.Token == t.Token }); dup {
		return repository.ErrDuplicate
	}
	ensureID(&t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.s.refreshTokens.put(t.ID, *t)
	return nil
}

func (r refreshTokenStore) GetByToken(_ context.Context, token string) (*model.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("refreshTokens.GetByToken"); err != nil {
		return nil, err
	}
	t, ok := r.s.refreshTokens.first(func(x model.RefreshToken) bool { return x.Token == token })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r refreshTokenStore) ListByAccessToken(_ context.Context, accessTokenID string) ([]model.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("refreshTokens.ListByAccessToken"); err != nil {
		return nil, err
	}
	return r.s.refreshTokens.filter(func(x model.RefreshToken) bool { return x.AccessTokenID == accessTokenID }), nil
}

func (r refreshTokenStore) Update(_ context.Context, t *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("refreshTokens.Update"); err != nil {
		return err
	}
	cur, ok := r.s.refreshTokens.get(t.ID)
	if !ok {
		return nil
	}
	cur.Token = t.Token
	cur.CreatedAt = t.CreatedAt
	r.s.refreshTokens.put(cur.ID, cur)
	return nil
}

func (r refreshTokenStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("refreshTokens.Delete"); err != nil {
		return err
	}
	if !r.s.refreshTokens.del(id) {
		return repository.ErrNotFound
	}
	return nil
}
