package memory

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// ---------- Clients ----------

type clientStore struct{ s *Store }

func (c clientStore) Create(_ context.Context, cl *model.Client) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check("clients.Create"); err != nil {
		return err
	}
	if _, dup := c.s.clients.first(func(x model.Client) bool { return x.ClientID == cl.ClientID }); dup {
		return repository.ErrDuplicate
	}
	ensureID(&cl.ID)
	stamp(&cl.CreatedAt)
	c.s.clients.put(cl.ID, *cl)
	return nil
}

func (c clientStore) GetByClientID(_ context.Context, clientID string) (*model.Client, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if err := c.s.check("clients.GetByClientID"); err != nil {
		return nil, err
	}
	cl, ok := c.s.clients.first(func(x model.Client) bool { return x.ClientID == clientID })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cl, nil
}

func (c clientStore) UpdateSecret(_ context.Context, clientID, secretHash string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check("clients.UpdateSecret"); err != nil {
		return err
	}
	cl, ok := c.s.clients.first(func(x model.Client) bool { return x.ClientID == clientID })
	if !ok {
		return repository.ErrNotFound
	}
	cl.ClientSecret = secretHash
	c.s.clients.put(cl.ID, cl)
	return nil
}

// ---------- Users ----------

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.check("users.Create"); err != nil {
		return err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, dup := u.s.users.first(func(x model.User) bool {
		return x.Username == user.Username || x.Email == user.Email ||
			(user.FacebookID != "" && x.FacebookID == user.FacebookID) ||
			(user.TwitterID != "" && x.TwitterID == user.TwitterID)
	})
	if dup {
		return repository.ErrDuplicate
	}
	ensureID(&user.ID)
	stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	u.s.users.put(user.ID, *user)
	return nil
}

func (u userStore) getBy(op string, match func(model.User) bool) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	if err := u.s.check(op); err != nil {
		return nil, err
	}
	user, ok := u.s.users.first(match)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u userStore) GetByID(_ context.Context, id string) (*model.User, error) {
	return u.getBy("users.GetByID", func(x model.User) bool { return x.ID == id })
}

func (u userStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return u.getBy("users.GetByUsername", func(x model.User) bool { return x.Username == username })
}

func (u userStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return u.getBy("users.GetByEmail", func(x model.User) bool { return x.Email == email })
}

func (u userStore) GetByFacebookID(_ context.Context, facebookID string) (*model.User, error) {
	return u.getBy("users.GetByFacebookID", func(x model.User) bool {
		return facebookID != "" && x.FacebookID == facebookID
	})
}

func (u userStore) GetByTwitterID(_ context.Context, twitterID string) (*model.User, error) {
	return u.getBy("users.GetByTwitterID", func(x model.User) bool {
		return twitterID != "" && x.TwitterID == twitterID
	})
}

func (u userStore) UpdateFollowersCount(_ context.Context, id string, count int) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.check("users.UpdateFollowersCount"); err != nil {
		return err
	}
	user, ok := u.s.users.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	user.FollowersCount = count
	user.UpdatedAt = time.Now().UTC()
	u.s.users.put(id, user)
	return nil
}

func (u userStore) Update(_ context.Context, user *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.check("users.Update"); err != nil {
		return err
	}
	cur, ok := u.s.users.get(user.ID)
	if !ok {
		return repository.ErrNotFound
	}
	_, dup := u.s.users.first(func(x model.User) bool {
		return x.ID != user.ID &&
			((user.FacebookID != "" && x.FacebookID == user.FacebookID) ||
				(user.TwitterID != "" && x.TwitterID == user.TwitterID))
	})
	if dup {
		return repository.ErrDuplicate
	}
	cur.FirstName, cur.LastName = user.FirstName, user.LastName
	cur.FacebookID, cur.TwitterID = user.FacebookID, user.TwitterID
	cur.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = cur.UpdatedAt
	u.s.users.put(cur.ID, cur)
	return nil
}

func (u userStore) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.check("users.Delete"); err != nil {
		return err
	}
	if !u.s.users.del(id) {
		return repository.ErrNotFound
	}
	return nil
}

// ---------- Credentials ----------

type privateStore struct{ s *Store }

func (p privateStore) Create(_ context.Context, priv *model.UserPrivate) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.check("privates.Create"); err != nil {
		return err
	}
	if _, dup := p.s.privates.get(priv.UserID); dup {
		return repository.ErrDuplicate
	}
	p.s.privates.put(priv.UserID, copyPrivate(*priv))
	return nil
}

func (p privateStore) GetByUserID(_ context.Context, userID string) (*model.UserPrivate, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if err := p.s.check("privates.GetByUserID"); err != nil {
		return nil, err
	}
	priv, ok := p.s.privates.get(userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyPrivate(priv)
	return &cp, nil
}

func (p privateStore) Update(_ context.Context, priv *model.UserPrivate) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.check("privates.Update"); err != nil {
		return err
	}
	if _, ok := p.s.privates.get(priv.UserID); !ok {
		return nil
	}
	p.s.privates.put(priv.UserID, copyPrivate(*priv))
	return nil
}

func (p privateStore) Delete(_ context.Context, userID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.check("privates.Delete"); err != nil {
		return err
	}
	if !p.s.privates.del(userID) {
		return repository.ErrNotFound
	}
	return nil
}

func copyPrivate(p model.UserPrivate) model.UserPrivate {
	if p.ForgotPasswordTokenAt != nil {
		t := *p.ForgotPasswordTokenAt
		p.ForgotPasswordTokenAt = &t
	}
	return p
}
