// Package memory is a thread-safe in-memory implementation of the
// repository contracts, used by tests and local development.  Rows are
// stored by value, so callers never share state with the store.
package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// table keeps rows by id in insertion order.
type table[T any] struct {
	rows map[string]T
	keys []string
}

func newTable[T any]() *table[T] { return &table[T]{rows: make(map[string]T)} }

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.keys = append(t.keys, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == id })
	return true
}

func (t *table[T]) filter(match func(T) bool) []T {
	var out []T
	for _, k := range t.keys {
		if v := t.rows[k]; match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) first(match func(T) bool) (T, bool) {
	for _, k := range t.keys {
		if v := t.rows[k]; match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Store holds every table behind one lock.
type Store struct {
	mu   sync.RWMutex
	fail map[string]error

	clients        *table[model.Client]
	users          *table[model.User]
	privates       *table[model.UserPrivate]
	accessTokens   *table[model.AccessToken]
	refreshTokens  *table[model.RefreshToken]
	targets        *table[model.NotificationTarget]
	notifications  *table[model.Notification]
	moments        *table[model.Moment]
	deletedMoments *table[model.DeletedMoment]
	momentRefs     *table[model.MomentReference]
	comments       *table[model.Comment]
	commentRefs    *table[model.CommentReference]
	likes          *table[model.Like]
	followings     *table[model.Following]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		fail:           make(map[string]error),
		clients:        newTable[model.Client](),
		users:          newTable[model.User](),
		privates:       newTable[model.UserPrivate](),
		accessTokens:   newTable[model.AccessToken](),
		refreshTokens:  newTable[model.RefreshToken](),
		targets:        newTable[model.NotificationTarget](),
		notifications:  newTable[model.Notification](),
		moments:        newTable[model.Moment](),
		deletedMoments: newTable[model.DeletedMoment](),
		momentRefs:     newTable[model.MomentReference](),
		comments:       newTable[model.Comment](),
		commentRefs:    newTable[model.CommentReference](),
		likes:          newTable[model.Like](),
		followings:     newTable[model.Following](),
	}
}

// FailOn makes every later call of op return err.  Ops are named
// "<table>.<method>", e.g. "likes.Delete".  A nil err clears the fault.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// check must be called with s.mu held.
func (s *Store) check(op string) error { return s.fail[op] }

// Archived returns the moment archive rows.
func (s *Store) Archived() []model.DeletedMoment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deletedMoments.filter(func(model.DeletedMoment) bool { return true })
}

// Stores exposes the store through the repository contracts.
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Clients:           clientStore{s},
		Users:             userStore{s},
		Privates:          privateStore{s},
		AccessTokens:      accessTokenStore{s},
		RefreshTokens:     refreshTokenStore{s},
		Targets:           targetStore{s},
		Notifications:     notificationStore{s},
		Moments:           momentStore{s},
		DeletedMoments:    deletedMomentStore{s},
		MomentReferences:  momentRefStore{s},
		Comments:          commentStore{s},
		CommentReferences: commentRefStore{s},
		Likes:             likeStore{s},
		Followings:        followingStore{s},
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// stamp sets a creation time unless the caller supplied one.
func stamp(at *time.Time) {
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}
