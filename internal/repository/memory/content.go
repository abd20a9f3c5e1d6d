package memory

import (
	"context"
	"slices"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// remove deletes id from t under the write lock.
func remove[T any](s *Store, t *table[T], op, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(op); err != nil {
		return err
	}
	if !t.del(id) {
		return repository.ErrNotFound
	}
	return nil
}

// list filters t under the read lock.
func list[T any](s *Store, t *table[T], op string, match func(T) bool) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(op); err != nil {
		return nil, err
	}
	return t.filter(match), nil
}

// lookup fetches id from t under the read lock.
func lookup[T any](s *Store, t *table[T], op, id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(op); err != nil {
		return nil, err
	}
	v, ok := t.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

// insert stores v under the write lock unless dup reports a conflict.
func insert[T any](s *Store, t *table[T], op, id string, v T, dup func(T) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(op); err != nil {
		return err
	}
	if dup != nil {
		if _, exists := t.first(dup); exists {
			return repository.ErrDuplicate
		}
	}
	t.put(id, v)
	return nil
}

func newestFirst[T any](in []T) []T {
	slices.Reverse(in)
	return in
}

// ---------- Notification targets ----------

type targetStore struct{ s *Store }

func (t targetStore) Create(_ context.Context, nt *model.NotificationTarget) error {
	ensureID(&nt.ID)
	stamp(&nt.CreatedAt)
	return insert(t.s, t.s.targets, "targets.Create", nt.ID, *nt, nil)
}

func (t targetStore) GetByID(_ context.Context, id string) (*model.NotificationTarget, error) {
	return lookup(t.s, t.s.targets, "targets.GetByID", id)
}

func (t targetStore) ListByAccessToken(_ context.Context, accessTokenID string) ([]model.NotificationTarget, error) {
	return list(t.s, t.s.targets, "targets.ListByAccessToken", func(x model.NotificationTarget) bool {
		return x.AccessTokenID == accessTokenID
	})
}

func (t targetStore) ListByDeviceOrAccessToken(_ context.Context, deviceID, accessTokenID string) ([]model.NotificationTarget, error) {
	return list(t.s, t.s.targets, "targets.ListByDeviceOrAccessToken", func(x model.NotificationTarget) bool {
		return x.DeviceID == deviceID || x.AccessTokenID == accessTokenID
	})
}

func (t targetStore) Delete(_ context.Context, id string) error {
	return remove(t.s, t.s.targets, "targets.Delete", id)
}

// ---------- Notifications ----------

type notificationStore struct{ s *Store }

func (n notificationStore) Create(_ context.Context, note *model.Notification) error {
	ensureID(&note.ID)
	stamp(&note.CreatedAt)
	return insert(n.s, n.s.notifications, "notifications.Create", note.ID, *note, nil)
}

func (n notificationStore) ListByUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	out, err := list(n.s, n.s.notifications, "notifications.ListByUser", func(x model.Notification) bool {
		return x.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	out = newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n notificationStore) ListByMoment(_ context.Context, momentID string) ([]model.Notification, error) {
	return list(n.s, n.s.notifications, "notifications.ListByMoment", func(x model.Notification) bool {
		return momentID != "" && x.MomentID == momentID
	})
}

func (n notificationStore) ListByComment(_ context.Context, commentID string) ([]model.Notification, error) {
	return list(n.s, n.s.notifications, "notifications.ListByComment", func(x model.Notification) bool {
		return commentID != "" && x.CommentID == commentID
	})
}

func (n notificationStore) AcknowledgeAll(_ context.Context, userID string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if err := n.s.check("notifications.AcknowledgeAll"); err != nil {
		return err
	}
	for _, note := range n.s.notifications.filter(func(x model.Notification) bool { return x.UserID == userID }) {
		note.Acknowledged = true
		n.s.notifications.put(note.ID, note)
	}
	return nil
}

func (n notificationStore) Delete(_ context.Context, id string) error {
	return remove(n.s, n.s.notifications, "notifications.Delete", id)
}

// ---------- Moments ----------

type momentStore struct{ s *Store }

func copyMoment(m model.Moment) model.Moment {
	m.ProductIDs = slices.Clone(m.ProductIDs)
	m.ReferencedUserIDs = slices.Clone(m.ReferencedUserIDs)
	m.Song = slices.Clone(m.Song)
	return m
}

func (m momentStore) Create(_ context.Context, mo *model.Moment) error {
	ensureID(&mo.ID)
	stamp(&mo.CreatedAt)
	return insert(m.s, m.s.moments, "moments.Create", mo.ID, copyMoment(*mo), nil)
}

func (m momentStore) GetByID(_ context.Context, id string) (*model.Moment, error) {
	mo, err := lookup(m.s, m.s.moments, "moments.GetByID", id)
	if err != nil {
		return nil, err
	}
	cp := copyMoment(*mo)
	return &cp, nil
}

func (m momentStore) ListByUser(_ context.Context, userID string) ([]model.Moment, error) {
	out, err := list(m.s, m.s.moments, "moments.ListByUser", func(x model.Moment) bool { return x.UserID == userID })
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = copyMoment(out[i])
	}
	return newestFirst(out), nil
}

func (m momentStore) UpdateCounters(_ context.Context, id string, commentCount, likeCount int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("moments.UpdateCounters"); err != nil {
		return err
	}
	mo, ok := m.s.moments.get(id)
	if !ok {
		return nil
	}
	mo.CommentCount, mo.LikeCount = commentCount, likeCount
	m.s.moments.put(id, mo)
	return nil
}

func (m momentStore) Delete(_ context.Context, id string) error {
	return remove(m.s, m.s.moments, "moments.Delete", id)
}

type deletedMomentStore struct{ s *Store }

func (d deletedMomentStore) Create(_ context.Context, dm *model.DeletedMoment) error {
	ensureID(&dm.ID)
	return insert(d.s, d.s.deletedMoments, "deletedMoments.Create", dm.ID, *dm, func(x model.DeletedMoment) bool {
		return x.MomentID == dm.MomentID
	})
}

type momentRefStore struct{ s *Store }

func (r momentRefStore) Create(_ context.Context, ref *model.MomentReference) error {
	ensureID(&ref.ID)
	return insert(r.s, r.s.momentRefs, "momentReferences.Create", ref.ID, *ref, nil)
}

func (r momentRefStore) ListByMoment(_ context.Context, momentID string) ([]model.MomentReference, error) {
	return list(r.s, r.s.momentRefs, "momentReferences.ListByMoment", func(x model.MomentReference) bool {
		return x.MomentID == momentID
	})
}

func (r momentRefStore) Delete(_ context.Context, id string) error {
	return remove(r.s, r.s.momentRefs, "momentReferences.Delete", id)
}

// ---------- Comments ----------

type commentStore struct{ s *Store }

func (c commentStore) Create(_ context.Context, cm *model.Comment) error {
	ensureID(&cm.ID)
	stamp(&cm.CreatedAt)
	return insert(c.s, c.s.comments, "comments.Create", cm.ID, *cm, nil)
}

func (c commentStore) GetByID(_ context.Context, id string) (*model.Comment, error) {
	return lookup(c.s, c.s.comments, "comments.GetByID", id)
}

func (c commentStore) ListByMoment(_ context.Context, momentID string) ([]model.Comment, error) {
	return list(c.s, c.s.comments, "comments.ListByMoment", func(x model.Comment) bool {
		return x.TargetMomentID == momentID
	})
}

func (c commentStore) Delete(_ context.Context, id string) error {
	return remove(c.s, c.s.comments, "comments.Delete", id)
}

type commentRefStore struct{ s *Store }

func (r commentRefStore) Create(_ context.Context, ref *model.CommentReference) error {
	ensureID(&ref.ID)
	return insert(r.s, r.s.commentRefs, "commentReferences.Create", ref.ID, *ref, nil)
}

func (r commentRefStore) ListByComment(_ context.Context, commentID string) ([]model.CommentReference, error) {
	return list(r.s, r.s.commentRefs, "commentReferences.ListByComment", func(x model.CommentReference) bool {
		return x.CommentID == commentID
	})
}

func (r commentRefStore) Delete(_ context.Context, id string) error {
	return remove(r.s, r.s.commentRefs, "commentReferences.Delete", id)
}

// ---------- Likes ----------

type likeStore struct{ s *Store }

func (l likeStore) Create(_ context.Context, like *model.Like) error {
	ensureID(&like.ID)
	stamp(&like.CreatedAt)
	return insert(l.s, l.s.likes, "likes.Create", like.ID, *like, func(x model.Like) bool {
		return x.UserID == like.UserID && x.MomentID == like.MomentID
	})
}

func (l likeStore) Get(_ context.Context, userID, momentID string) (*model.Like, error) {
	out, err := list(l.s, l.s.likes, "likes.Get", func(x model.Like) bool {
		return x.UserID == userID && x.MomentID == momentID
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return &out[0], nil
}

func (l likeStore) ListByMoment(_ context.Context, momentID string) ([]model.Like, error) {
	return list(l.s, l.s.likes, "likes.ListByMoment", func(x model.Like) bool { return x.MomentID == momentID })
}

func (l likeStore) Delete(_ context.Context, id string) error {
	return remove(l.s, l.s.likes, "likes.Delete", id)
}

// ---------- Followings ----------

type followingStore struct{ s *Store }

func (f followingStore) Create(_ context.Context, edge *model.Following) error {
	ensureID(&edge.ID)
	stamp(&edge.CreatedAt)
	return insert(f.s, f.s.followings, "followings.Create", edge.ID, *edge, func(x model.Following) bool {
		return x.SourceUserID == edge.SourceUserID && x.TargetType == edge.TargetType && x.TargetID == edge.TargetID
	})
}

func (f followingStore) Get(_ context.Context, sourceUserID string, targetType model.FollowingType, targetID string) (*model.Following, error) {
	out, err := list(f.s, f.s.followings, "followings.Get", func(x model.Following) bool {
		return x.SourceUserID == sourceUserID && x.TargetType == targetType && x.TargetID == targetID
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return &out[0], nil
}

func (f followingStore) ListBySource(_ context.Context, sourceUserID string, targetType model.FollowingType) ([]model.Following, error) {
	return list(f.s, f.s.followings, "followings.ListBySource", func(x model.Following) bool {
		return x.SourceUserID == sourceUserID && x.TargetType == targetType
	})
}

func (f followingStore) ListByTarget(_ context.Context, targetType model.FollowingType, targetID string) ([]model.Following, error) {
	return list(f.s, f.s.followings, "followings.ListByTarget", func(x model.Following) bool {
		return x.TargetType == targetType && x.TargetID == targetID
	})
}

func (f followingStore) Delete(_ context.Context, id string) error {
	return remove(f.s, f.s.followings, "followings.Delete", id)
}
