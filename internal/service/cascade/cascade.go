// Package cascade keeps referential integrity on delete.  The storage
// layer has no cascading foreign keys, so every delete goes through a
// Manager that walks a static table of cleanup steps per entity before
// removing the primary row.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/metrics"
	"github.com/iliyamo/phenom-api/internal/push"
	"github.com/iliyamo/phenom-api/internal/queue"
	"github.com/iliyamo/phenom-api/internal/repository"
)

// Entity names a deletable entity kind.
type Entity string

const (
	AccessToken        Entity = "access_token"
	NotificationTarget Entity = "notification_target"
	User               Entity = "user"
	Moment             Entity = "moment"
	Comment            Entity = "comment"
)

// Mode decides how a step failure affects the delete.
type Mode int

const (
	// BestEffort failures are logged and counted; the delete continues.
	BestEffort Mode = iota
	// Required failures abort the delete and are returned to the caller.
	Required
	// Detached steps run in the background after the primary delete is
	// allowed to proceed.  Failures are only logged.
	Detached
)

// Target is the row being deleted, as loaded before any step runs.
type Target struct {
	ID       string
	Snapshot any
}

// Step is one cleanup action run before the primary delete.
type Step struct {
	Name string
	Mode Mode
	Run  func(ctx context.Context, t Target) error
}

type entry struct {
	load   func(ctx context.Context, id string) (any, error)
	steps  []Step
	remove func(ctx context.Context, id string) error
}

// EventPublisher receives an event after every completed delete.
type EventPublisher interface {
	PublishEntityDeleted(ctx context.Context, ev queue.EntityDeletedEvent) error
}

// Deps are the collaborators the cascades touch.
type Deps struct {
	Stores  repository.Stores
	Push    push.Service
	Media   media.Store
	Events  EventPublisher   // optional
	Log     *zap.Logger      // optional
	Metrics *metrics.Metrics // optional
}

// Manager runs cascade deletes.  It is safe for concurrent use.
type Manager struct {
	deps     Deps
	log      *zap.Logger
	table    map[Entity]entry
	detached sync.WaitGroup
	now      func() time.Time
}

// New builds a Manager and its dependency table.
func New(deps Deps) *Manager {
	m := &Manager{deps: deps, log: deps.Log, now: func() time.Time { return time.Now().UTC() }}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.table = map[Entity]entry{
		AccessToken:        m.accessTokenEntry(),
		NotificationTarget: m.notificationTargetEntry(),
		User:               m.userEntry(),
		Moment:             m.momentEntry(),
		Comment:            m.commentEntry(),
	}
	return m
}

// Delete removes the entity and its dependents.  It returns
// repository.ErrNotFound when the row does not exist, the error of a
// failed Required step, or the error of the primary delete.  BestEffort
// and Detached failures never surface here.
func (m *Manager) Delete(ctx context.Context, entity Entity, id string) error {
	e, ok := m.table[entity]
	if !ok {
		return fmt.Errorf("cascade: unknown entity %q", entity)
	}
	snapshot, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	target := Target{ID: id, Snapshot: snapshot}

	var failed []string
	for _, step := range e.steps {
		switch step.Mode {
		case Detached:
			m.detach(ctx, entity, target, step)
		case Required:
			if err := step.Run(ctx, target); err != nil {
				m.stepFailed(entity, id, step.Name, err)
				return fmt.Errorf("cascade %s %s: %s: %w", entity, id, step.Name, err)
			}
		default:
			if err := step.Run(ctx, target); err != nil {
				m.stepFailed(entity, id, step.Name, err)
				failed = append(failed, step.Name)
			}
		}
	}

	if err := e.remove(ctx, id); err != nil {
		return err
	}

	if m.deps.Events != nil {
		ev := queue.EntityDeletedEvent{Entity: string(entity), ID: id, Failures: failed, DeletedAt: m.now()}
		if err := m.deps.Events.PublishEntityDeleted(context.WithoutCancel(ctx), ev); err != nil {
			m.log.Warn("cascade: publish entity deleted failed",
				zap.String("entity", string(entity)), zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// Wait blocks until every detached step has finished.
func (m *Manager) Wait() { m.detached.Wait() }

func (m *Manager) detach(ctx context.Context, entity Entity, t Target, step Step) {
	bg := context.WithoutCancel(ctx)
	m.detached.Add(1)
	go func() {
		defer m.detached.Done()
		if err := step.Run(bg, t); err != nil {
			m.stepFailed(entity, t.ID, step.Name, err)
		}
	}()
}

func (m *Manager) stepFailed(entity Entity, id, step string, err error) {
	m.log.Error("cascade step failed",
		zap.String("entity", string(entity)),
		zap.String("id", id),
		zap.String("step", step),
		zap.Error(err))
	if m.deps.Metrics != nil {
		m.deps.Metrics.CascadeStepFailures.WithLabelValues(string(entity), step).Inc()
	}
}

// ignoreNotFound treats an already missing row as deleted.
func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
