// Package store holds the authoritative in-memory task collection and keeps
// it in step with the remote gateway and the local snapshot.
//
// Mutations are write-through: the gateway call happens first, without any
// lock held, and the in-memory collection changes only after the gateway
// confirmed it. Reconciliation re-reads the latest collection, so mutations
// of different tasks resolving out of order never lose each other's
// changes. Two in-flight mutations of the same task resolve last writer
// wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/observable"
	"github.com/harrisonrobin/taskbox/pkg/snapshot"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrAmbiguous = errors.New("task id prefix is ambiguous")
)

// errUnchanged tells reconcile to keep the collection and stay silent.
var errUnchanged = errors.New("collection unchanged")

// Source tells which stage of Load produced the collection.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceSnapshot Source = "snapshot"
	SourceEmpty    Source = "empty"
)

type Store struct {
	gateway  gateway.Gateway
	snapshot snapshot.Store
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex // guards tasks and serializes reconciliation
	tasks []model.Task
	view  *observable.Value[[]model.Task]
}

// New returns an empty Store. Call Load to populate it. A nil logger
// discards output.
func New(gw gateway.Gateway, snap snapshot.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		gateway:  gw,
		snapshot: snap,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		view:     observable.NewValue([]model.Task{}),
	}
}

// Load fetches the collection from the gateway, falling back to the
// snapshot when the gateway fails. When both fail the store starts empty
// and a warning is logged. Load returns an error only when ctx is cancelled
// or the gateway reports gateway.ErrPreconditionFailed; the snapshot may
// belong to another account and is not read then.
func (s *Store) Load(ctx context.Context) (Source, error) {
	source := SourceRemote
	tasks, err := s.gateway.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, gateway.ErrPreconditionFailed) {
			return "", err
		}
		s.logger.Warn("remote load failed, reading local snapshot", "error", err)
		source = SourceSnapshot
		tasks, err = s.snapshot.Read(ctx)
		if err != nil {
			s.logger.Warn("snapshot load failed, starting with an empty task list", "error", err)
			source = SourceEmpty
			tasks = nil
		}
	}
	tasks = s.normalize(tasks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.publishLocked()
	if source == SourceRemote {
		s.persistLocked(ctx)
	}
	s.logger.Info("tasks loaded", "source", source, "count", len(tasks))
	return source, nil
}

// normalize drops tasks without identity and duplicate identities, keeping
// the first occurrence, and repairs UpdatedAt < CreatedAt.
func (s *Store) normalize(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.ID == "" || seen[t.ID] {
			s.logger.Warn("dropping task with missing or duplicate id", "id", t.ID, "title", t.Title)
			continue
		}
		seen[t.ID] = true
		if t.UpdatedAt.Before(t.CreatedAt) {
			t.UpdatedAt = t.CreatedAt
		}
		out = append(out, t.Clone())
	}
	return out
}

// Add creates a task from d. The identifier and timestamps are assigned
// here. The task is appended only once the gateway accepted it.
func (s *Store) Add(ctx context.Context, d model.Draft) (model.Task, error) {
	if err := d.Validate(); err != nil {
		return model.Task{}, err
	}
	task := model.NewTask(s.newID(), d, s.now())

	if err := s.gateway.Create(ctx, task); err != nil {
		s.logger.Debug("create rejected", "id", task.ID, "error", err)
		return model.Task{}, err
	}

	err := s.reconcile(ctx, func(tasks []model.Task) ([]model.Task, error) {
		if indexOf(tasks, task.ID) >= 0 {
			return nil, errUnchanged
		}
		return append(tasks, task), nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return task.Clone(), nil
}

// Update sends p for the task id to the gateway and merges it locally on
// success.
func (s *Store) Update(ctx context.Context, id string, p model.Patch) (model.Task, error) {
	if err := p.Validate(); err != nil {
		return model.Task{}, err
	}
	if _, ok := s.Get(id); !ok {
		return model.Task{}, notFound(id)
	}
	if err := s.gateway.Update(ctx, id, p); err != nil {
		s.logger.Debug("update rejected", "id", id, "error", err)
		return model.Task{}, err
	}
	return s.merge(ctx, id, p)
}

// ToggleCompleted flips the completed flag of the task id.
func (s *Store) ToggleCompleted(ctx context.Context, id string) (model.Task, error) {
	cur, ok := s.Get(id)
	if !ok {
		return model.Task{}, notFound(id)
	}
	completed := !cur.Completed
	if err := s.gateway.SetCompleted(ctx, id, completed); err != nil {
		s.logger.Debug("set completed rejected", "id", id, "error", err)
		return model.Task{}, err
	}
	return s.merge(ctx, id, model.Patch{Completed: &completed})
}

// ToggleFavorite flips the favorite flag of the task id.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (model.Task, error) {
	cur, ok := s.Get(id)
	if !ok {
		return model.Task{}, notFound(id)
	}
	favorite := !cur.Favorite
	if err := s.gateway.SetFavorite(ctx, id, favorite); err != nil {
		s.logger.Debug("set favorite rejected", "id", id, "error", err)
		return model.Task{}, err
	}
	return s.merge(ctx, id, model.Patch{Favorite: &favorite})
}

// Delete removes the task id remotely, then from memory and the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return notFound(id)
	}
	if err := s.gateway.Delete(ctx, id); err != nil {
		s.logger.Debug("delete rejected", "id", id, "error", err)
		return err
	}
	return s.reconcile(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			// deleted by a concurrent call
			return nil, notFound(id)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

func (s *Store) merge(ctx context.Context, id string, p model.Patch) (model.Task, error) {
	var updated model.Task
	err := s.reconcile(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			// deleted while the gateway call was in flight
			return nil, notFound(id)
		}
		tasks[i] = p.Apply(tasks[i], s.now())
		updated = tasks[i]
		return tasks, nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated.Clone(), nil
}

// reconcile applies fn to a copy of the latest collection, announces the
// result and writes the snapshot, all in one step under the lock. A failed
// snapshot write is logged; the remote write already succeeded.
func (s *Store) reconcile(ctx context.Context, fn func([]model.Task) ([]model.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneAll(s.tasks))
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	s.tasks = next
	s.publishLocked()
	s.persistLocked(ctx)
	return nil
}

func (s *Store) publishLocked() {
	s.view.Set(cloneAll(s.tasks))
}

func (s *Store) persistLocked(ctx context.Context) {
	if err := s.snapshot.Write(context.WithoutCancel(ctx), s.tasks); err != nil {
		s.logger.Warn("failed to write local snapshot", "error", err)
	}
}

// Observe returns the live collection. Listeners are notified once per
// successful mutation with the post-mutation collection and must not call
// mutating Store methods synchronously. Every value handed out is a copy.
func (s *Store) Observe() observable.Observable[[]model.Task] {
	return copyingView{s.view}
}

type copyingView struct {
	v *observable.Value[[]model.Task]
}

func (c copyingView) Get() []model.Task {
	return cloneAll(c.v.Get())
}

func (c copyingView) Subscribe(fn func([]model.Task)) func() {
	return c.v.Subscribe(func(tasks []model.Task) {
		fn(cloneAll(tasks))
	})
}

// Tasks returns a copy of the current collection in insertion order.
func (s *Store) Tasks() []model.Task {
	return cloneAll(s.view.Get())
}

// Get returns a copy of the task id.
func (s *Store) Get(id string) (model.Task, bool) {
	tasks := s.view.Get()
	if i := indexOf(tasks, id); i >= 0 {
		return tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Resolve finds the task whose id is, or uniquely starts with, prefix.
func (s *Store) Resolve(prefix string) (model.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return model.Task{}, notFound(prefix)
	}
	if t, ok := s.Get(prefix); ok {
		return t, nil
	}
	var match *model.Task
	for _, t := range s.view.Get() {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if match != nil {
			return model.Task{}, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
		}
		t := t
		match = &t
	}
	if match == nil {
		return model.Task{}, notFound(prefix)
	}
	return match.Clone(), nil
}

// Categories returns the distinct non-empty categories, sorted.
func (s *Store) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.view.Get() {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

type Stats struct {
	Total     int
	Completed int
	Favorites int
	Overdue   int
}

// Stats counts the current collection. now decides what is overdue.
func (s *Store) Stats(now time.Time) Stats {
	var st Stats
	for _, t := range s.view.Get() {
		st.Total++
		if t.Completed {
			st.Completed++
		}
		if t.Favorite {
			st.Favorites++
		}
		if t.Overdue(now) {
			st.Overdue++
		}
	}
	return st
}

// Close releases the snapshot backend.
func (s *Store) Close() error {
	return s.snapshot.Close()
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
