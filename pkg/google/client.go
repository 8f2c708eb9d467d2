package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/index"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

var now = time.Now

// TasksClient is a gateway backed by one Google Tasks list.
type TasksClient struct {
	srv        *tasks.Service
	listTitle  string
	index      *index.Index
	authorized func() bool

	mu     sync.Mutex
	listID string
}

var _ gateway.Gateway = (*TasksClient)(nil)

// NewClient creates a Google Tasks client using httpClient, which must
// attach the OAuth credential. authorized reports whether a credential is
// present; calls fail with gateway.ErrPreconditionFailed when it returns
// false. The task list is resolved by title on first use.
func NewClient(ctx context.Context, httpClient *http.Client, listTitle string, idx *index.Index, authorized func() bool, opts ...option.ClientOption) (*TasksClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Tasks client: %w", err)
	}
	return NewTasksClient(srv, listTitle, idx, authorized), nil
}

// NewTasksClient wraps an existing service.
func NewTasksClient(srv *tasks.Service, listTitle string, idx *index.Index, authorized func() bool) *TasksClient {
	return &TasksClient{srv: srv, listTitle: listTitle, index: idx, authorized: authorized}
}

func (c *TasksClient) List(ctx context.Context) ([]model.Task, error) {
	const op = "list"
	listID, err := c.resolveList(ctx, op)
	if err != nil {
		return nil, err
	}

	items, err := c.listRemote(ctx, listID)
	if err != nil {
		return nil, classify(op, err)
	}

	out := make([]model.Task, 0, len(items))
	live := make(map[string]string, len(items))
	for _, g := range items {
		t := ConvertGoogleToTask(g)
		live[t.ID] = g.Id
		out = append(out, t)
	}
	if c.index != nil {
		c.index.Replace(live)
		c.saveIndex()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *TasksClient) Create(ctx context.Context, task model.Task) error {
	const op = "create"
	listID, err := c.resolveList(ctx, op)
	if err != nil {
		return err
	}
	g, err := ConvertTaskToGoogle(task)
	if err != nil {
		return err
	}
	created, err := c.srv.Tasks.Insert(listID, g).Context(ctx).Do()
	if err != nil {
		return classify(op, err)
	}
	if c.index != nil {
		c.index.Record(task.ID, created.Id)
		c.saveIndex()
	}
	return nil
}

func (c *TasksClient) Update(ctx context.Context, id string, patch model.Patch) error {
	return c.modify(ctx, "update", id, patch)
}

func (c *TasksClient) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return c.modify(ctx, "set favorite", id, model.Patch{Favorite: &favorite})
}

func (c *TasksClient) SetCompleted(ctx context.Context, id string, completed bool) error {
	return c.modify(ctx, "set completed", id, model.Patch{Completed: &completed})
}

func (c *TasksClient) Delete(ctx context.Context, id string) error {
	const op = "delete"
	listID, err := c.resolveList(ctx, op)
	if err != nil {
		return err
	}
	existing, err := c.find(ctx, listID, id)
	if err != nil {
		return classify(op, err)
	}
	if err := c.srv.Tasks.Delete(listID, existing.Id).Context(ctx).Do(); err != nil {
		return classify(op, err)
	}
	if c.index != nil {
		c.index.Forget(id)
		c.saveIndex()
	}
	return nil
}

// modify reads the current Google task, applies patch to its converted
// form and sends the changed fields back.
func (c *TasksClient) modify(ctx context.Context, op, id string, patch model.Patch) error {
	listID, err := c.resolveList(ctx, op)
	if err != nil {
		return err
	}
	existing, err := c.find(ctx, listID, id)
	if err != nil {
		return classify(op, err)
	}

	updated := patch.Apply(ConvertGoogleToTask(existing), now())
	updated.ID = id
	g, err := ConvertTaskToGoogle(updated)
	if err != nil {
		return err
	}
	if g.Due == "" {
		g.NullFields = append(g.NullFields, "Due")
	}
	if g.Status == statusNeedsAction {
		g.NullFields = append(g.NullFields, "Completed")
	}
	if _, err := c.srv.Tasks.Patch(listID, existing.Id, g).Context(ctx).Do(); err != nil {
		return classify(op, err)
	}
	return nil
}

// find looks the task up through the index first and falls back to
// scanning the list when the index is missing or stale.
func (c *TasksClient) find(ctx context.Context, listID, id string) (*tasks.Task, error) {
	if c.index != nil {
		if remoteID, ok := c.index.Lookup(id); ok {
			g, err := c.srv.Tasks.Get(listID, remoteID).Context(ctx).Do()
			if err == nil {
				return g, nil
			}
			if !isNotFound(err) {
				return nil, err
			}
			c.index.Forget(id)
		}
	}

	items, err := c.listRemote(ctx, listID)
	if err != nil {
		return nil, err
	}
	for _, g := range items {
		if ConvertGoogleToTask(g).ID == id {
			if c.index != nil {
				c.index.Record(id, g.Id)
				c.saveIndex()
			}
			return g, nil
		}
	}
	return nil, &googleapi.Error{Code: http.StatusNotFound, Message: fmt.Sprintf("task %s not found", id)}
}

func (c *TasksClient) listRemote(ctx context.Context, listID string) ([]*tasks.Task, error) {
	var items []*tasks.Task
	err := c.srv.Tasks.List(listID).
		ShowCompleted(true).
		ShowHidden(true).
		MaxResults(100).
		Pages(ctx, func(page *tasks.Tasks) error {
			items = append(items, page.Items...)
			return nil
		})
	return items, err
}

// resolveList checks the credential and finds the task list by title.
func (c *TasksClient) resolveList(ctx context.Context, op string) (string, error) {
	if c.authorized != nil && !c.authorized() {
		return "", fmt.Errorf("%s: %w", op, gateway.ErrPreconditionFailed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listID != "" {
		return c.listID, nil
	}

	lists, err := c.srv.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return "", classify(op, err)
	}
	for _, item := range lists.Items {
		if item.Title == c.listTitle {
			c.listID = item.Id
			return c.listID, nil
		}
	}
	return "", &gateway.RemoteRejectedError{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("task list '%s' not found", c.listTitle),
	}
}

func (c *TasksClient) saveIndex() {
	if c.index == nil {
		return
	}
	// the index only speeds up lookups; find recovers from a lost write
	_ = c.index.Flush()
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &gateway.RemoteRejectedError{Op: op, StatusCode: gerr.Code, Message: gerr.Message}
	}
	return &gateway.TransportError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
