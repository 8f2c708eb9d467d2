package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/index"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// fakeTasksAPI serves the subset of the Google Tasks API the client uses.
type fakeTasksAPI struct {
	mu    sync.Mutex
	items map[string]map[string]any
	order []string
	next  int
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case path == "/tasks/v1/users/@me/lists":
		io.WriteString(w, `{"items":[{"id":"L1","title":"Tasks"},{"id":"L2","title":"Other"}]}`)
	case path == "/tasks/v1/lists/L1/tasks" && r.Method == http.MethodGet:
		var items []map[string]any
		for _, id := range f.order {
			if it, ok := f.items[id]; ok {
				items = append(items, it)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	case path == "/tasks/v1/lists/L1/tasks" && r.Method == http.MethodPost:
		var it map[string]any
		json.NewDecoder(r.Body).Decode(&it)
		f.next++
		id := fmt.Sprintf("g%d", f.next)
		it["id"] = id
		it["updated"] = time.Now().UTC().Format(time.RFC3339)
		f.items[id] = it
		f.order = append(f.order, id)
		json.NewEncoder(w).Encode(it)
	case strings.HasPrefix(path, "/tasks/v1/lists/L1/tasks/"):
		id := strings.TrimPrefix(path, "/tasks/v1/lists/L1/tasks/")
		it, ok := f.items[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(it)
		case http.MethodPatch:
			var patch map[string]any
			json.NewDecoder(r.Body).Decode(&patch)
			for k, v := range patch {
				if v == nil {
					delete(it, k)
				} else {
					it[k] = v
				}
			}
			json.NewEncoder(w).Encode(it)
		case http.MethodDelete:
			delete(f.items, id)
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"no route"}}`)
	}
}

func newTestClient(t *testing.T, listTitle string, authorized bool) (*TasksClient, *fakeTasksAPI, *index.Index) {
	t.Helper()
	api := &fakeTasksAPI{items: map[string]map[string]any{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	idx, err := index.Open(t.TempDir())
	if err != nil {
		t.Fatalf("index.Open failed: %v", err)
	}
	c, err := NewClient(context.Background(), srv.Client(), listTitle, idx,
		func() bool { return authorized }, option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, api, idx
}

func TestTasksClientLifecycle(t *testing.T) {
	c, api, idx := newTestClient(t, "Tasks", true)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	due := model.NewDate(2024, 6, 1)

	task := model.Task{ID: "local-1", Title: "Buy milk", Category: "Home", Priority: model.PriorityLow, DueDate: &due, CreatedAt: created, UpdatedAt: created}
	if err := c.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, _ := idx.Lookup("local-1"); got != "g1" {
		t.Errorf("Expected index to map local-1 to g1, got %q", got)
	}

	if err := c.SetCompleted(ctx, "local-1", true); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	noDue := model.Date{}
	title := "Buy oat milk"
	if err := c.Update(ctx, "local-1", model.Patch{Title: &title, DueDate: &noDue}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	listed, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(listed))
	}
	got := listed[0]
	if got.ID != "local-1" || got.Title != title || !got.Completed || got.Category != "Home" {
		t.Errorf("Unexpected task: %+v", got)
	}
	if got.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", got.DueDate)
	}

	if err := c.Delete(ctx, "local-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(api.items) != 0 {
		t.Errorf("Expected remote task deleted, %d left", len(api.items))
	}
	if _, ok := idx.Lookup("local-1"); ok {
		t.Error("Expected index entry removed")
	}
}

func TestTasksClientStaleIndex(t *testing.T) {
	c, api, idx := newTestClient(t, "Tasks", true)
	ctx := context.Background()

	g, _ := ConvertTaskToGoogle(model.Task{ID: "local-9", Title: "Found by scan", Priority: model.PriorityHigh})
	raw, _ := json.Marshal(g)
	var it map[string]any
	json.Unmarshal(raw, &it)
	it["id"] = "g42"
	api.items["g42"] = it
	api.order = append(api.order, "g42")

	idx.Record("local-9", "gone")
	if err := c.SetFavorite(ctx, "local-9", true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}
	if got, _ := idx.Lookup("local-9"); got != "g42" {
		t.Errorf("Expected index repaired to g42, got %q", got)
	}
}

func TestTasksClientListPrunesIndex(t *testing.T) {
	c, _, idx := newTestClient(t, "Tasks", true)
	ctx := context.Background()

	if err := c.Create(ctx, model.Task{ID: "local-1", Title: "Kept", Priority: model.PriorityMedium}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	idx.Record("deleted-elsewhere", "g99")

	if _, err := c.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, ok := idx.Lookup("deleted-elsewhere"); ok {
		t.Error("Expected mapping of an unlisted task to be dropped")
	}
	if got, _ := idx.Lookup("local-1"); got != "g1" {
		t.Errorf("Expected local-1 to stay mapped to g1, got %q", got)
	}

	reopened, err := index.Open(filepath.Dir(idx.Path()))
	if err != nil {
		t.Fatalf("index.Open failed: %v", err)
	}
	if reopened.Len() != 1 {
		t.Errorf("Expected the pruned index on disk, got %d entries", reopened.Len())
	}
}

func TestTasksClientErrors(t *testing.T) {
	c, _, _ := newTestClient(t, "Tasks", true)
	err := c.Delete(context.Background(), "missing")
	var re *gateway.RemoteRejectedError
	if !errors.As(err, &re) || re.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 rejection, got %v", err)
	}

	c, _, _ = newTestClient(t, "Nope", true)
	if _, err := c.List(context.Background()); !gateway.IsRejected(err) {
		t.Errorf("Expected rejection for unknown list, got %v", err)
	}

	c, _, _ = newTestClient(t, "Tasks", false)
	if _, err := c.List(context.Background()); !errors.Is(err, gateway.ErrPreconditionFailed) {
		t.Errorf("Expected ErrPreconditionFailed, got %v", err)
	}
}

func TestTasksClientTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/"
	srv.Close()

	svc, err := tasks.NewService(context.Background(), option.WithHTTPClient(http.DefaultClient), option.WithEndpoint(endpoint))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	c := NewTasksClient(svc, "Tasks", nil, nil)
	if _, err := c.List(context.Background()); !gateway.IsTransport(err) {
		t.Errorf("Expected TransportError, got %v", err)
	}
}
