package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// taskService is an in-memory stand-in for the REST task service.
type taskService struct {
	mu    sync.Mutex
	order []string
	tasks map[string]model.Task
}

func newTaskService(t *testing.T) (*taskService, *httptest.Server) {
	t.Helper()
	svc := &taskService{tasks: map[string]model.Task{}}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return svc, srv
}

func (s *taskService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		out := []model.Task{}
		for _, id := range s.order {
			if t, ok := s.tasks[id]; ok {
				out = append(out, t)
			}
		}
		json.NewEncoder(w).Encode(out)
	case len(parts) == 1 && r.Method == http.MethodPost:
		var t model.Task
		json.NewDecoder(r.Body).Decode(&t)
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(t)
	case len(parts) >= 2:
		t, ok := s.tasks[parts[1]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "task not found"})
			return
		}
		var body struct {
			model.Patch
		}
		json.NewDecoder(r.Body).Decode(&body)
		switch {
		case r.Method == http.MethodDelete:
			delete(s.tasks, t.ID)
		case r.Method == http.MethodPut:
			t = body.Patch.Apply(t, testNow)
		case r.Method == http.MethodPatch && len(parts) == 3:
			t = body.Patch.Apply(t, testNow)
		}
		if r.Method != http.MethodDelete {
			s.tasks[t.ID] = t
		}
		json.NewEncoder(w).Encode(t)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{now: func() time.Time { return testNow }}
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	a.close()
	return out.String(), err
}

var createdRegex = regexp.MustCompile(`Created task (\S+):`)

func addTask(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, append([]string{"add"}, args...)...)
	require.NoError(t, err)
	m := createdRegex.FindStringSubmatch(out)
	require.NotNil(t, m, "unexpected output: %s", out)
	return m[1]
}

func setupCLI(t *testing.T) (*taskService, *httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKBOX_CONFIG_DIR", dir)
	svc, srv := newTaskService(t)

	_, err := run(t, "config", "set", "api_url", srv.URL)
	require.NoError(t, err)
	out, err := run(t, "login", "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in.")
	return svc, srv, dir
}

func TestCLITaskLifecycle(t *testing.T) {
	svc, _, _ := setupCLI(t)

	milk := addTask(t, "Buy", "milk", "--category", "Home", "--priority", "high", "--due", "2024-05-01")
	addTask(t, "Ship report", "--category", "Work")

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "#Home")
	assert.Contains(t, out, "(overdue)")
	assert.Contains(t, out, "Ship report")

	out, err = run(t, "done", milk)
	require.NoError(t, err)
	assert.Contains(t, out, "is now completed")

	out, err = run(t, "list", "--hide-completed")
	require.NoError(t, err)
	assert.NotContains(t, out, "Buy milk")
	assert.Contains(t, out, "Ship report")

	out, err = run(t, "edit", milk, "--title", "Buy oat milk", "--no-due")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy oat milk")

	out, err = run(t, "categories")
	require.NoError(t, err)
	assert.Equal(t, "Home\nWork\n", out)

	out, err = run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:     2")
	assert.Contains(t, out, "Completed: 1")

	_, err = run(t, "rm", milk)
	require.NoError(t, err)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.tasks, 1)
}

func TestCLIListJSON(t *testing.T) {
	setupCLI(t)
	addTask(t, "Buy milk", "--favorite")
	addTask(t, "Ship report")

	out, err := run(t, "list", "--favorites", "--json")
	require.NoError(t, err)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.True(t, tasks[0].Favorite)
	assert.Equal(t, model.PriorityMedium, tasks[0].Priority)
}

func TestCLIFallsBackToSnapshot(t *testing.T) {
	_, srv, _ := setupCLI(t)
	addTask(t, "Buy milk")
	srv.Close()

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")

	_, err = run(t, "add", "Offline task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport error")
}

func TestCLIRequiresLogin(t *testing.T) {
	setupCLI(t)
	_, err := run(t, "logout")
	require.NoError(t, err)

	_, err = run(t, "add", "Buy milk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication credential")
}

func TestCLIListHidesSnapshotAfterLogout(t *testing.T) {
	setupCLI(t)
	addTask(t, "Private errand")
	_, err := run(t, "logout")
	require.NoError(t, err)

	out, err := run(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication credential")
	assert.NotContains(t, out, "Private errand")
}

func TestCLIOverdue(t *testing.T) {
	setupCLI(t)
	addTask(t, "Pay rent", "--due", "2024-05-09")
	addTask(t, "Later", "--due", "2024-06-01")

	out, err := run(t, "overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "Pay rent")
	assert.NotContains(t, out, "Later")
}

func TestCLIImportOrg(t *testing.T) {
	_, _, dir := setupCLI(t)
	path := filepath.Join(dir, "inbox.org")
	require.NoError(t, os.WriteFile(path, []byte("* TODO [#A] Pay rent :home:\n* DONE Book flights\n"), 0600))

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 of 2 tasks")

	out, err = run(t, "list", "--priority", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "Pay rent")
	assert.NotContains(t, out, "Book flights")
}

func TestCLIConfig(t *testing.T) {
	setupCLI(t)
	_, err := run(t, "config", "set", "backend", "carrier-pigeon")
	require.Error(t, err)

	out, err := run(t, "--task-list", "Personal", "config", "show")
	require.NoError(t, err)
	assert.Regexp(t, `task_list\s+Personal`, out)

	// the flag override is not written to the file
	out, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Regexp(t, `task_list\s+Tasks`, out)
}

func TestCLIEditNeedsAField(t *testing.T) {
	setupCLI(t)
	id := addTask(t, "Buy milk")
	_, err := run(t, "edit", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}
