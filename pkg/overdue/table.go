// Package overdue finds open tasks whose due date has passed and remembers
// which of them were already reported.
package overdue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

const tableFile = "pending_due.json"

// Entry is an open task with a due date that has not yet been reported as
// overdue.
type Entry struct {
	Title string     `json:"title"`
	Due   model.Date `json:"due"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// List returns the overdue tasks of tasks, most overdue first.
func List(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Overdue(now) {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	return out
}

// Open loads the table kept in dir, or starts an empty one.
func Open(dir string) (*Table, error) {
	t := &Table{
		Path:    filepath.Join(dir, tableFile),
		Entries: make(map[string]Entry),
	}
	if _, err := os.Stat(t.Path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(t.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

// Update tracks the task while it is open and due in the future, and
// forgets it otherwise.
func (t *Table) Update(task model.Task, now time.Time) {
	if task.Completed || task.DueDate == nil || task.DueDate.IsZero() || task.Overdue(now) {
		t.Remove(task.ID)
		return
	}
	old, exists := t.Entries[task.ID]
	if !exists || !old.Due.Equal(*task.DueDate) || old.Title != task.Title {
		t.Entries[task.ID] = Entry{Title: task.Title, Due: *task.DueDate}
		t.dirty = true
	}
}

func (t *Table) Remove(id string) {
	if _, exists := t.Entries[id]; exists {
		delete(t.Entries, id)
		t.dirty = true
	}
}

// Sweep returns the tasks that became overdue since the previous Sweep and
// stops tracking them. Tracked tasks that were deleted, completed or
// rescheduled are dropped silently. Every other open task with a future due
// date is tracked for the next Sweep.
func (t *Table) Sweep(tasks []model.Task, now time.Time) []model.Task {
	byID := make(map[string]model.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var swept []model.Task
	for id, entry := range t.Entries {
		task, ok := byID[id]
		if !ok || task.Completed || task.DueDate == nil || !task.DueDate.Equal(entry.Due) {
			t.Remove(id)
			continue
		}
		if task.Overdue(now) {
			swept = append(swept, task.Clone())
			t.Remove(id)
		}
	}
	for _, task := range tasks {
		t.Update(task, now)
	}

	sort.SliceStable(swept, func(i, j int) bool {
		return swept[i].DueDate.Before(*swept[j].DueDate)
	})
	return swept
}
