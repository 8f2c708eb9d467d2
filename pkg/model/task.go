package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTask is returned when a draft or patch would break a Task invariant.
var ErrInvalidTask = errors.New("invalid task")

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts the priority names in any case. An empty string
// parses to the empty priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, s)
}

// Task is a single entry of the user's task list.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Favorite    bool      `json:"favorite"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	DueDate     *Date     `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a copy of t that shares no pointers with it.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// Overdue reports whether the task is still open and its due date lies
// before the calendar date of now.
func (t Task) Overdue(now time.Time) bool {
	if t.Completed || t.DueDate == nil || t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Before(DateOf(now))
}

// Draft carries the caller supplied fields of a new Task. Identity and
// timestamps are assigned by the store.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Favorite    bool     `json:"favorite"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
	DueDate     *Date    `json:"dueDate"`
}

// Validate normalizes d and checks it. An empty priority becomes medium.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, d.Priority)
	}
	return nil
}

// NewTask builds the Task for d with the given identity and creation time.
func NewTask(id string, d Draft, now time.Time) Task {
	t := Task{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Favorite:    d.Favorite,
		Priority:    d.Priority,
		Category:    d.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.DueDate != nil && !d.DueDate.IsZero() {
		due := *d.DueDate
		t.DueDate = &due
	}
	return t
}

// Patch represents a partial update.
// nil pointer => "no change"
// DueDate pointing at a zero Date => clear the due date
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	Favorite    *bool     `json:"favorite,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Category    *string   `json:"category,omitempty"`
	DueDate     *Date     `json:"dueDate,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Favorite == nil && p.Priority == nil && p.Category == nil && p.DueDate == nil
}

// Validate normalizes p and checks it.
func (p *Patch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidTask)
		}
		p.Title = &title
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, *p.Priority)
	}
	return nil
}

// Apply merges p into t and stamps UpdatedAt. UpdatedAt never moves
// before CreatedAt.
func (p Patch) Apply(t Task, now time.Time) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Favorite != nil {
		t.Favorite = *p.Favorite
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		if p.DueDate.IsZero() {
			t.DueDate = nil
		} else {
			due := *p.DueDate
			t.DueDate = &due
		}
	}
	t.touch(now)
	return t
}

func (t *Task) touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}
