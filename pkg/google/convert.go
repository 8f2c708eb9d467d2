package google

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"google.golang.org/api/tasks/v1"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	// metaMarker starts the line of the notes that carries the fields
	// Google Tasks has no place for.
	metaMarker = "--- taskbox "
)

type meta struct {
	ID        string         `json:"id"`
	Favorite  bool           `json:"favorite,omitempty"`
	Priority  model.Priority `json:"priority,omitempty"`
	Category  string         `json:"category,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ConvertTaskToGoogle renders t as a Google task. The description becomes
// the notes, followed by a trailer line holding the remaining fields.
func ConvertTaskToGoogle(t model.Task) (*tasks.Task, error) {
	m, err := json.Marshal(meta{
		ID:        t.ID,
		Favorite:  t.Favorite,
		Priority:  t.Priority,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode task metadata: %w", err)
	}

	notes := metaMarker + string(m)
	if t.Description != "" {
		notes = t.Description + "\n\n" + notes
	}

	g := &tasks.Task{
		Title:  t.Title,
		Notes:  notes,
		Status: statusNeedsAction,
	}
	if t.Completed {
		g.Status = statusCompleted
	}
	if t.DueDate != nil && !t.DueDate.IsZero() {
		g.Due = t.DueDate.Format("2006-01-02") + "T00:00:00.000Z"
	}
	return g, nil
}

// ConvertGoogleToTask reads a Google task back. Tasks created outside this
// program have no trailer; they keep their Google id and medium priority.
func ConvertGoogleToTask(g *tasks.Task) model.Task {
	desc, m := splitNotes(g.Notes)

	t := model.Task{
		ID:          g.Id,
		Title:       g.Title,
		Description: desc,
		Completed:   g.Status == statusCompleted,
		Priority:    model.PriorityMedium,
	}
	if updated, err := time.Parse(time.RFC3339, g.Updated); err == nil {
		t.CreatedAt = updated
		t.UpdatedAt = updated
	}
	if m != nil {
		t.ID = m.ID
		t.Favorite = m.Favorite
		t.Category = m.Category
		if m.Priority.Valid() {
			t.Priority = m.Priority
		}
		t.CreatedAt = m.CreatedAt
		t.UpdatedAt = m.UpdatedAt
	}
	if g.Due != "" {
		if due, err := model.ParseDate(g.Due); err == nil {
			t.DueDate = &due
		}
	}
	return t
}

// splitNotes separates the description from the metadata trailer.
func splitNotes(notes string) (string, *meta) {
	i := strings.LastIndex(notes, metaMarker)
	if i < 0 || (i > 0 && notes[i-1] != '\n') {
		return notes, nil
	}
	var m meta
	if err := json.Unmarshal([]byte(strings.TrimSpace(notes[i+len(metaMarker):])), &m); err != nil || m.ID == "" {
		return notes, nil
	}
	return strings.TrimRight(notes[:i], "\n"), &m
}
