package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

type Annotation struct {
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry"`
}

// Task is one entry of `task export`.
type Task struct {
	UUID        string       `json:"uuid"`
	Description string       `json:"description"`
	Due         *CustomTime  `json:"due,omitempty"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority,omitempty"`
	Project     string       `json:"project,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// ToDraft converts t. Deleted and recurring template tasks are skipped.
// H, M and L priorities map to high, medium and low; the project becomes
// the category and annotations the description.
func ToDraft(t Task, loc *time.Location) (model.Draft, bool) {
	if t.Status == DELETED || t.Status == RECURRING {
		return model.Draft{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	d := model.Draft{
		Title:     t.Description,
		Completed: t.Status == COMPLETED,
		Category:  t.Project,
	}
	switch strings.ToUpper(t.Priority) {
	case "H":
		d.Priority = model.PriorityHigh
	case "L":
		d.Priority = model.PriorityLow
	default:
		d.Priority = model.PriorityMedium
	}
	if t.Due != nil && !t.Due.IsZero() {
		due := model.DateOf(t.Due.In(loc))
		d.DueDate = &due
	}
	var notes []string
	for _, a := range t.Annotations {
		if s := strings.TrimSpace(a.Description); s != "" {
			notes = append(notes, s)
		}
	}
	d.Description = strings.Join(notes, "\n")
	return d, true
}
