// Package filter holds the current search criteria and derives the
// filtered task list from it.
package filter

import (
	"strings"
	"sync"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/observable"
)

// Criteria selects tasks. Empty Search, Category and Priority impose no
// constraint.
type Criteria struct {
	Search        string         `json:"search"`
	Category      string         `json:"category"`
	Priority      model.Priority `json:"priority"`
	ShowCompleted bool           `json:"showCompleted"`
	ShowFavorites bool           `json:"showFavorites"`
}

// Default shows every task.
func Default() Criteria {
	return Criteria{ShowCompleted: true}
}

// CriteriaPatch is a partial update of Criteria; nil fields are kept.
// Priority pointing at "" removes the priority constraint.
type CriteriaPatch struct {
	Search        *string
	Category      *string
	Priority      *model.Priority
	ShowCompleted *bool
	ShowFavorites *bool
}

// Merge returns c with the fields set in p replaced.
func (c Criteria) Merge(p CriteriaPatch) Criteria {
	if p.Search != nil {
		c.Search = *p.Search
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.ShowCompleted != nil {
		c.ShowCompleted = *p.ShowCompleted
	}
	if p.ShowFavorites != nil {
		c.ShowFavorites = *p.ShowFavorites
	}
	return c
}

// Match reports whether t passes every constraint of c.
func (c Criteria) Match(t model.Task) bool {
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if !c.ShowCompleted && t.Completed {
		return false
	}
	if c.ShowFavorites && !t.Favorite {
		return false
	}
	return true
}

// Apply returns the tasks matching c in their original order.
func Apply(tasks []model.Task, c Criteria) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Holder keeps the current Criteria. No validation is done; any
// combination is accepted.
type Holder struct {
	mu sync.Mutex
	v  *observable.Value[Criteria]
}

func NewHolder() *Holder {
	return &Holder{v: observable.NewValue(Default())}
}

func (h *Holder) Current() Criteria {
	return h.v.Get()
}

// Update merges p into the current criteria and announces the result.
func (h *Holder) Update(p CriteriaPatch) Criteria {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.v.Get().Merge(p)
	h.v.Set(next)
	return next
}

// Observe returns the live criteria.
func (h *Holder) Observe() observable.Observable[Criteria] {
	return h.v
}
