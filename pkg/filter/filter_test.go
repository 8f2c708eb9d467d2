package filter

import (
	"testing"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/observable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Buy milk", Category: "Home", Priority: model.PriorityLow, Favorite: true},
		{ID: "2", Title: "Ship report", Category: "Work", Priority: model.PriorityHigh, Completed: true},
	}
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestApplyHideCompleted(t *testing.T) {
	c := Criteria{ShowCompleted: false}
	assert.Equal(t, []string{"Buy milk"}, titles(Apply(sample(), c)))
}

func TestApplyFavoritesOnly(t *testing.T) {
	c := Default().Merge(CriteriaPatch{ShowFavorites: ptr(true)})
	assert.Equal(t, []string{"Buy milk"}, titles(Apply(sample(), c)))
}

func TestApplySearch(t *testing.T) {
	tasks := append(sample(), model.Task{ID: "3", Title: "Call mom", Description: "about the REPORT"})

	c := Default()
	c.Search = "report"
	assert.Equal(t, []string{"Ship report", "Call mom"}, titles(Apply(tasks, c)))

	c.Search = "home"
	assert.Equal(t, []string{"Buy milk"}, titles(Apply(tasks, c)), "search matches category")
}

func TestApplyCategoryAndPriority(t *testing.T) {
	c := Default()
	c.Category = "work"
	assert.Empty(t, Apply(sample(), c), "category match is exact")

	c.Category = "Work"
	assert.Equal(t, []string{"Ship report"}, titles(Apply(sample(), c)))

	c = Default()
	c.Priority = model.PriorityLow
	assert.Equal(t, []string{"Buy milk"}, titles(Apply(sample(), c)))
}

func TestApplyIsIdempotent(t *testing.T) {
	c := Criteria{Search: "i", ShowCompleted: true}
	first := Apply(sample(), c)
	second := Apply(sample(), c)
	assert.Equal(t, first, second)
}

func TestHolderMergesPartially(t *testing.T) {
	h := NewHolder()
	assert.Equal(t, Default(), h.Current())

	var seen []Criteria
	h.Observe().Subscribe(func(c Criteria) { seen = append(seen, c) })

	h.Update(CriteriaPatch{Search: ptr("milk"), Priority: ptr(model.PriorityHigh)})
	h.Update(CriteriaPatch{ShowCompleted: ptr(false)})
	h.Update(CriteriaPatch{Priority: ptr(model.Priority(""))})

	want := Criteria{Search: "milk", ShowCompleted: false}
	assert.Equal(t, want, h.Current())
	require.Len(t, seen, 3)
	assert.Equal(t, "milk", seen[1].Search)
	assert.Equal(t, model.PriorityHigh, seen[1].Priority)
}

func TestViewRecomputesOnEitherInput(t *testing.T) {
	tasks := observable.NewValue(sample())
	h := NewHolder()
	v := NewView(tasks, h.Observe())
	defer v.Close()

	assert.Len(t, v.Current(), 2)

	var emitted [][]model.Task
	v.Observe().Subscribe(func(ts []model.Task) { emitted = append(emitted, ts) })

	h.Update(CriteriaPatch{ShowCompleted: ptr(false)})
	assert.Equal(t, []string{"Buy milk"}, titles(v.Current()))

	tasks.Set(append(sample(), model.Task{ID: "3", Title: "Water plants"}))
	assert.Equal(t, []string{"Buy milk", "Water plants"}, titles(v.Current()))

	assert.Len(t, emitted, 2)
}

// lateTasks sets next on the wrapped value right before a subscriber is
// registered.
type lateTasks struct {
	*observable.Value[[]model.Task]
	next []model.Task
}

func (l lateTasks) Subscribe(fn func([]model.Task)) func() {
	l.Set(l.next)
	return l.Value.Subscribe(fn)
}

func TestViewSeesChangeDuringConstruction(t *testing.T) {
	tasks := lateTasks{
		Value: observable.NewValue(sample()),
		next:  []model.Task{{ID: "3", Title: "Water plants"}},
	}
	v := NewView(tasks, NewHolder().Observe())
	defer v.Close()

	assert.Equal(t, []string{"Water plants"}, titles(v.Current()))
}

func TestViewClose(t *testing.T) {
	tasks := observable.NewValue(sample())
	h := NewHolder()
	v := NewView(tasks, h.Observe())
	v.Close()

	tasks.Set(nil)
	assert.Len(t, v.Current(), 2, "closed view no longer follows its inputs")
}
