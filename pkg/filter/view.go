package filter

import (
	"sync"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/observable"
)

// View is the filtered task list, recomputed in full whenever the tasks or
// the criteria change. The input that did not change is re-read at its
// latest value.
type View struct {
	tasks    observable.Observable[[]model.Task]
	criteria observable.Observable[Criteria]

	mu     sync.Mutex
	out    *observable.Value[[]model.Task]
	cancel []func()
}

// NewView derives a filtered list from tasks and criteria. Close releases
// the subscriptions. The first value is computed after subscribing, so a
// change landing in between is not missed.
func NewView(tasks observable.Observable[[]model.Task], criteria observable.Observable[Criteria]) *View {
	v := &View{
		tasks:    tasks,
		criteria: criteria,
		out:      observable.NewValue([]model.Task{}),
	}
	v.cancel = []func(){
		tasks.Subscribe(func([]model.Task) { v.recompute() }),
		criteria.Subscribe(func(Criteria) { v.recompute() }),
	}
	v.recompute()
	return v
}

func (v *View) recompute() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.out.Set(Apply(v.tasks.Get(), v.criteria.Get()))
}

// Current returns the last computed list.
func (v *View) Current() []model.Task {
	return v.out.Get()
}

// Observe returns the live filtered list.
func (v *View) Observe() observable.Observable[[]model.Task] {
	return v.out
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.cancel {
		c()
	}
	v.cancel = nil
}
