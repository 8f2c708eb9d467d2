// Package observable holds a current value and notifies listeners when it
// is replaced.
package observable

import "sync"

// Observable is the read side of a Value.
type Observable[T any] interface {
	Get() T
	// Subscribe registers fn to be called with every new value. The current
	// value is not replayed. The returned func removes the listener.
	Subscribe(fn func(T)) (cancel func())
}

// Value is a held value plus a registry of listeners. Listeners run
// synchronously on the goroutine calling Set, in registration order, after
// the value has been replaced. A listener must not call Set on the same
// Value.
type Value[T any] struct {
	setMu sync.Mutex // serializes Set so listeners see values in order

	mu        sync.RWMutex
	v         T
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the value and notifies every listener once.
func (v *Value[T]) Set(x T) {
	v.setMu.Lock()
	defer v.setMu.Unlock()

	v.mu.Lock()
	v.v = x
	ls := make([]listener[T], len(v.listeners))
	copy(ls, v.listeners)
	v.mu.Unlock()

	for _, l := range ls {
		l.fn(x)
	}
}

func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	id := v.nextID
	v.listeners = append(v.listeners, listener[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			for i, l := range v.listeners {
				if l.id == id {
					v.listeners = append(v.listeners[:i:i], v.listeners[i+1:]...)
					break
				}
			}
		})
	}
}
