package observable

import "sync"

// Hot is a multicast registry: Subscribe registers an observer without
// touching any upstream subscription, and Next/Error broadcast to every
// currently-registered observer in insertion order. Hot has no Complete.
// It models the same kind of fan-out as ObservableOperation's subscriber
// list (spec §4.D "Subscriber fan-out"), but ObservableOperation does not
// use it: internal/operation keeps its own observer records (state.go) so
// each subscriber gets its own deferred, collapsing delivery.
//
// Grounded on eventbus.Bus's copy-on-read dispatch, which tolerates a
// handler unsubscribing (or a new one subscribing) from within a callback
// invoked during Emit — required here too, since spec §5 explicitly allows
// an observer to re-entrantly call back into the operation during a watch
// emission.
type Hot[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	observers []hotObserver[T]
}

type hotObserver[T any] struct {
	id  uint64
	obs Observer[T]
}

// NewHot constructs an empty multicast registry.
func NewHot[T any]() *Hot[T] { return &Hot[T]{} }

// Subscribe registers obs and returns a Subscription that removes it.
func (h *Hot[T]) Subscribe(obs Observer[T]) Subscription {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers = append(h.observers, hotObserver[T]{id: id, obs: obs})
	h.mu.Unlock()

	once := &sync.Once{}
	return Subscription{
		unsubscribeOnce: once,
		unsubscribe: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, o := range h.observers {
				if o.id == id {
					h.observers = append(h.observers[:i:i], h.observers[i+1:]...)
					break
				}
			}
		},
	}
}

// snapshot copies the current observer list so dispatch tolerates
// subscribe/unsubscribe calls made reentrantly from within a callback.
func (h *Hot[T]) snapshot() []hotObserver[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hotObserver[T], len(h.observers))
	copy(out, h.observers)
	return out
}

// Next delivers v to every currently-registered observer, in insertion
// order.
func (h *Hot[T]) Next(v T) {
	for _, o := range h.snapshot() {
		if o.obs.Next != nil {
			o.obs.Next(v)
		}
	}
}

// Error delivers err to every currently-registered observer. Per spec
// §4.D, an error delivered to an ObservableOperation's subscribers is not
// fatal to the operation itself — Error here is a notification, not a
// Hot-wide terminal state; observers remain registered afterward.
func (h *Hot[T]) Error(err error) {
	for _, o := range h.snapshot() {
		if o.obs.Error != nil {
			o.obs.Error(err)
		}
	}
}

// Len reports the current observer count.
func (h *Hot[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}
