package operation

import (
	"sync/atomic"
	"time"

	"github.com/hanpama/cachegraph/internal/observable"
)

// observerRecord is one subscriber's bookkeeping: the callbacks plus the
// latest state scheduled for delivery, compared at fire time to implement
// last-writer-wins collapse (spec §4.D "State update discipline", §9
// "Deferred delivery + state collapse").
type observerRecord struct {
	id     uint64
	obs    observable.Observer[OperationState]
	latest atomic.Pointer[OperationState]
}

// Subscribe registers obs, delivering the current state once (primed
// asynchronously) and then every subsequent transition, in insertion order
// relative to other observers (spec §4.D "Subscriber fan-out").
func (o *ObservableOperation) Subscribe(obs observable.Observer[OperationState]) observable.Subscription {
	o.mu.Lock()
	id := o.nextObserverID
	o.nextObserverID++
	rec := &observerRecord{id: id, obs: obs}
	o.observers = append(o.observers, rec)
	current := o.state
	o.mu.Unlock()

	o.scheduleDelivery(rec, current)

	return observable.NewSubscription(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, r := range o.observers {
			if r.id == id {
				o.observers = append(o.observers[:i:i], o.observers[i+1:]...)
				break
			}
		}
	})
}

// setState applies mutate to the current state under lock, then delivers
// the resulting state to every observer. mutate receives a pointer to the
// live state and is expected to set whatever fields this transition
// changes, leaving the rest untouched — this is the Go stand-in for the
// reference implementation's "merge a partial state" call.
func (o *ObservableOperation) setState(mutate func(*OperationState)) OperationState {
	o.mu.Lock()
	mutate(&o.state)
	next := o.state
	observers := append([]*observerRecord(nil), o.observers...)
	o.mu.Unlock()

	for _, rec := range observers {
		o.scheduleDelivery(rec, next)
	}
	return next
}

// scheduleDelivery defers obs's delivery of state to the next turn, firing
// only if no later state has been scheduled for the same observer in the
// meantime (last-writer-wins collapse, §9).
func (o *ObservableOperation) scheduleDelivery(rec *observerRecord, state OperationState) {
	scheduled := &state
	rec.latest.Store(scheduled)
	time.AfterFunc(0, func() {
		if rec.latest.Load() != scheduled {
			return
		}
		if rec.obs.Next != nil {
			rec.obs.Next(*scheduled)
		}
	})
}

// emitError delivers err to every observer, synchronously and immediately
// — unlike state delivery, error notification isn't collapsed or deferred;
// it does not mutate state and is not fatal to the operation (spec §4.D
// "On error").
func (o *ObservableOperation) emitError(err error) {
	o.mu.Lock()
	observers := append([]*observerRecord(nil), o.observers...)
	o.mu.Unlock()

	for _, rec := range observers {
		if rec.obs.Error != nil {
			rec.obs.Error(err)
		}
	}
}
