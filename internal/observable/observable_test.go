package observable_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	observable "github.com/hanpama/cachegraph/internal/observable"
)

// Pattern: Result comparison
func TestObservable_JustEmitsThenCompletes(t *testing.T) {
	var got []int
	completed := false

	observable.Just(42).Subscribe(observable.Observer[int]{
		Next:     func(v int) { got = append(got, v) },
		Complete: func() { completed = true },
	})

	if diff := cmp.Diff([]int{42}, got); diff != "" {
		t.Fatalf("emitted values mismatch (-want +got):\n%s", diff)
	}
	if !completed {
		t.Fatalf("expected Complete to be called")
	}
}

// Pattern: Result comparison
func TestObservable_NoNextAfterError(t *testing.T) {
	var next []int
	var gotErr error

	var deliverLate func(int)
	sub := observable.New(func(obs observable.Observer[int]) func() {
		deliverLate = obs.Next
		obs.Error(errors.New("boom"))
		return nil
	}).Subscribe(observable.Observer[int]{
		Next:  func(v int) { next = append(next, v) },
		Error: func(err error) { gotErr = err },
	})
	defer sub.Unsubscribe()

	deliverLate(1) // simulate a late upstream Next after Error fired

	if gotErr == nil || gotErr.Error() != "boom" {
		t.Fatalf("expected error 'boom', got %v", gotErr)
	}
	if len(next) != 0 {
		t.Fatalf("expected no Next delivery after Error, got %v", next)
	}
}

// Pattern: Result comparison
func TestObservable_UnsubscribeIsIdempotent(t *testing.T) {
	teardowns := 0
	sub := observable.New(func(obs observable.Observer[int]) func() {
		return func() { teardowns++ }
	}).Subscribe(observable.Observer[int]{})

	sub.Unsubscribe()
	sub.Unsubscribe()

	if teardowns != 1 {
		t.Fatalf("expected exactly one teardown call, got %d", teardowns)
	}
}

// Pattern: Result comparison
func TestHot_BroadcastsInInsertionOrder(t *testing.T) {
	h := observable.NewHot[string]()
	var order []string

	h.Subscribe(observable.Observer[string]{Next: func(v string) { order = append(order, "first:"+v) }})
	h.Subscribe(observable.Observer[string]{Next: func(v string) { order = append(order, "second:"+v) }})

	h.Next("x")

	want := []string{"first:x", "second:x"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("broadcast order mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestHot_UnsubscribeStopsDelivery(t *testing.T) {
	h := observable.NewHot[int]()
	var got []int
	sub := h.Subscribe(observable.Observer[int]{Next: func(v int) { got = append(got, v) }})

	h.Next(1)
	sub.Unsubscribe()
	h.Next(2)

	if diff := cmp.Diff([]int{1}, got); diff != "" {
		t.Fatalf("values after unsubscribe mismatch (-want +got):\n%s", diff)
	}
}
