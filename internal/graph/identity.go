package graph

import (
	"reflect"
	"sync"
)

// identityTable is the parallel side-table that stands in for a hidden
// property on the returned object tree (spec §4.B, §9 Design Notes): Go's
// map[string]any can't carry an extra field the way a JS object literal
// can, so every nested object built by Write/Read is registered here,
// keyed by its own pointer identity, against the EntityID it was built
// from. Read's stale-detection looks a caller-supplied previousData
// sub-object up in this table to recover the entity ID it was read from
// without ever touching the shape of Data itself.
type identityTable struct {
	mu  sync.Mutex
	ids map[uintptr]EntityID
}

func newIdentityTable() identityTable {
	return identityTable{ids: map[uintptr]EntityID{}}
}

// register records that obj was built from id. No-op for nil maps.
func (t *identityTable) register(obj map[string]any, id EntityID) {
	if obj == nil {
		return
	}
	ptr := reflect.ValueOf(obj).Pointer()
	t.mu.Lock()
	t.ids[ptr] = id
	t.mu.Unlock()
}

// identityOf recovers the entity ID obj was built from, if any.
func (t *identityTable) identityOf(obj map[string]any) (EntityID, bool) {
	if obj == nil {
		return "", false
	}
	ptr := reflect.ValueOf(obj).Pointer()
	t.mu.Lock()
	id, ok := t.ids[ptr]
	t.mu.Unlock()
	return id, ok
}
