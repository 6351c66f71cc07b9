package graph

import "sync"

// EntityID names an entity node. Opaque to the store; assigned by the host
// getDataID hook, derived from a parent path, or supplied by the caller for
// a write's root.
type EntityID string

// DefaultRootID is the conventional root entity ID for query operations.
const DefaultRootID EntityID = "query"

// Node is a single entity: two storage-key-keyed maps, scalars and
// references, with no type tag (identity is opaque, per spec §3).
type Node struct {
	// Scalars maps storage key to a JSON scalar or array of scalars.
	Scalars map[string]any
	// References maps storage key to an EntityID, a []any of EntityID/nil
	// (nested lists nest further, list items that read as null hold nil),
	// or nil.
	References map[string]any
}

func newNode() *Node {
	return &Node{Scalars: map[string]any{}, References: map[string]any{}}
}

func (n *Node) clone() *Node {
	s := make(map[string]any, len(n.Scalars))
	for k, v := range n.Scalars {
		s[k] = v
	}
	r := make(map[string]any, len(n.References))
	for k, v := range n.References {
		r[k] = v
	}
	return &Node{Scalars: s, References: r}
}

// GetDataIDFunc derives an entity ID from a plain JSON-shaped object, the
// host identity hook of spec §3/§6. Returning "" falls back to path
// derivation.
type GetDataIDFunc func(obj map[string]any) string

// Store is a single logical graph instance. Per spec §5 its operations are
// synchronous atoms; the mutex below guards only against misuse by a caller
// driving one Store from multiple goroutines, not against any requirement
// of the spec itself (single-threaded cooperative scheduling is assumed).
type Store struct {
	mu        sync.Mutex
	snapshot  map[EntityID]*Node
	getDataID GetDataIDFunc

	watchers    map[EntityID][]*watcher
	nextWatchID uint64

	identity identityTable
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithDataIDFunc installs the host identity hook consulted on every write.
func WithDataIDFunc(f GetDataIDFunc) Option {
	return func(s *Store) { s.getDataID = f }
}

// New creates an empty Store (the initial snapshot is the empty mapping,
// per spec §3).
func New(opts ...Option) *Store {
	s := &Store{
		snapshot: map[EntityID]*Node{},
		watchers: map[EntityID][]*watcher{},
		identity: newIdentityTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) deriveEntityID(obj map[string]any, parentID EntityID, storageKey string) EntityID {
	if s.getDataID != nil {
		if id := s.getDataID(obj); id != "" {
			return EntityID(id)
		}
	}
	return EntityID(string(parentID) + "." + storageKey)
}
