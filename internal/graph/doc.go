// Package graph implements the normalized, content-addressed field store
// at the core of the cache: write a resolved selection into entity nodes,
// read a selection back out of the current snapshot, and watch a selection
// for change. There is no schema here, and no resolution — the executor
// that produced a selection's data lives outside this package entirely;
// graph only ever walks a selection set in lockstep with an already-shaped
// data tree.
//
// # Data model
//
// A Store holds a snapshot: an EntityID-keyed map of Node. A Node splits
// its storage-key-keyed fields into Scalars (plain JSON values) and
// References (EntityID, or a nested []any of EntityID/nil for lists, or
// nil). Nothing in a Node records a type name; identity is opaque, and two
// selections that resolve to the same EntityID alias the same node
// regardless of what GraphQL type either selection's author had in mind.
//
// # Write
//
// Write walks the selection set against a resolved data object, deriving
// each nested object's EntityID in order: the host-supplied GetDataIDFunc
// first, falling back to "parentID.storageKey" when it returns "". Scalar
// fields land in Scalars; fields with a sub-selection land in References,
// recursing into their own writeObject call first. Every entity node
// touched by a write is copy-on-write cloned (or created fresh) into a
// per-write dirty set, applied to the store's snapshot atomically once the
// whole walk succeeds — a write that fails partway (WriteShapeError) never
// mutates the snapshot at all. WriteResult.Data carries the write-back
// projection: a read of exactly what was written, against the post-write
// snapshot — so passing it as a watch's initialData lets that watch's
// first emission collapse to the identical object (Read's reference-
// equality short-circuit, below).
//
// # Read
//
// Read walks the same selection shape against the current snapshot,
// raising PartialReadError the moment a named field or entity isn't
// present. Its one piece of extra machinery is stale-detection: callers
// may pass PreviousData, an earlier read's Data tree. At every reference
// field, if PreviousData's corresponding sub-object was read from an
// entity ID that no longer matches what the reference currently names, the
// read does not attempt to refresh that subtree at all — it is returned
// verbatim from PreviousData, including fields the new entity never
// reported, and the result's Stale flag is set. Siblings outside a
// diverged subtree are always read fresh. This is deliberately all-or-
// nothing per diverged subtree: a changed identity is not a partial
// update, it is evidence the old subtree's shape may no longer apply to
// the new entity at all.
//
// Since a plain map[string]any can't carry a hidden property recording
// which entity it was read from (unlike the JS object this design
// generalizes from), that bookkeeping lives in a parallel pointer-keyed
// side-table (identity.go) populated as Read and Write build each nested
// object, and consulted by Read against the caller's PreviousData.
//
// Whenever a subtree turns out fresh (not stale) and deep-equal to
// PreviousData's corresponding subtree, and that subtree is an object Read
// or Write built from the same entity, Read returns that PreviousData
// object itself rather than the newly built one (a map the caller built
// is never reused this way), so a caller that feeds a
// prior Data tree back in as PreviousData (most notably a Watch's
// initialData) can detect "nothing changed" by simple pointer comparison.
//
// # Watch
//
// Watch returns a cold Observable that, per subscription, performs one
// read immediately against WatchInput.InitialData as that read's
// previousData (so an unchanged fresh read collapses to InitialData
// itself when InitialData is a tree Read or Write built, letting a caller
// detect "nothing new" by pointer comparison),
// emitting it only on success — a PartialReadError is silence, not a
// notification — and records the (entity ID, storage key)
// pairs that read visited as its read-plan. Every subsequent Write
// produces a change journal — the (entity, storage key) pairs whose stored
// value actually changed, compared by deep equality for scalars and by
// identity (plus list length/shape) for references — and any watcher whose
// read-plan intersects that journal is re-read and, on success, re-emitted
// with its previous Data fed back in as PreviousData so stale-propagation
// continues across emissions. A watcher's read-plan is recomputed on every
// re-read, since a reference changing identity changes which entities are
// actually being watched.
//
// # Concurrency
//
// Store serializes Write/Read/Watch-subscribe against its own mutex, but
// releases it before invoking any subscriber callback — an observer is
// permitted to call back into the same Store (another Write, a nested
// Read) from inside its Next callback, and that must not deadlock against
// a lock the outer call still held.
package graph
