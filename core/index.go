package core

// keyIndex is the in-memory hash mapping from key to the byte range of its
// latest Set record. Mutation is always routed through insert/remove so
// the engine can compute reclaimable-byte deltas with a single call — the
// "previous length or zero" contract described in the spec.
type keyIndex struct {
	m map[string]Location
}

func newKeyIndex() *keyIndex {
	return &keyIndex{m: make(map[string]Location)}
}

func (idx *keyIndex) get(key string) (Location, bool) {
	loc, ok := idx.m[key]
	return loc, ok
}

func (idx *keyIndex) contains(key string) bool {
	_, ok := idx.m[key]
	return ok
}

// insert overwrites (or creates) key's location and returns the length of
// the record it superseded, or zero if key was absent.
func (idx *keyIndex) insert(key string, loc Location) int64 {
	prev, ok := idx.m[key]
	idx.m[key] = loc
	if !ok {
		return 0
	}
	return prev.Length
}

// remove erases key's entry and returns the length of the record it
// pointed to, or zero if key was absent. Removing an absent key is a
// legitimate internal no-op; callers that must distinguish "key never
// existed" from "key removed" check contains() first (as KvStore.Remove
// does for the public contract).
func (idx *keyIndex) remove(key string) int64 {
	prev, ok := idx.m[key]
	if !ok {
		return 0
	}
	delete(idx.m, key)
	return prev.Length
}

func (idx *keyIndex) len() int { return len(idx.m) }

// all returns a snapshot of every (key, location) pair currently indexed.
// Compaction walks this snapshot while rebuilding a fresh index and must
// not observe insertions or removals made by concurrent Set/Remove calls —
// a non-issue here since the engine serializes every mutating call.
func (idx *keyIndex) all() map[string]Location {
	out := make(map[string]Location, len(idx.m))
	for k, v := range idx.m {
		out[k] = v
	}
	return out
}
