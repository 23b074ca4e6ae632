// Package store implements the multi-database storage engine: a typed
// value union (string/list/set/hash), per-key expirations, a quantized
// expiration sweeper, change counters, and the fixed 16-database set
// guarded by a single reader/writer lock.
package store

import mapset "github.com/deckarep/golang-set/v2"

// Kind identifies which stored-value shape a Value holds. It is
// disjoint from the RESP wire type: a Kind never reaches the wire
// directly, only through the command handlers that render it.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
)

// String renders the kind the way TYPE reports it on the wire.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	default:
		return "none"
	}
}

// Value is the disjoint stored-value union. Exactly one of the typed
// fields is meaningful, selected by Kind; the others are left zero.
// Strings hold arbitrary bytes, never text — binary safety is load
// bearing for GETRANGE/SETRANGE/APPEND round-trips.
type Value struct {
	Kind Kind

	Str  []byte
	List *List
	Set  mapset.Set[string]
	Hash map[string][]byte
}

func newStringValue(b []byte) Value { return Value{Kind: KindString, Str: b} }
func newListValue(l *List) Value    { return Value{Kind: KindList, List: l} }
func newSetValue(s mapset.Set[string]) Value {
	if s == nil {
		s = mapset.NewThreadUnsafeSet[string]()
	}
	return Value{Kind: KindSet, Set: s}
}
func newHashValue(h map[string][]byte) Value {
	if h == nil {
		h = make(map[string][]byte)
	}
	return Value{Kind: KindHash, Hash: h}
}

// NewStringValue, NewListValueFromSlice, NewSetValueFromSlice, and
// NewHashValueFromMap are the exported constructors the snapshot
// package uses to rebuild Values from a loaded dump file.
func NewStringValue(b []byte) Value { return newStringValue(b) }

func NewListValueFromSlice(items [][]byte) Value {
	return newListValue(&List{items: items})
}

func NewSetValueFromSlice(members []string) Value {
	s := mapset.NewThreadUnsafeSet[string](members...)
	return newSetValue(s)
}

func NewHashValueFromMap(h map[string][]byte) Value { return newHashValue(h) }
