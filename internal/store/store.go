// Package store holds the state behind an open configuration form: the
// current value tree, a parallel per-field validity tree, and internal
// bookkeeping, all addressed by the same key paths as the schema.
//
// A Store is immutable. Every reduction returns a new store sharing
// untouched subtrees with its predecessor; the event loop serializes
// reductions, so last write wins per path.
package store

import "github.com/skaginn3x/tfc-console/internal/keypath"

// SentinelNullKey is the wrapper the legacy web console used where its
// value store could not hold a bare null. This store holds real nulls;
// the sentinel is unwrapped on document load and never emitted.
const SentinelNullKey = "internal_null_value_do_not_use"

// Kind discriminates update actions.
type Kind int

const (
	// Set replaces the value at the action path.
	Set Kind = iota
	// ListItemAdd appends an empty object to the sequence at the path.
	ListItemAdd
	// ListItemDelete removes the element at Index from the sequence at
	// the path.
	ListItemDelete
)

// Action is one discrete update flowing from a widget into the store.
type Action struct {
	Path  keypath.Path
	Kind  Kind
	Value any
	// Valid, when non-nil, also records the field's validity at the
	// path. Nil leaves the validity tree untouched.
	Valid *bool
	Index int
}

// ValidAction builds a Set action carrying both value and validity.
func ValidAction(p keypath.Path, value any, valid bool) Action {
	return Action{Path: p, Kind: Set, Value: value, Valid: &valid}
}

// Store is an immutable snapshot of form state.
type Store struct {
	values   any
	validity any
	internal any
}

// New seeds a store from an initial value document. Wire sentinels are
// unwrapped to real nulls.
func New(initial any) *Store {
	return &Store{values: UnwrapSentinels(initial)}
}

// Values returns the current value tree. Callers must not mutate it.
func (s *Store) Values() any { return s.values }

// ValidityTree returns the current validity tree. Callers must not
// mutate it.
func (s *Store) ValidityTree() any { return s.validity }

// Value resolves the value at a path.
func (s *Store) Value(p keypath.Path) (any, bool) {
	return keypath.Get(s.values, p)
}

// Validity returns the validity flag at a path. The second return is
// false when no flag has been recorded there.
func (s *Store) Validity(p keypath.Path) (valid, recorded bool) {
	v, ok := keypath.Get(s.validity, p)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Reduce applies an action and returns the resulting store. Reductions
// are pure and total for well-formed actions: list deletions with an
// out-of-range index and additions to non-sequences leave the
// respective tree unchanged rather than failing. Item-count policy
// (minItems/maxItems) is the calling widget's responsibility.
func (s *Store) Reduce(a Action) *Store {
	next := &Store{values: s.values, validity: s.validity, internal: s.internal}
	switch a.Kind {
	case Set:
		next.values = keypath.Set(s.values, a.Path, a.Value)
		if a.Valid != nil {
			next.validity = keypath.Set(s.validity, a.Path, *a.Valid)
		}
	case ListItemAdd:
		next.values = keypath.AppendItem(s.values, a.Path, map[string]any{})
	case ListItemDelete:
		next.values = keypath.RemoveItem(s.values, a.Path, a.Index)
		next.validity = keypath.RemoveItem(s.validity, a.Path, a.Index)
	}
	return next
}

// UnwrapSentinels rewrites a loaded document, replacing every sentinel
// wrapper object with a real null and dropping nil sequence elements,
// matching the legacy serializer's behavior.
func UnwrapSentinels(doc any) any {
	switch t := doc.(type) {
	case map[string]any:
		if len(t) == 1 {
			if v, ok := t[SentinelNullKey]; ok && v == nil {
				return nil
			}
		}
		out := make(map[string]any, len(t))
		for k, v := range t {
			if k == SentinelNullKey && v == nil {
				return nil
			}
			out[k] = UnwrapSentinels(v)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, v := range t {
			if v == nil {
				continue
			}
			out = append(out, UnwrapSentinels(v))
		}
		return out
	default:
		return doc
	}
}
