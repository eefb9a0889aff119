// Package keypath addresses locations inside nested JSON-like value
// trees. A path is an ordered list of segments, each either a field
// name or a list index; the same path addresses the matching node in a
// schema tree and in its parallel value tree.
//
// All write operations are copy-on-write: containers along the path
// are copied, untouched siblings are shared with the input tree, and
// the input tree is never mutated.
package keypath

import (
	"strconv"
	"strings"
)

// Segment is one step of a path: a field name into a mapping, or an
// index into a sequence.
type Segment struct {
	Key   string
	Index int
	List  bool
}

// Field returns a segment addressing a named field.
func Field(name string) Segment {
	return Segment{Key: name}
}

// Index returns a segment addressing a sequence element.
func Index(i int) Segment {
	return Segment{Index: i, List: true}
}

func (s Segment) String() string {
	if s.List {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path addresses a node in a nested tree.
type Path []Segment

// Parse builds a path from a dotted string. Segments that parse as
// non-negative integers become list indices.
func Parse(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if i, err := strconv.Atoi(part); err == nil && i >= 0 {
			p = append(p, Index(i))
			continue
		}
		p = append(p, Field(part))
	}
	return p
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Append returns a new path with the given segments added. The
// receiver is not modified.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	out = append(out, segs...)
	return out
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Get resolves the value at path p inside tree. The second return is
// false when any step of the path is absent. Get never panics and
// never modifies the tree.
func Get(tree any, p Path) (any, bool) {
	cur := tree
	for _, seg := range p {
		if seg.List {
			s, ok := cur.([]any)
			if !ok || seg.Index < 0 || seg.Index >= len(s) {
				return nil, false
			}
			cur = s[seg.Index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg.Key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set returns a new tree with v placed at path p. Absent intermediate
// nodes are materialized as a sequence when the next segment is an
// index, else as a mapping. A node of the wrong container kind along
// the path is replaced. Index sets past the end of a sequence extend
// it with nils.
func Set(tree any, p Path, v any) any {
	if len(p) == 0 {
		return v
	}
	seg := p[0]
	if seg.List {
		src, _ := tree.([]any)
		size := len(src)
		if seg.Index >= size {
			size = seg.Index + 1
		}
		out := make([]any, size)
		copy(out, src)
		var child any
		if seg.Index < len(src) {
			child = src[seg.Index]
		}
		out[seg.Index] = Set(child, p[1:], v)
		return out
	}
	src, _ := tree.(map[string]any)
	out := make(map[string]any, len(src)+1)
	for k, val := range src {
		out[k] = val
	}
	out[seg.Key] = Set(src[seg.Key], p[1:], v)
	return out
}

// AppendItem returns a new tree with v appended to the sequence at
// path p, materializing the sequence if absent.
func AppendItem(tree any, p Path, v any) any {
	cur, _ := Get(tree, p)
	src, _ := cur.([]any)
	out := make([]any, len(src), len(src)+1)
	copy(out, src)
	out = append(out, v)
	return Set(tree, p, out)
}

// RemoveItem returns a new tree with the element at index removed from
// the sequence at path p. Out-of-range indices leave the tree
// unchanged.
func RemoveItem(tree any, p Path, index int) any {
	cur, ok := Get(tree, p)
	if !ok {
		return tree
	}
	src, ok := cur.([]any)
	if !ok || index < 0 || index >= len(src) {
		return tree
	}
	out := make([]any, 0, len(src)-1)
	out = append(out, src[:index]...)
	out = append(out, src[index+1:]...)
	return Set(tree, p, out)
}
