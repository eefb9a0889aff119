// Package ipc models the signal and slot records published by the
// ipc_ruler service: typed named endpoints, the connection map between
// them, and the filtering rules for pairing a signal with compatible
// slots.
package ipc

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Type is the value type a signal or slot carries. Tags follow the
// ruler's own naming.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeBool    Type = "bool"
	TypeInt     Type = "int64_t"
	TypeUint    Type = "uint64_t"
	TypeDouble  Type = "double"
	TypeString  Type = "string"
	TypeJSON    Type = "json"
)

// Types lists every known type tag in declaration order.
func Types() []Type {
	return []Type{TypeUnknown, TypeBool, TypeInt, TypeUint, TypeDouble, TypeString, TypeJSON}
}

// Byte is the numeric wire encoding of the type, its index in the tag
// list. Method calls carry the byte, JSON documents carry the tag.
func (t Type) Byte() byte {
	for i, known := range Types() {
		if t == known {
			return byte(i)
		}
	}
	return 0
}

// ParseType validates a wire tag.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return TypeUnknown, fmt.Errorf("unknown ipc type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known type tag.
func (t Type) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Millis is an epoch-millisecond timestamp, the ruler's wire format
// for every time field.
type Millis int64

// Time converts to a wall-clock time.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// MillisOf converts a wall-clock time to the wire format.
func MillisOf(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Signal is one named producer endpoint.
type Signal struct {
	Name           string `json:"name"`
	Type           Type   `json:"type"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      Millis `json:"created_at"`
	LastRegistered Millis `json:"last_registered"`
	Description    string `json:"description"`
}

// Slot is one named consumer endpoint. ConnectedTo is the name of the
// signal currently feeding it, or empty.
type Slot struct {
	Name           string `json:"name"`
	Type           Type   `json:"type"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      Millis `json:"created_at"`
	LastRegistered Millis `json:"last_registered"`
	LastModified   Millis `json:"last_modified"`
	ModifiedBy     string `json:"modified_by"`
	ConnectedTo    string `json:"connected_to"`
	Description    string `json:"description"`
}

// Connected reports whether the slot is fed by any signal.
func (s Slot) Connected() bool { return s.ConnectedTo != "" }

// Connections builds the signal-to-slots map from the slots' own
// connection fields. Slot lists come out name-sorted.
func Connections(slots []Slot) map[string][]string {
	out := map[string][]string{}
	for _, s := range slots {
		if s.ConnectedTo == "" {
			continue
		}
		out[s.ConnectedTo] = append(out[s.ConnectedTo], s.Name)
	}
	for _, names := range out {
		SortNames(names)
	}
	return out
}

// SlotsOf returns the slots fed by the named signal, name-sorted.
func SlotsOf(signal string, slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.ConnectedTo == signal {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return NaturalLess(out[i].Name, out[j].Name) })
	return out
}

// CandidateSlots returns the slots eligible to be connected to sig: the
// type must match and the slot must not already be fed by this very
// signal. Slots fed by a different signal remain eligible, connecting
// them reassigns the slot.
func CandidateSlots(sig Signal, slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.Type != sig.Type {
			continue
		}
		if s.ConnectedTo == sig.Name {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return NaturalLess(out[i].Name, out[j].Name) })
	return out
}

// SortSignals orders signals by name, digit runs compared numerically.
func SortSignals(signals []Signal) {
	sort.Slice(signals, func(i, j int) bool { return NaturalLess(signals[i].Name, signals[j].Name) })
}

// SortSlots orders slots by name, digit runs compared numerically.
func SortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return NaturalLess(slots[i].Name, slots[j].Name) })
}

// SortNames orders names in place, digit runs compared numerically.
func SortNames(names []string) {
	sort.Slice(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })
}

// NaturalLess compares two names segment by segment, treating runs of
// digits as numbers so that item2 sorts before item10.
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			ar, arest := digitRun(a)
			br, brest := digitRun(b)
			if c := compareRuns(ar, br); c != 0 {
				return c < 0
			}
			a, b = arest, brest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareRuns orders two digit runs numerically without parsing them,
// so runs of any length compare exactly.
func compareRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// orgPrefix is the namespace every managed endpoint and service name
// starts with.
const orgPrefix = "com.skaginn3x."

// TrimOrg strips the organization prefix for display.
func TrimOrg(name string) string {
	return strings.TrimPrefix(name, orgPrefix)
}

// Process extracts the owning process from an endpoint name, the first
// segment after the organization prefix.
func Process(name string) string {
	rest := TrimOrg(name)
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// Processes lists the distinct owning processes of the given slots and
// signals, name-sorted.
func Processes(signals []Signal, slots []Slot) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		p := Process(name)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, s := range signals {
		add(s.Name)
	}
	for _, s := range slots {
		add(s.Name)
	}
	SortNames(out)
	return out
}
