package form

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/skaginn3x/tfc-console/internal/keypath"
	"github.com/skaginn3x/tfc-console/internal/schema"
	"github.com/skaginn3x/tfc-console/internal/store"
	"github.com/skaginn3x/tfc-console/internal/unit"
)

// MonostateTitle is the conventional title of the "no value" variant
// branch emitted by the processes.
const MonostateTitle = "std::monostate"

// A widget is a pure view over (path, schema node, store value): it
// reads one path, reports its render state, and builds update actions.
// Widgets never touch the transport; actions flow back through the
// form.

// BoolField edits a boolean leaf.
type BoolField struct {
	Path keypath.Path
	Node *schema.Node
}

// Value reads the current boolean, defaulting to false.
func (f *BoolField) Value(s *store.Store) bool {
	v, _ := s.Value(f.Path)
	b, _ := v.(bool)
	return b
}

// Fixed reports whether the field is a const boolean; const fields
// render nothing, their value is pushed at mount.
func (f *BoolField) Fixed() bool { return f.Node.HasConst }

// Set builds the update action for a toggle.
func (f *BoolField) Set(v bool) store.Action {
	return store.Action{Path: f.Path, Kind: store.Set, Value: v}
}

// TextField edits a string leaf with length and pattern validation.
type TextField struct {
	Path keypath.Path
	Node *schema.Node
}

// Value reads the current string.
func (f *TextField) Value(s *store.Store) string {
	if f.Node.HasConst {
		c, _ := f.Node.Const.(string)
		return c
	}
	v, _ := s.Value(f.Path)
	str, _ := v.(string)
	return str
}

// ReadOnly reports whether editing is disabled.
func (f *TextField) ReadOnly() bool { return f.Node.HasConst || f.Node.ReadOnly }

// Validate checks a candidate string against the node's constraints.
func (f *TextField) Validate(v string) (bool, string) {
	n := f.Node
	if n.MinLength != nil && len(v) < *n.MinLength {
		return false, fmt.Sprintf("Minimum length: %d", *n.MinLength)
	}
	if n.MaxLength != nil && len(v) > *n.MaxLength {
		return false, fmt.Sprintf("Maximum length: %d", *n.MaxLength)
	}
	if n.Pattern != "" && !patternFor(n.Pattern).MatchString(v) {
		return false, "Invalid input"
	}
	return true, ""
}

// Input builds the update action for a keystroke, carrying both the
// new value and its validity.
func (f *TextField) Input(v string) store.Action {
	valid, _ := f.Validate(v)
	return store.ValidAction(f.Path, v, valid)
}

// patternFor compiles a schema pattern. A pattern that is not a valid
// regular expression is escaped and matched literally.
func patternFor(p string) *regexp.Regexp {
	re, err := regexp.Compile(p)
	if err != nil {
		return regexp.MustCompile(regexp.QuoteMeta(p))
	}
	return re
}

// UnitField edits a numeric leaf with unit conversion. The persisted
// value is always in the schema's base unit; DisplayUnit only affects
// presentation.
type UnitField struct {
	Path keypath.Path
	Node *schema.Node

	DisplayUnit string
}

// NewUnitField builds a unit field starting at the schema's declared
// base unit.
func NewUnitField(p keypath.Path, n *schema.Node) *UnitField {
	f := &UnitField{Path: p, Node: n}
	if n.Meta != nil {
		f.DisplayUnit = n.Meta.Unit
	}
	return f
}

func (f *UnitField) baseUnit() string {
	if f.Node.Meta != nil {
		return f.Node.Meta.Unit
	}
	return ""
}

func (f *UnitField) dimension() unit.Dimension {
	if f.Node.Meta != nil {
		return f.Node.Meta.Dimension
	}
	return ""
}

// Units lists the selectable display units, or nil when the field has
// no known dimension.
func (f *UnitField) Units() []string {
	return unit.Symbols(f.dimension())
}

// BaseValue reads the persisted base-unit value.
func (f *UnitField) BaseValue(s *store.Store) (float64, bool) {
	v, ok := s.Value(f.Path)
	if !ok || v == nil {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// DisplayValue re-expresses the base value in the current display
// unit.
func (f *UnitField) DisplayValue(s *store.Store) (float64, bool) {
	base, ok := f.BaseValue(s)
	if !ok {
		return 0, false
	}
	if f.DisplayUnit == "" || f.DisplayUnit == f.baseUnit() {
		return base, true
	}
	out, err := unit.Convert(base, f.baseUnit(), f.DisplayUnit, f.dimension())
	if err != nil {
		return base, true
	}
	return out, true
}

// SetUnit switches the display unit. The persisted base value is not
// touched.
func (f *UnitField) SetUnit(u string) error {
	if u == f.DisplayUnit {
		return nil
	}
	for _, sym := range f.Units() {
		if sym == u {
			f.DisplayUnit = u
			return nil
		}
	}
	return fmt.Errorf("unit %q is not a %s unit", u, f.dimension())
}

// Input parses text entered while DisplayUnit is selected and builds
// the update action storing the base-unit value. Empty input stores an
// explicit null.
func (f *UnitField) Input(text string) (store.Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		valid := f.Node.Meta == nil || !f.Node.Meta.Required
		return store.ValidAction(f.Path, nil, valid), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return store.Action{}, fmt.Errorf("invalid number %q", text)
	}
	base := v
	if f.DisplayUnit != "" && f.DisplayUnit != f.baseUnit() {
		base, err = unit.Convert(v, f.DisplayUnit, f.baseUnit(), f.dimension())
		if err != nil {
			return store.Action{}, err
		}
	}
	valid, _ := f.Validate(base, true)
	return store.ValidAction(f.Path, base, valid), nil
}

// Validate checks a base-unit value. present=false means the field is
// empty. Checks run in priority order: required, integer-ness, then
// range; the message of the first failure wins.
func (f *UnitField) Validate(base float64, present bool) (bool, string) {
	n := f.Node
	required := n.Meta != nil && n.Meta.Required
	if !present {
		if required {
			return false, "Required"
		}
		return true, ""
	}
	if n.HasType("integer") && base != math.Trunc(base) {
		return false, "Must be an integer"
	}
	if n.Minimum != nil && base < *n.Minimum {
		return false, fmt.Sprintf("Minimum value: %s%s", formatNumber(*n.Minimum), f.baseUnit())
	}
	if n.Maximum != nil && base > *n.Maximum {
		return false, fmt.Sprintf("Maximum value: %s%s", formatNumber(*n.Maximum), f.baseUnit())
	}
	return true, ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// VariantField edits a tagged-union (oneOf) node through a
// single-select of branch titles.
type VariantField struct {
	Path keypath.Path
	Node *schema.Node
}

// Titles lists the selectable branch titles in oneOf order.
func (f *VariantField) Titles() []string {
	out := make([]string, 0, len(f.Node.OneOf))
	for _, b := range f.Node.OneOf {
		out = append(out, b.Title)
	}
	return out
}

// SelectedTitle resolves which branch the current store value matches:
// const equality first, then key-subset of a branch's properties, in
// oneOf order. A null value matches the branch declaring type null
// (conventionally titled std::monostate).
func (f *VariantField) SelectedTitle(s *store.Store) (string, bool) {
	v, ok := s.Value(f.Path)
	if !ok {
		return "", false
	}
	if v == nil {
		for _, b := range f.Node.OneOf {
			if b.HasType("null") || b.Title == MonostateTitle {
				return b.Title, true
			}
		}
		return "", false
	}
	for _, b := range f.Node.OneOf {
		if b.HasConst && reflect.DeepEqual(v, b.Const) {
			return b.Title, true
		}
	}
	if m, ok := v.(map[string]any); ok && len(m) > 0 {
		for _, b := range f.Node.OneOf {
			if len(b.Properties) == 0 {
				continue
			}
			if keysSubset(m, b) {
				return b.Title, true
			}
		}
	}
	return "", false
}

func keysSubset(m map[string]any, b *schema.Node) bool {
	for k := range m {
		if b.Property(k) == nil {
			return false
		}
	}
	return true
}

// Branch returns the schema of the titled branch, or nil when the
// branch is a const or null leaf with no nested subtree to render.
func (f *VariantField) Branch(title string) *schema.Node {
	b := f.branch(title)
	if b == nil || b.HasConst || b.HasType("null") {
		return nil
	}
	return b
}

func (f *VariantField) branch(title string) *schema.Node {
	for _, b := range f.Node.OneOf {
		if b.Title == title {
			return b
		}
	}
	return nil
}

// Select builds the update action for choosing a branch: null-typed
// branches store an explicit null, const branches store their constant,
// anything else resets to an empty object so the nested widgets
// populate fresh fields.
func (f *VariantField) Select(title string) (store.Action, bool) {
	b := f.branch(title)
	if b == nil {
		return store.Action{}, false
	}
	switch {
	case b.HasType("null"):
		return store.Action{Path: f.Path, Kind: store.Set, Value: nil}, true
	case b.HasConst:
		return store.Action{Path: f.Path, Kind: store.Set, Value: b.Const}, true
	default:
		return store.Action{Path: f.Path, Kind: store.Set, Value: map[string]any{}}, true
	}
}

// ListField edits a homogeneous sequence through per-element subtrees
// sharing the items schema.
type ListField struct {
	Path keypath.Path
	Node *schema.Node
}

// Len returns the current element count.
func (f *ListField) Len(s *store.Store) int {
	v, _ := s.Value(f.Path)
	seq, _ := v.([]any)
	return len(seq)
}

// ItemSchema is the shared element schema.
func (f *ListField) ItemSchema() *schema.Node { return f.Node.Items }

// ItemPath addresses one element's subtree.
func (f *ListField) ItemPath(i int) keypath.Path {
	return f.Path.Append(keypath.Index(i))
}

// CanAdd reports whether another element fits under maxItems.
func (f *ListField) CanAdd(s *store.Store) bool {
	return f.Node.MaxItems == nil || f.Len(s) < *f.Node.MaxItems
}

// CanDelete reports whether removal keeps the sequence at or above
// minItems.
func (f *ListField) CanDelete(s *store.Store) bool {
	if f.Node.MinItems == nil {
		return f.Len(s) > 0
	}
	return f.Len(s) > *f.Node.MinItems
}

// Add builds the append action, refusing past maxItems.
func (f *ListField) Add(s *store.Store) (store.Action, bool) {
	if !f.CanAdd(s) {
		return store.Action{}, false
	}
	return store.Action{Path: f.Path, Kind: store.ListItemAdd}, true
}

// Remove builds the delete action for one element, refusing below
// minItems.
func (f *ListField) Remove(s *store.Store, index int) (store.Action, bool) {
	if !f.CanDelete(s) || index < 0 || index >= f.Len(s) {
		return store.Action{}, false
	}
	return store.Action{Path: f.Path, Kind: store.ListItemDelete, Index: index}, true
}

// SelectField edits an enum leaf.
type SelectField struct {
	Path keypath.Path
	Node *schema.Node
}

// Options lists the enum members.
func (f *SelectField) Options() []any { return f.Node.Enum }

// Value reads the current selection.
func (f *SelectField) Value(s *store.Store) (any, bool) {
	return s.Value(f.Path)
}

// Set builds the update action for choosing an option; values outside
// the enum are marked invalid.
func (f *SelectField) Set(v any) store.Action {
	valid := false
	for _, opt := range f.Node.Enum {
		if reflect.DeepEqual(opt, v) {
			valid = true
			break
		}
	}
	return store.ValidAction(f.Path, v, valid)
}
