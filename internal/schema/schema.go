// Package schema parses the JSON-Schema-like documents the controlled
// processes expose over D-Bus and decorates them with widget tags for
// rendering. A schema is parsed once per form and immutable afterward.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/skaginn3x/tfc-console/internal/unit"
)

// Widget is the resolved rendering strategy for a schema node.
type Widget int

const (
	WidgetNone Widget = iota
	WidgetBoolean
	WidgetText
	WidgetUnitNumeric
	WidgetSelect
	WidgetVariant
	WidgetList
	WidgetObject
)

var widgetNames = map[Widget]string{
	WidgetNone:        "",
	WidgetBoolean:     "boolean",
	WidgetText:        "text",
	WidgetUnitNumeric: "unit-numeric",
	WidgetSelect:      "select",
	WidgetVariant:     "variant",
	WidgetList:        "list",
	WidgetObject:      "object",
}

func (w Widget) String() string { return widgetNames[w] }

// widgetByName resolves a pre-tag name from a schema document.
func widgetByName(name string) (Widget, bool) {
	for w, n := range widgetNames {
		if n == name && w != WidgetNone {
			return w, true
		}
	}
	return WidgetNone, false
}

// MarshalJSON emits the widget tag as its string name.
func (w Widget) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// Meta is the x-tfc vendor extension block attached to numeric fields.
type Meta struct {
	Unit      string
	Dimension unit.Dimension
	Ratio     *unit.Ratio
	Required  bool
}

// Property is a named child of an object schema. Order follows the
// document, which is also the rendering order.
type Property struct {
	Name string
	Node *Node
}

// Node is one type definition in a schema document.
type Node struct {
	Types       []string
	Enum        []any
	OneOf       []*Node
	Const       any
	HasConst    bool
	Title       string
	Description string
	ReadOnly    bool
	Default     any

	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
	Pattern   string
	MinItems  *int
	MaxItems  *int
	Required  []string

	Properties []Property
	Items      *Node
	Meta       *Meta

	Widget      Widget
	NotSortable bool

	// badWidget holds an unrecognized pre-tag name for the annotator
	// to diagnose.
	badWidget string
}

// HasType reports whether t appears in the node's declared type list.
func (n *Node) HasType(t string) bool {
	for _, have := range n.Types {
		if have == t {
			return true
		}
	}
	return false
}

// Type returns the single declared type, or "" when the node declares
// none or several.
func (n *Node) Type() string {
	if len(n.Types) == 1 {
		return n.Types[0]
	}
	return ""
}

// Property returns the child node for a named property, or nil.
func (n *Node) Property(name string) *Node {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node
		}
	}
	return nil
}

// Sanitize strips escaped-quote artifacts that occasionally leak into
// the JSON strings delivered over the bus.
func Sanitize(raw []byte) []byte {
	return bytes.ReplaceAll(raw, []byte(`\"`), []byte(`"`))
}

// Parse decodes a raw schema document. If the document does not parse
// as-is it is sanitized and retried once.
func Parse(raw []byte) (*Node, error) {
	doc, err := decodeOrdered(raw)
	if err != nil {
		doc, err = decodeOrdered(Sanitize(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing schema: %w", err)
		}
	}
	obj, ok := doc.(*object)
	if !ok {
		return nil, fmt.Errorf("schema root is %T, want object", doc)
	}
	return nodeFromObject(obj), nil
}

// ParseValue decodes a raw value document into plain Go values, with
// the same sanitize-and-retry behavior as Parse.
func ParseValue(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		if err2 := json.Unmarshal(Sanitize(raw), &v); err2 != nil {
			return nil, fmt.Errorf("parsing value document: %w", err)
		}
	}
	return v, nil
}

// object is a JSON object that remembers key order.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// decodeOrdered parses JSON preserving object key order; objects decode
// to *object, arrays to []any, numbers to float64.
func decodeOrdered(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{vals: map[string]any{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, seen := obj.vals[key]; !seen {
					obj.keys = append(obj.keys, key)
				}
				obj.vals[key] = val
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var arr []any
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			if arr == nil {
				arr = []any{}
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil // string, float64, bool, nil
	}
}

func nodeFromObject(obj *object) *Node {
	n := &Node{}

	switch t := obj.vals["type"].(type) {
	case string:
		n.Types = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				n.Types = append(n.Types, s)
			}
		}
	}
	// Single-element type lists collapse to a scalar type.
	if enum, ok := obj.vals["enum"].([]any); ok {
		n.Enum = plainSlice(enum)
	}
	if oneOf, ok := obj.vals["oneOf"].([]any); ok {
		for _, branch := range oneOf {
			if b, ok := branch.(*object); ok {
				n.OneOf = append(n.OneOf, nodeFromObject(b))
			}
		}
	}
	if c, ok := obj.get("const"); ok {
		n.Const = plain(c)
		n.HasConst = true
	}
	// Documents may arrive pre-tagged; the annotator skips such nodes.
	if name, ok := obj.vals["widget"].(string); ok {
		if w, known := widgetByName(name); known {
			n.Widget = w
		} else {
			n.badWidget = name
		}
	}
	n.Title, _ = obj.vals["title"].(string)
	n.Description, _ = obj.vals["description"].(string)
	n.ReadOnly, _ = obj.vals["readOnly"].(bool)
	n.NotSortable, _ = obj.vals["notSortable"].(bool)
	if d, ok := obj.get("default"); ok {
		n.Default = plain(d)
	}
	n.Minimum = floatField(obj, "minimum")
	n.Maximum = floatField(obj, "maximum")
	n.MinLength = intField(obj, "minLength")
	n.MaxLength = intField(obj, "maxLength")
	n.Pattern, _ = obj.vals["pattern"].(string)
	n.MinItems = intField(obj, "minItems")
	n.MaxItems = intField(obj, "maxItems")
	if req, ok := obj.vals["required"].([]any); ok {
		for _, item := range req {
			if s, ok := item.(string); ok {
				n.Required = append(n.Required, s)
			}
		}
	}
	if props, ok := obj.vals["properties"].(*object); ok {
		for _, key := range props.keys {
			if child, ok := props.vals[key].(*object); ok {
				n.Properties = append(n.Properties, Property{Name: key, Node: nodeFromObject(child)})
			}
		}
	}
	if items, ok := obj.vals["items"].(*object); ok {
		n.Items = nodeFromObject(items)
	}
	if meta, ok := obj.vals["x-tfc"].(*object); ok {
		n.Meta = metaFromObject(meta)
	}
	return n
}

func metaFromObject(obj *object) *Meta {
	m := &Meta{}
	switch u := obj.vals["unit"].(type) {
	case string:
		m.Unit = u
	case *object:
		m.Unit, _ = u.vals["unit_ascii"].(string)
		if m.Unit == "" {
			m.Unit, _ = u.vals["unit"].(string)
		}
	}
	if d, ok := obj.vals["dimension"].(string); ok {
		m.Dimension = unit.Dimension(d)
	}
	if r, ok := obj.vals["ratio"].(*object); ok {
		ratio := &unit.Ratio{}
		if num, ok := r.vals["numerator"].(float64); ok {
			ratio.Numerator = int64(num)
		}
		if den, ok := r.vals["denominator"].(float64); ok {
			ratio.Denominator = int64(den)
		}
		m.Ratio = ratio
	}
	m.Required, _ = obj.vals["required"].(bool)
	return m
}

func floatField(obj *object, key string) *float64 {
	if f, ok := obj.vals[key].(float64); ok {
		return &f
	}
	return nil
}

func intField(obj *object, key string) *int {
	if f, ok := obj.vals[key].(float64); ok {
		i := int(f)
		return &i
	}
	return nil
}

// plain converts ordered objects back to plain maps for values that
// leave the schema layer (const, enum, default).
func plain(v any) any {
	switch t := v.(type) {
	case *object:
		out := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			out[k] = plain(t.vals[k])
		}
		return out
	case []any:
		return plainSlice(t)
	default:
		return v
	}
}

func plainSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = plain(v)
	}
	return out
}
