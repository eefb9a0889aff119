// Package form drives a schema-described configuration document: it
// annotates the schema with widget kinds, holds the immutable value
// store, and gates submission on the aggregate validity of every
// edited leaf.
package form

import (
	"fmt"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/keypath"
	"github.com/skaginn3x/tfc-console/internal/schema"
	"github.com/skaginn3x/tfc-console/internal/store"
)

// SubmitFailedTitle is the alert raised when aggregate validation
// blocks a submit.
const SubmitFailedTitle = "Could not validate configuration"

// Form owns one configuration document end to end. The schema is
// annotated once at construction; every edit produces a new store
// snapshot.
type Form struct {
	Schema *schema.Node

	store  *store.Store
	alerts *alert.Center
}

// New parses and annotates the schema, loads the initial values, and
// pushes const leaves into the store so fixed fields are present even
// when the process never wrote them. Schema diagnostics are posted as
// warnings, once each, and do not abort construction.
func New(rawSchema, rawValues []byte, alerts *alert.Center) (*Form, error) {
	node, err := schema.Parse(rawSchema)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	diags := schema.Annotate(node)
	if alerts != nil {
		for _, d := range diags {
			alerts.Post(d.String(), alert.Warning)
		}
	}

	var initial any
	if len(rawValues) > 0 {
		initial, err = schema.ParseValue(rawValues)
		if err != nil {
			return nil, fmt.Errorf("parse values: %w", err)
		}
	}
	f := &Form{Schema: node, store: store.New(initial), alerts: alerts}
	f.pushConsts(node, nil)
	return f, nil
}

// Store returns the current snapshot.
func (f *Form) Store() *store.Store { return f.store }

// Values returns the current value tree.
func (f *Form) Values() any { return f.store.Values() }

// Apply reduces one widget action into a new snapshot.
func (f *Form) Apply(a store.Action) {
	f.store = f.store.Reduce(a)
}

// pushConsts walks object property chains and stores every const leaf
// whose path has no value yet.
func (f *Form) pushConsts(n *schema.Node, p keypath.Path) {
	if n == nil {
		return
	}
	if n.HasConst {
		if _, ok := f.store.Value(p); !ok {
			f.Apply(store.Action{Path: p, Kind: store.Set, Value: n.Const})
		}
		return
	}
	for _, prop := range n.Properties {
		f.pushConsts(prop.Node, p.Append(keypath.Field(prop.Name)))
	}
}

// Revalidate re-runs leaf validation over the whole document, filling
// the validity tree for values that arrived from the process rather
// than from keystrokes. Callers that accept writes without a widget
// session (the HTTP surface) run this before Submit.
func (f *Form) Revalidate() {
	f.revalidate(f.Schema, nil)
}

func (f *Form) revalidate(n *schema.Node, p keypath.Path) {
	if n == nil {
		return
	}
	switch n.Widget {
	case schema.WidgetText:
		v, ok := f.store.Value(p)
		if !ok {
			return
		}
		s, isStr := v.(string)
		if !isStr {
			f.Apply(store.ValidAction(p, v, false))
			return
		}
		tf := &TextField{Path: p, Node: n}
		valid, _ := tf.Validate(s)
		f.Apply(store.ValidAction(p, s, valid))
	case schema.WidgetUnitNumeric:
		uf := NewUnitField(p, n)
		v, ok := f.store.Value(p)
		if !ok || v == nil {
			if valid, _ := uf.Validate(0, false); !valid {
				f.Apply(store.ValidAction(p, nil, false))
			}
			return
		}
		num, isNum := v.(float64)
		if !isNum {
			f.Apply(store.ValidAction(p, v, false))
			return
		}
		valid, _ := uf.Validate(num, true)
		f.Apply(store.ValidAction(p, num, valid))
	case schema.WidgetSelect:
		if v, ok := f.store.Value(p); ok {
			sf := &SelectField{Path: p, Node: n}
			f.Apply(sf.Set(v))
		}
	case schema.WidgetVariant:
		vf := &VariantField{Path: p, Node: n}
		title, ok := vf.SelectedTitle(f.store)
		if !ok {
			return
		}
		if b := vf.Branch(title); b != nil {
			f.revalidate(b, p)
		}
	case schema.WidgetList:
		lf := &ListField{Path: p, Node: n}
		for i := 0; i < lf.Len(f.store); i++ {
			f.revalidate(n.Items, lf.ItemPath(i))
		}
	case schema.WidgetObject:
		for _, prop := range n.Properties {
			f.revalidate(prop.Node, p.Append(keypath.Field(prop.Name)))
		}
	}
}

// Submit checks aggregate validity and, if every recorded flag under a
// non-sequence value is true, hands the current value tree to
// onSubmit. A failure posts a single danger alert and leaves the form
// editable; onSubmit's own error is surfaced the same way.
func (f *Form) Submit(onSubmit func(values any) error) bool {
	if !validTree(f.store.ValidityTree(), f.store.Values()) {
		if f.alerts != nil {
			f.alerts.Post(SubmitFailedTitle, alert.Danger)
		}
		return false
	}
	if err := onSubmit(f.Values()); err != nil {
		if f.alerts != nil {
			f.alerts.Post(err.Error(), alert.Danger)
		}
		return false
	}
	return true
}

// validTree walks the validity tree alongside the value tree. Sequence
// values are excluded from aggregation and null values are vacuously
// valid, so only flags attached to present scalar leaves (or their
// object ancestors) can fail a submit.
func validTree(validity, value any) bool {
	if value == nil {
		return true
	}
	if _, isSeq := value.([]any); isSeq {
		return true
	}
	switch v := validity.(type) {
	case bool:
		return v
	case map[string]any:
		values, _ := value.(map[string]any)
		for k, child := range v {
			var childValue any
			if values != nil {
				childValue = values[k]
			}
			if !validTree(child, childValue) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
