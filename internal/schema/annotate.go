package schema

import "fmt"

// Diagnostic is a non-fatal schema problem found while annotating.
// The offending node still renders best-effort.
type Diagnostic struct {
	Path    string
	Message string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// Annotate walks the schema depth-first and assigns a widget tag to
// every node that does not already carry one. Annotation is idempotent:
// a second pass leaves all tags unchanged.
//
// Resolution priority: enum, oneOf, then declared type. Nodes whose
// type list contains none of the recognized primitives produce a
// diagnostic but are not rejected.
func Annotate(root *Node) []Diagnostic {
	var diags []Diagnostic
	annotate(root, "", &diags)
	return diags
}

func annotate(n *Node, at string, diags *[]Diagnostic) {
	if n == nil {
		return
	}
	if n.Widget == WidgetNone {
		if n.badWidget != "" {
			*diags = append(*diags, Diagnostic{Path: at, Message: fmt.Sprintf("unknown widget %q in schema", n.badWidget)})
		}
		n.Widget = resolveWidget(n, at, diags)
		if n.Widget == WidgetList {
			n.NotSortable = true
		}
	}
	for _, p := range n.Properties {
		annotate(p.Node, childPath(at, p.Name), diags)
	}
	if n.Items != nil {
		annotate(n.Items, childPath(at, "items"), diags)
	}
	for i, branch := range n.OneOf {
		annotate(branch, childPath(at, fmt.Sprintf("oneOf[%d]", i)), diags)
	}
}

func resolveWidget(n *Node, at string, diags *[]Diagnostic) Widget {
	switch {
	case len(n.Enum) > 0:
		return WidgetSelect
	case len(n.OneOf) > 0:
		return WidgetVariant
	case n.HasType("integer") || n.HasType("number"):
		return WidgetUnitNumeric
	case n.HasType("string"):
		return WidgetText
	case n.HasType("boolean"):
		return WidgetBoolean
	case n.HasType("array"):
		return WidgetList
	case n.HasType("object") || len(n.Properties) > 0:
		return WidgetObject
	case n.HasType("null"):
		// Bare null leaves (monostate variant branches) render nothing.
		return WidgetNone
	}
	// Const-only nodes (fixed variant branches) are legitimately
	// untyped; anything else down here is a schema defect.
	if len(n.Types) > 0 || !n.HasConst {
		*diags = append(*diags, Diagnostic{Path: at, Message: "illegal type in schema"})
	}
	return WidgetNone
}

func childPath(at, name string) string {
	if at == "" {
		return name
	}
	return at + "." + name
}
