package keypath

import (
	"reflect"
	"testing"
)

func TestParseAndString(t *testing.T) {
	p := Parse("config.items.2.amps")
	if len(p) != 4 {
		t.Fatalf("len = %d, want 4", len(p))
	}
	if !p[2].List || p[2].Index != 2 {
		t.Errorf("segment 2 = %+v, want list index 2", p[2])
	}
	if got := p.String(); got != "config.items.2.amps" {
		t.Errorf("String() = %q", got)
	}
}

func TestGetAbsent(t *testing.T) {
	tree := map[string]any{"config": map[string]any{"retries": 3.0}}
	if _, ok := Get(tree, Parse("config.missing")); ok {
		t.Error("expected absent leaf to report ok=false")
	}
	if _, ok := Get(tree, Parse("config.retries.0")); ok {
		t.Error("expected index into scalar to report ok=false")
	}
	v, ok := Get(tree, Parse("config.retries"))
	if !ok || v != 3.0 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestSetDoesNotMutateInput(t *testing.T) {
	tree := map[string]any{"config": map[string]any{"retries": 3.0}}
	out := Set(tree, Parse("config.retries"), 5.0)

	if v, _ := Get(tree, Parse("config.retries")); v != 3.0 {
		t.Errorf("input tree mutated: retries = %v", v)
	}
	if v, _ := Get(out, Parse("config.retries")); v != 5.0 {
		t.Errorf("output tree retries = %v, want 5", v)
	}
}

func TestSetSharesUntouchedSubtrees(t *testing.T) {
	other := map[string]any{"deep": true}
	tree := map[string]any{"a": other, "b": 1.0}
	out := Set(tree, Parse("b"), 2.0).(map[string]any)

	if !reflect.DeepEqual(out["a"], other) {
		t.Error("untouched subtree should be value-equal")
	}
	// Structural sharing: same underlying map.
	if reflect.ValueOf(out["a"]).Pointer() != reflect.ValueOf(other).Pointer() {
		t.Error("untouched subtree should be shared, not copied")
	}
}

func TestSetVivifiesByNextSegment(t *testing.T) {
	out := Set(nil, Parse("config.items.0.amps"), 200.0)
	v, ok := Get(out, Parse("config.items.0.amps"))
	if !ok || v != 200.0 {
		t.Fatalf("Get after vivify = %v, %v", v, ok)
	}
	items, _ := Get(out, Parse("config.items"))
	if _, isList := items.([]any); !isList {
		t.Errorf("items = %T, want []any", items)
	}
	cfg, _ := Get(out, Parse("config"))
	if _, isMap := cfg.(map[string]any); !isMap {
		t.Errorf("config = %T, want map", cfg)
	}
}

func TestSetGetRoundTripIsNoOp(t *testing.T) {
	tree := map[string]any{
		"config": map[string]any{
			"retries": 3.0,
			"items":   []any{map[string]any{"amps": 200.0}},
		},
	}
	for _, raw := range []string{"config", "config.retries", "config.items", "config.items.0", "config.items.0.amps"} {
		p := Parse(raw)
		v, ok := Get(tree, p)
		if !ok {
			t.Fatalf("Get(%s) absent", raw)
		}
		out := Set(tree, p, v)
		if !reflect.DeepEqual(out, tree) {
			t.Errorf("Set(T, %s, Get(T, %s)) changed the tree", raw, raw)
		}
	}
}

func TestAppendAndRemoveItem(t *testing.T) {
	tree := map[string]any{"items": []any{"a"}}

	out := AppendItem(tree, Parse("items"), "b")
	got, _ := Get(out, Parse("items"))
	if !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("after append: %v", got)
	}

	out = RemoveItem(out, Parse("items"), 0)
	got, _ = Get(out, Parse("items"))
	if !reflect.DeepEqual(got, []any{"b"}) {
		t.Errorf("after remove: %v", got)
	}

	// Out of range is a no-op.
	same := RemoveItem(out, Parse("items"), 5)
	if !reflect.DeepEqual(same, out) {
		t.Error("out-of-range remove should not change the tree")
	}

	// Append onto an absent path materializes the sequence.
	out = AppendItem(nil, Parse("fresh"), 1.0)
	got, _ = Get(out, Parse("fresh"))
	if !reflect.DeepEqual(got, []any{1.0}) {
		t.Errorf("append to absent path: %v", got)
	}
}
