package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skaginn3x/tfc-console/internal/ipc"
	"github.com/skaginn3x/tfc-console/internal/schema"
)

// Configs discovers the processes exposing configuration on the bus
// and moves their value and schema documents.
type Configs struct {
	tr Transport
}

// NewConfigs wraps a transport.
func NewConfigs(tr Transport) *Configs {
	return &Configs{tr: tr}
}

// Object is one configuration surface: a bus path plus the interface
// carrying the config property.
type Object struct {
	Path      string `json:"path"`
	Interface string `json:"interface"`
}

// ConfigPair is the body of the config property: the value document
// and its schema, both JSON strings, shipped as an (ss) struct.
// Writes carry an empty schema; the process owns it.
type ConfigPair struct {
	Value  string
	Schema string
}

// Document is one fetched configuration: the schema and the current
// value tree, already sanitized and wrapped.
type Document struct {
	Schema any `json:"schema"`
	Value  any `json:"value"`
}

// Services lists the configuration-bearing bus names: those under the
// organization's config or tfc namespaces, the ruler excluded,
// name-sorted.
func (c *Configs) Services(ctx context.Context) ([]string, error) {
	names, err := c.tr.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		if !strings.Contains(name, OrgPrefix+".config") && !strings.Contains(name, OrgPrefix+".tfc") {
			continue
		}
		if strings.Contains(name, "ipc_ruler") {
			continue
		}
		out = append(out, name)
	}
	ipc.SortNames(out)
	return out, nil
}

// Objects walks a service's configuration subtree and returns every
// object exposing a config interface.
func (c *Configs) Objects(ctx context.Context, service string) ([]Object, error) {
	var out []Object
	if err := c.walk(ctx, service, ConfigObjectPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Configs) walk(ctx context.Context, service, path string, out *[]Object) error {
	doc, err := c.tr.Introspect(ctx, service, path)
	if err != nil {
		return err
	}
	ifaces, children, err := ParseObject(doc)
	if err != nil {
		return fmt.Errorf("object %s of %s: %w", path, service, err)
	}
	for _, iface := range ifaces {
		*out = append(*out, Object{Path: path, Interface: iface})
	}
	for _, child := range children {
		if err := c.walk(ctx, service, path+"/"+child, out); err != nil {
			return err
		}
	}
	return nil
}

// Fetch reads one object's config property and parses both documents.
// The JSON strings may carry escape artifacts; the value is wrapped
// under a top-level config key when the process ships it bare.
func (c *Configs) Fetch(ctx context.Context, service string, obj Object) (Document, error) {
	pair, err := c.pair(ctx, service, obj)
	if err != nil {
		return Document{}, err
	}
	sch, err := schema.ParseValue([]byte(pair.Schema))
	if err != nil {
		return Document{}, fmt.Errorf("schema of %s %s: %w", service, obj.Path, err)
	}
	val, err := schema.ParseValue([]byte(pair.Value))
	if err != nil {
		return Document{}, fmt.Errorf("value of %s %s: %w", service, obj.Path, err)
	}
	return Document{Schema: sch, Value: WrapConfig(val)}, nil
}

// RawSchema reads the schema document bytes, sanitized.
func (c *Configs) RawSchema(ctx context.Context, service string, obj Object) ([]byte, error) {
	pair, err := c.pair(ctx, service, obj)
	if err != nil {
		return nil, err
	}
	return schema.Sanitize([]byte(pair.Schema)), nil
}

// RawValue reads the value document bytes, sanitized and wrapped.
func (c *Configs) RawValue(ctx context.Context, service string, obj Object) ([]byte, error) {
	pair, err := c.pair(ctx, service, obj)
	if err != nil {
		return nil, err
	}
	val, err := schema.ParseValue([]byte(pair.Value))
	if err != nil {
		return nil, fmt.Errorf("value of %s %s: %w", service, obj.Path, err)
	}
	return json.Marshal(WrapConfig(val))
}

// Write unwraps the console-side config key, serializes the bare value
// tree, and sets the config property. The tree must already be free of
// sentinel placeholders.
func (c *Configs) Write(ctx context.Context, service string, obj Object, value any) error {
	raw, err := json.Marshal(UnwrapConfig(value))
	if err != nil {
		return fmt.Errorf("encoding value for %s %s: %w", service, obj.Path, err)
	}
	pair := ConfigPair{Value: string(raw)}
	return c.tr.SetProperty(ctx, service, obj.Path, obj.Interface, ConfigProperty, pair)
}

// pair reads and decodes the (ss) config property of one object.
func (c *Configs) pair(ctx context.Context, service string, obj Object) (ConfigPair, error) {
	v, err := c.tr.GetProperty(ctx, service, obj.Path, obj.Interface, ConfigProperty)
	if err != nil {
		return ConfigPair{}, err
	}
	pair, err := decodePair(v)
	if err != nil {
		return ConfigPair{}, fmt.Errorf("%s property of %s %s: %w", ConfigProperty, service, obj.Path, err)
	}
	return pair, nil
}

// decodePair accepts the shapes a struct-typed property arrives in:
// godbus delivers (ss) as []any of two strings.
func decodePair(v any) (ConfigPair, error) {
	switch t := v.(type) {
	case ConfigPair:
		return t, nil
	case []any:
		if len(t) != 2 {
			return ConfigPair{}, fmt.Errorf("struct has %d members, want 2", len(t))
		}
		value, vok := t[0].(string)
		sch, sok := t[1].(string)
		if !vok || !sok {
			return ConfigPair{}, fmt.Errorf("struct members are %T, %T, want strings", t[0], t[1])
		}
		return ConfigPair{Value: value, Schema: sch}, nil
	case []string:
		if len(t) != 2 {
			return ConfigPair{}, fmt.Errorf("struct has %d members, want 2", len(t))
		}
		return ConfigPair{Value: t[0], Schema: t[1]}, nil
	}
	return ConfigPair{}, fmt.Errorf("property is %T, want an (ss) struct", v)
}

// WrapConfig normalizes a loaded value document: anything that is not
// already an object keyed by config is wrapped as {"config": doc}, so
// every process presents the same top-level shape.
func WrapConfig(doc any) any {
	if m, ok := doc.(map[string]any); ok {
		if _, has := m["config"]; has {
			return m
		}
	}
	return map[string]any{"config": doc}
}

// UnwrapConfig undoes WrapConfig before a write: a document carrying a
// top-level config key ships its inner document bare, which is the
// shape the process stores.
func UnwrapConfig(doc any) any {
	if m, ok := doc.(map[string]any); ok {
		if inner, has := m["config"]; has {
			return inner
		}
	}
	return doc
}
