package dbus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaginn3x/tfc-console/internal/ipc"
)

// fakeTransport answers from canned tables and records calls.
type fakeTransport struct {
	services   []string
	introspect map[string]string // objectPath -> xml
	properties map[string]any    // iface.property -> value
	setCalls   []setProp
	calls      [][]any // method invocations
	events     chan Event
	failWith   error
}

type setProp struct {
	property string
	value    any
}

func (f *fakeTransport) ListServices(context.Context) ([]string, error) {
	return f.services, f.failWith
}

func (f *fakeTransport) Introspect(_ context.Context, _, objectPath string) (string, error) {
	doc, ok := f.introspect[objectPath]
	if !ok {
		return "", fmt.Errorf("no object at %s", objectPath)
	}
	return doc, nil
}

func (f *fakeTransport) GetProperty(_ context.Context, _, _, iface, property string) (any, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	v, ok := f.properties[iface+"."+property]
	if !ok {
		return nil, fmt.Errorf("no property %s.%s", iface, property)
	}
	return v, nil
}

func (f *fakeTransport) SetProperty(_ context.Context, _, _, iface, property string, value any) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.setCalls = append(f.setCalls, setProp{property: iface + "." + property, value: value})
	return nil
}

func (f *fakeTransport) Call(_ context.Context, _, _, _, method string, args ...any) ([]any, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.calls = append(f.calls, append([]any{method}, args...))
	return nil, nil
}

func (f *fakeTransport) Subscribe(context.Context) (<-chan Event, error) {
	return f.events, f.failWith
}

const introXML = `<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
 "http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
<node>
  <interface name="org.freedesktop.DBus.Properties"/>
  <interface name="com.skaginn3x.Config.operation_mode"/>
  <node name="def"/>
</node>`

func TestParseInterfacesFiltersToOrg(t *testing.T) {
	got, err := ParseInterfaces(introXML)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.skaginn3x.Config.operation_mode"}, got)
}

func TestParseObject(t *testing.T) {
	ifaces, children, err := ParseObject(introXML)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.skaginn3x.Config.operation_mode"}, ifaces)
	assert.Equal(t, []string{"def"}, children)

	_, _, err = ParseObject("not xml")
	assert.Error(t, err)
}

func TestConfigsServices(t *testing.T) {
	tr := &fakeTransport{services: []string{
		"org.freedesktop.DBus",
		"com.skaginn3x.config.etc.tfc.operation_mode.def",
		"com.skaginn3x.config.etc.tfc.motor10",
		"com.skaginn3x.config.etc.tfc.motor2",
		"com.skaginn3x.ipc_ruler",
		"com.example.other",
	}}
	got, err := NewConfigs(tr).Services(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"com.skaginn3x.config.etc.tfc.motor2",
		"com.skaginn3x.config.etc.tfc.motor10",
		"com.skaginn3x.config.etc.tfc.operation_mode.def",
	}, got)
}

func TestConfigsObjectsWalksChildren(t *testing.T) {
	tr := &fakeTransport{introspect: map[string]string{
		ConfigObjectPath: `<node><node name="def"/></node>`,
		ConfigObjectPath + "/def": `<node>
			<interface name="com.skaginn3x.Config.def"/>
		</node>`,
	}}
	got, err := NewConfigs(tr).Objects(context.Background(), "com.skaginn3x.config.x")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ConfigObjectPath+"/def", got[0].Path)
	assert.Equal(t, "com.skaginn3x.Config.def", got[0].Interface)
}

func TestConfigsFetchSanitizesAndWraps(t *testing.T) {
	obj := Object{Path: ConfigObjectPath, Interface: "com.skaginn3x.Config.def"}
	// godbus delivers the (ss) struct as a two-string slice
	tr := &fakeTransport{properties: map[string]any{
		obj.Interface + "." + ConfigProperty: []any{`{"speed":5}`, `{\"type\":[\"object\"]}`},
	}}
	doc, err := NewConfigs(tr).Fetch(context.Background(), "svc", obj)
	require.NoError(t, err)

	sch := doc.Schema.(map[string]any)
	assert.Equal(t, []any{"object"}, sch["type"])

	// a bare document gains the config wrapper
	val := doc.Value.(map[string]any)
	require.Contains(t, val, "config")
	assert.Equal(t, map[string]any{"speed": float64(5)}, val["config"])
}

func TestWrapConfig(t *testing.T) {
	assert.Equal(t, map[string]any{"config": nil}, WrapConfig(nil))
	assert.Equal(t,
		map[string]any{"config": map[string]any{"a": 1}},
		WrapConfig(map[string]any{"a": 1}))
	already := map[string]any{"config": map[string]any{}}
	assert.Equal(t, already, WrapConfig(already))
}

func TestUnwrapConfig(t *testing.T) {
	bare := map[string]any{"speed": 7}
	assert.Equal(t, bare, UnwrapConfig(map[string]any{"config": bare}))
	assert.Equal(t, bare, UnwrapConfig(bare))
	assert.Equal(t, bare, UnwrapConfig(WrapConfig(bare)))
	assert.Nil(t, UnwrapConfig(WrapConfig(nil)))
}

func TestConfigsWriteShipsBarePair(t *testing.T) {
	obj := Object{Path: ConfigObjectPath, Interface: "com.skaginn3x.Config.def"}
	tr := &fakeTransport{}
	err := NewConfigs(tr).Write(context.Background(), "svc", obj,
		map[string]any{"config": map[string]any{"speed": 7}})
	require.NoError(t, err)
	require.Len(t, tr.setCalls, 1)
	assert.Equal(t, obj.Interface+"."+ConfigProperty, tr.setCalls[0].property)

	// the wrapper added on load never reaches the process
	pair, ok := tr.setCalls[0].value.(ConfigPair)
	require.True(t, ok)
	assert.JSONEq(t, `{"speed":7}`, pair.Value)
	assert.Empty(t, pair.Schema)
}

func TestDecodePair(t *testing.T) {
	pair, err := decodePair([]any{"v", "s"})
	require.NoError(t, err)
	assert.Equal(t, ConfigPair{Value: "v", Schema: "s"}, pair)

	_, err = decodePair("just a string")
	assert.Error(t, err)
	_, err = decodePair([]any{"v"})
	assert.Error(t, err)
}

func TestRulerProperties(t *testing.T) {
	tr := &fakeTransport{properties: map[string]any{
		RulerInterface + "." + SignalsProperty: `[
			{"name":"com.skaginn3x.plc.main.bool.b","type":"bool","created_at":1716240000000},
			{"name":"com.skaginn3x.plc.main.bool.a","type":"bool","created_at":1716240000000}
		]`,
		RulerInterface + "." + SlotsProperty: `[
			{"name":"com.skaginn3x.motor.main.bool.run","type":"bool",
			 "connected_to":"com.skaginn3x.plc.main.bool.a"}
		]`,
		RulerInterface + "." + ConnectionsProperty: `{\"com.skaginn3x.plc.main.bool.a\":[\"com.skaginn3x.motor.main.bool.run\"]}`,
	}}
	r := NewRuler(tr)
	ctx := context.Background()

	signals, err := r.Signals(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "com.skaginn3x.plc.main.bool.a", signals[0].Name)
	assert.Equal(t, ipc.TypeBool, signals[0].Type)

	slots, err := r.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Connected())

	conns, err := r.Connections(ctx)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"com.skaginn3x.motor.main.bool.run"},
		conns["com.skaginn3x.plc.main.bool.a"])
}

func TestRulerMethods(t *testing.T) {
	tr := &fakeTransport{}
	r := NewRuler(tr)
	ctx := context.Background()

	require.NoError(t, r.Connect(ctx, "slot", "sig"))
	require.NoError(t, r.Disconnect(ctx, "slot"))
	require.NoError(t, r.RegisterSignal(ctx, "sig", "desc", ipc.TypeDouble))
	require.NoError(t, r.RegisterSlot(ctx, "slot", "desc", ipc.TypeBool))

	require.Len(t, tr.calls, 4)
	assert.Equal(t, []any{ConnectMethod, "slot", "sig"}, tr.calls[0])
	assert.Equal(t, []any{DisconnectMethod, "slot"}, tr.calls[1])
	assert.Equal(t, []any{RegisterSignalMethod, "sig", "desc", byte(4)}, tr.calls[2])
	assert.Equal(t, []any{RegisterSlotMethod, "slot", "desc", byte(1)}, tr.calls[3])
}

func TestWatchConnections(t *testing.T) {
	events := make(chan Event, 2)
	tr := &fakeTransport{events: events}
	r := NewRuler(tr)

	got := make(chan [2]string, 2)
	require.NoError(t, r.WatchConnections(context.Background(), func(slot, sig string) {
		got <- [2]string{slot, sig}
	}))

	events <- Event{Interface: "com.skaginn3x.Config.x", Properties: map[string]any{ConfigProperty: []any{"{}", ""}}}
	events <- Event{Interface: RulerInterface, SlotName: "slot", SignalName: "sig"}
	close(events)

	change := <-got
	assert.Equal(t, [2]string{"slot", "sig"}, change)
	select {
	case extra := <-got:
		t.Fatalf("unexpected change %v", extra)
	default:
	}
}

func TestEventKind(t *testing.T) {
	assert.True(t, Event{SlotName: "s"}.IsConnectionChange())
	assert.False(t, Event{Interface: "com.skaginn3x.Config.x"}.IsConnectionChange())
}
