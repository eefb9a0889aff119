// Package dbus is the transport boundary: everything the rest of the
// program knows about the message bus goes through the Transport
// interface, so the clients above it stay testable without a broker.
package dbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

const (
	// OrgPrefix is the two-level namespace every managed service name
	// lives under.
	OrgPrefix = "com.skaginn3x"

	// ConfigObjectPath is where every process exposes its
	// configuration objects.
	ConfigObjectPath = "/com/skaginn3x/Config"

	// ConfigInterfacePrefix marks the interfaces carrying the config
	// property.
	ConfigInterfacePrefix = "com.skaginn3x.Config"

	// ConfigProperty is the single property every config interface
	// exposes: an (ss) struct of the value document and its schema.
	ConfigProperty = "config"

	RulerService   = "com.skaginn3x.ipc_ruler"
	RulerPath      = "/com/skaginn3x/ipc_ruler"
	RulerInterface = "com.skaginn3x.manager"

	SignalsProperty     = "Signals"
	SlotsProperty       = "Slots"
	ConnectionsProperty = "Connections"

	ConnectMethod        = "Connect"
	DisconnectMethod     = "Disconnect"
	RegisterSignalMethod = "RegisterSignal"
	RegisterSlotMethod   = "RegisterSlot"

	ConnectionChangeSignal = "ConnectionChange"
)

// Event is one bus notification of interest: either a property change
// on a configuration interface or a ruler connection change.
type Event struct {
	// Interface is the originating interface name.
	Interface string
	// Properties holds changed property values for PropertiesChanged
	// events.
	Properties map[string]any
	// SlotName and SignalName are set for connection changes.
	SlotName   string
	SignalName string
}

// IsConnectionChange reports whether the event is a ruler connection
// change rather than a property change.
func (e Event) IsConnectionChange() bool { return e.SlotName != "" || e.SignalName != "" }

// Transport is the narrow surface the clients need. All calls block
// until the bus answers or ctx is done.
type Transport interface {
	ListServices(ctx context.Context) ([]string, error)
	Introspect(ctx context.Context, service, objectPath string) (string, error)
	GetProperty(ctx context.Context, service, objectPath, iface, property string) (any, error)
	SetProperty(ctx context.Context, service, objectPath, iface, property string, value any) error
	Call(ctx context.Context, service, objectPath, iface, method string, args ...any) ([]any, error)
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// BusKind selects which broker to dial.
type BusKind string

const (
	SystemBus  BusKind = "system"
	SessionBus BusKind = "session"
)

// Bus is the godbus-backed Transport. A lost connection is re-dialed
// on a fixed interval until it comes back; calls made while
// disconnected fail fast.
type Bus struct {
	kind  BusKind
	retry time.Duration
	log   *log.Logger

	mu   sync.Mutex
	conn *godbus.Conn
}

// Dial connects to the chosen broker and starts the reconnect loop,
// which runs until ctx is cancelled.
func Dial(ctx context.Context, kind BusKind, retry time.Duration, logger *log.Logger) (*Bus, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[dbus] ", log.LstdFlags)
	}
	if retry <= 0 {
		retry = 3 * time.Second
	}
	b := &Bus{kind: kind, retry: retry, log: logger}
	if err := b.dial(ctx); err != nil {
		return nil, err
	}
	go b.keepAlive(ctx)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	var conn *godbus.Conn
	var err error
	switch b.kind {
	case SessionBus:
		conn, err = godbus.ConnectSessionBus(godbus.WithContext(ctx))
	default:
		conn, err = godbus.ConnectSystemBus(godbus.WithContext(ctx))
	}
	if err != nil {
		return fmt.Errorf("connecting to %s bus: %w", b.kind, err)
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	return nil
}

// keepAlive polls the connection and re-dials on a fixed interval
// while it is down.
func (b *Bus) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(b.retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.Close()
			return
		case <-ticker.C:
		}
		if b.alive() {
			continue
		}
		b.log.Printf("bus connection lost, reconnecting")
		if err := b.dial(ctx); err != nil {
			b.log.Printf("reconnect failed: %v", err)
		} else {
			b.log.Printf("bus connection restored")
		}
	}
}

func (b *Bus) alive() bool {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	return conn != nil && conn.Connected()
}

func (b *Bus) current() (*godbus.Conn, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil || !conn.Connected() {
		return nil, fmt.Errorf("%s bus not connected", b.kind)
	}
	return conn, nil
}

// Close tears down the current connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// ListServices returns the named bus owners.
func (b *Bus) ListServices(ctx context.Context) ([]string, error) {
	conn, err := b.current()
	if err != nil {
		return nil, err
	}
	var names []string
	obj := conn.Object("org.freedesktop.DBus", "/org/freedesktop/DBus")
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("listing bus names: %w", err)
	}
	return names, nil
}

// Introspect returns the raw introspection XML of one object.
func (b *Bus) Introspect(ctx context.Context, service, objectPath string) (string, error) {
	conn, err := b.current()
	if err != nil {
		return "", err
	}
	var xml string
	obj := conn.Object(service, godbus.ObjectPath(objectPath))
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Introspectable.Introspect", 0)
	if err := call.Store(&xml); err != nil {
		return "", fmt.Errorf("introspecting %s %s: %w", service, objectPath, err)
	}
	return xml, nil
}

// GetProperty reads one property, unwrapped from its variant.
func (b *Bus) GetProperty(ctx context.Context, service, objectPath, iface, property string) (any, error) {
	conn, err := b.current()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(service, godbus.ObjectPath(objectPath))
	v, err := obj.GetProperty(iface + "." + property)
	if err != nil {
		return nil, fmt.Errorf("reading %s.%s on %s: %w", iface, property, service, err)
	}
	return v.Value(), nil
}

// SetProperty writes one property.
func (b *Bus) SetProperty(ctx context.Context, service, objectPath, iface, property string, value any) error {
	conn, err := b.current()
	if err != nil {
		return err
	}
	obj := conn.Object(service, godbus.ObjectPath(objectPath))
	if err := obj.SetProperty(iface+"."+property, godbus.MakeVariant(value)); err != nil {
		return fmt.Errorf("writing %s.%s on %s: %w", iface, property, service, err)
	}
	return nil
}

// Call invokes a method and returns its out arguments.
func (b *Bus) Call(ctx context.Context, service, objectPath, iface, method string, args ...any) ([]any, error) {
	conn, err := b.current()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(service, godbus.ObjectPath(objectPath))
	call := obj.CallWithContext(ctx, iface+"."+method, 0, args...)
	if call.Err != nil {
		return nil, fmt.Errorf("calling %s.%s on %s: %w", iface, method, service, call.Err)
	}
	return call.Body, nil
}

// Subscribe delivers property changes under the organization prefix
// and ruler connection changes until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	conn, err := b.current()
	if err != nil {
		return nil, err
	}
	err = conn.AddMatchSignalContext(ctx,
		godbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		godbus.WithMatchMember("PropertiesChanged"),
	)
	if err != nil {
		return nil, fmt.Errorf("matching property changes: %w", err)
	}
	err = conn.AddMatchSignalContext(ctx,
		godbus.WithMatchInterface(RulerInterface),
		godbus.WithMatchMember(ConnectionChangeSignal),
	)
	if err != nil {
		return nil, fmt.Errorf("matching connection changes: %w", err)
	}

	raw := make(chan *godbus.Signal, 16)
	conn.Signal(raw)
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer conn.RemoveSignal(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				if evt, ok := decodeSignal(sig); ok {
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func decodeSignal(sig *godbus.Signal) (Event, bool) {
	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 2 {
			return Event{}, false
		}
		iface, _ := sig.Body[0].(string)
		if !withinOrg(iface) {
			return Event{}, false
		}
		changed, _ := sig.Body[1].(map[string]godbus.Variant)
		props := make(map[string]any, len(changed))
		for k, v := range changed {
			props[k] = v.Value()
		}
		return Event{Interface: iface, Properties: props}, true
	case RulerInterface + "." + ConnectionChangeSignal:
		if len(sig.Body) < 2 {
			return Event{}, false
		}
		slot, _ := sig.Body[0].(string)
		signal, _ := sig.Body[1].(string)
		return Event{Interface: RulerInterface, SlotName: slot, SignalName: signal}, true
	}
	return Event{}, false
}

func withinOrg(name string) bool {
	return name == OrgPrefix || len(name) > len(OrgPrefix) && name[:len(OrgPrefix)+1] == OrgPrefix+"."
}
