package dbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skaginn3x/tfc-console/internal/ipc"
	"github.com/skaginn3x/tfc-console/internal/schema"
)

// Ruler talks to the ipc_ruler manager, the single process owning the
// signal and slot registry.
type Ruler struct {
	tr Transport
}

// NewRuler wraps a transport.
func NewRuler(tr Transport) *Ruler {
	return &Ruler{tr: tr}
}

// jsonProperty reads a ruler property, a JSON document shipped as a
// string, sanitizing bus escape artifacts before decoding.
func (r *Ruler) jsonProperty(ctx context.Context, name string, into any) error {
	v, err := r.tr.GetProperty(ctx, RulerService, RulerPath, RulerInterface, name)
	if err != nil {
		return err
	}
	raw, ok := v.(string)
	if !ok {
		return fmt.Errorf("property %s is %T, want string", name, v)
	}
	if err := json.Unmarshal(schema.Sanitize([]byte(raw)), into); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// Signals lists the registered signals, name-sorted.
func (r *Ruler) Signals(ctx context.Context) ([]ipc.Signal, error) {
	var out []ipc.Signal
	if err := r.jsonProperty(ctx, SignalsProperty, &out); err != nil {
		return nil, err
	}
	ipc.SortSignals(out)
	return out, nil
}

// Slots lists the registered slots, name-sorted.
func (r *Ruler) Slots(ctx context.Context) ([]ipc.Slot, error) {
	var out []ipc.Slot
	if err := r.jsonProperty(ctx, SlotsProperty, &out); err != nil {
		return nil, err
	}
	ipc.SortSlots(out)
	return out, nil
}

// Connections returns the signal-to-slots map as published by the
// ruler.
func (r *Ruler) Connections(ctx context.Context) (map[string][]string, error) {
	var out map[string][]string
	if err := r.jsonProperty(ctx, ConnectionsProperty, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Connect feeds the named slot from the named signal. A slot already
// fed by another signal is reassigned.
func (r *Ruler) Connect(ctx context.Context, slotName, signalName string) error {
	_, err := r.tr.Call(ctx, RulerService, RulerPath, RulerInterface, ConnectMethod, slotName, signalName)
	return err
}

// Disconnect detaches the named slot from whatever feeds it.
func (r *Ruler) Disconnect(ctx context.Context, slotName string) error {
	_, err := r.tr.Call(ctx, RulerService, RulerPath, RulerInterface, DisconnectMethod, slotName)
	return err
}

// RegisterSignal declares a signal endpoint.
func (r *Ruler) RegisterSignal(ctx context.Context, name, description string, t ipc.Type) error {
	_, err := r.tr.Call(ctx, RulerService, RulerPath, RulerInterface, RegisterSignalMethod, name, description, t.Byte())
	return err
}

// RegisterSlot declares a slot endpoint.
func (r *Ruler) RegisterSlot(ctx context.Context, name, description string, t ipc.Type) error {
	_, err := r.tr.Call(ctx, RulerService, RulerPath, RulerInterface, RegisterSlotMethod, name, description, t.Byte())
	return err
}

// WatchConnections invokes fn for every connection change until ctx is
// cancelled. Property-change events on the shared subscription are
// ignored here.
func (r *Ruler) WatchConnections(ctx context.Context, fn func(slotName, signalName string)) error {
	events, err := r.tr.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for evt := range events {
			if evt.IsConnectionChange() {
				fn(evt.SlotName, evt.SignalName)
			}
		}
	}()
	return nil
}
