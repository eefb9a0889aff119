package server

import (
	"context"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/dbus"
)

// ServerMessage is the envelope for every event pushed to a client.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EventsHandler streams alerts and bus notifications over a WebSocket.
type EventsHandler struct {
	alerts    *alert.Center
	transport dbus.Transport
}

// NewEventsHandler wires the alert center and the bus subscription
// into a stream handler.
func NewEventsHandler(alerts *alert.Center, transport dbus.Transport) *EventsHandler {
	return &EventsHandler{alerts: alerts, transport: transport}
}

// ServeHTTP upgrades to WebSocket and pushes events until the client
// goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("events: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	alertEvents, cancel := h.alerts.Subscribe(16)
	defer cancel()

	var busEvents <-chan dbus.Event
	if h.transport != nil {
		busEvents, err = h.transport.Subscribe(ctx)
		if err != nil {
			log.Printf("events: bus subscribe: %v", err)
		}
	}

	// replay active alerts so a fresh client starts in sync
	for _, a := range h.alerts.Active() {
		h.send(ctx, conn, ServerMessage{Type: "alert", Data: alert.Event{Kind: "posted", Alert: a}})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-alertEvents:
			if !ok {
				return
			}
			h.send(ctx, conn, ServerMessage{Type: "alert", Data: evt})
		case evt, ok := <-busEvents:
			if !ok {
				busEvents = nil
				continue
			}
			if evt.IsConnectionChange() {
				h.send(ctx, conn, ServerMessage{Type: "connection-change", Data: map[string]string{
					"slot_name":   evt.SlotName,
					"signal_name": evt.SignalName,
				}})
				continue
			}
			h.send(ctx, conn, ServerMessage{Type: "property-change", Data: map[string]any{
				"interface":  evt.Interface,
				"properties": evt.Properties,
			}})
		}
	}
}

func (h *EventsHandler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("events: write error: %v", err)
	}
}
