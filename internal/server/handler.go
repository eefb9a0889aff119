package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/dbus"
	"github.com/skaginn3x/tfc-console/internal/form"
	"github.com/skaginn3x/tfc-console/internal/ipc"
	"github.com/skaginn3x/tfc-console/internal/schema"
)

// Handler serves the console API on top of the bus clients.
type Handler struct {
	configs *dbus.Configs
	ruler   *dbus.Ruler
	alerts  *alert.Center
}

// NewHandler wires the bus clients into an HTTP handler.
func NewHandler(configs *dbus.Configs, ruler *dbus.Ruler, alerts *alert.Center) *Handler {
	return &Handler{configs: configs, ruler: ruler, alerts: alerts}
}

// ListProcesses returns the configuration-bearing services.
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	services, err := h.configs.Services(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	type process struct {
		Service string `json:"service"`
		Title   string `json:"title"`
	}
	out := make([]process, 0, len(services))
	for _, s := range services {
		out = append(out, process{Service: s, Title: ipc.TrimOrg(s)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListConfigs returns a service's configuration objects.
func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	objects, err := h.configs.Objects(r.Context(), service)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, objects)
}

// objectFromRequest resolves the wildcard path to a config object,
// matching it against the service's introspected objects.
func (h *Handler) objectFromRequest(w http.ResponseWriter, r *http.Request) (string, dbus.Object, bool) {
	service := chi.URLParam(r, "service")
	objectPath := "/" + chi.URLParam(r, "*")
	objects, err := h.configs.Objects(r.Context(), service)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return "", dbus.Object{}, false
	}
	for _, obj := range objects {
		if obj.Path == objectPath {
			return service, obj, true
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "no config object at "+objectPath)
	return "", dbus.Object{}, false
}

// GetConfig returns one object's schema, value document, and annotated
// widget tree.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	service, obj, ok := h.objectFromRequest(w, r)
	if !ok {
		return
	}
	rawSchema, err := h.configs.RawSchema(r.Context(), service, obj)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	rawValue, err := h.configs.RawValue(r.Context(), service, obj)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	f, err := form.New(rawSchema, rawValue, h.alerts)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BAD_DOCUMENT", err.Error())
		return
	}
	sch, err := schema.ParseValue(rawSchema)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BAD_DOCUMENT", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema":  sch,
		"value":   f.Values(),
		"widgets": widgetTree(f.Schema),
	})
}

// PutConfig runs the form engine over a submitted value document and,
// if every leaf validates, writes it through the bus. The write is
// all-or-nothing.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	service, obj, ok := h.objectFromRequest(w, r)
	if !ok {
		return
	}
	var body json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	rawSchema, err := h.configs.RawSchema(r.Context(), service, obj)
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	f, err := form.New(rawSchema, body, h.alerts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_DOCUMENT", err.Error())
		return
	}
	f.Revalidate()
	submitted := f.Submit(func(values any) error {
		return h.configs.Write(r.Context(), service, obj, values)
	})
	if !submitted {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", form.SubmitFailedTitle)
		return
	}
	h.alerts.Post("Property updated successfully", alert.Success)
	writeJSON(w, http.StatusOK, map[string]any{"value": f.Values()})
}

// ListSignals returns the registered signals.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.ruler.Signals(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

// ListSlots returns the registered slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.ruler.Slots(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// ListConnections returns the signal-to-slots map.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.ruler.Connections(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// ListCandidates returns the slots eligible for connection to one
// signal.
func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	signals, err := h.ruler.Signals(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	var sig *ipc.Signal
	for i := range signals {
		if signals[i].Name == name {
			sig = &signals[i]
			break
		}
	}
	if sig == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no signal named "+name)
		return
	}
	slots, err := h.ruler.Slots(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	candidates := ipc.CandidateSlots(*sig, slots)
	if candidates == nil {
		candidates = []ipc.Slot{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// Connect feeds a slot from a signal.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SlotName   string `json:"slot_name"`
		SignalName string `json:"signal_name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	if body.SlotName == "" || body.SignalName == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELD", "slot_name and signal_name are required")
		return
	}
	if err := h.ruler.Connect(r.Context(), body.SlotName, body.SignalName); err != nil {
		h.alerts.Post("Failed to connect "+ipc.TrimOrg(body.SlotName), alert.Danger)
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	h.alerts.Post("Connected "+ipc.TrimOrg(body.SlotName), alert.Success)
	writeJSON(w, http.StatusOK, map[string]string{
		"slot_name":   body.SlotName,
		"signal_name": body.SignalName,
	})
}

// Disconnect detaches a slot.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	slotName := chi.URLParam(r, "slot")
	if err := h.ruler.Disconnect(r.Context(), slotName); err != nil {
		h.alerts.Post("Failed to disconnect "+ipc.TrimOrg(slotName), alert.Danger)
		writeError(w, http.StatusBadGateway, "BUS_ERROR", err.Error())
		return
	}
	h.alerts.Post("Disconnected "+ipc.TrimOrg(slotName), alert.Success)
	w.WriteHeader(http.StatusNoContent)
}

// ListAlerts returns the currently active alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.alerts.Active())
}

// widgetTree flattens an annotated schema into the shape the front-end
// renders from.
func widgetTree(n *schema.Node) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"widget": n.Widget.String()}
	if n.Title != "" {
		out["title"] = n.Title
	}
	if n.Description != "" {
		out["description"] = n.Description
	}
	if n.ReadOnly || n.HasConst {
		out["readOnly"] = true
	}
	if len(n.Enum) > 0 {
		out["enum"] = n.Enum
	}
	if n.Meta != nil && n.Meta.Dimension != "" {
		out["unit"] = n.Meta.Unit
		out["dimension"] = string(n.Meta.Dimension)
	}
	if n.NotSortable {
		out["notSortable"] = true
	}
	if len(n.Properties) > 0 {
		props := make([]map[string]any, 0, len(n.Properties))
		for _, p := range n.Properties {
			child := widgetTree(p.Node)
			child["name"] = p.Name
			props = append(props, child)
		}
		out["properties"] = props
	}
	if n.Items != nil {
		out["items"] = widgetTree(n.Items)
	}
	if len(n.OneOf) > 0 {
		variants := make([]map[string]any, 0, len(n.OneOf))
		for _, b := range n.OneOf {
			variants = append(variants, widgetTree(b))
		}
		out["oneOf"] = variants
	}
	return out
}
