package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/dbus"
)

const (
	testService = "com.skaginn3x.config.etc.tfc.motor"
	testIface   = "com.skaginn3x.Config.motor"
)

type fakeTransport struct {
	properties map[string]any
	written    map[string]string
	callErr    error
	calls      []string
}

const testSchema = `{
	"type": ["object"],
	"properties": {
		"config": {
			"type": ["object"],
			"properties": {
				"name": {"type": ["string"], "pattern": "^[a-z]+$"},
				"speed": {"type": ["number"], "minimum": 0, "maximum": 100}
			}
		}
	}
}`

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		properties: map[string]any{
			// the config property arrives as an (ss) struct
			testIface + "." + dbus.ConfigProperty: []any{`{"name":"belt","speed":10}`, testSchema},
			dbus.RulerInterface + ".Signals": `[
				{"name":"com.skaginn3x.plc.main.bool.start","type":"bool"}
			]`,
			dbus.RulerInterface + ".Slots": `[
				{"name":"com.skaginn3x.motor.main.bool.run","type":"bool"},
				{"name":"com.skaginn3x.drive.main.double.ref","type":"double"}
			]`,
			dbus.RulerInterface + ".Connections": `{}`,
		},
		written: map[string]string{},
	}
}

func (f *fakeTransport) ListServices(context.Context) ([]string, error) {
	return []string{testService, "com.skaginn3x.ipc_ruler", "org.freedesktop.DBus"}, nil
}

func (f *fakeTransport) Introspect(_ context.Context, _, objectPath string) (string, error) {
	if objectPath != dbus.ConfigObjectPath {
		return "", fmt.Errorf("no object at %s", objectPath)
	}
	return `<node><interface name="` + testIface + `"/></node>`, nil
}

func (f *fakeTransport) GetProperty(_ context.Context, _, _, iface, property string) (any, error) {
	v, ok := f.properties[iface+"."+property]
	if !ok {
		return nil, fmt.Errorf("no property %s.%s", iface, property)
	}
	return v, nil
}

func (f *fakeTransport) SetProperty(_ context.Context, _, _, iface, property string, value any) error {
	pair, ok := value.(dbus.ConfigPair)
	if !ok {
		return fmt.Errorf("property value is %T, want a config pair", value)
	}
	f.written[iface+"."+property] = pair.Value
	return nil
}

func (f *fakeTransport) Call(_ context.Context, _, _, _, method string, args ...any) ([]any, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s %v", method, args))
	return nil, f.callErr
}

func (f *fakeTransport) Subscribe(context.Context) (<-chan dbus.Event, error) {
	ch := make(chan dbus.Event)
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeTransport, *alert.Center) {
	t.Helper()
	tr := newFakeTransport()
	alerts := alert.NewCenter(0)
	srv := httptest.NewServer(Routes(Config{Transport: tr, Alerts: alerts}))
	t.Cleanup(srv.Close)
	return srv, tr, alerts
}

func get(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body map[string]string
	resp := get(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListProcesses(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body []map[string]string
	resp := get(t, srv.URL+"/v1/processes", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 1)
	assert.Equal(t, testService, body[0]["service"])
	assert.Equal(t, "config.etc.tfc.motor", body[0]["title"])
}

func TestListConfigs(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body []dbus.Object
	resp := get(t, srv.URL+"/v1/processes/"+testService+"/configs", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 1)
	assert.Equal(t, dbus.ConfigObjectPath, body[0].Path)
	assert.Equal(t, testIface, body[0].Interface)
}

func configURL(srv *httptest.Server) string {
	return srv.URL + "/v1/processes/" + testService + "/configs" + dbus.ConfigObjectPath
}

func TestGetConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body struct {
		Schema  map[string]any `json:"schema"`
		Value   map[string]any `json:"value"`
		Widgets map[string]any `json:"widgets"`
	}
	resp := get(t, configURL(srv), &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []any{"object"}, body.Schema["type"])
	// the bare value document was wrapped on load
	require.Contains(t, body.Value, "config")
	assert.Equal(t, "object", body.Widgets["widget"])
}

func TestGetConfigUnknownObject(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := get(t, srv.URL+"/v1/processes/"+testService+"/configs/com/skaginn3x/Nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutConfigWritesValidDocument(t *testing.T) {
	srv, tr, _ := newTestServer(t)
	body := `{"config":{"name":"belt","speed":55}}`
	req, err := http.NewRequest(http.MethodPut, configURL(srv), strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	written := tr.written[testIface+"."+dbus.ConfigProperty]
	require.NotEmpty(t, written)
	// the console-side config wrapper is stripped before the write
	assert.JSONEq(t, `{"name":"belt","speed":55}`, written)
}

func TestPutConfigRejectsInvalidDocument(t *testing.T) {
	srv, tr, alerts := newTestServer(t)
	body := `{"config":{"name":"UPPER","speed":500}}`
	req, err := http.NewRequest(http.MethodPut, configURL(srv), strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, tr.written, "nothing may be written on validation failure")

	var raised bool
	for _, a := range alerts.Active() {
		if a.Title == "Could not validate configuration" {
			raised = true
		}
	}
	assert.True(t, raised)
}

func TestSignalsSlotsConnections(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var signals []map[string]any
	resp := get(t, srv.URL+"/v1/signals", &signals)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, signals, 1)

	var slots []map[string]any
	get(t, srv.URL+"/v1/slots", &slots)
	assert.Len(t, slots, 2)

	var conns map[string][]string
	resp = get(t, srv.URL+"/v1/connections", &conns)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCandidates(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body []map[string]any
	resp := get(t, srv.URL+"/v1/signals/com.skaginn3x.plc.main.bool.start/candidates", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 1)
	assert.Equal(t, "com.skaginn3x.motor.main.bool.run", body[0]["name"])

	resp = get(t, srv.URL+"/v1/signals/no.such.signal/candidates", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnectAndDisconnect(t *testing.T) {
	srv, tr, alerts := newTestServer(t)

	body := `{"slot_name":"com.skaginn3x.motor.main.bool.run","signal_name":"com.skaginn3x.plc.main.bool.start"}`
	resp, err := http.Post(srv.URL+"/v1/connections", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, tr.calls, 1)
	assert.Contains(t, tr.calls[0], "Connect")

	req, err := http.NewRequest(http.MethodDelete,
		srv.URL+"/v1/connections/com.skaginn3x.motor.main.bool.run", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, tr.calls, 2)
	assert.Contains(t, tr.calls[1], "Disconnect")

	var successes int
	for _, a := range alerts.Active() {
		if a.Severity == alert.Success {
			successes++
		}
	}
	assert.Equal(t, 2, successes)
}

func TestConnectValidatesBody(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/connections", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectSurfacesBusFailure(t *testing.T) {
	srv, tr, alerts := newTestServer(t)
	tr.callErr = fmt.Errorf("ruler unreachable")

	body := `{"slot_name":"a","signal_name":"b"}`
	resp, err := http.Post(srv.URL+"/v1/connections", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var raised bool
	for _, a := range alerts.Active() {
		if a.Severity == alert.Danger {
			raised = true
		}
	}
	assert.True(t, raised)
}
