package ipc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotWireFormat(t *testing.T) {
	raw := `{
		"name": "com.skaginn3x.motor.main.bool.run",
		"type": "bool",
		"created_by": "motor",
		"created_at": 1716240000000,
		"last_registered": 1716240060000,
		"last_modified": 1716240120000,
		"modified_by": "operator",
		"connected_to": "com.skaginn3x.plc.main.bool.start",
		"description": "run command"
	}`
	var s Slot
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, TypeBool, s.Type)
	assert.True(t, s.Connected())
	assert.Equal(t, time.UnixMilli(1716240000000), s.CreatedAt.Time())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"created_at":1716240000000`)
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now.UnixMilli(), MillisOf(now).Time().UnixMilli())
}

func TestTypeValid(t *testing.T) {
	for _, tt := range Types() {
		assert.True(t, tt.Valid())
	}
	assert.False(t, Type("int32_t").Valid())
}

func TestCandidateSlots(t *testing.T) {
	sig := Signal{Name: "com.skaginn3x.plc.main.bool.start", Type: TypeBool}
	slots := []Slot{
		{Name: "com.skaginn3x.motor.main.bool.run", Type: TypeBool},
		{Name: "com.skaginn3x.motor.main.double.speed", Type: TypeDouble},
		{Name: "com.skaginn3x.valve.main.bool.open", Type: TypeBool,
			ConnectedTo: "com.skaginn3x.plc.main.bool.start"},
		{Name: "com.skaginn3x.fan.main.bool.run", Type: TypeBool,
			ConnectedTo: "com.skaginn3x.other.main.bool.enable"},
	}

	got := CandidateSlots(sig, slots)
	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.Name
	}
	// type mismatch and already-connected-to-this-signal are excluded;
	// a slot fed by another signal stays eligible for reassignment
	assert.Equal(t, []string{
		"com.skaginn3x.fan.main.bool.run",
		"com.skaginn3x.motor.main.bool.run",
	}, names)
}

func TestConnections(t *testing.T) {
	slots := []Slot{
		{Name: "b", ConnectedTo: "sig1"},
		{Name: "a10", ConnectedTo: "sig1"},
		{Name: "a2", ConnectedTo: "sig1"},
		{Name: "c", ConnectedTo: "sig2"},
		{Name: "d"},
	}
	got := Connections(slots)
	assert.Equal(t, map[string][]string{
		"sig1": {"a2", "a10", "b"},
		"sig2": {"c"},
	}, got)
}

func TestSlotsOf(t *testing.T) {
	slots := []Slot{
		{Name: "z", ConnectedTo: "sig"},
		{Name: "a", ConnectedTo: "sig"},
		{Name: "m", ConnectedTo: "other"},
	}
	got := SlotsOf("sig", slots)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "z", got[1].Name)
}

func TestNaturalLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"item2", "item10", true},
		{"item10", "item2", false},
		{"item2", "item2", false},
		{"item", "item2", true},
		{"a", "b", true},
		{"conveyor1.zone9", "conveyor1.zone10", true},
		{"id09", "id9", false},
		// digit runs past the 64-bit range still compare numerically
		{"tag99999999999999999999", "tag100000000000000000000", true},
		{"tag18446744073709551617", "tag18446744073709551616", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NaturalLess(c.a, c.b), "%s < %s", c.a, c.b)
	}
}

func TestProcessExtraction(t *testing.T) {
	assert.Equal(t, "motor", Process("com.skaginn3x.motor.main.bool.run"))
	assert.Equal(t, "motor.main.bool.run", TrimOrg("com.skaginn3x.motor.main.bool.run"))
	assert.Equal(t, "bare", Process("bare"))
}

func TestProcesses(t *testing.T) {
	signals := []Signal{
		{Name: "com.skaginn3x.plc.main.bool.start"},
		{Name: "com.skaginn3x.motor.main.bool.ready"},
	}
	slots := []Slot{
		{Name: "com.skaginn3x.motor.main.bool.run"},
		{Name: "com.skaginn3x.valve.main.bool.open"},
	}
	assert.Equal(t, []string{"motor", "plc", "valve"}, Processes(signals, slots))
}
