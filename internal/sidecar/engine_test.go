package sidecar

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/ecio"
	"github.com/desingh-rajan/msi-fan-control/internal/protocol"
)

// runSession feeds the given command lines through an engine backed by mem
// and returns every response in order.
func runSession(t *testing.T, mem *ecio.Memory, lines ...string) []protocol.Response {
	t.Helper()

	var out bytes.Buffer
	eng := New(ecio.NewController(mem), strings.NewReader(strings.Join(lines, "\n")), &out)
	if err := eng.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var resps []protocol.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var r protocol.Response
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("bad response line %q: %v", line, err)
		}
		resps = append(resps, r)
	}
	return resps
}

func TestSessionCoolerBoostSequence(t *testing.T) {
	resps := runSession(t, ecio.NewMemory(),
		`{"cmd":"get_status"}`,
		`{"cmd":"set_cooler_boost","data":{"enabled":true}}`,
		`{"cmd":"get_status"}`,
		`{"cmd":"exit"}`,
	)

	// handshake + one response per command
	if len(resps) != 5 {
		t.Fatalf("expected 5 responses, got %d: %+v", len(resps), resps)
	}
	if resps[0].Type != protocol.TypeStatus {
		t.Fatalf("handshake: %+v", resps[0])
	}
	if resps[1].Type != protocol.TypeStatus || resps[1].Status.CoolerBoost {
		t.Fatalf("status1 should report boost off: %+v", resps[1])
	}
	if resps[2].Type != protocol.TypeOK || resps[2].Message != "Cooler Boost enabled" {
		t.Fatalf("boost ack: %+v", resps[2])
	}
	if resps[3].Type != protocol.TypeStatus || !resps[3].Status.CoolerBoost {
		t.Fatalf("status2 should report boost on: %+v", resps[3])
	}
	if resps[4].Type != protocol.TypeOK || resps[4].Message != "Goodbye" {
		t.Fatalf("goodbye: %+v", resps[4])
	}
}

func TestHandshakeIsEmittedWithoutCommands(t *testing.T) {
	resps := runSession(t, ecio.NewMemory()) // immediate EOF
	if len(resps) != 1 || resps[0].Type != protocol.TypeStatus {
		t.Fatalf("expected lone handshake status, got %+v", resps)
	}
}

func TestMalformedJSONKeepsSessionAlive(t *testing.T) {
	resps := runSession(t, ecio.NewMemory(),
		`{not json`,
		``,
		`{"cmd":"get_status"}`,
	)
	if len(resps) != 3 {
		t.Fatalf("expected 3 responses, got %+v", resps)
	}
	if resps[1].Type != protocol.TypeError || !strings.HasPrefix(resps[1].Message, "Invalid command: ") {
		t.Fatalf("parse error response: %+v", resps[1])
	}
	if resps[2].Type != protocol.TypeStatus {
		t.Fatalf("session should continue after bad input: %+v", resps[2])
	}
}

func TestUnknownCommandName(t *testing.T) {
	resps := runSession(t, ecio.NewMemory(), `{"cmd":"reboot"}`)
	if resps[1].Type != protocol.TypeError || !strings.Contains(resps[1].Message, "reboot") {
		t.Fatalf("unknown cmd response: %+v", resps[1])
	}
}

func TestSetFanSpeedWritesCurves(t *testing.T) {
	mem := ecio.NewMemory()
	resps := runSession(t, mem, `{"cmd":"set_fan_speed","data":{"percent":50}}`)

	if resps[1].Type != protocol.TypeOK || resps[1].Message != "Fan speed set to 50%" {
		t.Fatalf("fan speed ack: %+v", resps[1])
	}
	writes := mem.Writes()
	if len(writes) != 1+2*ec.CurvePoints {
		t.Fatalf("expected %d writes, got %d", 1+2*ec.CurvePoints, len(writes))
	}
	for _, w := range writes[1:] {
		if w.Value != 50 {
			t.Fatalf("curve write %+v, want value 50", w)
		}
	}
}

func TestSetFanModeValidationBeforeIO(t *testing.T) {
	mem := ecio.NewMemory()
	resps := runSession(t, mem, `{"cmd":"set_fan_mode","data":{"mode":"turbo"}}`)

	if resps[1].Type != protocol.TypeError {
		t.Fatalf("expected error, got %+v", resps[1])
	}
	if len(mem.Writes()) != 0 {
		t.Fatal("unknown mode must not touch hardware")
	}
}

func TestSetFanMode(t *testing.T) {
	mem := ecio.NewMemory()
	resps := runSession(t, mem, `{"cmd":"set_fan_mode","data":{"mode":"silent"}}`)

	if resps[1].Type != protocol.TypeOK || resps[1].Message != "Fan mode set to silent" {
		t.Fatalf("fan mode ack: %+v", resps[1])
	}
	if got := mem.At(ec.RegFanModePrimary); got != byte(ec.FanModeSilent) {
		t.Fatalf("mode register = %#02x", got)
	}
}

func TestReadOnlyModeRejectsWrites(t *testing.T) {
	mem := ecio.NewMemory()
	mem.SetReadOnly(true)
	resps := runSession(t, mem,
		`{"cmd":"set_cooler_boost","data":{"enabled":true}}`,
		`{"cmd":"get_status"}`,
	)

	if resps[1].Type != protocol.TypeError || resps[1].Message != readOnlyMessage {
		t.Fatalf("read-only rejection: %+v", resps[1])
	}
	if resps[2].Type != protocol.TypeStatus {
		t.Fatalf("reads must still work: %+v", resps[2])
	}
}
