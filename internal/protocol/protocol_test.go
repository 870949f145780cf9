package protocol

import (
	"encoding/json"
	"testing"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
)

func TestCommandWireFormat(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"get_status", GetStatus(), `{"cmd":"get_status"}`},
		{"exit", Exit(), `{"cmd":"exit"}`},
		{"set_cooler_boost", SetCoolerBoost(true), `{"cmd":"set_cooler_boost","data":{"enabled":true}}`},
		{"set_fan_speed", SetFanSpeed(50), `{"cmd":"set_fan_speed","data":{"percent":50}}`},
		{"set_fan_mode", SetFanMode("silent"), `{"cmd":"set_fan_mode","data":{"mode":"silent"}}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.cmd)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.name, err)
		}
		if string(b) != tt.want {
			t.Fatalf("%s: got %s, want %s", tt.name, b, tt.want)
		}
	}
}

func TestCommandDecodeArgs(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`{"cmd":"set_fan_speed","data":{"percent":75}}`), &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var args FanSpeedArgs
	if err := cmd.DecodeArgs(&args); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if args.Percent != 75 {
		t.Fatalf("percent = %d, want 75", args.Percent)
	}

	if err := (Command{Cmd: CmdSetFanMode}).DecodeArgs(&FanModeArgs{}); err == nil {
		t.Fatal("expected error for missing data")
	}
}

func TestStatusResponseInlinesFields(t *testing.T) {
	r := StatusResponse(ec.Status{
		CPUTemp:     60,
		GPUTemp:     50,
		Fan1RPM:     2500,
		Fan2RPM:     2000,
		CoolerBoost: true,
		FanMode:     ec.FanModeBasic,
	})
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"status","cpu_temp":60,"gpu_temp":50,"fan1_rpm":2500,"fan2_rpm":2000,"cooler_boost":true,"fan_mode":"basic"}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}

	var back Response
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Type != TypeStatus || back.Status == nil || *back.Status != *r.Status {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestMessageResponses(t *testing.T) {
	b, err := json.Marshal(OK("Goodbye"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"ok","message":"Goodbye"}` {
		t.Fatalf("ok wire form: %s", b)
	}

	var r Response
	if err := json.Unmarshal([]byte(`{"type":"error","message":"boom"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Type != TypeError || r.Message != "boom" {
		t.Fatalf("error response: %+v", r)
	}
}

func TestUnknownResponseTypeRejected(t *testing.T) {
	var r Response
	if err := json.Unmarshal([]byte(`{"type":"surprise"}`), &r); err == nil {
		t.Fatal("expected error for unknown response type")
	}
}
