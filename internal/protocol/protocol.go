// Package protocol defines the line-delimited JSON messages exchanged
// between the host and the privileged sidecar. One message per line, no
// length prefix; requests and responses are matched purely by pipe order.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
)

// Command names.
const (
	CmdGetStatus      = "get_status"
	CmdSetCoolerBoost = "set_cooler_boost"
	CmdSetFanSpeed    = "set_fan_speed"
	CmdSetFanMode     = "set_fan_mode"
	CmdExit           = "exit"
)

// Response types.
const (
	TypeStatus = "status"
	TypeOK     = "ok"
	TypeError  = "error"
)

// Command is one host→sidecar request: {"cmd": ..., "data": ...}.
type Command struct {
	Cmd  string          `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

type CoolerBoostArgs struct {
	Enabled bool `json:"enabled"`
}

type FanSpeedArgs struct {
	Percent uint8 `json:"percent"`
}

type FanModeArgs struct {
	Mode string `json:"mode"`
}

func GetStatus() Command { return Command{Cmd: CmdGetStatus} }
func Exit() Command      { return Command{Cmd: CmdExit} }

func SetCoolerBoost(enabled bool) Command {
	return command(CmdSetCoolerBoost, CoolerBoostArgs{Enabled: enabled})
}

func SetFanSpeed(percent uint8) Command {
	return command(CmdSetFanSpeed, FanSpeedArgs{Percent: percent})
}

func SetFanMode(mode string) Command {
	return command(CmdSetFanMode, FanModeArgs{Mode: mode})
}

func command(name string, args any) Command {
	data, err := json.Marshal(args)
	if err != nil {
		// All arg types above marshal unconditionally.
		panic(fmt.Sprintf("protocol: marshal %s args: %v", name, err))
	}
	return Command{Cmd: name, Data: data}
}

// DecodeArgs unmarshals the command payload into v.
func (c Command) DecodeArgs(v any) error {
	if len(c.Data) == 0 {
		return fmt.Errorf("command %q carries no data", c.Cmd)
	}
	return json.Unmarshal(c.Data, v)
}

// Response is one sidecar→host message. Exactly one of the variants is
// populated, keyed by Type; status fields travel inline next to "type".
type Response struct {
	Type    string
	Message string     // ok, error
	Status  *ec.Status // status
}

func StatusResponse(s ec.Status) Response {
	return Response{Type: TypeStatus, Status: &s}
}

func OK(message string) Response {
	return Response{Type: TypeOK, Message: message}
}

func Error(message string) Response {
	return Response{Type: TypeError, Message: message}
}

type statusWire struct {
	Type string `json:"type"`
	ec.Status
}

type messageWire struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case TypeStatus:
		if r.Status == nil {
			return nil, fmt.Errorf("status response without status")
		}
		return json.Marshal(statusWire{Type: r.Type, Status: *r.Status})
	case TypeOK, TypeError:
		return json.Marshal(messageWire{Type: r.Type, Message: r.Message})
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch probe.Type {
	case TypeStatus:
		var w statusWire
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*r = Response{Type: TypeStatus, Status: &w.Status}
		return nil
	case TypeOK, TypeError:
		var w messageWire
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*r = Response{Type: probe.Type, Message: w.Message}
		return nil
	default:
		return fmt.Errorf("unknown response type %q", probe.Type)
	}
}
