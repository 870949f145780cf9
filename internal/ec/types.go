package ec

import (
	"encoding/json"
	"fmt"
)

// FanMode is the raw EC fan-mode code.
type FanMode byte

const (
	FanModeAuto     FanMode = 0x0D
	FanModeSilent   FanMode = 0x1D
	FanModeBasic    FanMode = 0x4D
	FanModeAdvanced FanMode = 0x8D
)

// Known reports whether the code is one of the documented modes. Unknown
// codes still decode to a valid status; they just render as unknown(0x..).
func (m FanMode) Known() bool {
	return m == FanModeAuto || m == FanModeSilent || m == FanModeBasic || m == FanModeAdvanced
}

func (m FanMode) String() string {
	switch m {
	case FanModeAuto:
		return "auto"
	case FanModeSilent:
		return "silent"
	case FanModeBasic:
		return "basic"
	case FanModeAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(m))
	}
}

// ParseFanMode maps a mode name back to its EC code.
func ParseFanMode(s string) (FanMode, error) {
	switch s {
	case "auto":
		return FanModeAuto, nil
	case "silent":
		return FanModeSilent, nil
	case "basic":
		return FanModeBasic, nil
	case "advanced":
		return FanModeAdvanced, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFanMode, s)
	}
}

// FanMode travels as its string form on the wire, including the
// unknown(0x..) rendering for undocumented codes.
func (m FanMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *FanMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, err := ParseFanMode(s); err == nil {
		*m = parsed
		return nil
	}
	var raw byte
	if _, err := fmt.Sscanf(s, "unknown(0x%02x)", &raw); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownFanMode, s)
	}
	*m = FanMode(raw)
	return nil
}

// Status is a point-in-time reading of the EC. It is produced fresh on
// every request; hardware state can change between reads, so it is never
// cached.
type Status struct {
	CPUTemp     uint8   `json:"cpu_temp"`
	GPUTemp     uint8   `json:"gpu_temp"`
	Fan1RPM     uint32  `json:"fan1_rpm"`
	Fan2RPM     uint32  `json:"fan2_rpm"`
	CoolerBoost bool    `json:"cooler_boost"`
	FanMode     FanMode `json:"fan_mode"`
}
