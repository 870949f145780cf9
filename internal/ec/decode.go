package ec

import "fmt"

// Snapshot is a raw one-shot read of the EC I/O space. It is owned by a
// single read/decode operation and discarded afterwards.
type Snapshot []byte

// rpmPulseRate converts a 16-bit tach counter into RPM. The constant
// encodes the EC's internal pulse-counting period; it is empirical and must
// not be altered without hardware validation.
const rpmPulseRate = 470000

// DecodeRPM combines a little-endian (low, high) tach pair into RPM.
func DecodeRPM(low, high byte) uint32 {
	v := uint32(high)<<8 | uint32(low)
	if v == 0 {
		return 0
	}
	return rpmPulseRate / v
}

// ApplyCoolerBoost sets or clears the boost bit, preserving every other bit
// of the control byte.
func ApplyCoolerBoost(b byte, enabled bool) byte {
	if enabled {
		return b | CoolerBoostBit
	}
	return b &^ CoolerBoostBit
}

// DetectFanModeOffset picks the applicable fan-mode register for this
// snapshot: 0xD4 when it already holds a known mode code, 0xF4 otherwise.
// The offset is model-dependent and not statically knowable, so callers
// must re-run this on a fresh snapshot before every write that depends on
// it.
func DetectFanModeOffset(snap Snapshot) int {
	if FanMode(snap[RegFanModePrimary]).Known() {
		return RegFanModePrimary
	}
	return RegFanModeFallback
}

// DefaultFan1RPMCeiling bounds the plausibility check on the alternate
// fan 1 tach pair. Empirical for current EC revisions.
const DefaultFan1RPMCeiling = 10000

// Decoder turns raw snapshots into Status values.
type Decoder struct {
	// Fan1RPMCeiling is the exclusive upper bound for accepting the
	// alternate fan 1 pair over the primary one.
	Fan1RPMCeiling uint32
}

func NewDecoder() Decoder {
	return Decoder{Fan1RPMCeiling: DefaultFan1RPMCeiling}
}

// Status decodes every modeled register from one snapshot.
func (d Decoder) Status(snap Snapshot) (Status, error) {
	if len(snap) < SnapshotMinLen {
		return Status{}, fmt.Errorf("%w: %d bytes, need %d", ErrShortSnapshot, len(snap), SnapshotMinLen)
	}
	return Status{
		CPUTemp:     snap[RegCPUTemp],
		GPUTemp:     snap[RegGPUTemp],
		Fan1RPM:     d.fan1RPM(snap),
		Fan2RPM:     DecodeRPM(snap[RegFan2Low], snap[RegFan2High]),
		CoolerBoost: snap[RegCoolerBoost]&CoolerBoostBit != 0,
		FanMode:     FanMode(snap[DetectFanModeOffset(snap)]),
	}, nil
}

// fan1RPM prefers the alternate pair when its reading is plausible. Some
// firmware revisions report valid data only there; the range check filters
// out garbage on the rest.
func (d Decoder) fan1RPM(snap Snapshot) uint32 {
	alt := DecodeRPM(snap[RegFan1AltLow], snap[RegFan1AltHigh])
	if alt > 0 && alt < d.Fan1RPMCeiling {
		return alt
	}
	return DecodeRPM(snap[RegFan1Low], snap[RegFan1High])
}
