package ec

// Register offsets into the EC I/O space, from MSI EC documentation and
// community reverse engineering. The layout is shared across the MSI model
// families this tool targets; only the fan-mode register moves (see
// DetectFanModeOffset).
const (
	RegCPUTemp     = 0x68
	RegGPUTemp     = 0x80
	RegCoolerBoost = 0x98

	// Fan tachometer counters, 16-bit (low, high) pairs. Some firmware
	// revisions report fan 1 on the alternate pair only.
	RegFan1Low     = 0xC9
	RegFan1High    = 0xC8
	RegFan1AltLow  = 0xCD
	RegFan1AltHigh = 0xCC
	RegFan2Low     = 0xCB
	RegFan2High    = 0xCA

	// Fan mode register. Newer firmware keeps it at 0xD4, older at 0xF4.
	RegFanModePrimary  = 0xD4
	RegFanModeFallback = 0xF4

	// Seven consecutive set-points per fan, used in advanced mode.
	RegFan1Curve = 0x72
	RegFan2Curve = 0x8A
	CurvePoints  = 7
)

// CoolerBoostBit is bit 7 of RegCoolerBoost. The remaining bits of that
// register hold unrelated control flags and must be preserved on writes.
const CoolerBoostBit = 0x80

// SnapshotMinLen is the minimum snapshot length that reaches every register
// above.
const SnapshotMinLen = 0xFF
