package ecio

import (
	"fmt"
	"sync"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
)

// Write records one byte landing on a Memory device.
type Write struct {
	Offset int
	Value  byte
}

// Memory is an in-memory Device holding a 256-byte register image. It backs
// the protocol-level tests and the sidecar's -mock mode.
type Memory struct {
	mu       sync.Mutex
	image    [ec.SnapshotMinLen + 1]byte
	readOnly bool
	writes   []Write
}

// NewMemory returns a writable image seeded with plausible idle registers.
func NewMemory() *Memory {
	m := &Memory{}
	m.image[ec.RegCPUTemp] = 52
	m.image[ec.RegGPUTemp] = 45
	m.image[ec.RegFanModePrimary] = byte(ec.FanModeAuto)
	m.image[ec.RegFan1AltLow] = 188 // ~2500 RPM
	m.image[ec.RegFan2Low] = 235    // ~2000 RPM
	return m
}

// SetReadOnly makes subsequent writes fail the way a read-only ec_sys
// mount does.
func (m *Memory) SetReadOnly(ro bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = ro
}

func (m *Memory) Writable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.readOnly
}

func (m *Memory) ReadSnapshot() (ec.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(ec.Snapshot, len(m.image))
	copy(snap, m.image[:])
	return snap, nil
}

func (m *Memory) WriteByte(offset int, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return ErrReadOnly
	}
	if offset < 0 || offset >= len(m.image) {
		return fmt.Errorf("write offset %#02x out of range", offset)
	}
	m.image[offset] = value
	m.writes = append(m.writes, Write{Offset: offset, Value: value})
	return nil
}

// Set pokes a register directly without recording a write.
func (m *Memory) Set(offset int, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image[offset] = value
}

// At returns the current value of one register.
func (m *Memory) At(offset int) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image[offset]
}

// Writes returns every write performed so far, in order.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}
