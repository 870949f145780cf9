package ecio

import (
	"fmt"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
)

// Controller implements the EC operations over a Device. Every write path
// re-reads a fresh snapshot to make its addressing decision; the interface
// can change between calls and stale addressing would corrupt unrelated
// registers.
type Controller struct {
	dev Device
	dec ec.Decoder
}

func NewController(dev Device) *Controller {
	return &Controller{dev: dev, dec: ec.NewDecoder()}
}

func (c *Controller) Writable() bool { return c.dev.Writable() }

// Status reads one snapshot and runs every decoder over it.
func (c *Controller) Status() (ec.Status, error) {
	snap, err := c.dev.ReadSnapshot()
	if err != nil {
		return ec.Status{}, err
	}
	return c.dec.Status(snap)
}

// SetCoolerBoost read-modify-writes bit 7 of the control register. No
// post-write verification: the caller polls status afterwards if it wants
// confirmation.
func (c *Controller) SetCoolerBoost(enabled bool) error {
	if !c.dev.Writable() {
		return ErrReadOnly
	}
	snap, err := c.dev.ReadSnapshot()
	if err != nil {
		return err
	}
	if len(snap) < ec.SnapshotMinLen {
		return fmt.Errorf("%w: %d bytes", ec.ErrShortSnapshot, len(snap))
	}
	return c.dev.WriteByte(ec.RegCoolerBoost, ec.ApplyCoolerBoost(snap[ec.RegCoolerBoost], enabled))
}

// SetFanSpeed switches the EC to advanced mode and writes percent to all
// fourteen curve set-points. A failure partway leaves the EC in a mixed
// state; that is surfaced as an error and the caller should re-issue.
func (c *Controller) SetFanSpeed(percent byte) error {
	if !c.dev.Writable() {
		return ErrReadOnly
	}
	snap, err := c.dev.ReadSnapshot()
	if err != nil {
		return err
	}
	if len(snap) < ec.SnapshotMinLen {
		return fmt.Errorf("%w: %d bytes", ec.ErrShortSnapshot, len(snap))
	}
	if err := c.dev.WriteByte(ec.DetectFanModeOffset(snap), byte(ec.FanModeAdvanced)); err != nil {
		return err
	}
	for i := 0; i < ec.CurvePoints; i++ {
		if err := c.dev.WriteByte(ec.RegFan1Curve+i, percent); err != nil {
			return err
		}
	}
	for i := 0; i < ec.CurvePoints; i++ {
		if err := c.dev.WriteByte(ec.RegFan2Curve+i, percent); err != nil {
			return err
		}
	}
	return nil
}

// SetFanMode writes a known mode code to the detected mode register.
// Unknown modes are rejected before any I/O.
func (c *Controller) SetFanMode(mode ec.FanMode) error {
	if !mode.Known() {
		return fmt.Errorf("%w: %s", ec.ErrUnknownFanMode, mode)
	}
	if !c.dev.Writable() {
		return ErrReadOnly
	}
	snap, err := c.dev.ReadSnapshot()
	if err != nil {
		return err
	}
	if len(snap) < ec.SnapshotMinLen {
		return fmt.Errorf("%w: %d bytes", ec.ErrShortSnapshot, len(snap))
	}
	return c.dev.WriteByte(ec.DetectFanModeOffset(snap), byte(mode))
}
