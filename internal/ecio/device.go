// Package ecio performs the actual I/O against the EC debug interface and
// layers the write operations (cooler boost, fan curve, fan mode) on top of
// the pure decoders in internal/ec.
package ecio

import (
	"fmt"
	"io"
	"os"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
)

// DefaultPath is where the ec_sys kernel module exposes the EC I/O space.
const DefaultPath = "/sys/kernel/debug/ec/ec0/io"

// Device is the byte-addressable EC interface the operation layer runs on.
// File talks to real hardware; Memory backs tests and mock mode.
type Device interface {
	// ReadSnapshot reads the whole I/O space in one shot.
	ReadSnapshot() (ec.Snapshot, error)

	// WriteByte seeks to offset and writes a single byte.
	WriteByte(offset int, value byte) error

	// Writable reports whether the interface accepted a write open.
	Writable() bool
}

// File is a Device backed by the ec_sys debugfs file. Every operation opens
// the file fresh and closes it again; the interface can be reloaded between
// calls and a held descriptor would go stale.
type File struct {
	path     string
	writable bool
}

// OpenFile probes the EC interface at path. It tries read+write first and
// falls back to read-only, mirroring what a sidecar without
// write_support=1 gets.
func OpenFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	if f, err := os.OpenFile(path, os.O_RDWR, 0); err == nil {
		f.Close()
		return &File{path: path, writable: true}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open EC interface %s: %w (is ec_sys loaded?)", path, err)
	}
	f.Close()
	return &File{path: path, writable: false}, nil
}

func (d *File) Writable() bool { return d.writable }

func (d *File) ReadSnapshot() (ec.Snapshot, error) {
	b, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read EC snapshot: %w", err)
	}
	return ec.Snapshot(b), nil
}

func (d *File) WriteByte(offset int, value byte) error {
	if !d.writable {
		return ErrReadOnly
	}
	f, err := os.OpenFile(d.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open EC interface for write: %w", err)
	}
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("seek EC offset %#02x: %w", offset, err)
	}
	if _, err := f.Write([]byte{value}); err != nil {
		f.Close()
		return fmt.Errorf("write EC offset %#02x: %w", offset, err)
	}
	// The interface does not buffer partial writes; a failed close means
	// the byte may not have landed.
	if err := f.Close(); err != nil {
		return fmt.Errorf("flush EC write at %#02x: %w", offset, err)
	}
	return nil
}
