// Package kmod loads the ec_sys kernel module and persists it across
// reboots. Everything here is best-effort: failures are reported to the
// caller for logging but must never abort the protocol path.
package kmod

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	moduleName    = "ec_sys"
	moduleOptions = "write_support=1"
)

// Bootstrap loads and persists ec_sys. The zero value runs the real
// modprobe against /etc; tests inject Run and EtcDir.
type Bootstrap struct {
	// Run executes a command. Nil means exec it for real.
	Run func(name string, args ...string) error

	// EtcDir is where persistence files land. Empty means /etc.
	EtcDir string
}

func (b Bootstrap) run(name string, args ...string) error {
	if b.Run != nil {
		return b.Run(name, args...)
	}
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, out)
	}
	return nil
}

func (b Bootstrap) etc() string {
	if b.EtcDir != "" {
		return b.EtcDir
	}
	return "/etc"
}

// Ensure loads ec_sys with write support if the EC interface at ecPath is
// not present yet.
func (b Bootstrap) Ensure(ecPath string) error {
	if _, err := os.Stat(ecPath); err == nil {
		return nil
	}
	if err := b.run("modprobe", moduleName, moduleOptions); err != nil {
		return fmt.Errorf("load %s: %w", moduleName, err)
	}
	return nil
}

// Persist writes the modules-load.d and modprobe.d entries so the module
// comes back with write support after a reboot.
func (b Bootstrap) Persist() error {
	loadFile := filepath.Join(b.etc(), "modules-load.d", moduleName+".conf")
	if err := writeFile(loadFile, moduleName+"\n"); err != nil {
		return err
	}
	optsFile := filepath.Join(b.etc(), "modprobe.d", moduleName+".conf")
	return writeFile(optsFile, fmt.Sprintf("options %s %s\n", moduleName, moduleOptions))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
