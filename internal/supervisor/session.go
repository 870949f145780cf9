package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Session is one live sidecar attached over its standard streams.
type Session interface {
	// Send writes one command line to the sidecar's stdin.
	Send(line []byte) error

	// Lines yields the sidecar's stdout one line at a time. The channel
	// closes when the pipe does.
	Lines() <-chan string

	// Kill tears the process down and reaps it. Safe to call more than
	// once; any lines still in flight are discarded by the channel
	// closing.
	Kill()
}

// Launcher spawns a new sidecar session. The production launcher goes
// through pkexec; tests inject fakes.
type Launcher interface {
	Launch() (Session, error)
}

// PkexecLauncher runs the sidecar binary with elevated rights through
// pkexec.
type PkexecLauncher struct {
	// SidecarPath overrides sidecar binary discovery. Empty means probe
	// next to the host executable, then let pkexec resolve the bare name.
	SidecarPath string

	// MockEC passes -mock to the sidecar, for development without the
	// ec_sys interface.
	MockEC bool
}

const sidecarBinary = "msi-sidecar"

func (l PkexecLauncher) Launch() (Session, error) {
	path := l.SidecarPath
	if path == "" {
		path = DefaultSidecarPath()
	}
	args := []string{path}
	if l.MockEC {
		args = append(args, "-mock")
	}

	cmd := exec.Command("pkexec", args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sidecar: %w", err)
	}

	s := &procSession{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 4),
		done:  make(chan struct{}),
	}
	go pumpLines(stdout, s.lines, s.done)
	return s, nil
}

// pumpLines forwards stdout lines into the channel until the pipe closes
// or done is closed. Closing done unblocks a pump stuck on a full channel
// with no receiver left, so Kill never leaks the reader goroutine.
func pumpLines(r io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-done:
			return
		}
	}
}

// DefaultSidecarPath probes for a bundled sidecar binary next to the host
// executable and falls back to the bare name for pkexec to resolve.
func DefaultSidecarPath() string {
	exe, err := os.Executable()
	if err != nil {
		return sidecarBinary
	}
	candidate := filepath.Join(filepath.Dir(exe), sidecarBinary)
	if _, err := os.Stat(candidate); err != nil {
		return sidecarBinary
	}
	if abs, err := filepath.Abs(candidate); err == nil {
		return abs
	}
	return candidate
}

type procSession struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	done  chan struct{}

	killOnce sync.Once
}

func (s *procSession) Send(line []byte) error {
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write to sidecar: %w", err)
	}
	return nil
}

func (s *procSession) Lines() <-chan string { return s.lines }

func (s *procSession) Kill() {
	s.killOnce.Do(func() {
		close(s.done)
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
}
