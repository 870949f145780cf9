// Package supervisor owns the lifecycle of the privileged sidecar process:
// spawn, handshake, per-command send/receive with timeouts, and teardown on
// any failure. There is exactly one live session at a time system-wide (one
// EC device, one pipe), and requests against it are strictly serialized:
// the protocol has no correlation IDs, so responses match requests purely
// by pipe order.
package supervisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/protocol"
)

// Config carries the timeout bounds. Zero fields take the defaults.
type Config struct {
	// HandshakeTimeout bounds the wait for the initial status line after
	// spawning (pkexec may sit on an auth prompt, hence the larger bound).
	HandshakeTimeout time.Duration

	// RequestTimeout bounds one steady-state write+read round trip.
	RequestTimeout time.Duration

	// LockTimeout bounds the wait for exclusive access to the connection
	// slot, failing fast under contention instead of queuing indefinitely.
	LockTimeout time.Duration
}

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultRequestTimeout   = 3 * time.Second
	DefaultLockTimeout      = 1 * time.Second
)

// Supervisor serializes all access to the single sidecar connection slot.
type Supervisor struct {
	launcher Launcher
	cfg      Config

	// sem guards sess: hold a token to touch it. A channel semaphore so
	// acquisition can be bounded.
	sem  chan struct{}
	sess Session
}

func New(launcher Launcher, cfg Config) *Supervisor {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	return &Supervisor{
		launcher: launcher,
		cfg:      cfg,
		sem:      make(chan struct{}, 1),
	}
}

func (s *Supervisor) acquire(timeout time.Duration) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-time.After(timeout):
		return ErrBusy
	}
}

func (s *Supervisor) release() { <-s.sem }

// dropLocked kills the current session and leaves the slot disconnected.
// A hung or desynchronized pipe cannot be partially recovered: the
// line-oriented protocol has no resynchronization marker, so any late
// response from the old process must be discarded wholesale.
func (s *Supervisor) dropLocked() {
	if s.sess != nil {
		s.sess.Kill()
		s.sess = nil
	}
}

// Connect (re)spawns the sidecar and consumes its handshake status. An
// existing session is killed first, so Connect doubles as a restart.
func (s *Supervisor) Connect() (ec.Status, error) {
	if err := s.acquire(s.cfg.LockTimeout); err != nil {
		return ec.Status{}, err
	}
	defer s.release()

	s.dropLocked()

	sess, err := s.launcher.Launch()
	if err != nil {
		return ec.Status{}, fmt.Errorf("launch sidecar: %w", err)
	}

	resp, err := awaitResponse(sess, s.cfg.HandshakeTimeout)
	if err != nil {
		sess.Kill()
		return ec.Status{}, fmt.Errorf("sidecar handshake: %w", err)
	}
	switch resp.Type {
	case protocol.TypeStatus:
		s.sess = sess
		return *resp.Status, nil
	case protocol.TypeError:
		sess.Kill()
		return ec.Status{}, errors.New(resp.Message)
	default:
		sess.Kill()
		return ec.Status{}, fmt.Errorf("%w: handshake %q", ErrUnexpectedResponse, resp.Type)
	}
}

// Disconnect sends a best-effort Exit and unconditionally tears the
// process down. It never fails observably; this is a cleanup path.
func (s *Supervisor) Disconnect() {
	s.sem <- struct{}{}
	defer s.release()

	if s.sess == nil {
		return
	}
	if b, err := json.Marshal(protocol.Exit()); err == nil {
		_ = s.sess.Send(b)
	}
	s.dropLocked()
}

// Connected reports whether a session currently holds the slot.
func (s *Supervisor) Connected() bool {
	s.sem <- struct{}{}
	defer s.release()
	return s.sess != nil
}

// request performs one half-duplex round trip. On any I/O error or timeout
// the connection is dropped; the caller must reconnect before retrying.
func (s *Supervisor) request(cmd protocol.Command) (protocol.Response, error) {
	if err := s.acquire(s.cfg.LockTimeout); err != nil {
		return protocol.Response{}, err
	}
	defer s.release()

	if s.sess == nil {
		return protocol.Response{}, ErrNotConnected
	}

	b, err := json.Marshal(cmd)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("encode %s: %w", cmd.Cmd, err)
	}
	if err := s.sess.Send(b); err != nil {
		s.dropLocked()
		return protocol.Response{}, err
	}

	resp, err := awaitResponse(s.sess, s.cfg.RequestTimeout)
	if err != nil {
		s.dropLocked()
		return protocol.Response{}, fmt.Errorf("%s: %w", cmd.Cmd, err)
	}
	return resp, nil
}

// awaitResponse reads and decodes one response line within the bound. A
// decode failure counts as a broken pipe for the caller to act on.
func awaitResponse(sess Session, timeout time.Duration) (protocol.Response, error) {
	select {
	case line, ok := <-sess.Lines():
		if !ok {
			return protocol.Response{}, ErrPipeClosed
		}
		var resp protocol.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return protocol.Response{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		return resp, nil
	case <-time.After(timeout):
		return protocol.Response{}, ErrTimeout
	}
}

// ---- typed projections over request ----

// Status asks the sidecar for a fresh EC reading.
func (s *Supervisor) Status() (ec.Status, error) {
	resp, err := s.request(protocol.GetStatus())
	if err != nil {
		return ec.Status{}, err
	}
	switch resp.Type {
	case protocol.TypeStatus:
		return *resp.Status, nil
	case protocol.TypeError:
		return ec.Status{}, errors.New(resp.Message)
	default:
		return ec.Status{}, fmt.Errorf("%w: %q to get_status", ErrUnexpectedResponse, resp.Type)
	}
}

func (s *Supervisor) SetCoolerBoost(enabled bool) (string, error) {
	return s.ack(protocol.SetCoolerBoost(enabled))
}

func (s *Supervisor) SetFanSpeed(percent uint8) (string, error) {
	return s.ack(protocol.SetFanSpeed(percent))
}

func (s *Supervisor) SetFanMode(mode string) (string, error) {
	return s.ack(protocol.SetFanMode(mode))
}

// ack issues a write command expecting an Ok acknowledgement.
func (s *Supervisor) ack(cmd protocol.Command) (string, error) {
	resp, err := s.request(cmd)
	if err != nil {
		return "", err
	}
	switch resp.Type {
	case protocol.TypeOK:
		return resp.Message, nil
	case protocol.TypeError:
		return "", errors.New(resp.Message)
	default:
		return "", fmt.Errorf("%w: %q to %s", ErrUnexpectedResponse, resp.Type, cmd.Cmd)
	}
}
