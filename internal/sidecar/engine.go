// Package sidecar implements the read-eval-respond loop that runs inside
// the privileged helper process. Stdout carries exactly one JSON line per
// response; anything diagnostic goes to the log writer instead.
package sidecar

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/ecio"
	"github.com/desingh-rajan/msi-fan-control/internal/protocol"
)

// readOnlyMessage mirrors the wording the ec_sys documentation uses, so a
// user seeing the error knows the module option to flip.
const readOnlyMessage = "Write access disabled. Load ec_sys with write_support=1"

// Engine dispatches commands from in against the EC controller and writes
// one response line per command to out. No locking: the host supervisor
// guarantees a single in-flight command.
type Engine struct {
	ctrl *ecio.Controller
	in   io.Reader
	out  io.Writer
}

func New(ctrl *ecio.Controller, in io.Reader, out io.Writer) *Engine {
	return &Engine{ctrl: ctrl, in: in, out: out}
}

// Run emits the initial status handshake and then serves commands until
// Exit or end of input.
func (e *Engine) Run() error {
	if st, err := e.ctrl.Status(); err != nil {
		if werr := e.respond(protocol.Error(err.Error())); werr != nil {
			return werr
		}
	} else if err := e.respond(protocol.StatusResponse(st)); err != nil {
		return err
	}

	sc := bufio.NewScanner(e.in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var cmd protocol.Command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			// Bad input does not terminate the session.
			if werr := e.respond(protocol.Error("Invalid command: " + err.Error())); werr != nil {
				return werr
			}
			continue
		}

		done, err := e.dispatch(cmd)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return sc.Err()
}

// dispatch runs one command and writes its single response line. The
// returned bool is true after Exit.
func (e *Engine) dispatch(cmd protocol.Command) (bool, error) {
	switch cmd.Cmd {
	case protocol.CmdGetStatus:
		st, err := e.ctrl.Status()
		if err != nil {
			return false, e.respond(protocol.Error(err.Error()))
		}
		return false, e.respond(protocol.StatusResponse(st))

	case protocol.CmdSetCoolerBoost:
		var args protocol.CoolerBoostArgs
		if err := cmd.DecodeArgs(&args); err != nil {
			return false, e.respond(protocol.Error("Invalid command: " + err.Error()))
		}
		if err := e.ctrl.SetCoolerBoost(args.Enabled); err != nil {
			return false, e.respondWriteError(err)
		}
		if args.Enabled {
			return false, e.respond(protocol.OK("Cooler Boost enabled"))
		}
		return false, e.respond(protocol.OK("Cooler Boost disabled"))

	case protocol.CmdSetFanSpeed:
		var args protocol.FanSpeedArgs
		if err := cmd.DecodeArgs(&args); err != nil {
			return false, e.respond(protocol.Error("Invalid command: " + err.Error()))
		}
		if err := e.ctrl.SetFanSpeed(args.Percent); err != nil {
			return false, e.respondWriteError(err)
		}
		return false, e.respond(protocol.OK(fmt.Sprintf("Fan speed set to %d%%", args.Percent)))

	case protocol.CmdSetFanMode:
		var args protocol.FanModeArgs
		if err := cmd.DecodeArgs(&args); err != nil {
			return false, e.respond(protocol.Error("Invalid command: " + err.Error()))
		}
		mode, err := ec.ParseFanMode(args.Mode)
		if err != nil {
			return false, e.respond(protocol.Error(err.Error()))
		}
		if err := e.ctrl.SetFanMode(mode); err != nil {
			return false, e.respondWriteError(err)
		}
		return false, e.respond(protocol.OK("Fan mode set to " + mode.String()))

	case protocol.CmdExit:
		return true, e.respond(protocol.OK("Goodbye"))

	default:
		return false, e.respond(protocol.Error(fmt.Sprintf("Invalid command: unknown cmd %q", cmd.Cmd)))
	}
}

func (e *Engine) respondWriteError(err error) error {
	if errors.Is(err, ecio.ErrReadOnly) {
		return e.respond(protocol.Error(readOnlyMessage))
	}
	return e.respond(protocol.Error(err.Error()))
}

// respond writes one self-contained JSON line, no batching.
func (e *Engine) respond(r protocol.Response) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := e.out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
