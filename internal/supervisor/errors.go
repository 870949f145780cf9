package supervisor

import "errors"

var (
	ErrNotConnected       = errors.New("sidecar not running")
	ErrBusy               = errors.New("another sidecar command is in flight")
	ErrTimeout            = errors.New("sidecar request timed out")
	ErrPipeClosed         = errors.New("sidecar closed its output pipe")
	ErrUnexpectedResponse = errors.New("unexpected sidecar response")
)
