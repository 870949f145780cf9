package ec

import "errors"

var (
	ErrShortSnapshot  = errors.New("EC snapshot too short")
	ErrUnknownFanMode = errors.New("unknown fan mode")
)
