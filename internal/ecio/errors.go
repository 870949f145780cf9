package ecio

import "errors"

// ErrReadOnly means the EC interface opened without write support; fan and
// boost writes are rejected instead of silently no-op'ing.
var ErrReadOnly = errors.New("EC interface is read-only")
