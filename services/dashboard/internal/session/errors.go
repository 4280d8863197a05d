package session

import "errors"

// ErrClosed is returned by Create after Close.
var ErrClosed = errors.New("session: registry closed")
