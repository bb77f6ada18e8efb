package identity

import "errors"

// ErrUnavailable means no identity could be established this session.
var ErrUnavailable = errors.New("identity unavailable")
