package http

import "errors"

// ErrUnauthorized is returned when admin authentication fails.
var ErrUnauthorized = errors.New("unauthorized")
