package repository

import "errors"

// ErrNoChange is returned by an update closure that decided nothing needs to
// be written. UpdateFn then returns the stored record and a nil error.
var ErrNoChange = errors.New("no change")
