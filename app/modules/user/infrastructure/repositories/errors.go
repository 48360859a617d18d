package userdb

import "errors"

// ErrNotFound is returned when the requested user document does not exist.
var ErrNotFound = errors.New("user not found")
