package library

import "errors"

// ErrNotFound is returned when a track is not in the library database.
var ErrNotFound = errors.New("media was not found in the library")
