package mplbackend

import "errors"

// ErrNotBuilt is returned by Open and by every error-returning Backend
// method in builds without cgo, or on Windows.
var ErrNotBuilt = errors.New("mplbackend: built without cgo/MPI support")
