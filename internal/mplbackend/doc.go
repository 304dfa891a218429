// Package mplbackend implements hear.Collective against a real MPI
// installation via cgo. It follows the same split the example pack's own
// native bindings use: a cgo-enabled file that links the real library and a
// build-tag-excluded stub that compiles everywhere else and reports
// ErrNotBuilt, so the rest of the module never needs its own build tags to
// stay portable.
package mplbackend
