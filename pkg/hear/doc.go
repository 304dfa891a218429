// Package hear implements a transparent confidentiality layer for the
// all-reduce collective of a message-passing parallel runtime.
//
// It intercepts the global all-reduce — every participant contributes a
// vector, every participant receives the element-wise reduction — and
// performs the reduction over masked contributions, so that the underlying
// transport only ever carries ciphertext while every rank still recovers the
// correct plaintext aggregate. The trick exploits the homomorphism of
// integer addition, integer multiplication, and (approximately) floating
// point addition under a keyed additive or multiplicative mask: the
// unmodified reduction primitive of the underlying runtime still computes
// the right answer once the masks are designed to cancel.
//
// # Supported operations
//
// Only three (datatype, operator) pairs are intercepted: (int32, sum),
// (int32, prod) and (float32, sum); (float32, prod) is not supported. Any
// other combination bypasses the package entirely and is forwarded untouched
// to the real collective.
//
// # Threat model
//
// The design defends against a curious transport or observer, not a
// malicious participant: there is no authentication, and corrupted ciphertext
// produces silent numerical garbage rather than a detectable failure.
//
// # The Collective contract
//
// hear never talks to a real message-passing runtime directly. Callers
// supply a Collective implementation — the Go analogue of shadow-calling the
// real collective from inside a PMPI-style interposed wrapper. Two
// implementations live alongside this package: internal/mplbackend (a cgo
// binding to a real MPI-like library) and internal/mplsim (an in-process
// simulated transport used by tests and the CLI driver).
package hear
