// Package mplsim is an in-process, multi-goroutine simulation of a
// message-passing library's collective operations. It exists purely to
// drive pkg/hear's test suite and the cmd/hear-sim CLI without requiring a
// real MPI installation.
//
// One Cluster models one MPI_COMM_WORLD: a fixed number of ranks, each
// represented by an Endpoint running in its own goroutine. Endpoint
// implements hear.Collective. All-reduce, all-gather, and broadcast are
// implemented as a reusable cyclic barrier: every participating rank writes
// its contribution, then blocks in arrive(); the last rank to arrive runs a
// combine step (computing the gathered vector, the broadcast value, or the
// element-wise reduction) once, then releases everyone, who each read the
// shared result out of the communicator's state.
//
// This mirrors, at a collective rather than point-to-point granularity, the
// approach the example pack's mock network and mock session types take:
// simulate the transport with ordinary goroutines and synchronization
// primitives so the real protocol code under test never knows it isn't
// talking to a real multi-process runtime.
package mplsim
