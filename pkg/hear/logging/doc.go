// Package logging provides the event-shaped logging facade for the hear
// confidentiality layer.
//
// Logger has one method per orchestration-layer event (interposer opened, a
// communicator registered or freed, the buffer pool running dry, a profiled
// stage completing) rather than the usual Debug/Info/Warn/Error quartet:
// every method's parameter list is exactly the fields that event has to
// offer, so there is no call shape that a masked buffer, shared key, or
// nonce could be passed through even by mistake. Host applications can
// supply their own implementation to route these events into an existing
// logging pipeline.
//
// # Why this exists
//
// The mask engine and PRF kernel never hold a Logger reference — enforced by
// a static check in pkg/hear/internalcheck — because a log line that
// happened to include a masked buffer, a shared key, or a nonce would defeat
// the point of the confidentiality layer. Logging only happens at the
// interposer's orchestration layer, where only sizes, ranks, and
// communicator handles are in scope.
package logging
