// Package pedal maintains the backend process that runs user programs for
// the Pedal front-end: it spawns and supervises a separate interpreter
// process, speaks a line-framed protocol over its stdin/stdout pipes, and
// exposes a uniform command/state interface to the editor shell.
//
// The moving parts, bottom up: a codec turning commands and events into
// single JSON lines (wire.go), a process supervisor with a filtered
// environment and a ready handshake (process.go), two listener goroutines
// feeding a coalescing message queue (queue.go), a per-backend proxy owning
// the execution state machine (proxy.go, python_proxy.go), and a Runner that
// front-ends drive and subscribe to (runner.go).
package pedal
