package pedal

// ExecutionState describes what the backend is currently doing, as inferred
// from the message stream. Exactly one value is current at any instant; it is
// owned by the active proxy and mutated only under its lock.
type ExecutionState string

const (
	// StateRunning means a command or program is executing.
	StateRunning ExecutionState = "running"
	// StateWaitingInput means the running program asked for stdin data.
	StateWaitingInput ExecutionState = "waiting_input"
	// StateWaitingToplevelCommand means the backend is idle at the top level.
	StateWaitingToplevelCommand ExecutionState = "waiting_toplevel_command"
	// StateWaitingDebugCommand means a debug session awaits a step instruction.
	StateWaitingDebugCommand ExecutionState = "waiting_debug_command"
)
