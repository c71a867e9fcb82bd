package pedal

// Command is a request sent to the backend process. The set of variants is
// closed: ToplevelCommand, InlineCommand, DebuggerCommand and InputSubmission.
type Command interface {
	commandKind() string
}

const (
	commandKindToplevel = "toplevel"
	commandKindInline   = "inline"
	commandKindDebugger = "debugger"
	commandKindInput    = "input"
)

// ToplevelCommand operates at the top-level execution scope: Run, Debug,
// Reset, cd. Run/Debug/Reset replace the backend process before dispatch.
type ToplevelCommand struct {
	Command     string            `json:"command"`
	Filename    string            `json:"filename,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Path        string            `json:"path,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

func (ToplevelCommand) commandKind() string { return commandKindToplevel }

// InlineCommand is a lightweight command not tied to program execution,
// such as the periodic UI refresh tick.
type InlineCommand struct {
	Command string `json:"command"`
}

func (InlineCommand) commandKind() string { return commandKindInline }

// DebuggerCommand is a step/continue instruction during a debug session.
type DebuggerCommand struct {
	Command string `json:"command"`
}

func (DebuggerCommand) commandKind() string { return commandKindDebugger }

// InputSubmission carries data destined for the running program's stdin.
type InputSubmission struct {
	Data string `json:"data"`
}

func (InputSubmission) commandKind() string { return commandKindInput }

// restartingCommands are the toplevel command names that replace the backend
// process before being dispatched to it.
var restartingCommands = map[string]bool{
	"Run":   true,
	"Debug": true,
	"Reset": true,
}

func restartsProcess(cmd Command) bool {
	toplevel, ok := cmd.(ToplevelCommand)
	return ok && restartingCommands[toplevel.Command]
}

// movesToRunning reports whether sending cmd transitions the state machine to
// StateRunning. Inline commands leave the state alone.
func movesToRunning(cmd Command) bool {
	switch cmd.(type) {
	case ToplevelCommand, DebuggerCommand, InputSubmission:
		return true
	default:
		return false
	}
}
