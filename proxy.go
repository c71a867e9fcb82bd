package pedal

import (
	"fmt"
	"log/slog"
	"strings"
)

// BackendProxy is the command-sending façade over one interpreter family.
// All methods must be non-blocking apart from stdin writes, which are bounded
// by pipe buffering; they are called from the host's control thread.
type BackendProxy interface {
	// SendCommand encodes and dispatches cmd, updating the execution state
	// first. Run/Debug/Reset toplevel commands replace the backend process.
	SendCommand(cmd Command) error
	// SendProgramInput forwards data to the running program's stdin.
	SendProgramInput(data string) error
	// FetchNextMessage pops the next pending event, nil when the queue is
	// empty. Output events are coalesced per stream.
	FetchNextMessage() Event
	// State returns the current execution state.
	State() ExecutionState
	// Cwd returns the backend's tracked working directory.
	Cwd() string
	// SysPath returns the module search path from the latest handshake.
	SysPath() []string
	// KillCurrentProcess terminates the backend process immediately and
	// discards pending messages. A no-op when nothing is running.
	KillCurrentProcess()
	// Description is a short human-readable summary for the UI.
	Description() string
	// InterpreterCommand returns the executable used to invoke the backend.
	InterpreterCommand() string
}

// BackendDeps carries the collaborators a backend factory may need.
type BackendDeps struct {
	Store    *Store
	Logger   *slog.Logger
	Launcher LauncherFunc
	// DefaultInterpreter resolves the "default" configuration option, e.g.
	// to a managed virtualenv's interpreter. Required only when the option
	// is actually "default".
	DefaultInterpreter func() (string, error)
}

// BackendFactory builds a proxy from the option part of a backend
// configuration string.
type BackendFactory func(option string, deps BackendDeps) (BackendProxy, error)

// DefaultBackends maps backend kind names to factories. Runner copies this
// map unless configured otherwise.
func DefaultBackends() map[string]BackendFactory {
	return map[string]BackendFactory{
		"Python": NewPythonProxy,
	}
}

// parseConfiguration splits a backend configuration string into kind and
// option: "Python (/usr/bin/python3)" -> ("Python", "/usr/bin/python3"),
// "BBC micro:bit" -> ("BBC micro:bit", "").
func parseConfiguration(configuration string) (string, string) {
	kind, option, found := strings.Cut(configuration, "(")
	if !found {
		return strings.TrimSpace(configuration), ""
	}
	return strings.TrimSpace(kind), strings.Trim(option, " )")
}

func formatConfiguration(kind string, option string) string {
	if option == "" {
		return kind
	}
	return fmt.Sprintf("%s (%s)", kind, option)
}
