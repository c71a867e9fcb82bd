package pedal

import (
	"path/filepath"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/shlex"
)

// Shell command lines are how executions enter the system: "%Run script.py
// arg" exactly as the user would have typed it, so the shell history shows
// what actually ran. Splitting follows shell quoting rules; synthesized
// lines quote every argument so paths with spaces round-trip.

func parseShellCommand(line string) (string, []string, error) {
	tokens, err := shlex.Split(strings.TrimSpace(line))
	if err != nil {
		return "", nil, &SyntaxError{Message: err.Error()}
	}
	if len(tokens) == 0 {
		return "", nil, &SyntaxError{Message: "empty command line"}
	}
	name := strings.TrimPrefix(tokens[0], "%")
	if name == "" {
		return "", nil, &SyntaxError{Message: "missing command name"}
	}
	return name, tokens[1:], nil
}

// commandFromShell validates the argument shape for a parsed shell command
// and produces the toplevel command to dispatch. Shape violations are
// rejected here, before anything reaches the codec.
func commandFromShell(name string, args []string) (ToplevelCommand, error) {
	switch name {
	case "Run", "run", "Debug", "debug":
		if len(args) < 1 {
			return ToplevelCommand{}, &SyntaxError{Command: name, Message: "takes at least one argument"}
		}
		return ToplevelCommand{Command: name, Filename: args[0], Args: args[1:]}, nil
	case "Reset":
		if len(args) != 0 {
			return ToplevelCommand{}, &SyntaxError{Command: name, Message: "doesn't take arguments"}
		}
		return ToplevelCommand{Command: "Reset"}, nil
	case "cd":
		if len(args) != 1 {
			return ToplevelCommand{}, &SyntaxError{Command: name, Message: "takes one argument"}
		}
		return ToplevelCommand{Command: "cd", Path: args[0]}, nil
	default:
		return ToplevelCommand{}, &SyntaxError{Command: name, Message: "unknown command"}
	}
}

// buildScriptCommandLine synthesizes the line(s) submitted for a script
// execution: an optional %cd prefix when the target directory differs from
// the backend's current one, then the run/debug instruction with the script
// path made relative to the directory it will run in.
func buildScriptCommandLine(scriptPath string, args []string, cwd string, workingDirectory string, commandName string) string {
	var builder strings.Builder

	nextCwd := cwd
	if workingDirectory != "" && workingDirectory != cwd {
		builder.WriteString("%cd ")
		builder.WriteString(shellescape.Quote(workingDirectory))
		builder.WriteString("\n")
		nextCwd = workingDirectory
	}

	builder.WriteString("%")
	builder.WriteString(commandName)
	builder.WriteString(" ")
	builder.WriteString(shellescape.Quote(relativeTo(scriptPath, nextCwd)))
	for _, arg := range args {
		builder.WriteString(" ")
		builder.WriteString(shellescape.Quote(arg))
	}
	builder.WriteString("\n")
	return builder.String()
}

func relativeTo(path string, base string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
