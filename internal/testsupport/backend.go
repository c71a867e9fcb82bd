// Package testsupport implements a scripted stand-in for the backend
// process. It speaks the same line-framed protocol from the other side of
// the pipes, building frames by hand so tests exercise the real codec
// against an independent implementation.
package testsupport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RunBackend drives one scenario over the current process's stdin/stdout,
// the way a freshly spawned backend would. The process arguments mirror the
// real invocation: [-u -B launcher [filename args...]].
func RunBackend(scenario string) error {
	switch scenario {
	case "die_before_handshake":
		fmt.Fprintln(os.Stderr, "Traceback (most recent call last):")
		fmt.Fprintln(os.Stderr, "ImportError: no module named pedal_backend")
		return fmt.Errorf("refusing to start")
	case "garbage_handshake":
		fmt.Println("this is not a frame")
		return nil
	}

	writer := bufio.NewWriter(os.Stdout)
	writeFrame(writer, map[string]any{
		"message_type": "BackendReady",
		"path":         []string{"/opt/backend/lib", "/opt/backend/site-packages"},
	})

	session := &session{
		scenario: scenario,
		writer:   writer,
		cwd:      mustGetwd(),
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var frame map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			return fmt.Errorf("bad command frame: %w", err)
		}
		if err := session.handle(frame); err != nil {
			return err
		}
	}
	return scanner.Err()
}

type session struct {
	scenario string
	writer   *bufio.Writer
	cwd      string
}

func (backend *session) handle(frame map[string]any) error {
	kind, _ := frame["kind"].(string)
	command, _ := frame["command"].(string)

	switch kind {
	case "inline":
		// Refresh ticks need no reply.
		return nil
	case "input":
		data, _ := frame["data"].(string)
		return backend.handleInput(data)
	case "debugger":
		return backend.handleDebugger(command)
	case "toplevel":
		return backend.handleToplevel(command, frame)
	default:
		return fmt.Errorf("unknown command kind %q", kind)
	}
}

func (backend *session) handleToplevel(command string, frame map[string]any) error {
	switch command {
	case "Reset":
		backend.emit(map[string]any{"message_type": "ToplevelResult", "cwd": backend.cwd})
	case "cd":
		path, _ := frame["path"].(string)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			backend.cwd = path
		}
		backend.emit(map[string]any{"message_type": "ToplevelResult", "cwd": backend.cwd})
	case "Run", "run":
		filename, _ := frame["filename"].(string)
		return backend.runScript(filename, frame)
	case "Debug", "debug":
		backend.emit(map[string]any{"message_type": "DebuggerProgress"})
	default:
		backend.emit(map[string]any{
			"message_type": "ToplevelResult",
			"error":        fmt.Sprintf("unknown command %q", command),
			"cwd":          backend.cwd,
		})
	}
	return nil
}

func (backend *session) runScript(filename string, frame map[string]any) error {
	switch backend.scenario {
	case "noisy_output":
		for i := 0; i < 20; i++ {
			backend.emit(map[string]any{
				"message_type": "ProgramOutput",
				"stream_name":  "stdout",
				"data":         fmt.Sprintf("chunk %d\n", i),
			})
		}
		backend.emit(map[string]any{
			"message_type": "ProgramOutput",
			"stream_name":  "stderr",
			"data":         "warning: done\n",
		})
	case "malformed_lines":
		fmt.Fprintln(os.Stdout, "!!! not json !!!")
		backend.writer.Flush()
		backend.emit(map[string]any{
			"message_type": "ProgramOutput",
			"stream_name":  "stdout",
			"data":         "survived\n",
		})
	case "input_request":
		backend.emit(map[string]any{"message_type": "InputRequest"})
		return nil
	case "stderr_chatter":
		fmt.Fprintln(os.Stderr, "debugger: stepping into frame 0")
		backend.emit(map[string]any{
			"message_type": "ProgramOutput",
			"stream_name":  "stdout",
			"data":         "ok\n",
		})
	case "hang":
		// Never answer: the state machine stays in running until a Reset.
		return nil
	default:
		args := stringArgs(frame)
		backend.emit(map[string]any{
			"message_type": "ProgramOutput",
			"stream_name":  "stdout",
			"data":         fmt.Sprintf("ran %s %s\n", filename, strings.Join(args, " ")),
		})
	}
	backend.emit(map[string]any{"message_type": "ToplevelResult", "cwd": backend.cwd})
	return nil
}

func (backend *session) handleInput(data string) error {
	backend.emit(map[string]any{
		"message_type": "ProgramOutput",
		"stream_name":  "stdout",
		"data":         "echo: " + data,
	})
	backend.emit(map[string]any{"message_type": "ToplevelResult", "cwd": backend.cwd})
	return nil
}

func (backend *session) handleDebugger(command string) error {
	if command == "continue" {
		backend.emit(map[string]any{"message_type": "ToplevelResult", "cwd": backend.cwd})
		return nil
	}
	backend.emit(map[string]any{"message_type": "DebuggerProgress"})
	return nil
}

func (backend *session) emit(frame map[string]any) {
	writeFrame(backend.writer, frame)
}

func writeFrame(writer *bufio.Writer, frame map[string]any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		panic(err)
	}
	writer.Write(payload)
	writer.WriteByte('\n')
	writer.Flush()
}

func stringArgs(frame map[string]any) []string {
	raw, _ := frame["args"].([]any)
	args := make([]string, 0, len(raw))
	for _, value := range raw {
		if text, ok := value.(string); ok {
			args = append(args, text)
		}
	}
	return args
}

func mustGetwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
