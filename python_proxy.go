package pedal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/pedal-ide/pedal-go/internal/logging"
)

// DefaultPythonInterpreter is the configuration option that resolves through
// BackendDeps.DefaultInterpreter instead of naming an executable directly.
const DefaultPythonInterpreter = "default"

// PythonProxy drives a CPython backend process over stdin/stdout pipes.
// One process at a time; Run/Debug/Reset replace it.
type PythonProxy struct {
	executable string
	deps       BackendDeps
	logger     *slog.Logger

	// mu is the state lock: it guards state, cwd, sysPath and the process
	// handle. It is never held across a blocking read; listener goroutines
	// take it only for the duration of a cwd update.
	mu      sync.Mutex
	state   ExecutionState
	cwd     string
	sysPath []string
	proc    *exec.Cmd
	stdin   io.WriteCloser
	queue   *messageQueue
}

// NewPythonProxy is the BackendFactory for the "Python" backend kind.
func NewPythonProxy(option string, deps BackendDeps) (BackendProxy, error) {
	executable := option
	if option == "" || option == DefaultPythonInterpreter {
		if deps.DefaultInterpreter == nil {
			return nil, fmt.Errorf("python backend: no default interpreter resolver configured")
		}
		resolved, err := deps.DefaultInterpreter()
		if err != nil {
			return nil, fmt.Errorf("python backend: resolve default interpreter: %w", err)
		}
		executable = resolved
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	proxy := &PythonProxy{
		executable: executable,
		deps:       deps,
		logger:     logger.With("component", "python-proxy"),
		cwd:        initialWorkingDir(deps.Store),
	}
	return proxy, nil
}

func initialWorkingDir(store *Store) string {
	if store != nil {
		cwd := store.Get().WorkingDirectory
		if cwd != "" {
			if info, err := os.Stat(cwd); err == nil && info.IsDir() {
				return cwd
			}
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// SendCommand implements the state machine: sending any toplevel, debugger
// or input command moves the state to running before dispatch; Run, Debug
// and Reset kill the current process and start a fresh one first.
func (proxy *PythonProxy) SendCommand(cmd Command) error {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()

	if restartsProcess(cmd) {
		// Check the executable before touching any state, so a missing
		// interpreter leaves the proxy exactly as it was.
		if _, err := os.Stat(proxy.executable); err != nil {
			return fmt.Errorf("%w: %s", ErrInterpreterNotFound, proxy.executable)
		}
	}

	if movesToRunning(cmd) {
		proxy.setStateLocked(StateRunning)
	}

	if restartsProcess(cmd) {
		proxy.killLocked()
		if err := proxy.startProcessLocked(cmd.(ToplevelCommand)); err != nil {
			return err
		}
	}

	if proxy.proc == nil || proxy.stdin == nil {
		return fmt.Errorf("%w: cannot send %T", ErrBackendUnavailable, cmd)
	}

	line, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if _, err := proxy.stdin.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	// A directory change takes effect on the tracked cwd immediately, not on
	// the backend's reply: the next command in a compound submission may be a
	// Run that restarts the process, and the fresh process must start in the
	// directory the cd named.
	if toplevel, ok := cmd.(ToplevelCommand); ok && toplevel.Command == "cd" && toplevel.Path != "" {
		if info, err := os.Stat(toplevel.Path); err == nil && info.IsDir() {
			proxy.cwd = toplevel.Path
		}
	}
	return nil
}

func (proxy *PythonProxy) SendProgramInput(data string) error {
	return proxy.SendCommand(InputSubmission{Data: data})
}

// FetchNextMessage pops the next coalesced event and applies the reply-driven
// state transitions: ToplevelResult, DebuggerProgress and InputRequest each
// mark what the backend is now waiting for.
func (proxy *PythonProxy) FetchNextMessage() Event {
	proxy.mu.Lock()
	queue := proxy.queue
	proxy.mu.Unlock()
	if queue == nil {
		return nil
	}

	event, ok := queue.dequeueNext()
	if !ok {
		return nil
	}

	proxy.mu.Lock()
	switch event.(type) {
	case ToplevelResult:
		proxy.setStateLocked(StateWaitingToplevelCommand)
	case DebuggerProgress:
		proxy.setStateLocked(StateWaitingDebugCommand)
	case InputRequest:
		proxy.setStateLocked(StateWaitingInput)
	}
	proxy.mu.Unlock()

	return event
}

func (proxy *PythonProxy) State() ExecutionState {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	return proxy.state
}

func (proxy *PythonProxy) Cwd() string {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	return proxy.cwd
}

func (proxy *PythonProxy) SysPath() []string {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	return append([]string(nil), proxy.sysPath...)
}

// KillCurrentProcess terminates the backend immediately. Pending messages
// are discarded along with the process; killing a finished process is a
// no-op.
func (proxy *PythonProxy) KillCurrentProcess() {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	proxy.killLocked()
}

func (proxy *PythonProxy) Description() string {
	return fmt.Sprintf("Python (current dir: %s)", proxy.Cwd())
}

func (proxy *PythonProxy) InterpreterCommand() string {
	return proxy.executable
}

func (proxy *PythonProxy) setStateLocked(state ExecutionState) {
	if proxy.state != state {
		proxy.logger.Debug("state changed", "from", string(proxy.state), "to", string(state))
		proxy.state = state
	}
}

func (proxy *PythonProxy) killLocked() {
	if proxy.proc == nil {
		return
	}
	proc := proxy.proc
	proxy.proc = nil
	proxy.stdin = nil
	proxy.queue = nil

	if proc.Process != nil {
		_ = proc.Process.Kill()
	}
	// Reap in the background; the listeners exit on pipe EOF.
	go func() { _ = proc.Wait() }()
}
