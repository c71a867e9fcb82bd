package pedal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/google/uuid"
)

// startProcessLocked spawns a fresh backend process for a Run/Debug/Reset
// command: filtered environment, launcher entry script, synchronous ready
// handshake, then the two stream listeners. Called with the state lock held.
func (proxy *PythonProxy) startProcessLocked(cmd ToplevelCommand) error {
	if proxy.deps.Launcher == nil {
		return fmt.Errorf("python backend: launcher is required")
	}
	launcherPath, err := proxy.deps.Launcher()
	if err != nil {
		return fmt.Errorf("prepare launcher: %w", err)
	}

	// -u: unbuffered I/O; -B: no bytecode cache files.
	args := []string{"-u", "-B", launcherPath}
	if cmd.Filename != "" {
		args = append(args, cmd.Filename)
		args = append(args, cmd.Args...)
	}

	proc := exec.Command(proxy.executable, args...)
	proc.Dir = proxy.cwd
	proc.Env = buildEnv(cmd.Environment)

	stdin, err := proc.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	logger := proxy.logger.With("run_id", uuid.NewString()[:8])
	logger.Debug("starting backend", "executable", proxy.executable, "cwd", proxy.cwd)

	if err := proc.Start(); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}

	reader := bufio.NewReader(stdout)
	ready, err := readHandshake(reader, stderr, proc)
	if err != nil {
		return err
	}

	queue := newMessageQueue()
	proxy.sysPath = append([]string(nil), ready.Path...)
	queue.enqueue(ready)

	proxy.proc = proc
	proxy.stdin = stdin
	proxy.queue = queue

	rememberInterpreter(proxy.deps.Store, proxy.executable)

	go proxy.listenStdout(reader, queue, logger)
	go listenStderr(stderr, logger)
	return nil
}

// readHandshake consumes exactly one stdout line. EOF first means the
// process died before becoming ready; whatever it wrote to stderr is
// attached to the error.
func readHandshake(reader *bufio.Reader, stderr io.Reader, proc *exec.Cmd) (BackendReady, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil && len(bytes.TrimSpace(line)) == 0 {
		captured, _ := io.ReadAll(stderr)
		_ = proc.Wait()
		return BackendReady{}, &StartupError{Stderr: string(captured)}
	}

	event, decodeErr := DecodeEvent(line)
	if decodeErr != nil {
		killHandshakeFailure(proc)
		return BackendReady{}, decodeErr
	}
	ready, ok := event.(BackendReady)
	if !ok {
		killHandshakeFailure(proc)
		return BackendReady{}, &MalformedMessageError{Line: string(bytes.TrimSpace(line))}
	}
	return ready, nil
}

func killHandshakeFailure(proc *exec.Cmd) {
	if proc.Process != nil {
		_ = proc.Process.Kill()
	}
	go func() { _ = proc.Wait() }()
}

// listenStdout decodes frames until pipe EOF. The queue reference is bound
// at start and doubles as the process identity: a listener outliving its
// process can only ever append to the abandoned queue, and its cwd updates
// are ignored once a successor owns the proxy. Malformed lines are logged
// and skipped; decoding keeps going with the next line.
func (proxy *PythonProxy) listenStdout(reader *bufio.Reader, queue *messageQueue, logger *slog.Logger) {
	for {
		line, err := reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			event, decodeErr := DecodeEvent(trimmed)
			if decodeErr != nil {
				logger.Warn("dropping malformed frame", "line", string(trimmed))
			} else {
				if cwd := event.eventCwd(); cwd != "" {
					proxy.mu.Lock()
					if proxy.queue == queue {
						proxy.cwd = cwd
					}
					proxy.mu.Unlock()
				}
				queue.enqueue(event)
			}
		}
		if err != nil {
			logger.Debug("stdout listener finished")
			return
		}
	}
}

// listenStderr routes backend stderr to the diagnostic log. It never feeds
// the message queue.
func listenStderr(stderr io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) > 0 {
			logger.Debug("backend stderr", "line", string(text))
		}
	}
}

func rememberInterpreter(store *Store, executable string) {
	if store == nil {
		return
	}
	store.Update(func(options *Options) {
		for _, known := range options.UsedInterpreters {
			if known == executable {
				return
			}
		}
		options.UsedInterpreters = append(options.UsedInterpreters, executable)
	})
}
