package pedal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pedal-ide/pedal-go/internal/logging"
)

const defaultPumpInterval = 50 * time.Millisecond

// refreshCommand is the lightweight no-op sent between executions so any
// windows the user's program created stay responsive while the backend is
// idle.
const refreshCommand = "process_gui_events"

// RunnerConfig wires a Runner's collaborators. Everything except Store and
// Launcher has a usable default.
type RunnerConfig struct {
	// Store is the persisted option storage. Required.
	Store *Store
	// Launcher prepares the backend launch directory. Required.
	Launcher LauncherFunc
	// DefaultInterpreter resolves the "default" interpreter option.
	DefaultInterpreter func() (string, error)
	// Backends maps backend kind names to factories. Defaults to
	// DefaultBackends().
	Backends map[string]BackendFactory
	// Logger defaults to the package logger.
	Logger *slog.Logger
	// PumpInterval is the period of the message pump and the refresh tick.
	// Defaults to 50ms.
	PumpInterval time.Duration
}

// Runner owns exactly one live BackendProxy and is the single entry point
// the front-end uses to execute programs and observe backend state. It is
// not a process-wide singleton: construct one and pass it to whichever
// components need it.
type Runner struct {
	store    *Store
	backends map[string]BackendFactory
	deps     BackendDeps
	logger   *slog.Logger
	interval time.Duration
	hub      *eventHub

	mu    sync.Mutex
	proxy BackendProxy
}

// NewRunner builds a Runner. No backend process is started until the first
// ResetBackend call.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("runner: store is required")
	}
	if cfg.Launcher == nil {
		return nil, fmt.Errorf("runner: launcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	backends := cfg.Backends
	if backends == nil {
		backends = DefaultBackends()
	}
	interval := cfg.PumpInterval
	if interval <= 0 {
		interval = defaultPumpInterval
	}

	return &Runner{
		store:    cfg.Store,
		backends: backends,
		deps: BackendDeps{
			Store:              cfg.Store,
			Logger:             logger,
			Launcher:           cfg.Launcher,
			DefaultInterpreter: cfg.DefaultInterpreter,
		},
		logger:   logger.With("component", "runner"),
		interval: interval,
		hub:      newEventHub(),
	}, nil
}

// ResetBackend kills the current backend, re-reads the configured backend
// kind from the option store, builds a fresh proxy of that kind and issues a
// Reset. Startup failures are returned, never retried; the runner stays
// without a usable backend until the next successful reset.
func (runner *Runner) ResetBackend() error {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	if runner.proxy != nil {
		runner.proxy.KillCurrentProcess()
		runner.proxy = nil
	}

	configuration := runner.store.Get().BackendConfiguration
	kind, option := parseConfiguration(configuration)
	factory, ok := runner.backends[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}

	proxy, err := factory(option, runner.deps)
	if err != nil {
		return err
	}
	runner.proxy = proxy
	runner.logger.Info("backend reset", "configuration", configuration)
	return proxy.SendCommand(ToplevelCommand{Command: "Reset"})
}

// KillBackend terminates the current backend process, if any, and drops the
// proxy.
func (runner *Runner) KillBackend() {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy != nil {
		runner.proxy.KillCurrentProcess()
		runner.proxy = nil
	}
}

// ExecuteScript submits a run/debug instruction for scriptPath as a shell
// command line, prefixed with a directory change when workingDirectory is
// set and differs from the backend's current one. The submitted line is
// returned so the front-end can show it in the execution history.
func (runner *Runner) ExecuteScript(scriptPath string, args []string, workingDirectory string, commandName string) (string, error) {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	proxy, err := runner.proxyLocked()
	if err != nil {
		return "", err
	}

	line := buildScriptCommandLine(scriptPath, args, proxy.Cwd(), workingDirectory, commandName)
	if err := runner.submitLocked(line); err != nil {
		return "", err
	}
	return line, nil
}

// ExecuteCurrent runs the script open in the editor. With auto-cd enabled a
// capitalized command name (Run, Debug) switches to the script's directory
// first; alwaysChangeToScriptDir forces the switch regardless.
func (runner *Runner) ExecuteCurrent(scriptPath string, commandName string, alwaysChangeToScriptDir bool) (string, error) {
	scriptDir := filepath.Dir(scriptPath)

	workingDirectory := ""
	capitalized := commandName != "" && commandName[0] >= 'A' && commandName[0] <= 'Z'
	if (runner.store.Get().AutoCD && capitalized) || alwaysChangeToScriptDir {
		workingDirectory = scriptDir
	}
	return runner.ExecuteScript(scriptPath, nil, workingDirectory, commandName)
}

// SubmitShellCommand parses and dispatches one or more newline-separated
// shell command lines as a unit, so a %cd prefix and its %Run never
// interleave with another submission.
func (runner *Runner) SubmitShellCommand(cmdLine string) error {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	return runner.submitLocked(cmdLine)
}

func (runner *Runner) submitLocked(cmdLine string) error {
	proxy, err := runner.proxyLocked()
	if err != nil {
		return err
	}

	for _, line := range strings.Split(cmdLine, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, args, err := parseShellCommand(line)
		if err != nil {
			return err
		}
		cmd, err := commandFromShell(name, args)
		if err != nil {
			return err
		}
		if err := proxy.SendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// SendCommand forwards a raw command to the backend.
func (runner *Runner) SendCommand(cmd Command) error {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	proxy, err := runner.proxyLocked()
	if err != nil {
		return err
	}
	return proxy.SendCommand(cmd)
}

// SendProgramInput forwards data to the running program's stdin.
func (runner *Runner) SendProgramInput(data string) error {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	proxy, err := runner.proxyLocked()
	if err != nil {
		return err
	}
	return proxy.SendProgramInput(data)
}

// StopReset interrupts whatever is happening: when the backend is idle the
// reset goes through the shell path so it shows up in history, otherwise a
// raw Reset is sent to kill the running program.
func (runner *Runner) StopReset() error {
	if runner.State() == StateWaitingToplevelCommand {
		return runner.SubmitShellCommand("%Reset\n")
	}
	return runner.SendCommand(ToplevelCommand{Command: "Reset"})
}

// Pump drains the backend's message queue, publishing each event to
// subscribers, then persists the backend's working directory. It returns the
// number of events dispatched. Call it on a short fixed interval from the
// host event loop, or let Start do so.
func (runner *Runner) Pump() int {
	runner.mu.Lock()
	proxy := runner.proxy
	runner.mu.Unlock()
	if proxy == nil {
		return 0
	}

	count := 0
	for {
		event := proxy.FetchNextMessage()
		if event == nil {
			break
		}
		runner.logger.Debug("dispatching event", "message_type", event.MessageType(), "state", string(proxy.State()))
		runner.hub.publish(event)
		count++
	}

	if count > 0 {
		cwd := proxy.Cwd()
		if runner.store.Get().WorkingDirectory != cwd {
			if err := runner.store.Update(func(options *Options) {
				options.WorkingDirectory = cwd
			}); err != nil {
				runner.logger.Warn("persisting working directory failed", "error", err)
			}
		}
	}
	return count
}

// Start schedules the two periodic tasks on background goroutines: the
// message pump and the idle refresh tick that keeps program-created windows
// responsive between executions. Both stop when ctx is cancelled; no timer
// fires after that.
func (runner *Runner) Start(ctx context.Context) {
	go runner.runPeriodic(ctx, func() { runner.Pump() })
	go runner.runPeriodic(ctx, runner.refreshTick)
}

func (runner *Runner) runPeriodic(ctx context.Context, tick func()) {
	ticker := time.NewTicker(runner.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (runner *Runner) refreshTick() {
	runner.mu.Lock()
	proxy := runner.proxy
	runner.mu.Unlock()
	if proxy == nil || proxy.State() != StateWaitingToplevelCommand {
		return
	}
	if err := proxy.SendCommand(InlineCommand{Command: refreshCommand}); err != nil {
		runner.logger.Debug("refresh tick failed", "error", err)
	}
}

// Subscribe registers a consumer for pump events. The returned cancel
// function must be called to release the subscription.
func (runner *Runner) Subscribe(policy SubscriptionPolicy) (<-chan Event, func(), error) {
	return runner.hub.subscribe(policy)
}

// State returns the backend execution state, or the empty state when no
// backend exists.
func (runner *Runner) State() ExecutionState {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy == nil {
		return ""
	}
	return runner.proxy.State()
}

// Cwd returns the backend's tracked working directory.
func (runner *Runner) Cwd() string {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy == nil {
		return ""
	}
	return runner.proxy.Cwd()
}

// SysPath returns the backend's module search path from the latest
// handshake.
func (runner *Runner) SysPath() []string {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy == nil {
		return nil
	}
	return runner.proxy.SysPath()
}

// BackendDescription returns a short summary of the current backend for the
// UI, or "" when none exists.
func (runner *Runner) BackendDescription() string {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy == nil {
		return ""
	}
	return runner.proxy.Description()
}

// InterpreterCommand returns the executable invoking the current backend.
func (runner *Runner) InterpreterCommand() string {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.proxy == nil {
		return ""
	}
	return runner.proxy.InterpreterCommand()
}

// Close kills the backend and closes all subscriber channels.
func (runner *Runner) Close() {
	runner.KillBackend()
	runner.hub.close()
}

func (runner *Runner) proxyLocked() (BackendProxy, error) {
	if runner.proxy == nil {
		return nil, ErrBackendUnavailable
	}
	return runner.proxy, nil
}
