package pedal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, scenario string) (*Runner, *Store) {
	t.Helper()
	workDir := t.TempDir()
	store, err := OpenStore(filepath.Join(t.TempDir(), "options.yaml"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Update(func(options *Options) {
		options.WorkingDirectory = workDir
		options.BackendConfiguration = formatConfiguration("Python", setupFakeInterpreter(t, scenario))
	}))

	runner, err := NewRunner(RunnerConfig{
		Store:    store,
		Launcher: func() (string, error) { return filepath.Join(workDir, "backend_launcher.py"), nil },
	})
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return runner, store
}

// pumpUntil drives the pump by hand until the condition holds.
func pumpUntil(t *testing.T, runner *Runner, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runner.Pump()
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func waitIdle(t *testing.T, runner *Runner) {
	t.Helper()
	pumpUntil(t, runner, func() bool {
		return runner.State() == StateWaitingToplevelCommand
	})
}

func TestNewRunnerValidation(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "options.yaml"), nil)
	require.NoError(t, err)

	_, err = NewRunner(RunnerConfig{Launcher: func() (string, error) { return "", nil }})
	require.Error(t, err)

	_, err = NewRunner(RunnerConfig{Store: store})
	require.Error(t, err)
}

func TestResetBackendReachesIdle(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	require.NoError(t, runner.ResetBackend())
	assert.Equal(t, StateRunning, runner.State())

	waitIdle(t, runner)
	assert.Contains(t, runner.BackendDescription(), "Python")
	assert.NotEmpty(t, runner.InterpreterCommand())
	assert.Equal(t, []string{"/opt/backend/lib", "/opt/backend/site-packages"}, runner.SysPath())
}

func TestResetBackendUnknownKind(t *testing.T) {
	runner, store := newTestRunner(t, "")
	require.NoError(t, store.Update(func(options *Options) {
		options.BackendConfiguration = "Martian (/usr/bin/martian)"
	}))

	err := runner.ResetBackend()
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestPumpDispatchesToSubscribers(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	events, cancel, err := runner.Subscribe(DefaultSubscriptionPolicy())
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	var seen []string
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case event := <-events:
			seen = append(seen, event.MessageType())
		case <-deadline:
			t.Fatalf("only saw %v", seen)
		}
	}
	assert.Equal(t, MessageTypeBackendReady, seen[0])
	assert.Contains(t, seen, MessageTypeToplevelResult)
}

func TestExecuteScriptRunsAndReturnsLine(t *testing.T) {
	runner, store := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	workDir := store.Get().WorkingDirectory
	scriptPath := filepath.Join(workDir, "script.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte("print('hi')\n"), 0o644))

	events, cancel, err := runner.Subscribe(DefaultSubscriptionPolicy())
	require.NoError(t, err)
	defer cancel()

	line, err := runner.ExecuteScript(scriptPath, nil, "", "Run")
	require.NoError(t, err)
	assert.Equal(t, "%Run script.py\n", line)

	waitIdle(t, runner)

	var output string
	deadline := time.After(5 * time.Second)
	for output == "" {
		select {
		case event := <-events:
			if programOutput, ok := event.(ProgramOutput); ok {
				output = programOutput.Data
			}
		case <-deadline:
			t.Fatal("no program output")
		}
	}
	assert.Contains(t, output, "ran script.py")
}

func TestExecuteScriptChangesDirectory(t *testing.T) {
	runner, _ := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	projectDir := t.TempDir()
	scriptPath := filepath.Join(projectDir, "app.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte(""), 0o644))

	line, err := runner.ExecuteScript(scriptPath, []string{"a b"}, projectDir, "Run")
	require.NoError(t, err)
	assert.Equal(t, "%cd "+projectDir+"\n%Run app.py 'a b'\n", line)

	waitIdle(t, runner)
	assert.Equal(t, projectDir, runner.Cwd())
}

func TestExecuteCurrentAutoCD(t *testing.T) {
	runner, _ := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	projectDir := t.TempDir()
	scriptPath := filepath.Join(projectDir, "app.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte(""), 0o644))

	line, err := runner.ExecuteCurrent(scriptPath, "Run", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "%cd "), "capitalized command should change directory, got %q", line)
	waitIdle(t, runner)

	// Lowercase commands keep the current directory.
	line, err = runner.ExecuteCurrent(scriptPath, "run", false)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(line, "%cd "), "got %q", line)
	waitIdle(t, runner)
}

func TestExecuteCurrentAutoCDDisabled(t *testing.T) {
	runner, store := newTestRunner(t, "")
	require.NoError(t, store.Update(func(options *Options) {
		options.AutoCD = false
	}))
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	scriptPath := filepath.Join(t.TempDir(), "app.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte(""), 0o644))

	line, err := runner.ExecuteCurrent(scriptPath, "Run", false)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(line, "%cd "), "got %q", line)
	waitIdle(t, runner)

	line, err = runner.ExecuteCurrent(scriptPath, "Run", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "%cd "), "got %q", line)
}

func TestSubmitShellCommandRejectsBadSyntax(t *testing.T) {
	runner, _ := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, runner.SubmitShellCommand("%Frobnicate now\n"), &syntaxErr)
	require.ErrorAs(t, runner.SubmitShellCommand("%Run\n"), &syntaxErr)
}

func TestPumpPersistsWorkingDirectory(t *testing.T) {
	runner, store := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	target := t.TempDir()
	require.NoError(t, runner.SubmitShellCommand("%cd "+target+"\n"))
	pumpUntil(t, runner, func() bool {
		return store.Get().WorkingDirectory == target
	})
}

func TestStopResetWhenIdle(t *testing.T) {
	runner, _ := newTestRunner(t, "")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	require.NoError(t, runner.StopReset())
	assert.Equal(t, StateRunning, runner.State())
	waitIdle(t, runner)
}

func TestStopResetInterruptsHangingProgram(t *testing.T) {
	runner, _ := newTestRunner(t, "hang")
	require.NoError(t, runner.ResetBackend())
	waitIdle(t, runner)

	require.NoError(t, runner.SubmitShellCommand("%Run forever.py\n"))
	pumpUntil(t, runner, func() bool {
		return runner.State() == StateRunning
	})

	require.NoError(t, runner.StopReset())
	waitIdle(t, runner)
}

func TestRunnerWithoutBackend(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	_, err := runner.ExecuteScript("/tmp/x.py", nil, "", "Run")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, runner.SubmitShellCommand("%Reset\n"), ErrBackendUnavailable)
	assert.ErrorIs(t, runner.SendProgramInput("x\n"), ErrBackendUnavailable)
	assert.Equal(t, ExecutionState(""), runner.State())
	assert.Empty(t, runner.Cwd())
	assert.Empty(t, runner.BackendDescription())
	assert.Zero(t, runner.Pump())
}

func TestSubscribeValidatesPolicy(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	_, _, err := runner.Subscribe(SubscriptionPolicy{Buffer: 0, Mode: SubscriptionModeDrop})
	assert.ErrorIs(t, err, ErrInvalidSubscriptionPolicy)

	_, _, err = runner.Subscribe(SubscriptionPolicy{Buffer: 8, Mode: "ring"})
	assert.ErrorIs(t, err, ErrInvalidSubscriptionPolicy)
}

func TestStartDrivesPumpAutomatically(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	events, cancel, err := runner.Subscribe(DefaultSubscriptionPolicy())
	require.NoError(t, err)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	runner.Start(ctx)

	require.NoError(t, runner.ResetBackend())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if event.MessageType() == MessageTypeToplevelResult {
				return
			}
		case <-deadline:
			t.Fatal("pump loop never delivered the reset result")
		}
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	runner, _ := newTestRunner(t, "")

	events, _, err := runner.Subscribe(DefaultSubscriptionPolicy())
	require.NoError(t, err)

	runner.Close()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	_, _, err = runner.Subscribe(DefaultSubscriptionPolicy())
	assert.ErrorIs(t, err, ErrRunnerClosed)
}
