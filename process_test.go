package pedal

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedal-ide/pedal-go/internal/logging"
)

func TestDirectoryChangeAppliesBeforeRestart(t *testing.T) {
	proxy, _ := newTestProxy(t, "")
	require.NoError(t, proxy.SendCommand(ToplevelCommand{Command: "Reset"}))
	fetchEventOfType(t, proxy, MessageTypeToplevelResult)

	// Send cd and Run back to back, without waiting for the cd reply: the
	// restarted process must already be in the new directory.
	target := t.TempDir()
	require.NoError(t, proxy.SendCommand(ToplevelCommand{Command: "cd", Path: target}))
	assert.Equal(t, target, proxy.Cwd())

	require.NoError(t, proxy.SendCommand(ToplevelCommand{Command: "Run", Filename: "app.py"}))

	result := fetchEventOfType(t, proxy, MessageTypeToplevelResult)
	assert.Equal(t, target, result.eventCwd(), "fresh process must report the directory the cd named")
	assert.Equal(t, target, proxy.Cwd())
}

func TestDirectoryChangeToMissingPathNotTracked(t *testing.T) {
	proxy, _ := newTestProxy(t, "hang")
	require.NoError(t, proxy.SendCommand(ToplevelCommand{Command: "Reset"}))
	fetchEventOfType(t, proxy, MessageTypeToplevelResult)

	before := proxy.Cwd()
	require.NoError(t, proxy.SendCommand(ToplevelCommand{Command: "cd", Path: "/does/not/exist"}))
	assert.Equal(t, before, proxy.Cwd())
}

func TestStaleListenerCannotMoveWorkingDirectory(t *testing.T) {
	proxy := &PythonProxy{cwd: "/original", logger: logging.Default()}
	abandoned := newMessageQueue()
	proxy.queue = newMessageQueue()

	reader := bufio.NewReader(strings.NewReader(
		`{"message_type": "ToplevelResult", "cwd": "/stale"}` + "\n"))
	proxy.listenStdout(reader, abandoned, logging.Default())

	assert.Equal(t, "/original", proxy.Cwd(), "a replaced listener must not move the cwd")
	assert.Equal(t, 1, abandoned.len(), "events still land in the listener's own queue")
	assert.Equal(t, 0, proxy.queue.len())
}

func TestCurrentListenerMovesWorkingDirectory(t *testing.T) {
	proxy := &PythonProxy{cwd: "/original", logger: logging.Default()}
	queue := newMessageQueue()
	proxy.queue = queue

	reader := bufio.NewReader(strings.NewReader(
		`{"message_type": "ToplevelResult", "cwd": "/fresh"}` + "\n"))
	proxy.listenStdout(reader, queue, logging.Default())

	assert.Equal(t, "/fresh", proxy.Cwd())
	assert.Equal(t, 1, queue.len())
}
