package pedal

import "encoding/json"

// Event is a record emitted by the backend process, tagged by message type.
// The set of known variants is closed; frames with an unrecognized tag come
// through as GenericEvent so future backend additions survive the trip.
type Event interface {
	// MessageType returns the wire tag, e.g. "ProgramOutput".
	MessageType() string
	eventCwd() string
}

const (
	// MessageTypeBackendReady tags the startup handshake frame.
	MessageTypeBackendReady = "BackendReady"
	// MessageTypeToplevelResult tags completion of a toplevel command.
	MessageTypeToplevelResult = "ToplevelResult"
	// MessageTypeDebuggerProgress tags a paused debug session.
	MessageTypeDebuggerProgress = "DebuggerProgress"
	// MessageTypeInputRequest tags a program waiting on stdin.
	MessageTypeInputRequest = "InputRequest"
	// MessageTypeProgramOutput tags program stdout/stderr data.
	MessageTypeProgramOutput = "ProgramOutput"
)

// eventMeta carries the fields every frame may have. Cwd, when present,
// updates the proxy's tracked working directory. raw holds the original
// frame so consumers can read fields this package does not model.
type eventMeta struct {
	Cwd string `json:"cwd,omitempty"`

	raw json.RawMessage
}

func (meta eventMeta) eventCwd() string { return meta.Cwd }

// Raw returns the original frame the event was decoded from, or nil for
// synthesized events (e.g. coalesced output).
func (meta eventMeta) Raw() json.RawMessage { return meta.raw }

// BackendReady is the handshake frame a freshly spawned backend must emit as
// its first stdout line. Path is the backend's module search path.
type BackendReady struct {
	eventMeta
	Path []string `json:"path"`
}

func (BackendReady) MessageType() string { return MessageTypeBackendReady }

// ToplevelResult reports that the previous toplevel command finished.
type ToplevelResult struct {
	eventMeta
}

func (ToplevelResult) MessageType() string { return MessageTypeToplevelResult }

// DebuggerProgress reports that a debug session reached a stopping point and
// awaits the next DebuggerCommand.
type DebuggerProgress struct {
	eventMeta
}

func (DebuggerProgress) MessageType() string { return MessageTypeDebuggerProgress }

// InputRequest reports that the running program is blocked on stdin.
type InputRequest struct {
	eventMeta
}

func (InputRequest) MessageType() string { return MessageTypeInputRequest }

// ProgramOutput carries a chunk of the running program's output. Consecutive
// same-stream chunks are coalesced on dequeue.
type ProgramOutput struct {
	eventMeta
	StreamName string `json:"stream_name"`
	Data       string `json:"data"`
}

func (ProgramOutput) MessageType() string { return MessageTypeProgramOutput }

// GenericEvent is a frame with a tag this package does not know. It is
// delivered to consumers untouched via Raw.
type GenericEvent struct {
	eventMeta
	Type string `json:"message_type"`
}

func (event GenericEvent) MessageType() string { return event.Type }
