package pedal

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Wire format: one self-describing JSON object per newline-terminated line.
// Commands carry a "kind" tag, events a "message_type" tag. json.Marshal
// escapes control characters, so any payload encodes to exactly one line.

// EncodeCommand serializes cmd to a single line without the trailing newline.
// DecodeCommand is its exact inverse.
func EncodeCommand(cmd Command) ([]byte, error) {
	fields, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var frame map[string]any
	if err := json.Unmarshal(fields, &frame); err != nil {
		return nil, err
	}
	frame["kind"] = cmd.commandKind()
	return json.Marshal(frame)
}

// DecodeCommand parses a command frame produced by EncodeCommand.
func DecodeCommand(line []byte) (Command, error) {
	line = bytes.TrimSpace(line)
	var envelope struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, &MalformedMessageError{Line: string(line), Cause: err}
	}

	switch envelope.Kind {
	case commandKindToplevel:
		var cmd ToplevelCommand
		if err := unmarshalFrame(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case commandKindInline:
		var cmd InlineCommand
		if err := unmarshalFrame(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case commandKindDebugger:
		var cmd DebuggerCommand
		if err := unmarshalFrame(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case commandKindInput:
		var cmd InputSubmission
		if err := unmarshalFrame(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return nil, &MalformedMessageError{Line: string(line)}
	}
}

// EncodeEvent serializes event to a single line without the trailing newline.
func EncodeEvent(event Event) ([]byte, error) {
	fields, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var frame map[string]any
	if err := json.Unmarshal(fields, &frame); err != nil {
		return nil, err
	}
	frame["message_type"] = event.MessageType()
	return json.Marshal(frame)
}

// DecodeEvent parses one event frame. The original line is retained on the
// event so fields this package does not model reach the consumer unchanged.
func DecodeEvent(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)
	var envelope struct {
		MessageType string `json:"message_type"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, &MalformedMessageError{Line: string(line), Cause: err}
	}
	if strings.TrimSpace(envelope.MessageType) == "" {
		return nil, &MalformedMessageError{Line: string(line)}
	}

	raw := append(json.RawMessage(nil), line...)

	switch envelope.MessageType {
	case MessageTypeBackendReady:
		var event BackendReady
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	case MessageTypeToplevelResult:
		var event ToplevelResult
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	case MessageTypeDebuggerProgress:
		var event DebuggerProgress
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	case MessageTypeInputRequest:
		var event InputRequest
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	case MessageTypeProgramOutput:
		var event ProgramOutput
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	default:
		event := GenericEvent{Type: envelope.MessageType}
		if err := unmarshalFrame(line, &event); err != nil {
			return nil, err
		}
		event.raw = raw
		return event, nil
	}
}

func unmarshalFrame(line []byte, target any) error {
	if err := json.Unmarshal(line, target); err != nil {
		return &MalformedMessageError{Line: string(line), Cause: err}
	}
	return nil
}
