package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode builds an outbound message.
//
// The kind key carries the command name (or the nonce for a PING), msgId
// carries the request id and dir is always "p2d". Extra fields are merged
// at the top level; they may not overwrite the envelope keys.
func Encode(kind Kind, command string, msgID int, extra map[string]any) ([]byte, error) {
	msg := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		msg[k] = v
	}
	msg[string(kind)] = command
	msg[FieldMsgID] = msgID
	msg[FieldDirection] = DirectionToDoor

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", kind, command, err)
	}
	return data, nil
}

// Inbound is a decoded device frame. Only the envelope is interpreted here;
// Fields keeps every key (including the envelope) for category decoding.
type Inbound struct {
	// Success is the parsed "success" flag. Frames without the flag are
	// treated as successful.
	Success bool

	// Command is the CMD value naming the operation being answered.
	Command string

	// ReplyTo is the msgID the device echoed, valid when HasReplyTo is set.
	ReplyTo    int
	HasReplyTo bool

	// Fields holds the decoded object. Numbers are json.Number.
	Fields map[string]any
}

// Decode parses a single framed object.
func Decode(frame []byte) (*Inbound, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}

	in := &Inbound{Success: true, Fields: fields}

	if v, ok := fields[FieldSuccess]; ok {
		success, recognised := Bool(v)
		in.Success = recognised && success
	}
	if v, ok := fields[FieldCommand]; ok {
		in.Command, _ = String(v)
	}
	if v, ok := fields[FieldReplyID]; ok {
		in.ReplyTo, in.HasReplyTo = Int(v)
	}

	return in, nil
}

// ErrorText returns the device's failure description, if any.
func (in *Inbound) ErrorText() string {
	if v, ok := in.Fields[FieldError]; ok {
		if s, ok := String(v); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Object returns a nested object field.
func (in *Inbound) Object(key string) (map[string]any, bool) {
	v, ok := in.Fields[key].(map[string]any)
	return v, ok
}
