package protocol

import "errors"

// Domain errors for wire handling.
var (
	// ErrNoObjectStart is returned when the stream does not begin with '{'.
	// The protocol has no delimiter, so anything else means the stream is
	// out of step with the device.
	ErrNoObjectStart = errors.New("protocol: frame does not start with '{'")

	// ErrFrameTooLarge is returned when buffered data exceeds the frame limit
	// without producing a complete object.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

	// ErrMalformedFrame is returned when a framed block is not valid JSON.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
)
