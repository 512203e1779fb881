package petdoor

import (
	"errors"
	"fmt"
)

// Domain errors for the door client.
var (
	// ErrNotConnected indicates a message was sent while no connection is up.
	ErrNotConnected = errors.New("petdoor: not connected")

	// ErrConnectionTerminated rejects every outstanding request when the
	// connection goes down.
	ErrConnectionTerminated = errors.New("petdoor: connection terminated")

	// ErrCommandFailed indicates the door answered with success "false".
	ErrCommandFailed = errors.New("petdoor: command failed")

	// ErrReceiptTimeout indicates the door never answered a message, even
	// after retransmission.
	ErrReceiptTimeout = errors.New("petdoor: no reply from door")

	// ErrLivenessTimeout is the disconnect cause after repeated missed PONGs.
	ErrLivenessTimeout = errors.New("petdoor: keepalive failed")

	// ErrCancelled indicates the caller cancelled a pending request.
	ErrCancelled = errors.New("petdoor: request cancelled")

	// ErrShuttingDown indicates the client has been stopped.
	ErrShuttingDown = errors.New("petdoor: client stopped")

	// ErrUnexpectedPayload indicates a reply did not carry the data the
	// request asked for.
	ErrUnexpectedPayload = errors.New("petdoor: unexpected reply")

	// ErrInvalidConfig indicates the client configuration is unusable.
	ErrInvalidConfig = errors.New("petdoor: invalid configuration")
)

// CommandError is a failure reported by the door for one command.
type CommandError struct {
	// Command is the CMD the door reported the failure for.
	Command string

	// Reason is the door's error text, if any.
	Reason string
}

func (e *CommandError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrCommandFailed, e.Command)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCommandFailed, e.Command, e.Reason)
}

// Unwrap allows errors.Is(err, ErrCommandFailed).
func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}
