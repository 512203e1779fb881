package petdoor

import (
	"context"
	"sync"
)

// Status is the lifecycle state of a Pending request.
type Status int

// Request states. Only the first transition out of StatusPending counts.
const (
	StatusPending Status = iota
	StatusResolved
	StatusRejected
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Pending is the result handle of a request sent with WithNotify.
//
// It settles exactly once: resolved with the reply payload, rejected with
// an error, or cancelled by the caller. Later transitions are ignored.
type Pending struct {
	command string
	msgID   int

	mu       sync.Mutex
	status   Status
	payload  Payload
	err      error
	done     chan struct{}
	onCancel func()
}

func newPending(command string, msgID int) *Pending {
	return &Pending{
		command: command,
		msgID:   msgID,
		done:    make(chan struct{}),
	}
}

// Command returns the command the request carried.
func (p *Pending) Command() string { return p.command }

// MsgID returns the message id the reply must echo.
func (p *Pending) MsgID() int { return p.msgID }

// Status returns the current state.
func (p *Pending) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Done is closed once the request settles.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome without blocking. While the request is
// pending both values are nil.
func (p *Pending) Result() (Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload, p.err
}

// Wait blocks until the request settles or ctx is done. A ctx error does
// not cancel the request; call Cancel for that.
func (p *Pending) Wait(ctx context.Context) (Payload, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel abandons the request. It returns false if the request had
// already settled.
func (p *Pending) Cancel() bool {
	if !p.settle(StatusCancelled, nil, ErrCancelled) {
		return false
	}
	p.mu.Lock()
	fn := p.onCancel
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

func (p *Pending) resolve(payload Payload) bool {
	return p.settle(StatusResolved, payload, nil)
}

func (p *Pending) reject(err error) bool {
	return p.settle(StatusRejected, nil, err)
}

func (p *Pending) settle(status Status, payload Payload, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPending {
		return false
	}
	p.status = status
	p.payload = payload
	p.err = err
	close(p.done)
	return true
}
