package petdoor

import (
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// Observer receives client events for metrics collection. Methods are
// called synchronously and must not block or call back into the Client.
type Observer interface {
	MessageSent(command string, priority protocol.Priority)
	MessageReceived(command string, success bool)
	StateChanged(state State)
	Latency(d time.Duration)
	ReceiptTimeout(command string, dropped bool)
	KeepAliveFailure(failures int)
}

type noopObserver struct{}

func (noopObserver) MessageSent(string, protocol.Priority) {}
func (noopObserver) MessageReceived(string, bool)          {}
func (noopObserver) StateChanged(State)                    {}
func (noopObserver) Latency(time.Duration)                 {}
func (noopObserver) ReceiptTimeout(string, bool)           {}
func (noopObserver) KeepAliveFailure(int)                  {}

// Logger is the logging interface used by Client.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
