package petdoor

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Defaults for door communication.
const (
	// DefaultPort is the door's TCP port.
	DefaultPort = 3000

	// DefaultConnectTimeout bounds each dial attempt.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultReconnectDelay is the pause between a disconnect and the next
	// connection attempt.
	DefaultReconnectDelay = 30 * time.Second

	// DefaultKeepAlive is the idle time after the last write before a PING.
	DefaultKeepAlive = 30 * time.Second

	// DefaultPingTimeout is how long to wait for a PONG.
	DefaultPingTimeout = 5 * time.Second

	// DefaultReceiptTimeout is how long to wait for any reply to a message.
	DefaultReceiptTimeout = 5 * time.Second

	// DefaultMinSpacing is the minimum gap between two writes.
	DefaultMinSpacing = 250 * time.Millisecond

	// DefaultPingFailureThreshold is the number of consecutive missed PONGs
	// that forces a disconnect.
	DefaultPingFailureThreshold = 3

	// DefaultReceiptRetryLimit is the number of receipt timeouts after which
	// a message is dropped.
	DefaultReceiptRetryLimit = 2

	// readBufferSize is the size of each socket read.
	readBufferSize = 1024
)

// Config holds door connection configuration.
type Config struct {
	// Host is the door's hostname or IP address.
	Host string

	// Port is the door's TCP port.
	// Default: 3000.
	Port int

	// ConnectTimeout bounds each dial attempt.
	// Default: 5 seconds.
	ConnectTimeout time.Duration

	// ReconnectDelay is the pause before reconnecting after a disconnect.
	// Default: 30 seconds.
	ReconnectDelay time.Duration

	// KeepAlive is the idle interval after the last write before a PING.
	// Default: 30 seconds.
	KeepAlive time.Duration

	// PingTimeout is how long a PING may go unanswered.
	// Default: 5 seconds.
	PingTimeout time.Duration

	// ReceiptTimeout is how long a message may go unanswered before it is
	// retransmitted.
	// Default: 5 seconds.
	ReceiptTimeout time.Duration

	// MinSpacing is the minimum time between two writes.
	// Default: 250 milliseconds.
	MinSpacing time.Duration

	// PingFailureThreshold is the number of consecutive keepalive failures
	// that forces a disconnect.
	// Default: 3.
	PingFailureThreshold int

	// ReceiptRetryLimit is the number of receipt timeouts after which a
	// message is dropped.
	// Default: 2.
	ReceiptRetryLimit int
}

func (cfg *Config) applyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = DefaultReceiptTimeout
	}
	if cfg.MinSpacing == 0 {
		cfg.MinSpacing = DefaultMinSpacing
	}
	if cfg.PingFailureThreshold == 0 {
		cfg.PingFailureThreshold = DefaultPingFailureThreshold
	}
	if cfg.ReceiptRetryLimit == 0 {
		cfg.ReceiptRetryLimit = DefaultReceiptRetryLimit
	}
}

func (cfg *Config) validate() error {
	if cfg.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.ConnectTimeout < 0 || cfg.ReconnectDelay < 0 || cfg.KeepAlive < 0 ||
		cfg.PingTimeout < 0 || cfg.ReceiptTimeout < 0 || cfg.MinSpacing < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if cfg.PingFailureThreshold < 1 || cfg.ReceiptRetryLimit < 1 {
		return fmt.Errorf("%w: failure thresholds must be positive", ErrInvalidConfig)
	}
	return nil
}

// Address returns host:port.
func (cfg Config) Address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
