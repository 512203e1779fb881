package petdoor

import (
	"strconv"
	"time"
)

// keepAlive tracks the outstanding PING and consecutive failures.
// The Client drives it from its idle and PONG timers.
type keepAlive struct {
	nonce     string
	lastNonce int64
	sentAt    time.Time
	failures  int
	threshold int
}

// outstanding reports whether a PING is awaiting its PONG.
func (k *keepAlive) outstanding() bool {
	return k.nonce != ""
}

// begin generates a millisecond timestamp nonce for a new PING. Nonces are
// strictly increasing even when two PINGs share a millisecond.
func (k *keepAlive) begin(now time.Time) string {
	n := now.UnixMilli()
	if n <= k.lastNonce {
		n = k.lastNonce + 1
	}
	k.lastNonce = n
	k.nonce = strconv.FormatInt(n, 10)
	k.sentAt = time.Time{}
	return k.nonce
}

// sent records when the PING actually left.
func (k *keepAlive) sent(now time.Time) {
	k.sentAt = now
}

// pong matches a PONG. On a match the PING is cleared, failures reset and
// the round-trip time is returned.
func (k *keepAlive) pong(nonce string, now time.Time) (time.Duration, bool) {
	if !k.outstanding() || nonce != k.nonce {
		return 0, false
	}
	var latency time.Duration
	if !k.sentAt.IsZero() {
		latency = now.Sub(k.sentAt)
	}
	k.nonce = ""
	k.failures = 0
	return latency, true
}

// fail records a missed or mismatched PONG and reports whether the
// failure threshold has been reached.
func (k *keepAlive) fail() (failures int, exceeded bool) {
	k.nonce = ""
	k.failures++
	return k.failures, k.failures >= k.threshold
}

// reset clears all state for a new connection.
func (k *keepAlive) reset() {
	k.nonce = ""
	k.sentAt = time.Time{}
	k.failures = 0
}
