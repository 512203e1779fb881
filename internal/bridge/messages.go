package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// Command actions, the last element of petdoor/command/{door_id}/{action}.
const (
	ActionOpen        = "open"
	ActionOpenAndHold = "open_and_hold"
	ActionClose       = "close"
	ActionPower       = "power"
	ActionInside      = "inside"
	ActionOutside     = "outside"
	ActionTimers      = "timers"
	ActionLockout     = "lockout"
	ActionAutoRetract = "autoretract"
	ActionHoldTime    = "hold_time"
	ActionTimezone    = "timezone"
	ActionRefresh     = "refresh"
	ActionSchedule    = "schedule"
)

// CommandMessage is the payload of a command topic.
//
// Any of these are accepted:
//
//	{"id": "c1", "value": true}
//	{"zone": "inside", "days": {"monday": [{"from": "06:00", "to": "20:00"}]}}
//	true
//	"Europe/London"
//	(empty)
type CommandMessage struct {
	// ID is echoed in the acknowledgement. Optional.
	ID string `json:"id,omitempty"`

	// Value is the action argument: a bool for toggles, seconds for
	// hold_time, a POSIX TZ string for timezone.
	Value json.RawMessage `json:"value,omitempty"`

	// Zone and Days carry a schedule action.
	Zone string                     `json:"zone,omitempty"`
	Days map[string][]schedule.Span `json:"days,omitempty"`
}

// parseCommand decodes a command payload. A payload that is not a JSON
// object is taken as the bare value; one that is not JSON at all is taken
// as a string.
func parseCommand(payload []byte) (CommandMessage, error) {
	payload = bytes.TrimSpace(payload)
	var cmd CommandMessage
	switch {
	case len(payload) == 0:
		return cmd, nil
	case payload[0] == '{':
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return cmd, fmt.Errorf("decoding command: %w", err)
		}
		return cmd, nil
	case json.Valid(payload):
		cmd.Value = json.RawMessage(payload)
		return cmd, nil
	default:
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			return cmd, fmt.Errorf("decoding command: %w", err)
		}
		cmd.Value = quoted
		return cmd, nil
	}
}

// AckStatus is the outcome reported for a command.
type AckStatus string

// Acknowledgement statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
	AckTimeout  AckStatus = "timeout"
)

// Error codes carried in AckError.Code.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeDoorUnreachable   = "DOOR_UNREACHABLE"
	ErrCodeDoorRejected      = "DOOR_REJECTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeBusy              = "BRIDGE_BUSY"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// AckMessage reports the outcome of one command.
// Topic: petdoor/ack/{door_id}
// QoS: configured, Retained: No
type AckMessage struct {
	CommandID string    `json:"command_id,omitempty"`
	DoorID    string    `json:"door_id"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newAck builds the acknowledgement for a command that finished with err.
func newAck(doorID, action string, cmd CommandMessage, err error) AckMessage {
	ack := AckMessage{
		CommandID: cmd.ID,
		DoorID:    doorID,
		Action:    action,
		Status:    AckAccepted,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		code, status := classify(err)
		ack.Status = status
		ack.Error = &AckError{Code: code, Message: err.Error()}
	}
	return ack
}

// StateMessage is the retained payload of a state topic.
// Topic: petdoor/state/{door_id}/{category}
type StateMessage struct {
	DoorID    string         `json:"door_id"`
	Category  string         `json:"category"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
}

// HealthStatus indicates the bridge's operational status.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge and door link status.
// Topic: petdoor/health/{door_id}
// QoS: configured, Retained: Yes
type HealthMessage struct {
	DoorID        string       `json:"door_id"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Reason        string       `json:"reason,omitempty"`

	Door *DoorLink `json:"door,omitempty"`
}

// DoorLink is the door connection section of a HealthMessage.
type DoorLink struct {
	State            string    `json:"state"`
	Address          string    `json:"address"`
	Connects         uint64    `json:"connects"`
	MessagesSent     uint64    `json:"messages_sent"`
	MessagesReceived uint64    `json:"messages_received"`
	Retransmits      uint64    `json:"retransmits"`
	ReceiptTimeouts  uint64    `json:"receipt_timeouts"`
	LatencyMillis    float64   `json:"latency_ms"`
	LastActivity     time.Time `json:"last_activity,omitzero"`
}

func newDoorLink(address string, s petdoor.ClientStats) *DoorLink {
	return &DoorLink{
		State:            s.State.String(),
		Address:          address,
		Connects:         s.Connects,
		MessagesSent:     s.MessagesSent,
		MessagesReceived: s.MessagesReceived,
		Retransmits:      s.Retransmits,
		ReceiptTimeouts:  s.ReceiptTimeouts,
		LatencyMillis:    float64(s.LastLatency) / float64(time.Millisecond),
		LastActivity:     s.LastActivity,
	}
}
