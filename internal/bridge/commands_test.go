package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    CommandMessage
		wantErr bool
	}{
		{name: "empty", payload: "", want: CommandMessage{}},
		{name: "whitespace", payload: "  \n", want: CommandMessage{}},
		{name: "object", payload: `{"id":"c1","value":true}`, want: CommandMessage{ID: "c1", Value: json.RawMessage(`true`)}},
		{name: "bare bool", payload: "true", want: CommandMessage{Value: json.RawMessage(`true`)}},
		{name: "bare number", payload: " 12 ", want: CommandMessage{Value: json.RawMessage(`12`)}},
		{name: "bare word", payload: "off", want: CommandMessage{Value: json.RawMessage(`"off"`)}},
		{
			name:    "schedule",
			payload: `{"zone":"inside","days":{"mon":[{"from":"06:00","to":"09:00"}]}}`,
			want: CommandMessage{
				Zone: "inside",
				Days: map[string][]schedule.Span{"mon": {{From: "06:00", To: "09:00"}}},
			},
		},
		{name: "broken object", payload: `{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Error("parseCommand() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommand() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseCommand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandMessage_Flag(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{value: `true`, want: true},
		{value: `false`, want: false},
		{value: `1`, want: true},
		{value: `0`, want: false},
		{value: `"on"`, want: true},
		{value: `"OFF"`, want: false},
		{value: `"true"`, want: true},
		{value: `2`, wantErr: true},
		{value: `"maybe"`, wantErr: true},
		{value: `null`, wantErr: true},
		{value: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := CommandMessage{Value: json.RawMessage(tt.value)}.flag()
			if tt.wantErr {
				if !errors.Is(err, errInvalidParameters) {
					t.Errorf("flag() error = %v, want errInvalidParameters", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("flag() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("flag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandMessage_Seconds(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{value: `2`, want: 2 * time.Second},
		{value: `0.25`, want: 250 * time.Millisecond},
		{value: `"10"`, want: 10 * time.Second},
		{value: `0`, want: 0},
		{value: `-1`, wantErr: true},
		{value: `"soon"`, wantErr: true},
		{value: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := CommandMessage{Value: json.RawMessage(tt.value)}.seconds()
			if tt.wantErr {
				if !errors.Is(err, errInvalidParameters) {
					t.Errorf("seconds() error = %v, want errInvalidParameters", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("seconds() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("seconds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus AckStatus
	}{
		{"busy", errBusy, ErrCodeBusy, AckFailed},
		{"unknown action", fmt.Errorf("%w: %q", errInvalidCommand, "x"), ErrCodeInvalidCommand, AckFailed},
		{"bad value", fmt.Errorf("%w: nope", errInvalidParameters), ErrCodeInvalidParameters, AckFailed},
		{"client validation", fmt.Errorf("%w: negative", petdoor.ErrInvalidConfig), ErrCodeInvalidParameters, AckFailed},
		{"receipt timeout", fmt.Errorf("%w: OPEN", petdoor.ErrReceiptTimeout), ErrCodeTimeout, AckTimeout},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, AckTimeout},
		{"not connected", petdoor.ErrNotConnected, ErrCodeDoorUnreachable, AckFailed},
		{"terminated", fmt.Errorf("%w: EOF", petdoor.ErrConnectionTerminated), ErrCodeDoorUnreachable, AckFailed},
		{"stopped", petdoor.ErrShuttingDown, ErrCodeDoorUnreachable, AckFailed},
		{"door said no", &petdoor.CommandError{Command: "SET_SCHEDULE", Reason: "bad index"}, ErrCodeDoorRejected, AckFailed},
		{"other", errors.New("boom"), ErrCodeBridgeError, AckFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := classify(tt.err)
			if code != tt.wantCode || status != tt.wantStatus {
				t.Errorf("classify() = %s/%s, want %s/%s", code, status, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestNewAck(t *testing.T) {
	ok := newAck(testDoorID, ActionOpen, CommandMessage{ID: "c1"}, nil)
	if ok.Status != AckAccepted || ok.Error != nil || ok.CommandID != "c1" || ok.DoorID != testDoorID {
		t.Errorf("newAck(nil) = %+v", ok)
	}

	failed := newAck(testDoorID, ActionOpen, CommandMessage{}, petdoor.ErrNotConnected)
	if failed.Status != AckFailed || failed.Error == nil || failed.Error.Code != ErrCodeDoorUnreachable {
		t.Errorf("newAck(ErrNotConnected) = %+v", failed)
	}
	if failed.Error.Message != petdoor.ErrNotConnected.Error() {
		t.Errorf("Error.Message = %q", failed.Error.Message)
	}

	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, present := m["error"]; present {
		t.Error("accepted ack carries an error field")
	}
}
