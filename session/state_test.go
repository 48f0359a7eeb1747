package session

import (
	"testing"
)

func TestCloseReasonMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Reason
	}{
		{"admin capacity exceeded", 4002, ReasonAdminLimit},
		{"room not found", 4001, ReasonRoomNotFound},
		{"normal closure", 1000, ReasonClean},
		{"going away", 1001, ReasonClean},
		{"protocol error", 1002, ReasonUnknown},
		{"internal server error", 1011, ReasonUnknown},
		{"unassigned app code", 4050, ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CloseReason(tt.code); got != tt.want {
				t.Errorf("CloseReason(%d) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestReasonMessages(t *testing.T) {
	if got := ReasonAdminLimit.Message(); got != "Too many admins" {
		t.Errorf("admin limit message = %q", got)
	}
	if got := ReasonRoomNotFound.Message(); got != "Room not found" {
		t.Errorf("room not found message = %q", got)
	}
	if got := ReasonClean.Message(); got != "" {
		t.Errorf("clean close must surface no error, got %q", got)
	}
	if got := ReasonUnknown.Message(); got == "" {
		t.Error("unknown reason needs a generic failure message")
	}
}
