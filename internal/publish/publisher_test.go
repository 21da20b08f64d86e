package publish

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateErrored, "errored"},
		{State(7), "state(7)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestStateNeedsConnect(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateDisconnected, true},
		{StateConnecting, false},
		{StateConnected, false},
		{StateErrored, true},
	}

	for _, tt := range tests {
		if got := tt.state.NeedsConnect(); got != tt.want {
			t.Errorf("%v.NeedsConnect() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
