package speak

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state StateType
		want  string
	}{
		{StateIdle, "idle"},
		{StateAwaitingRegion, "awaiting-region"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("StateType(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to StateType }{
		{StateIdle, StateAwaitingRegion},
		{StateAwaitingRegion, StatePlaying},
		{StateAwaitingRegion, StatePaused},
		{StatePlaying, StatePaused},
		{StatePlaying, StateFailed},
		{StatePlaying, StateIdle},
		{StatePaused, StatePlaying},
		{StatePaused, StateIdle},
		{StateFailed, StatePlaying},
		{StateFailed, StatePaused},
	}
	for _, tt := range allowed {
		if !canTransition(tt.from, tt.to) {
			t.Errorf("expected %v -> %v to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to StateType }{
		{StateIdle, StatePlaying},
		{StateIdle, StateFailed},
		{StatePaused, StateFailed},
		{StateAwaitingRegion, StateFailed},
	}
	for _, tt := range denied {
		if canTransition(tt.from, tt.to) {
			t.Errorf("expected %v -> %v to be denied", tt.from, tt.to)
		}
	}
}

func TestActiveStates(t *testing.T) {
	for _, state := range []StateType{StateAwaitingRegion, StatePlaying, StatePaused, StateFailed} {
		if !state.Active() {
			t.Errorf("expected %v to be active", state)
		}
	}
	if StateIdle.Active() {
		t.Error("expected idle to be inactive")
	}
}
