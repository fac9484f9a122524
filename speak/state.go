package speak

// StateType represents the current state of a read-aloud session.
type StateType int

const (
	// StateIdle indicates no playback is configured or running.
	StateIdle StateType = iota
	// StateAwaitingRegion indicates region resolution is in flight.
	StateAwaitingRegion
	// StatePlaying indicates the session is speaking paragraphs.
	StatePlaying
	// StatePaused indicates playback is suspended at the current index.
	StatePaused
	// StateFailed indicates a failure is being classified by the recovery
	// policy. The session always settles in Playing or Paused afterwards.
	StateFailed
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRegion:
		return "awaiting-region"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransitions enumerates the allowed state changes. Stop is a valid
// exit from every state, so Idle is reachable from anywhere.
var validTransitions = map[StateType][]StateType{
	StateIdle:           {StateAwaitingRegion, StatePaused},
	StateAwaitingRegion: {StatePlaying, StatePaused, StateIdle},
	StatePlaying:        {StatePlaying, StatePaused, StateFailed, StateIdle},
	StatePaused:         {StatePlaying, StatePaused, StateIdle},
	StateFailed:         {StatePlaying, StatePaused, StateIdle},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to StateType) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Active reports whether the state belongs to a configured session.
func (s StateType) Active() bool {
	return s == StatePlaying || s == StatePaused || s == StateAwaitingRegion || s == StateFailed
}
