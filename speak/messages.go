package speak

import tea "github.com/charmbracelet/bubbletea"

// Messages for Bubble Tea communication between the session and the UI.

// StateChangedMsg indicates the session state has changed.
type StateChangedMsg struct {
	State StateType
}

// ParagraphChangedMsg indicates the current paragraph has changed.
type ParagraphChangedMsg struct {
	Index int
	Total int
}

// SessionErrorMsg indicates the session surfaced an error. Recoverable
// errors leave the session Paused at the same index.
type SessionErrorMsg struct {
	Err error
}

// ProgramSurface adapts a Bubble Tea program into a session Surface: every
// notification is delivered as a message. Send is program.Send.
type ProgramSurface struct {
	Send  func(tea.Msg)
	Total int
}

// StateChanged implements Surface.
func (p ProgramSurface) StateChanged(state StateType) {
	p.Send(StateChangedMsg{State: state})
}

// ParagraphChanged implements Surface.
func (p ProgramSurface) ParagraphChanged(index int) {
	p.Send(ParagraphChangedMsg{Index: index, Total: p.Total})
}

// SessionError implements Surface.
func (p ProgramSurface) SessionError(err error) {
	p.Send(SessionErrorMsg{Err: err})
}

// PlayCmd starts or resumes playback as a Bubble Tea command.
func PlayCmd(s *Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Play(); err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}

// TogglePauseCmd pauses a playing session and resumes a paused one.
func TogglePauseCmd(s *Session) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch s.Snapshot().State {
		case StatePlaying:
			err = s.Pause()
		case StatePaused:
			err = s.Resume()
		default:
			err = s.Play()
		}
		if err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}

// StopCmd stops the session.
func StopCmd(s *Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Stop(); err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}

// NavigateCmd moves by delta paragraphs (negative for backwards).
func NavigateCmd(s *Session, delta int) tea.Cmd {
	return func() tea.Msg {
		var err error
		if delta >= 0 {
			for i := 0; i < delta && err == nil; i++ {
				err = s.Next()
			}
		} else {
			for i := 0; i > delta && err == nil; i-- {
				err = s.Prev()
			}
		}
		if err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}

// CycleVoiceCmd switches to the next voice in the ring, wrapping around.
// A current voice not present in the ring starts it from the beginning.
func CycleVoiceCmd(s *Session, voices []string) tea.Cmd {
	return func() tea.Msg {
		if len(voices) == 0 {
			return nil
		}
		current := s.Snapshot().Voice
		next := voices[0]
		for i, v := range voices {
			if v == current {
				next = voices[(i+1)%len(voices)]
				break
			}
		}
		if err := s.SetVoice(next); err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}

// AdjustRateCmd nudges the speech rate by delta, clamped to the valid
// range.
func AdjustRateCmd(s *Session, delta float64) tea.Cmd {
	return func() tea.Msg {
		rate := s.Snapshot().Rate + delta
		if rate < MinRate {
			rate = MinRate
		}
		if rate > MaxRate {
			rate = MaxRate
		}
		if err := s.SetRate(rate); err != nil {
			return SessionErrorMsg{Err: err}
		}
		return nil
	}
}
