package tui

import (
	"github.com/msto63/vorleser/internal/session"
	"github.com/msto63/vorleser/internal/tts"
)

var _ session.Shell = (*Model)(nil)

// UpdateStatus implements session.Shell
func (m *Model) UpdateStatus(text string) {
	m.status = text
}

// SetControlState implements session.Shell
func (m *Model) SetControlState(state session.State, caps session.Capabilities) {
	m.state = state
	m.caps = caps
}

// InputText implements session.Shell. The placeholder is never returned.
func (m *Model) InputText() string {
	return m.textarea.Value()
}

// SelectedVoice implements session.Shell
func (m *Model) SelectedVoice() (tts.Voice, bool) {
	if m.selected == nil {
		return tts.Voice{}, false
	}
	return *m.selected, true
}

// Rate implements session.Shell
func (m *Model) Rate() int {
	return m.rate
}

// Pitch implements session.Shell
func (m *Model) Pitch() int {
	return m.pitch
}

// Status returns the current status line
func (m *Model) Status() string {
	return m.status
}

// State returns the session state last reported by the coordinator
func (m *Model) State() session.State {
	return m.state
}
