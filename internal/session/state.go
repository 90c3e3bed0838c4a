// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     session
// Description: Session state machine and derived control capabilities
// Author:      Mike Stoffels
// Created:     2026-09-23
// License:     MIT
// ============================================================================

package session

import (
	"sync"
	"time"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// State is the application session state
type State int

const (
	// StateIdle - no audio, waiting for input
	StateIdle State = iota

	// StateLoading - voice catalog is being fetched
	StateLoading

	// StateGenerating - a synthesis worker is in flight
	StateGenerating

	// StateGenerated - all segments are ready, playback stopped
	StateGenerated

	// StatePlaying - playback running
	StatePlaying

	// StatePaused - playback paused
	StatePaused

	// StateErrorNoAudio - the audio backend could not be initialized
	StateErrorNoAudio

	// StateErrorNoVoices - the voice catalog is empty
	StateErrorNoVoices

	// StateErrorAudioFormat - a segment could not be loaded into the player
	StateErrorAudioFormat
)

// String returns the label shown in the status bar
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Bereit"
	case StateLoading:
		return "Lade Stimmen..."
	case StateGenerating:
		return "Erzeuge Sprache..."
	case StateGenerated:
		return "Audio bereit"
	case StatePlaying:
		return "Wiedergabe"
	case StatePaused:
		return "Pausiert"
	case StateErrorNoAudio:
		return "Keine Audioausgabe"
	case StateErrorNoVoices:
		return "Keine Stimmen"
	case StateErrorAudioFormat:
		return "Ungültiges Audio"
	default:
		return "Unbekannt"
	}
}

// Icon returns an icon for the state
func (s State) Icon() string {
	switch s {
	case StateIdle:
		return "⏹"
	case StateLoading:
		return "⏳"
	case StateGenerating:
		return "⚙️"
	case StateGenerated:
		return "✅"
	case StatePlaying:
		return "▶"
	case StatePaused:
		return "⏸"
	case StateErrorNoAudio, StateErrorNoVoices, StateErrorAudioFormat:
		return "❌"
	default:
		return "?"
	}
}

// IsError reports whether s is one of the error states
func (s State) IsError() bool {
	return s == StateErrorNoAudio || s == StateErrorNoVoices || s == StateErrorAudioFormat
}

// validTransitions is the complete transition table.
// Every state may additionally move to StateErrorNoAudio.
var validTransitions = map[State][]State{
	StateIdle:       {StateLoading, StateGenerating},
	StateLoading:    {StateIdle, StateGenerated, StateErrorNoVoices},
	StateGenerating: {StateGenerated, StateIdle, StatePlaying, StatePaused, StateErrorAudioFormat},
	StateGenerated:  {StateGenerating, StatePlaying, StateErrorAudioFormat},
	StatePlaying:    {StatePaused, StateGenerated},
	StatePaused:     {StatePlaying, StateGenerated},
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to State) bool {
	if from == to || to == StateErrorNoAudio {
		return true
	}
	for _, valid := range validTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}

// StateChangeListener is called when state changes
type StateChangeListener func(oldState, newState State)

// StateMachine manages session state transitions
type StateMachine struct {
	mu            sync.RWMutex
	currentState  State
	previousState State
	stateTime     time.Time
	listeners     []StateChangeListener
}

// NewStateMachine creates a new state machine in StateIdle
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
		stateTime:    time.Now(),
	}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Previous returns the previous state
func (sm *StateMachine) Previous() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.previousState
}

// StateDuration returns how long we've been in the current state
func (sm *StateMachine) StateDuration() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateTime)
}

// Transition changes to a new state. Moving to the current state is a no-op.
func (sm *StateMachine) Transition(newState State) error {
	sm.mu.Lock()
	oldState := sm.currentState

	if oldState == newState {
		sm.mu.Unlock()
		return nil
	}
	if !CanTransition(oldState, newState) {
		sm.mu.Unlock()
		return vorerr.Newf("invalid state transition %s -> %s", oldState, newState).
			WithCode(vorerr.CodeInvalidOperation).
			WithDetail("from", int(oldState)).
			WithDetail("to", int(newState))
	}

	sm.previousState = oldState
	sm.currentState = newState
	sm.stateTime = time.Now()
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, newState)
	}
	return nil
}

// AddListener adds a state change listener
func (sm *StateMachine) AddListener(listener StateChangeListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// Facts are the inputs besides the state that decide which controls are usable
type Facts struct {
	HasText  bool
	HasVoice bool
	Segments int
	Playback PlaybackState
}

// Capabilities is the set of enabled controls
type Capabilities struct {
	CanGenerate bool
	CanPlay     bool
	CanStop     bool
	CanSeek     bool
	CanSave     bool
	CanLoadText bool
	CanEdit     bool
}

// Capabilities derives the enabled controls for state s
func (s State) Capabilities(f Facts) Capabilities {
	if s.IsError() {
		return Capabilities{CanLoadText: true, CanEdit: true}
	}

	busy := s == StateLoading || s == StateGenerating
	hasAudio := f.Segments > 0
	active := f.Playback == PlaybackPlaying || f.Playback == PlaybackPaused

	c := Capabilities{
		CanGenerate: !busy && f.HasText && f.HasVoice,
		CanLoadText: !busy,
		CanEdit:     !busy,
	}

	switch s {
	case StateGenerating, StateGenerated, StatePlaying, StatePaused:
		c.CanPlay = hasAudio
		c.CanStop = hasAudio && active
		c.CanSeek = hasAudio && active
		c.CanSave = hasAudio && s != StateGenerating
	}
	return c
}
