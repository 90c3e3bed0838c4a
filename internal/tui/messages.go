package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/msto63/vorleser/internal/session"
	"github.com/msto63/vorleser/internal/subtitle"
	"github.com/msto63/vorleser/internal/tts"
)

// Message types for tea.Cmd async operations

// voicesLoadedMsg is sent when the voice catalog was fetched
type voicesLoadedMsg struct {
	voices []tts.Voice
	err    error
}

// synthesisMsg carries one worker event and the channel it came from
type synthesisMsg struct {
	event  session.Event
	events <-chan session.Event
}

// synthesisClosedMsg is sent when a worker channel was closed
type synthesisClosedMsg struct{}

// segmentEndedMsg is sent when the player finished a clip
type segmentEndedMsg struct {
	end session.SegmentEnd
}

// textLoadedMsg is sent when an input file was read
type textLoadedMsg struct {
	loaded subtitle.Loaded
	err    error
}

// tickMsg refreshes the playback progress
type tickMsg time.Time

// waitForSynthesis reads the next event of a generation. Channels of
// superseded generations are drained the same way so their files get released.
func waitForSynthesis(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return synthesisClosedMsg{}
		}
		return synthesisMsg{event: ev, events: events}
	}
}

// waitForPlayer reads the next end-of-clip notification
func waitForPlayer(ended <-chan session.SegmentEnd) tea.Cmd {
	if ended == nil {
		return nil
	}
	return func() tea.Msg {
		end, ok := <-ended
		if !ok {
			return nil
		}
		return segmentEndedMsg{end: end}
	}
}

// fetchVoices loads the catalog off the UI goroutine
func fetchVoices(ctx context.Context, load func(context.Context) ([]tts.Voice, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		voices, err := load(ctx)
		return voicesLoadedMsg{voices: voices, err: err}
	}
}

// loadText reads an input file off the UI goroutine
func loadText(path string) tea.Cmd {
	return func() tea.Msg {
		loaded, err := subtitle.LoadText(path)
		return textLoadedMsg{loaded: loaded, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
