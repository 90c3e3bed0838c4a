// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     tui
// Description: Main Bubbletea model for the Vorleser terminal UI
// Author:      Mike Stoffels
// Created:     2026-09-26
// License:     MIT
// ============================================================================

package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/vorleser/internal/chunking"
	"github.com/msto63/vorleser/internal/session"
	"github.com/msto63/vorleser/internal/settings"
	"github.com/msto63/vorleser/internal/tts"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// Focus represents which area has focus
type Focus int

const (
	FocusText Focus = iota
	FocusVoices
	FocusControls
)

// promptKind is the purpose of the path/pattern prompt
type promptKind int

const (
	promptNone promptKind = iota
	promptLoad
	promptSave
	promptRegex
)

const (
	rateStep     = 5
	pitchStep    = 5
	wordsStep    = 25
	voiceRows    = 6
	placeholder  = "Text hier eingeben oder Datei laden..."
	searchPrompt = "Stimme suchen..."
)

// Config holds the collaborators of the UI
type Config struct {
	Synthesizer tts.Synthesizer

	// Player is nil when AudioErr is set
	Player   session.Player
	Ended    <-chan session.SegmentEnd
	AudioErr error

	Recorder     session.Recorder
	TempDir      string
	Playback     session.ControllerConfig
	SeekInterval time.Duration
	SettingsPath string

	// Text is put into the editor at start
	Text   string
	Engine string
}

// Model is the Bubbletea model. It is the session's Shell; the coordinator
// calls back into it from within Update.
type Model struct {
	width  int
	height int
	ready  bool
	focus  Focus
	prompt promptKind

	textarea textarea.Model
	search   textinput.Model
	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model
	styles   Styles
	dark     bool

	coord  *session.Coordinator
	ended  <-chan session.SegmentEnd
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger

	audioErr     error
	settingsPath string
	seekInterval time.Duration
	engine       string

	status string
	state  session.State
	caps   session.Capabilities

	voices     []tts.Voice
	voiceIndex int
	selected   *tts.Voice
	wantVoice  string

	rate  int
	pitch int
	opts  session.Options

	closed bool
}

// New creates the UI model and its coordinator
func New(cfg Config) *Model {
	logger := logging.New("tui")

	state, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		logger.Warn("UI state not loaded, using defaults", "path", cfg.SettingsPath, "error", err)
	}

	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.Focus()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(8)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	if cfg.Text != "" {
		ta.SetValue(cfg.Text)
	}

	search := textinput.New()
	search.Placeholder = searchPrompt
	search.Prompt = "🔍 "

	input := textinput.New()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	seek := cfg.SeekInterval
	if seek <= 0 {
		seek = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		textarea:     ta,
		search:       search,
		input:        input,
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		dark:         state.Dark,
		ended:        cfg.Ended,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
		audioErr:     cfg.AudioErr,
		settingsPath: cfg.SettingsPath,
		seekInterval: seek,
		engine:       cfg.Engine,
		status:       "Bereit.",
		wantVoice:    state.VoiceName(),
		rate:         state.Rate,
		pitch:        state.Pitch,
		opts: session.Options{
			Split:    state.Split,
			MinWords: state.WordsInChunk,
			Boundary: state.ChunkRegex,
			AutoPlay: state.AutoPlay,
		},
	}
	m.applyTheme()

	m.coord = session.NewCoordinator(session.CoordinatorConfig{
		Shell:       m,
		Synthesizer: cfg.Synthesizer,
		Player:      cfg.Player,
		Recorder:    cfg.Recorder,
		TempDir:     cfg.TempDir,
		Playback:    cfg.Playback,
	})
	m.coord.SetOptions(m.opts)
	return m
}

// Coordinator returns the session coordinator driven by the UI
func (m *Model) Coordinator() *session.Coordinator {
	return m.coord
}

func (m *Model) applyTheme() {
	m.styles = NewStyles(m.dark)
	m.spinner.Style = m.styles.Spinner
	m.textarea.FocusedStyle.Base = m.styles.FocusedPanel
	m.textarea.BlurredStyle.Base = m.styles.Panel
}

// Init starts voice loading, the progress ticker and the player listener
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick, tick(), waitForPlayer(m.ended)}

	if m.audioErr != nil {
		m.coord.AudioInitFailed(m.audioErr)
	} else if err := m.coord.StartVoiceLoad(); err == nil {
		cmds = append(cmds, fetchVoices(m.ctx, m.coord.FetchVoices))
	}
	m.coord.Refresh()

	return tea.Batch(cmds...)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.textarea.SetWidth(max(msg.Width-4, 20))
		m.textarea.SetHeight(max(msg.Height-20, 3))
		m.search.Width = max(msg.Width-10, 10)
		m.input.Width = max(msg.Width-24, 10)
		m.progress.Width = max(msg.Width-36, 10)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, tick())

	case voicesLoadedMsg:
		m.coord.VoicesLoaded(msg.voices, msg.err)
		m.restoreVoice()
		m.filterVoices()
		m.coord.Refresh()

	case synthesisMsg:
		m.coord.Handle(msg.event)
		cmds = append(cmds, waitForSynthesis(msg.events))

	case synthesisClosedMsg:
		// Generation channel drained

	case segmentEndedMsg:
		m.coord.SegmentEnded(msg.end)
		cmds = append(cmds, waitForPlayer(m.ended))

	case textLoadedMsg:
		m.applyLoadedText(msg)
	}

	if m.focus == FocusText && m.prompt == promptNone {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.shutdown()
		return m, tea.Quit
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch msg.String() {
	case "ctrl+g":
		return m, m.generate()
	case "ctrl+p":
		m.togglePlay()
		return m, nil
	case "ctrl+s":
		if m.caps.CanStop {
			m.coord.Stop()
		}
		return m, nil
	case "ctrl+o":
		if m.caps.CanLoadText {
			m.openPrompt(promptLoad, "Datei laden: ", "")
		}
		return m, nil
	case "ctrl+w":
		if m.caps.CanSave {
			m.openPrompt(promptSave, "Speichern unter: ", m.coord.SuggestedFileName())
		} else {
			m.status = "❌ Kein erzeugtes Audio zum Speichern."
		}
		return m, nil
	case "ctrl+t":
		m.dark = !m.dark
		m.applyTheme()
		return m, nil
	case "tab":
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + 2) % 3)
		return m, nil
	}

	switch m.focus {
	case FocusText:
		if !m.caps.CanEdit {
			return m, nil
		}
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		m.coord.Refresh()
		return m, cmd

	case FocusVoices:
		return m.handleVoiceKey(msg)

	default:
		m.handleControlKey(msg)
		return m, nil
	}
}

// handleVoiceKey navigates and filters the voice list
func (m *Model) handleVoiceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.voiceIndex > 0 {
			m.voiceIndex--
		}
		return m, nil
	case tea.KeyDown:
		if m.voiceIndex < len(m.voices)-1 {
			m.voiceIndex++
		}
		return m, nil
	case tea.KeyEnter:
		if m.voiceIndex < len(m.voices) {
			v := m.voices[m.voiceIndex]
			m.selected = &v
			m.status = "Stimme: " + v.DisplayName()
			m.coord.Refresh()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filterVoices()
	return m, cmd
}

// handleControlKey handles playback and parameter keys
func (m *Model) handleControlKey(msg tea.KeyMsg) {
	key := msg.String()

	switch key {
	case " ":
		m.togglePlay()
	case "left":
		if m.caps.CanSeek {
			m.coord.SeekRelative(-m.seekInterval)
		}
	case "right":
		if m.caps.CanSeek {
			m.coord.SeekRelative(m.seekInterval)
		}
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if m.caps.CanSeek {
			m.coord.SeekFraction(float64(key[0]-'0') / 10)
		}
	case "[":
		m.rate = clamp(m.rate-rateStep, settings.MinRate, settings.MaxRate)
	case "]":
		m.rate = clamp(m.rate+rateStep, settings.MinRate, settings.MaxRate)
	case "{":
		m.pitch = clamp(m.pitch-pitchStep, settings.MinPitch, settings.MaxPitch)
	case "}":
		m.pitch = clamp(m.pitch+pitchStep, settings.MinPitch, settings.MaxPitch)
	case "r":
		m.rate = 0
	case "p":
		m.pitch = 0
	case "a":
		m.opts.AutoPlay = !m.opts.AutoPlay
		m.coord.SetOptions(m.opts)
	case "s":
		m.opts.Split = !m.opts.Split
		m.coord.SetOptions(m.opts)
	case "+":
		m.opts.MinWords += wordsStep
		m.coord.SetOptions(m.opts)
	case "-":
		if m.opts.MinWords > wordsStep {
			m.opts.MinWords -= wordsStep
			m.coord.SetOptions(m.opts)
		}
	case "e":
		m.openPrompt(promptRegex, "Segmentgrenze (Regex): ", m.opts.Boundary)
	}
}

// handlePromptKey edits and submits the prompt line
func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		m.status = "Abgebrochen."
		return m, nil

	case tea.KeyEnter:
		kind := m.prompt
		value := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		return m, m.submitPrompt(kind, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(kind promptKind, value string) tea.Cmd {
	switch kind {
	case promptLoad:
		if value == "" {
			m.status = "Dateiauswahl abgebrochen."
			return nil
		}
		return loadText(expandPath(value))

	case promptSave:
		if value == "" {
			m.status = "Speichern abgebrochen."
			return nil
		}
		m.coord.Save(expandPath(value))

	case promptRegex:
		if value == "" || !chunking.ValidBoundary(value) {
			m.status = "❌ Ungültiger regulärer Ausdruck: " + value
			return nil
		}
		m.opts.Boundary = value
		m.coord.SetOptions(m.opts)
		m.status = "✅ Segmentgrenze gesetzt: " + value
	}
	return nil
}

func (m *Model) openPrompt(kind promptKind, label, value string) {
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.textarea.Blur()
	m.search.Blur()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.setFocus(m.focus)
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.textarea.Blur()
	m.search.Blur()
	switch f {
	case FocusText:
		m.textarea.Focus()
	case FocusVoices:
		m.search.Focus()
	}
}

// generate starts a generation and returns the command draining its events
func (m *Model) generate() tea.Cmd {
	if m.state == session.StateGenerating || m.state == session.StateLoading {
		m.status = "⚠️ Bitte warten, Vorgang läuft noch."
		return nil
	}

	events, err := m.coord.StartGenerate(m.ctx)
	if err != nil {
		if !vorerr.HasCode(err, vorerr.CodeInvalidInput) {
			m.logger.Warn("Generation not started", "error", err)
		}
		return nil
	}
	return waitForSynthesis(events)
}

func (m *Model) togglePlay() {
	if !m.caps.CanPlay {
		return
	}
	m.coord.TogglePlayPause()
}

// restoreVoice selects the voice remembered from the last run
func (m *Model) restoreVoice() {
	if m.selected != nil || m.wantVoice == "" {
		return
	}
	if v, ok := m.coord.Catalog().Lookup(m.wantVoice); ok {
		m.selected = &v
	}
}

// filterVoices applies the search text to the catalog
func (m *Model) filterVoices() {
	m.voices = m.coord.Catalog().Filter(m.search.Value())
	if m.voiceIndex >= len(m.voices) {
		m.voiceIndex = max(len(m.voices)-1, 0)
	}
}

func (m *Model) applyLoadedText(msg textLoadedMsg) {
	if msg.err != nil {
		m.logger.Warn("Loading text failed", "file", msg.loaded.Name, "error", msg.err)
		if vorerr.HasCode(msg.err, vorerr.CodeNotFound) {
			m.status = "❌ Fehler: Datei nicht gefunden."
		} else {
			m.status = "❌ Fehler beim Lesen der Datei."
		}
		return
	}

	m.textarea.SetValue(msg.loaded.Text)
	m.status = msg.loaded.Status()
	m.coord.Refresh()
}

// shutdown stores the UI state and releases the session. Safe to call twice.
func (m *Model) shutdown() {
	if m.closed {
		return
	}
	m.closed = true

	if m.settingsPath != "" {
		if err := settings.Save(m.settingsPath, m.uiState()); err != nil {
			m.logger.Error("Saving UI state failed", "error", err)
		}
	}
	m.coord.Close()
	m.cancel()
}

func (m *Model) uiState() settings.UIState {
	s := settings.UIState{
		Rate:         m.rate,
		Pitch:        m.pitch,
		Dark:         m.dark,
		AutoPlay:     m.opts.AutoPlay,
		Split:        m.opts.Split,
		WordsInChunk: m.opts.MinWords,
		ChunkRegex:   m.opts.Boundary,
	}
	if m.selected != nil {
		name := m.selected.DisplayName()
		s.Voice = &name
	} else if m.wantVoice != "" {
		s.Voice = &m.wantVoice
	}
	return s
}

// View renders the UI
func (m *Model) View() string {
	if !m.ready {
		return "Lade Vorleser..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(m.renderVoices())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n")
	b.WriteString(m.renderPlayback())
	b.WriteString("\n")
	if m.prompt != promptNone {
		b.WriteString(m.styles.FocusedPanel.Width(m.width - 2).Render(m.input.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render(Logo)
	state := m.styles.Label.Render(fmt.Sprintf("%s %s", m.state.Icon(), m.state))
	engine := m.styles.Label.Render("Engine: ") + m.styles.Value.Render(m.engine)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "   ", engine, "   ", state)
}

func (m *Model) renderVoices() string {
	var content strings.Builder
	content.WriteString(m.search.View())
	content.WriteString("\n")

	switch {
	case m.state == session.StateLoading:
		content.WriteString(m.styles.Label.Render("  Lade Stimmen..."))
	case m.coord.Catalog().Len() == 0:
		content.WriteString(m.styles.Label.Render("  Keine Stimmen gefunden"))
	case len(m.voices) == 0:
		content.WriteString(m.styles.Label.Render("  Kein Treffer"))
	default:
		start := max(m.voiceIndex-voiceRows/2, 0)
		end := min(start+voiceRows, len(m.voices))
		for i := start; i < end; i++ {
			v := m.voices[i]
			mark := "  "
			if m.selected != nil && m.selected.DisplayName() == v.DisplayName() {
				mark = "✓ "
			}
			line := mark + v.DisplayName()
			if i == m.voiceIndex && m.focus == FocusVoices {
				content.WriteString(m.styles.SelectedItem.Render("▶ " + line))
			} else {
				content.WriteString(m.styles.Item.Render("  " + line))
			}
			content.WriteString("\n")
		}
		content.WriteString(m.styles.Label.Render(fmt.Sprintf("  [%d von %d Stimmen]", m.voiceIndex+1, len(m.voices))))
	}

	style := m.styles.Panel
	if m.focus == FocusVoices {
		style = m.styles.FocusedPanel
	}
	return style.Width(m.width - 2).Render(content.String())
}

func (m *Model) renderControls() string {
	onOff := func(b bool) string {
		if b {
			return "an"
		}
		return "aus"
	}
	req := tts.Request{Rate: m.rate, Pitch: m.pitch}

	parts := []string{
		m.styles.Label.Render("Tempo: ") + m.styles.Value.Render(req.RateString()),
		m.styles.Label.Render("Tonhöhe: ") + m.styles.Value.Render(req.PitchString()),
		m.styles.Label.Render("Auto-Play: ") + m.styles.Value.Render(onOff(m.opts.AutoPlay)),
		m.styles.Label.Render("Segmente: ") + m.styles.Value.Render(onOff(m.opts.Split)),
	}
	if m.opts.Split {
		parts = append(parts,
			m.styles.Label.Render("Wörter: ")+m.styles.Value.Render(fmt.Sprint(m.opts.MinWords)),
			m.styles.Label.Render("Grenze: ")+m.styles.Value.Render(m.opts.Boundary))
	}

	style := m.styles.Panel
	if m.focus == FocusControls {
		style = m.styles.FocusedPanel
	}
	return style.Width(m.width - 2).Render(strings.Join(parts, "  "))
}

func (m *Model) renderPlayback() string {
	ctrl := m.coord.Controller()

	var pos, dur time.Duration
	var segment string
	if ctrl != nil {
		pos, dur = ctrl.Position(), ctrl.Duration()
		segment = ctrl.Progress()
	}

	fraction := 0.0
	if dur > 0 {
		fraction = min(float64(pos)/float64(dur), 1)
	}

	line := m.progress.ViewAs(fraction) + " " + m.styles.Value.Render(formatClock(pos)+" / "+formatClock(dur))
	if segment != "" {
		line += "  " + m.styles.Label.Render(segment)
	}
	if m.state == session.StateGenerating {
		line += "  " + m.spinner.View()
	}
	return line
}

func (m *Model) renderStatusBar() string {
	style := m.styles.StatusBar.Width(m.width - 2)
	switch {
	case strings.HasPrefix(m.status, "❌"):
		return style.Render(m.styles.StatusError.Render(m.status))
	case strings.HasPrefix(m.status, "✅"):
		return style.Render(m.styles.StatusOK.Render(m.status))
	default:
		return style.Render(m.status)
	}
}

func (m *Model) renderHelpBar() string {
	if m.prompt != promptNone {
		return m.styles.KeyHint("Enter", "bestätigen", true) + " • " + m.styles.KeyHint("Esc", "abbrechen", true)
	}

	items := []string{
		m.styles.KeyHint("^G", "Erzeugen", m.caps.CanGenerate),
		m.styles.KeyHint("^P", "Play/Pause", m.caps.CanPlay),
		m.styles.KeyHint("^S", "Stop", m.caps.CanStop),
		m.styles.KeyHint("←/→", "±"+fmt.Sprint(int(m.seekInterval.Seconds()))+"s", m.caps.CanSeek),
		m.styles.KeyHint("^O", "Laden", m.caps.CanLoadText),
		m.styles.KeyHint("^W", "Speichern", m.caps.CanSave),
		m.styles.KeyHint("Tab", "Fokus", true),
		m.styles.KeyHint("^T", "Thema", true),
		m.styles.KeyHint("^C", "Beenden", true),
	}
	if m.focus == FocusControls {
		items = append(items,
			m.styles.KeyHint("[ ]", "Tempo", true),
			m.styles.KeyHint("{ }", "Tonhöhe", true),
			m.styles.KeyHint("r/p", "zurücksetzen", true),
			m.styles.KeyHint("a/s", "Auto-Play/Segmente", true),
			m.styles.KeyHint("+/-", "Wörter", true),
			m.styles.KeyHint("e", "Grenze", true))
	}
	return strings.Join(items, " • ")
}

// Run starts the terminal UI and blocks until it exits
func Run(cfg Config) error {
	m := New(cfg)
	defer m.shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// formatClock formats d as mm:ss
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// expandPath resolves a leading ~ to the home directory
func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
