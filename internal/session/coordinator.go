// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     session
// Description: Orchestrates voice loading, generation, playback and saving
// Author:      Mike Stoffels
// Created:     2026-09-24
// License:     MIT
// ============================================================================

package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/vorleser/internal/chunking"
	"github.com/msto63/vorleser/internal/history"
	"github.com/msto63/vorleser/internal/tts"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// Shell is the user interface the coordinator reports to
type Shell interface {
	UpdateStatus(text string)
	SetControlState(state State, caps Capabilities)
	InputText() string
	SelectedVoice() (tts.Voice, bool)
	Rate() int
	Pitch() int
}

// Recorder stores finished generations
type Recorder interface {
	Record(ctx context.Context, g history.Generation) (int64, error)
	MarkSaved(ctx context.Context, id int64, path string) error
}

// Options controls chunking and auto-play
type Options struct {
	Split    bool
	MinWords int
	Boundary string
	AutoPlay bool
}

// DefaultOptions returns chunked generation with auto-play
func DefaultOptions() Options {
	return Options{
		Split:    true,
		MinWords: chunking.DefaultMinWords,
		Boundary: chunking.DefaultBoundary,
		AutoPlay: true,
	}
}

// CoordinatorConfig wires the coordinator's collaborators
type CoordinatorConfig struct {
	Shell       Shell
	Synthesizer tts.Synthesizer
	Player      Player
	Recorder    Recorder
	TempDir     string
	Playback    ControllerConfig
}

// Coordinator is driven by the UI goroutine. Worker events are handed
// to Handle by the UI, never called from the worker itself.
type Coordinator struct {
	shell    Shell
	synth    tts.Synthesizer
	worker   *Worker
	ctrl     *Controller
	sm       *StateMachine
	recorder Recorder
	logger   *logging.Logger

	catalog *tts.Catalog
	opts    Options

	cancel    context.CancelFunc
	job       Job
	words     int
	historyID int64
	started   time.Time
}

// NewCoordinator creates a coordinator in the idle state
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		shell:    cfg.Shell,
		synth:    cfg.Synthesizer,
		worker:   NewWorker(cfg.Synthesizer, cfg.TempDir),
		sm:       NewStateMachine(),
		recorder: cfg.Recorder,
		logger:   logging.New("coordinator"),
		opts:     DefaultOptions(),
	}
	if cfg.Player != nil {
		c.ctrl = NewController(cfg.Player, cfg.Playback)
	}
	c.sm.AddListener(func(oldState, newState State) {
		c.logger.Debug("State changed", "from", oldState, "to", newState)
	})
	return c
}

// SetOptions replaces the chunking and auto-play options
func (c *Coordinator) SetOptions(opts Options) {
	c.opts = opts
}

// Options returns the current options
func (c *Coordinator) Options() Options {
	return c.opts
}

// State returns the session state
func (c *Coordinator) State() State {
	return c.sm.Current()
}

// Controller returns the playback controller, nil without audio output
func (c *Coordinator) Controller() *Controller {
	return c.ctrl
}

// Catalog returns the loaded voices
func (c *Coordinator) Catalog() *tts.Catalog {
	return c.catalog
}

// Capabilities returns the currently enabled controls
func (c *Coordinator) Capabilities() Capabilities {
	return c.sm.Current().Capabilities(c.facts())
}

func (c *Coordinator) facts() Facts {
	f := Facts{HasText: strings.TrimSpace(c.shell.InputText()) != ""}
	_, f.HasVoice = c.selectedVoice()
	if c.ctrl != nil {
		f.Segments = c.ctrl.Count()
		f.Playback = c.ctrl.State()
	}
	return f
}

// Refresh pushes the current state and capabilities to the shell
func (c *Coordinator) Refresh() {
	state := c.sm.Current()
	c.shell.SetControlState(state, state.Capabilities(c.facts()))
}

// transition moves to state and refreshes the shell. Invalid moves are logged.
func (c *Coordinator) transition(state State) {
	if err := c.sm.Transition(state); err != nil {
		c.logger.Warn("Ignoring state change", "error", err)
	}
	c.Refresh()
}

// AudioInitFailed disables playback after the audio backend failed
func (c *Coordinator) AudioInitFailed(err error) {
	c.logger.Error("Audio initialization failed", "error", err)
	c.ctrl = nil
	c.shell.UpdateStatus("❌ Audioausgabe konnte nicht initialisiert werden. Wiedergabe deaktiviert.")
	c.transition(StateErrorNoAudio)
}

// StartVoiceLoad moves to loading. The caller fetches the catalog off the
// UI goroutine with FetchVoices and reports back through VoicesLoaded.
func (c *Coordinator) StartVoiceLoad() error {
	if err := c.sm.Transition(StateLoading); err != nil {
		return err
	}
	c.shell.UpdateStatus("⏳ Lade Stimmen...")
	c.Refresh()
	return nil
}

// FetchVoices queries the engine for its voices. Safe to call from any goroutine.
func (c *Coordinator) FetchVoices(ctx context.Context) ([]tts.Voice, error) {
	return c.synth.Voices(ctx)
}

// VoicesLoaded applies the result of FetchVoices
func (c *Coordinator) VoicesLoaded(voices []tts.Voice, err error) {
	if c.sm.Current() != StateLoading {
		return
	}

	if err != nil {
		c.logger.Error("Voice catalog failed", "error", err)
		c.shell.UpdateStatus(fmt.Sprintf("❌ Fehler beim Laden der Stimmen: %v", err))
		c.transition(StateIdle)
		return
	}
	if len(voices) == 0 {
		c.shell.UpdateStatus("❌ Fehler: Es konnten keine Stimmen geladen werden.")
		c.transition(StateErrorNoVoices)
		return
	}

	c.catalog = tts.NewCatalog(voices)
	c.logger.Info("Voices loaded", "count", c.catalog.Len())
	c.shell.UpdateStatus("Bereit.")
	if c.ctrl != nil && c.ctrl.Count() > 0 {
		c.transition(StateGenerated)
		return
	}
	c.transition(StateIdle)
}

// rejectInput reports a validation error. The state falls back to idle
// where the table allows it and is kept otherwise.
func (c *Coordinator) rejectInput(status string, err error) error {
	c.shell.UpdateStatus(status)
	if CanTransition(c.sm.Current(), StateIdle) {
		c.transition(StateIdle)
	} else {
		c.Refresh()
	}
	return err
}

// StartGenerate validates the input and starts a new generation. The returned
// channel must be drained by the UI and each event passed to Handle.
func (c *Coordinator) StartGenerate(ctx context.Context) (<-chan Event, error) {
	state := c.sm.Current()
	if state == StateLoading || state == StateGenerating || state.IsError() {
		return nil, vorerr.Newf("cannot generate while %s", state).WithCode(vorerr.CodeInvalidOperation)
	}

	text := c.shell.InputText()
	if strings.TrimSpace(text) == "" {
		return nil, c.rejectInput("❌ Fehler: Der Text ist leer.",
			vorerr.New("text input is empty").WithCode(vorerr.CodeInvalidInput))
	}
	voice, ok := c.selectedVoice()
	if !ok {
		return nil, c.rejectInput("❌ Fehler: Bitte eine gültige Stimme auswählen.",
			vorerr.New("no valid voice selected").WithCode(vorerr.CodeInvalidInput))
	}

	chunks, err := c.chunk(text)
	if err != nil {
		return nil, c.rejectInput(fmt.Sprintf("❌ Fehler: Ungültige Segmentierung: %v", err), err)
	}

	if c.cancel != nil {
		c.cancel()
	}

	if state == StatePlaying || state == StatePaused {
		c.ctrl.Stop()
		c.transition(StateGenerated)
	}

	job := Job{
		SessionID: uuid.NewString()[:8],
		Chunks:    chunks,
		Voice:     voice.ID(),
		Rate:      c.shell.Rate(),
		Pitch:     c.shell.Pitch(),
	}
	if c.ctrl != nil {
		job.Token = c.ctrl.Begin(job.SessionID)
	}
	c.job = job
	c.words = chunking.CountWords(chunks)
	c.historyID = 0
	c.started = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.logger.Info("Generating", "session", job.SessionID, "chunks", len(chunks), "words", c.words, "voice", job.Voice)
	if len(chunks) > 1 {
		c.shell.UpdateStatus(fmt.Sprintf("⚙️ Erzeuge Sprache... (0/%d Segmente)", len(chunks)))
	} else {
		c.shell.UpdateStatus("⚙️ Erzeuge Sprache...")
	}
	c.transition(StateGenerating)

	return c.worker.Run(runCtx, job), nil
}

// selectedVoice returns the shell's selection when it names a catalog voice
func (c *Coordinator) selectedVoice() (tts.Voice, bool) {
	v, ok := c.shell.SelectedVoice()
	if !ok {
		return tts.Voice{}, false
	}
	return c.catalog.Lookup(v.DisplayName())
}

func (c *Coordinator) chunk(text string) ([]chunking.Chunk, error) {
	if !c.opts.Split {
		return chunking.Single(text), nil
	}
	return chunking.Split(text, chunking.Config{MinWords: c.opts.MinWords, Boundary: c.opts.Boundary})
}

// Handle applies one worker event. Events of superseded generations are
// ignored apart from releasing their files.
func (c *Coordinator) Handle(ev Event) {
	switch e := ev.(type) {
	case SegmentReady:
		c.onSegment(e)
	case Failed:
		c.onFailed(e)
	case Finished:
		c.onFinished(e)
	}
}

func (c *Coordinator) onSegment(e SegmentReady) {
	if c.ctrl == nil {
		c.remove(e.Segment.Path)
		return
	}

	accepted, err := c.ctrl.Accept(e.Token, e.Segment)
	if err != nil {
		c.failAudioFormat(err)
		return
	}
	if !accepted {
		return
	}

	if e.Total > 1 {
		c.shell.UpdateStatus(fmt.Sprintf("⚙️ Erzeuge Sprache... (%d/%d Segmente)", e.Done, e.Total))
	}

	if e.Segment.Index == 0 && c.opts.AutoPlay && c.ctrl.State() == PlaybackStopped {
		if err := c.ctrl.TogglePlayPause(); err != nil {
			c.logger.Warn("Auto-play failed", "error", err)
		}
	}
	c.Refresh()
}

func (c *Coordinator) onFailed(e Failed) {
	if c.ctrl != nil && e.Token != c.ctrl.Token() {
		return
	}
	c.logger.Warn("Generation failed", "kind", e.Kind, "index", e.Index, "error", e.Err)
	c.stopWorker()
	if c.ctrl != nil {
		c.ctrl.Abandon()
		c.ctrl.Release()
	}
	c.shell.UpdateStatus(e.StatusText())
	c.transition(StateIdle)
}

func (c *Coordinator) onFinished(e Finished) {
	if c.ctrl == nil {
		c.stopWorker()
		c.shell.UpdateStatus("❌ Fehler: Audio erzeugt, aber keine Audioausgabe verfügbar.")
		return
	}
	if e.Token != c.ctrl.Token() || !c.ctrl.Generating() {
		return
	}

	c.ctrl.Finish(e.Token)
	c.stopWorker()

	c.logger.Info("Generation complete", "session", c.job.SessionID, "segments", c.ctrl.Count(),
		"duration", c.ctrl.TotalDuration(), "elapsed", time.Since(c.started))

	switch c.ctrl.State() {
	case PlaybackPlaying:
		c.transition(StatePlaying)
		c.shell.UpdateStatus("▶ Wiedergabe läuft...")
	case PlaybackPaused:
		c.transition(StatePaused)
		c.shell.UpdateStatus("✅ Audio erzeugt. Pausiert.")
	default:
		c.transition(StateGenerated)
		c.shell.UpdateStatus("✅ Audio erzeugt! Zum Abspielen Play drücken.")
	}

	c.record()
}

func (c *Coordinator) failAudioFormat(err error) {
	c.logger.Error("Segment rejected by player", "error", err)
	c.stopWorker()
	c.ctrl.Abandon()
	c.ctrl.Release()
	c.shell.UpdateStatus(fmt.Sprintf("❌ Fehler beim Laden des Audios: %v", err))
	c.transition(StateErrorAudioFormat)
}

func (c *Coordinator) stopWorker() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) remove(path string) {
	newFileRemover(1, 0, c.logger).Remove(path)
}

func (c *Coordinator) record() {
	if c.recorder == nil {
		return
	}
	id, err := c.recorder.Record(context.Background(), c.job.Generation(c.shell.InputText()))
	if err != nil {
		c.logger.Warn("History record failed", "error", err)
		return
	}
	c.historyID = id
}

// TogglePlayPause toggles playback of the current session
func (c *Coordinator) TogglePlayPause() error {
	if c.ctrl == nil {
		c.shell.UpdateStatus("❌ Fehler: Audioausgabe nicht bereit.")
		return vorerr.New("audio output not available").WithCode(vorerr.CodeAudioInit)
	}
	if c.ctrl.Count() == 0 {
		c.shell.UpdateStatus("❌ Fehler: Kein gültiges Audio geladen.")
		return vorerr.New("no audio loaded").WithCode(vorerr.CodeInvalidOperation)
	}

	wasStopped := c.ctrl.State() == PlaybackStopped
	if err := c.ctrl.TogglePlayPause(); err != nil {
		c.shell.UpdateStatus(fmt.Sprintf("❌ Wiedergabefehler: %v", err))
		return err
	}

	switch {
	case c.ctrl.State() == PlaybackPaused:
		c.shell.UpdateStatus("⏸ Pausiert.")
	case wasStopped:
		c.shell.UpdateStatus("▶ Wiedergabe läuft...")
	default:
		c.shell.UpdateStatus("▶ Wiedergabe fortgesetzt...")
	}
	c.syncPlaybackState()
	return nil
}

// Stop rewinds playback to the first segment
func (c *Coordinator) Stop() {
	if c.ctrl == nil || c.ctrl.Count() == 0 {
		return
	}
	wasActive := c.ctrl.State() != PlaybackStopped
	c.ctrl.Stop()
	if wasActive {
		c.shell.UpdateStatus("⏹ Gestoppt.")
	}
	c.syncPlaybackState()
}

// syncPlaybackState mirrors the controller into the session state. While a
// generation runs the session stays in generating.
func (c *Coordinator) syncPlaybackState() {
	if c.sm.Current() == StateGenerating {
		c.Refresh()
		return
	}
	switch c.ctrl.State() {
	case PlaybackPlaying:
		c.transition(StatePlaying)
	case PlaybackPaused:
		c.transition(StatePaused)
	default:
		c.transition(StateGenerated)
	}
}

// SeekRelative moves within the current segment
func (c *Coordinator) SeekRelative(delta time.Duration) error {
	if c.ctrl == nil {
		return vorerr.New("audio output not available").WithCode(vorerr.CodeAudioInit)
	}
	if err := c.ctrl.SeekRelative(delta); err != nil {
		if !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
			c.shell.UpdateStatus(fmt.Sprintf("❌ Fehler beim Springen: %v", err))
		}
		return err
	}
	return nil
}

// SeekFraction moves to fraction f of the current segment
func (c *Coordinator) SeekFraction(f float64) error {
	if c.ctrl == nil {
		return vorerr.New("audio output not available").WithCode(vorerr.CodeAudioInit)
	}
	if err := c.ctrl.SeekFraction(f); err != nil {
		if !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
			c.shell.UpdateStatus(fmt.Sprintf("❌ Fehler beim Springen: %v", err))
		}
		return err
	}
	return nil
}

// SegmentEnded handles the player's end-of-clip notification
func (c *Coordinator) SegmentEnded(end SegmentEnd) {
	if c.ctrl == nil {
		return
	}
	switch c.ctrl.OnSegmentEnd(end) {
	case EndAdvanced:
		c.Refresh()
	case EndWaiting:
		c.shell.UpdateStatus("⏳ Warte auf nächstes Segment...")
		c.Refresh()
	case EndFinished:
		c.shell.UpdateStatus("✅ Wiedergabe beendet.")
		c.syncPlaybackState()
	}
}

// Save writes the audio of the session to path
func (c *Coordinator) Save(path string) error {
	if c.ctrl == nil || c.ctrl.Count() == 0 || c.ctrl.Generating() {
		c.shell.UpdateStatus("❌ Kein erzeugtes Audio zum Speichern.")
		return vorerr.New("no generated audio").WithCode(vorerr.CodeInvalidOperation)
	}
	if c.ctrl.State() == PlaybackPlaying {
		c.shell.UpdateStatus("⚠️ Bitte die Wiedergabe vor dem Speichern stoppen.")
		return vorerr.New("playback is running").WithCode(vorerr.CodeInvalidOperation)
	}

	if err := Export(path, c.ctrl.Files(), c.synth.Format()); err != nil {
		c.logger.Error("Save failed", "path", path, "error", err)
		c.shell.UpdateStatus(fmt.Sprintf("❌ Fehler beim Speichern: %v", err))
		return err
	}

	c.logger.Info("Audio saved", "path", path, "segments", c.ctrl.Count())
	c.shell.UpdateStatus(fmt.Sprintf("✅ Audio gespeichert unter %s", filepath.Base(path)))

	if c.recorder != nil && c.historyID != 0 {
		if err := c.recorder.MarkSaved(context.Background(), c.historyID, path); err != nil {
			c.logger.Warn("History update failed", "error", err)
		}
	}
	return nil
}

// SuggestedFileName proposes a file name for Save
func (c *Coordinator) SuggestedFileName() string {
	return SuggestFileName(c.shell.InputText(), c.synth.Format().Ext())
}

// Close stops the worker and deletes all temp files of the session
func (c *Coordinator) Close() {
	c.stopWorker()
	if c.ctrl != nil {
		c.ctrl.Abandon()
		c.ctrl.Release()
	}
}
