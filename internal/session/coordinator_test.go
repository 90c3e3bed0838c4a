package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msto63/vorleser/internal/chunking"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

type coordinatorFixture struct {
	coord    *Coordinator
	shell    *fakeShell
	synth    *fakeSynth
	player   *fakePlayer
	recorder *fakeRecorder
	dir      string
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		shell:    &fakeShell{text: "Eins zwei drei. Vier fünf sechs.", rate: 10},
		synth:    newFakeSynth(),
		player:   &fakePlayer{},
		recorder: &fakeRecorder{},
		dir:      t.TempDir(),
	}
	f.coord = NewCoordinator(CoordinatorConfig{
		Shell:       f.shell,
		Synthesizer: f.synth,
		Player:      f.player,
		Recorder:    f.recorder,
		TempDir:     f.dir,
		Playback:    ControllerConfig{DeleteRetries: 1, DeleteBackoff: time.Millisecond},
	})
	f.coord.SetOptions(Options{Split: true, MinWords: 2, Boundary: chunking.DefaultBoundary, AutoPlay: true})

	if err := f.coord.StartVoiceLoad(); err != nil {
		t.Fatalf("StartVoiceLoad() error = %v", err)
	}
	voices, err := f.coord.FetchVoices(context.Background())
	f.coord.VoicesLoaded(voices, err)

	f.shell.voice = f.synth.voices[0]
	f.shell.hasVoice = true
	t.Cleanup(f.coord.Close)
	return f
}

// generate runs a full generation, handing every event to the coordinator
func (f *coordinatorFixture) generate(t *testing.T) {
	t.Helper()
	events, err := f.coord.StartGenerate(context.Background())
	if err != nil {
		t.Fatalf("StartGenerate() error = %v", err)
	}
	if f.coord.State() != StateGenerating {
		t.Fatalf("State() = %v, want generating", f.coord.State())
	}
	for ev := range events {
		f.coord.Handle(ev)
	}
}

func (f *coordinatorFixture) tempFiles() int {
	entries, _ := os.ReadDir(f.dir)
	return len(entries)
}

func TestCoordinator_VoiceLoading(t *testing.T) {
	f := newCoordinatorFixture(t)
	if f.coord.State() != StateIdle || f.coord.Catalog().Len() != 2 {
		t.Errorf("after load: state=%v voices=%d", f.coord.State(), f.coord.Catalog().Len())
	}

	tests := []struct {
		name      string
		voices    int
		err       error
		wantState State
	}{
		{"error", 0, errors.New("offline"), StateIdle},
		{"empty", 0, nil, StateErrorNoVoices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(CoordinatorConfig{Shell: &fakeShell{}, Synthesizer: newFakeSynth(), Player: &fakePlayer{}})
			c.StartVoiceLoad()
			c.VoicesLoaded(nil, tt.err)
			if c.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", c.State(), tt.wantState)
			}
		})
	}
}

func TestCoordinator_GenerateAutoPlay(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.generate(t)

	ctrl := f.coord.Controller()
	if ctrl.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", ctrl.Count())
	}
	if f.coord.State() != StatePlaying || ctrl.State() != PlaybackPlaying {
		t.Errorf("state = %v / %v, want playing", f.coord.State(), ctrl.State())
	}
	if !f.shell.sawStatus("⚙️ Erzeuge Sprache... (2/2") {
		t.Errorf("statuses = %v", f.shell.statuses)
	}
	if f.shell.state != StatePlaying || !f.shell.caps.CanStop {
		t.Errorf("shell state = %v caps = %+v", f.shell.state, f.shell.caps)
	}

	if len(f.recorder.records) != 1 {
		t.Fatalf("recorded %d generations, want 1", len(f.recorder.records))
	}
	rec := f.recorder.records[0]
	if rec.Chunks != 2 || rec.Words != 6 || rec.Rate != 10 || rec.Voice != "de-DE-KatjaNeural" {
		t.Errorf("record = %+v", rec)
	}

	f.coord.SegmentEnded(f.player.end(0))
	if ctrl.Current() != 1 {
		t.Errorf("Current() after first end = %d", ctrl.Current())
	}
	f.coord.SegmentEnded(f.player.end(1))
	if f.coord.State() != StateGenerated || ctrl.Current() != 0 {
		t.Errorf("after last end: state=%v current=%d", f.coord.State(), ctrl.Current())
	}
}

func TestCoordinator_GenerateWithoutAutoPlay(t *testing.T) {
	f := newCoordinatorFixture(t)
	opts := f.coord.Options()
	opts.AutoPlay = false
	opts.Split = false
	f.coord.SetOptions(opts)

	f.generate(t)
	if f.coord.State() != StateGenerated || f.coord.Controller().Count() != 1 {
		t.Errorf("state=%v count=%d", f.coord.State(), f.coord.Controller().Count())
	}
	if f.shell.lastStatus() != "✅ Audio erzeugt! Zum Abspielen Play drücken." {
		t.Errorf("status = %q", f.shell.lastStatus())
	}

	if err := f.coord.TogglePlayPause(); err != nil || f.coord.State() != StatePlaying {
		t.Fatalf("play: err=%v state=%v", err, f.coord.State())
	}
	if err := f.coord.TogglePlayPause(); err != nil || f.coord.State() != StatePaused {
		t.Fatalf("pause: err=%v state=%v", err, f.coord.State())
	}
	f.coord.Stop()
	if f.coord.State() != StateGenerated || f.shell.lastStatus() != "⏹ Gestoppt." {
		t.Errorf("stop: state=%v status=%q", f.coord.State(), f.shell.lastStatus())
	}
}

func TestCoordinator_InputValidation(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		hasVoice   bool
		wantStatus string
	}{
		{"empty text", "   ", true, "❌ Fehler: Der Text ist leer."},
		{"no voice", "Hallo", false, "❌ Fehler: Bitte eine gültige Stimme auswählen."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t)
			f.shell.text = tt.text
			f.shell.hasVoice = tt.hasVoice

			_, err := f.coord.StartGenerate(context.Background())
			if !vorerr.HasCode(err, vorerr.CodeInvalidInput) {
				t.Errorf("StartGenerate() error = %v, want INVALID_INPUT", err)
			}
			if f.coord.State() != StateIdle || f.shell.lastStatus() != tt.wantStatus {
				t.Errorf("state=%v status=%q", f.coord.State(), f.shell.lastStatus())
			}
		})
	}
}

func TestCoordinator_UnknownVoiceRejected(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.shell.voice.FriendlyName = "Nobody"

	if _, err := f.coord.StartGenerate(context.Background()); err == nil {
		t.Error("StartGenerate() with unknown voice succeeded")
	}
}

func TestCoordinator_SynthesisFailure(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.synth.failAt = 1
	f.synth.failErr = errors.New("service unavailable")

	f.generate(t)

	if f.coord.State() != StateIdle {
		t.Errorf("State() = %v, want idle", f.coord.State())
	}
	if f.coord.Controller().Count() != 0 || f.tempFiles() != 0 {
		t.Errorf("count=%d files=%d, want cleanup", f.coord.Controller().Count(), f.tempFiles())
	}
	if !f.shell.sawStatus("❌ Fehler bei der Sprachausgabe") {
		t.Errorf("statuses = %v", f.shell.statuses)
	}
	if len(f.recorder.records) != 0 {
		t.Error("failed generation was recorded")
	}
}

func TestCoordinator_AudioFormatError(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.player.queueErr = errors.New("corrupt")

	f.generate(t)

	if f.coord.State() != StateErrorAudioFormat {
		t.Errorf("State() = %v, want error_audio_format", f.coord.State())
	}
	if f.tempFiles() != 0 {
		t.Errorf("%d temp files left", f.tempFiles())
	}
	if _, err := f.coord.StartGenerate(context.Background()); !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
		t.Errorf("StartGenerate() in error state error = %v", err)
	}
}

func TestCoordinator_RegenerateDiscardsPrevious(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.generate(t)
	oldToken := f.coord.Controller().Token()
	oldFiles := f.coord.Controller().Files()

	events, err := f.coord.StartGenerate(context.Background())
	if err != nil {
		t.Fatalf("second StartGenerate() error = %v", err)
	}
	for _, p := range oldFiles {
		if fileExists(p) {
			t.Errorf("old segment %s not deleted", p)
		}
	}

	stale := writeSegment(f.dir, 0, "stale")
	f.coord.Handle(SegmentReady{Token: oldToken, Segment: stale, Done: 1, Total: 2})
	if fileExists(stale.Path) {
		t.Error("stale segment file survived")
	}

	for ev := range events {
		f.coord.Handle(ev)
	}
	if f.coord.Controller().Count() != 2 {
		t.Errorf("Count() = %d, want 2", f.coord.Controller().Count())
	}
	if f.tempFiles() != 2 {
		t.Errorf("temp files = %d, want 2", f.tempFiles())
	}
}

func TestCoordinator_Save(t *testing.T) {
	f := newCoordinatorFixture(t)
	opts := f.coord.Options()
	opts.AutoPlay = false
	f.coord.SetOptions(opts)

	if err := f.coord.Save(filepath.Join(t.TempDir(), "x.mp3")); err == nil {
		t.Error("Save() without audio succeeded")
	}

	f.generate(t)
	if got := f.coord.SuggestedFileName(); got != "Eins_zwei_drei_Vier_fünf_sechs.mp3" {
		t.Errorf("SuggestedFileName() = %q", got)
	}

	out := filepath.Join(t.TempDir(), "out.mp3")
	if err := f.coord.Save(out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Eins zwei drei.Vier fünf sechs." {
		t.Errorf("saved content = %q", data)
	}
	if f.recorder.saved[1] != out {
		t.Errorf("history saved path = %q", f.recorder.saved[1])
	}
}

func TestCoordinator_SaveWhilePlaying(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.generate(t)

	err := f.coord.Save(filepath.Join(t.TempDir(), "out.mp3"))
	if !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
		t.Errorf("Save() while playing error = %v", err)
	}
	if f.shell.lastStatus() != "⚠️ Bitte die Wiedergabe vor dem Speichern stoppen." {
		t.Errorf("status = %q", f.shell.lastStatus())
	}
}

func TestCoordinator_AudioInitFailed(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coord.AudioInitFailed(errors.New("no device"))

	if f.coord.State() != StateErrorNoAudio {
		t.Errorf("State() = %v, want error_no_audio", f.coord.State())
	}
	if _, err := f.coord.StartGenerate(context.Background()); err == nil {
		t.Error("StartGenerate() without audio succeeded")
	}
	if err := f.coord.TogglePlayPause(); !vorerr.HasCode(err, vorerr.CodeAudioInit) {
		t.Errorf("TogglePlayPause() error = %v", err)
	}
}

func TestCoordinator_CloseReleasesFiles(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.generate(t)
	if f.tempFiles() == 0 {
		t.Fatal("no segments written")
	}
	f.coord.Close()
	if f.tempFiles() != 0 {
		t.Errorf("%d temp files left after Close()", f.tempFiles())
	}
}
