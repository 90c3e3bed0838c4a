package session

import (
	"errors"
	"testing"
	"time"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

func newTestController(p *fakePlayer) *Controller {
	c := NewController(p, ControllerConfig{DeleteRetries: 1, DeleteBackoff: time.Millisecond})
	c.remover.sleep = func(time.Duration) {}
	return c
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		cur, n   int
		wantNext int
		wantOK   bool
	}{
		{0, 3, 1, true},
		{1, 3, 2, true},
		{2, 3, 2, false},
		{0, 1, 0, false},
	}
	for _, tt := range tests {
		next, ok := Advance(tt.cur, tt.n)
		if next != tt.wantNext || ok != tt.wantOK {
			t.Errorf("Advance(%d, %d) = %d, %v, want %d, %v", tt.cur, tt.n, next, ok, tt.wantNext, tt.wantOK)
		}
	}
}

func TestController_AcceptInOrder(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)
	token := c.Begin("abc")

	for i := 0; i < 3; i++ {
		ok, err := c.Accept(token, writeSegment(dir, i, "x"))
		if !ok || err != nil {
			t.Fatalf("Accept(%d) = %v, %v", i, ok, err)
		}
	}

	if c.Count() != 3 || len(p.queued) != 3 {
		t.Errorf("Count() = %d, queued = %d, want 3", c.Count(), len(p.queued))
	}
	if c.TotalDuration() != 6*time.Second {
		t.Errorf("TotalDuration() = %v, want 6s", c.TotalDuration())
	}
	if got := c.Progress(); got != "Segment 1 von 3" {
		t.Errorf("Progress() = %q", got)
	}
}

func TestController_AcceptOutOfOrderPanics(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(&fakePlayer{})
	token := c.Begin("abc")

	defer func() {
		if recover() == nil {
			t.Error("Accept() with index 1 first did not panic")
		}
	}()
	c.Accept(token, writeSegment(dir, 1, "x"))
}

func TestController_StaleSegmentDeleted(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)

	old := c.Begin("one")
	c.Begin("two")

	seg := writeSegment(dir, 0, "x")
	ok, err := c.Accept(old, seg)
	if ok || err != nil {
		t.Errorf("Accept(stale) = %v, %v, want false, nil", ok, err)
	}
	if fileExists(seg.Path) {
		t.Error("stale segment file was not deleted")
	}
	if len(p.queued) != 0 {
		t.Errorf("stale segment was queued")
	}
}

func TestController_AcceptRejectsBadAudio(t *testing.T) {
	tests := []struct {
		name   string
		player *fakePlayer
	}{
		{"queue error", &fakePlayer{queueErr: errors.New("bad header")}},
		{"zero duration", &fakePlayer{zero: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(tt.player)
			token := c.Begin("s")
			seg := writeSegment(t.TempDir(), 0, "x")

			ok, err := c.Accept(token, seg)
			if ok || !vorerr.HasCode(err, vorerr.CodeAudioFormat) {
				t.Errorf("Accept() = %v, %v, want AUDIO_FORMAT error", ok, err)
			}
			if fileExists(seg.Path) {
				t.Error("rejected segment file was not deleted")
			}
			if c.Count() != 0 {
				t.Errorf("Count() = %d, want 0", c.Count())
			}
		})
	}
}

func TestController_PlayPauseStop(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)

	if err := c.TogglePlayPause(); !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
		t.Errorf("TogglePlayPause() without segments error = %v", err)
	}

	token := c.Begin("s")
	c.Accept(token, writeSegment(dir, 0, "a"))
	c.Accept(token, writeSegment(dir, 1, "b"))
	c.Finish(token)

	if err := c.TogglePlayPause(); err != nil || c.State() != PlaybackPlaying || !p.playing {
		t.Fatalf("play: err=%v state=%v playing=%v", err, c.State(), p.playing)
	}
	if err := c.TogglePlayPause(); err != nil || c.State() != PlaybackPaused || p.playing {
		t.Fatalf("pause: err=%v state=%v playing=%v", err, c.State(), p.playing)
	}

	c.OnSegmentEnd(p.end(0))
	c.Stop()
	c.Stop()
	if c.State() != PlaybackStopped || c.Current() != 0 {
		t.Errorf("after Stop: state=%v current=%d", c.State(), c.Current())
	}
	if len(p.queued) != 2 {
		t.Errorf("after Stop queued = %d, want 2", len(p.queued))
	}
	if c.Count() != 2 {
		t.Errorf("Stop() dropped segments: Count() = %d", c.Count())
	}
}

func TestController_SegmentEnd(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)
	token := c.Begin("s")

	c.Accept(token, writeSegment(dir, 0, "a"))
	c.TogglePlayPause()

	if got := c.OnSegmentEnd(p.end(5)); got != EndIgnored {
		t.Errorf("OnSegmentEnd(5) = %v, want ignored", got)
	}
	if got := c.OnSegmentEnd(p.end(0)); got != EndWaiting {
		t.Fatalf("OnSegmentEnd(0) during generation = %v, want waiting", got)
	}
	if !c.Drained() {
		t.Error("Drained() = false after waiting")
	}

	p.playing = false
	c.Accept(token, writeSegment(dir, 1, "b"))
	if c.Drained() || c.Current() != 1 || !p.playing {
		t.Errorf("after resume: drained=%v current=%d playing=%v", c.Drained(), c.Current(), p.playing)
	}

	c.Finish(token)
	if got := c.OnSegmentEnd(p.end(1)); got != EndFinished {
		t.Errorf("OnSegmentEnd(last) = %v, want finished", got)
	}
	if c.State() != PlaybackStopped || c.Current() != 0 {
		t.Errorf("after finish: state=%v current=%d", c.State(), c.Current())
	}
}

func TestController_FinishAfterDrain(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)
	token := c.Begin("s")

	c.Accept(token, writeSegment(dir, 0, "a"))
	c.TogglePlayPause()
	c.OnSegmentEnd(p.end(0))

	if !c.Finish(token) {
		t.Error("Finish() after drain = false, want true")
	}
	if c.State() != PlaybackStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
	if c.Finish(token + 1) {
		t.Error("Finish(other token) = true")
	}
}

func TestController_EndBeforeStopIgnored(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)
	token := c.Begin("s")

	c.Accept(token, writeSegment(dir, 0, "a"))
	c.Accept(token, writeSegment(dir, 1, "b"))
	c.Finish(token)
	c.TogglePlayPause()

	// Clip 0 ends while the user stops and restarts playback
	pending := p.end(0)
	c.Stop()
	c.TogglePlayPause()

	if got := c.OnSegmentEnd(pending); got != EndIgnored {
		t.Errorf("OnSegmentEnd(before stop) = %v, want ignored", got)
	}
	if c.Current() != 0 {
		t.Errorf("Current() = %d, want 0", c.Current())
	}
	if got := c.OnSegmentEnd(p.end(0)); got != EndAdvanced || c.Current() != 1 {
		t.Errorf("OnSegmentEnd(after restart) = %v, current %d", got, c.Current())
	}
}

func TestController_Seek(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)

	if err := c.SeekRelative(time.Second); !vorerr.HasCode(err, vorerr.CodeInvalidOperation) {
		t.Errorf("SeekRelative() while stopped error = %v", err)
	}

	token := c.Begin("s")
	c.Accept(token, writeSegment(dir, 0, "a"))
	c.TogglePlayPause()

	p.pos = 3 * time.Second
	if err := c.SeekRelative(-5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if got := p.seeks[0]; got != -2*time.Second {
		t.Errorf("SeekRelative target = %v, want -2s (unclamped)", got)
	}

	if err := c.SeekFraction(0.5); err != nil {
		t.Fatal(err)
	}
	if got := p.seeks[1]; got != time.Second {
		t.Errorf("SeekFraction(0.5) target = %v, want 1s", got)
	}
	c.SeekFraction(7)
	if got := p.seeks[2]; got != 2*time.Second {
		t.Errorf("SeekFraction(7) target = %v, want 2s", got)
	}
}

func TestController_ReleaseDeletesFiles(t *testing.T) {
	dir := t.TempDir()
	p := &fakePlayer{}
	c := newTestController(p)
	token := c.Begin("s")

	a := writeSegment(dir, 0, "a")
	b := writeSegment(dir, 1, "b")
	c.Accept(token, a)
	c.Accept(token, b)

	c.Begin("next")
	if fileExists(a.Path) || fileExists(b.Path) {
		t.Error("Begin() did not delete the previous session files")
	}
	if c.Count() != 0 || p.deletes == 0 {
		t.Errorf("Count() = %d, deletes = %d", c.Count(), p.deletes)
	}
	if len(c.Files()) != 0 {
		t.Errorf("Files() = %v", c.Files())
	}
}

func TestFileRemover_Retries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantErr   bool
		wantCalls int
		wantSleep int
	}{
		{"first try", 0, 4, false, 1, 0},
		{"third try", 2, 4, false, 3, 2},
		{"give up", 10, 4, true, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFileRemover(tt.attempts, 250*time.Millisecond, logging.New("test"))
			calls, sleeps := 0, 0
			r.remove = func(string) error {
				calls++
				if calls <= tt.failures {
					return errors.New("file in use")
				}
				return nil
			}
			r.sleep = func(d time.Duration) {
				if d != 250*time.Millisecond {
					t.Errorf("backoff = %v", d)
				}
				sleeps++
			}

			err := r.Remove("/tmp/segment.mp3")
			if (err != nil) != tt.wantErr {
				t.Errorf("Remove() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls || sleeps != tt.wantSleep {
				t.Errorf("calls = %d, sleeps = %d, want %d, %d", calls, sleeps, tt.wantCalls, tt.wantSleep)
			}
		})
	}
}

func TestFileRemover_MissingFile(t *testing.T) {
	r := newFileRemover(4, time.Millisecond, logging.New("test"))
	if err := r.Remove(t.TempDir() + "/missing.mp3"); err != nil {
		t.Errorf("Remove(missing) error = %v", err)
	}
}
