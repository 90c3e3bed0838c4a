package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/msto63/vorleser/internal/history"
	"github.com/msto63/vorleser/internal/tts"
)

// fakePlayer records calls and keeps a simple queue
type fakePlayer struct {
	queued   []string
	cur      int
	playing  bool
	pos      time.Duration
	deletes  int
	seeks    []time.Duration
	queueErr error
	zero     bool
	epoch    uint64
}

func (p *fakePlayer) Queue(path string) (time.Duration, error) {
	if p.queueErr != nil {
		return 0, p.queueErr
	}
	p.queued = append(p.queued, path)
	if p.zero {
		return 0, nil
	}
	return 2 * time.Second, nil
}

func (p *fakePlayer) Play() error {
	if p.cur < len(p.queued) {
		p.playing = true
	}
	return nil
}

func (p *fakePlayer) Pause() error {
	p.playing = false
	return nil
}

func (p *fakePlayer) Seek(pos time.Duration) error {
	p.seeks = append(p.seeks, pos)
	p.pos = pos
	return nil
}

func (p *fakePlayer) Position() time.Duration { return p.pos }
func (p *fakePlayer) Duration() time.Duration { return 2 * time.Second }
func (p *fakePlayer) Playing() bool           { return p.playing }
func (p *fakePlayer) Epoch() uint64           { return p.epoch }

// end returns the notification the player would send now for clip index
func (p *fakePlayer) end(index int) SegmentEnd {
	return SegmentEnd{Epoch: p.epoch, Index: index}
}

func (p *fakePlayer) Delete() error {
	p.deletes++
	p.epoch++
	p.queued = nil
	p.cur = 0
	p.playing = false
	p.pos = 0
	return nil
}

// fakeSynth returns the request text as audio bytes
type fakeSynth struct {
	mu      sync.Mutex
	calls   []tts.Request
	failAt  int
	failErr error
	emptyAt int
	voices  []tts.Voice
	block   chan struct{}
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{
		failAt:  -1,
		emptyAt: -1,
		voices: []tts.Voice{
			{ShortName: "de-DE-KatjaNeural", FriendlyName: "Katja", Locale: "de-DE", Gender: "Female"},
			{ShortName: "en-US-AriaNeural", FriendlyName: "Aria", Locale: "en-US", Gender: "Female"},
		},
	}
}

func (s *fakeSynth) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n == s.failAt {
		return nil, s.failErr
	}
	if n == s.emptyAt {
		return []byte{}, nil
	}
	return []byte(req.Text), nil
}

func (s *fakeSynth) Voices(ctx context.Context) ([]tts.Voice, error) {
	return s.voices, nil
}

func (s *fakeSynth) Format() tts.Format { return tts.FormatMP3 }
func (s *fakeSynth) Close() error      { return nil }

func (s *fakeSynth) requests() []tts.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Request(nil), s.calls...)
}

// fakeShell stores what the coordinator reports
type fakeShell struct {
	text     string
	voice    tts.Voice
	hasVoice bool
	rate     int
	pitch    int
	statuses []string
	state    State
	caps     Capabilities
}

func (s *fakeShell) UpdateStatus(text string) { s.statuses = append(s.statuses, text) }

func (s *fakeShell) SetControlState(state State, caps Capabilities) {
	s.state = state
	s.caps = caps
}

func (s *fakeShell) InputText() string                { return s.text }
func (s *fakeShell) SelectedVoice() (tts.Voice, bool) { return s.voice, s.hasVoice }
func (s *fakeShell) Rate() int                        { return s.rate }
func (s *fakeShell) Pitch() int                       { return s.pitch }

func (s *fakeShell) lastStatus() string {
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func (s *fakeShell) sawStatus(prefix string) bool {
	for _, st := range s.statuses {
		if strings.HasPrefix(st, prefix) {
			return true
		}
	}
	return false
}

// fakeRecorder keeps generations in memory
type fakeRecorder struct {
	records []history.Generation
	saved   map[int64]string
}

func (r *fakeRecorder) Record(ctx context.Context, g history.Generation) (int64, error) {
	r.records = append(r.records, g)
	return int64(len(r.records)), nil
}

func (r *fakeRecorder) MarkSaved(ctx context.Context, id int64, path string) error {
	if r.saved == nil {
		r.saved = make(map[int64]string)
	}
	if id <= 0 || int(id) > len(r.records) {
		return errors.New("unknown id")
	}
	r.saved[id] = path
	return nil
}

// writeSegment creates a temp segment file with data
func writeSegment(dir string, index int, data string) *Segment {
	f, err := os.CreateTemp(dir, "seg_*.mp3")
	if err != nil {
		panic(err)
	}
	f.WriteString(data)
	f.Close()
	return &Segment{Index: index, Path: f.Name(), Bytes: int64(len(data))}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
