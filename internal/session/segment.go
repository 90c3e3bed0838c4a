package session

import (
	"fmt"
	"os"
	"time"

	"github.com/msto63/vorleser/pkg/core/logging"
)

// Segment is the audio of one synthesized chunk, stored in a temp file
type Segment struct {
	Index    int
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Event is produced by a synthesis worker and consumed on the UI goroutine
type Event interface {
	EventToken() uint64
}

// SegmentReady reports that chunk Segment.Index was synthesized
type SegmentReady struct {
	Token   uint64
	Segment *Segment
	Done    int
	Total   int
}

// FailKind classifies why a generation was aborted
type FailKind int

const (
	// FailSynthesis - the engine returned an error
	FailSynthesis FailKind = iota

	// FailNoAudio - the engine reported that it produced no audio
	FailNoAudio

	// FailInvalidAudio - the stored segment was empty
	FailInvalidAudio
)

// String returns the kind name used in logs
func (k FailKind) String() string {
	switch k {
	case FailSynthesis:
		return "synthesis"
	case FailNoAudio:
		return "no_audio"
	case FailInvalidAudio:
		return "invalid_audio"
	default:
		return "unknown"
	}
}

// Failed reports that chunk Index aborted the generation
type Failed struct {
	Token uint64
	Kind  FailKind
	Index int
	Err   error
}

// Finished reports that all chunks were synthesized
type Finished struct {
	Token uint64
	Total int
}

// EventToken implements Event
func (e SegmentReady) EventToken() uint64 { return e.Token }

// EventToken implements Event
func (e Failed) EventToken() uint64 { return e.Token }

// EventToken implements Event
func (e Finished) EventToken() uint64 { return e.Token }

// StatusText returns the user-facing status line for the failure
func (e Failed) StatusText() string {
	switch e.Kind {
	case FailNoAudio:
		return "❌ Keine Audiodaten erhalten. Ist der Text leer oder nicht sprechbar?"
	case FailInvalidAudio:
		return "❌ Es konnte kein gültiges Audio erzeugt werden."
	default:
		return fmt.Sprintf("❌ Fehler bei der Sprachausgabe: %v", e.Err)
	}
}

// fileRemover deletes temp files with a bounded number of attempts.
// Players may still hold a file briefly after release.
type fileRemover struct {
	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)
	remove   func(string) error
	logger   *logging.Logger
}

func newFileRemover(attempts int, backoff time.Duration, logger *logging.Logger) *fileRemover {
	if attempts < 1 {
		attempts = 4
	}
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &fileRemover{
		attempts: attempts,
		backoff:  backoff,
		sleep:    time.Sleep,
		remove:   os.Remove,
		logger:   logger,
	}
}

// Remove deletes path. A missing file counts as deleted.
func (r *fileRemover) Remove(path string) error {
	if path == "" {
		return nil
	}

	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.remove(path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		r.logger.Warn("Temp file deletion failed", "path", path, "attempt", attempt, "error", err)
		if attempt < r.attempts {
			r.sleep(r.backoff)
		}
	}

	r.logger.Error("Giving up on temp file", "path", path, "attempts", r.attempts, "error", err)
	return err
}
