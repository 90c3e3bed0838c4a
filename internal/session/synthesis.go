package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/msto63/vorleser/internal/chunking"
	"github.com/msto63/vorleser/internal/history"
	"github.com/msto63/vorleser/internal/tts"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// Job is one generation request
type Job struct {
	Token     uint64
	SessionID string
	Chunks    []chunking.Chunk
	Voice     string
	Rate      int
	Pitch     int
}

// Generation returns the history entry of the finished job. Voice is the
// engine voice id.
func (j Job) Generation(text string) history.Generation {
	return history.Generation{
		SessionID: j.SessionID,
		CreatedAt: time.Now(),
		Voice:     j.Voice,
		Rate:      j.Rate,
		Pitch:     j.Pitch,
		Chunks:    len(j.Chunks),
		Words:     chunking.CountWords(j.Chunks),
		Preview:   text,
	}
}

// Worker synthesizes the chunks of a job sequentially on its own goroutine
type Worker struct {
	synth   tts.Synthesizer
	tempDir string
	remover *fileRemover
	logger  *logging.Logger
}

// NewWorker creates a worker writing segments to tempDir (os.TempDir if empty)
func NewWorker(synth tts.Synthesizer, tempDir string) *Worker {
	logger := logging.New("synthesis")
	return &Worker{
		synth:   synth,
		tempDir: tempDir,
		remover: newFileRemover(4, 0, logger),
		logger:  logger,
	}
}

// Run starts the job and returns its event stream. The channel is closed
// after Finished, after the first Failed, or when ctx is cancelled. It is
// buffered for the whole job so the worker never blocks on a slow reader.
func (w *Worker) Run(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event, len(job.Chunks)+1)

	go func() {
		defer close(events)

		total := len(job.Chunks)
		w.logger.Info("Generation started", "session", job.SessionID, "chunks", total, "voice", job.Voice)

		for i, chunk := range job.Chunks {
			if ctx.Err() != nil {
				w.logger.Debug("Generation cancelled", "session", job.SessionID, "chunk", i)
				return
			}

			seg, failure := w.synthesize(ctx, job, i, chunk)
			if ctx.Err() != nil {
				// Cancelled during the call; the result belongs to nobody.
				if seg != nil {
					w.remover.Remove(seg.Path)
				}
				return
			}
			if failure != nil {
				w.logger.Warn("Generation aborted", "session", job.SessionID, "chunk", i, "kind", failure.Kind, "error", failure.Err)
				events <- *failure
				return
			}

			w.logger.Debug("Segment ready", "session", job.SessionID, "chunk", i, "bytes", seg.Bytes)
			events <- SegmentReady{Token: job.Token, Segment: seg, Done: i + 1, Total: total}
		}

		w.logger.Info("Generation finished", "session", job.SessionID, "chunks", total)
		events <- Finished{Token: job.Token, Total: total}
	}()

	return events
}

// synthesize produces and verifies the segment for one chunk
func (w *Worker) synthesize(ctx context.Context, job Job, index int, chunk chunking.Chunk) (*Segment, *Failed) {
	fail := func(kind FailKind, err error) *Failed {
		return &Failed{Token: job.Token, Kind: kind, Index: index, Err: err}
	}

	data, err := w.synth.Synthesize(ctx, tts.Request{
		Text:  chunk.Text,
		Voice: job.Voice,
		Rate:  job.Rate,
		Pitch: job.Pitch,
	})
	if err != nil {
		if errors.Is(err, tts.ErrNoAudio) {
			return nil, fail(FailNoAudio, err)
		}
		return nil, fail(FailSynthesis, err)
	}

	pattern := fmt.Sprintf("vorleser_%s_%03d_*%s", job.SessionID, index, w.synth.Format().Ext())
	f, err := os.CreateTemp(w.tempDir, pattern)
	if err != nil {
		return nil, fail(FailSynthesis, vorerr.Wrap(err, "failed to create temp file").WithCode(vorerr.CodeInternal))
	}
	path := f.Name()

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		w.remover.Remove(path)
		return nil, fail(FailSynthesis, vorerr.Wrap(werr, "failed to write segment").WithCode(vorerr.CodeInternal))
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		w.remover.Remove(path)
		return nil, fail(FailInvalidAudio, vorerr.New("segment file is empty").
			WithCode(vorerr.CodeAudioFormat).
			WithDetail("chunk", index))
	}

	return &Segment{Index: index, Path: path, Bytes: info.Size()}, nil
}
