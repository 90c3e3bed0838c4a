// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     session
// Description: Playback queue over the segments of the current session
// Author:      Mike Stoffels
// Created:     2026-09-23
// License:     MIT
// ============================================================================

package session

import (
	"fmt"
	"time"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// Player is a sequential, gapless audio player
type Player interface {
	// Queue appends the audio file at path and returns its duration
	Queue(path string) (time.Duration, error)

	// Play starts or resumes the current clip
	Play() error

	// Pause pauses playback, keeping the position
	Pause() error

	// Seek moves to pos within the current clip
	Seek(pos time.Duration) error

	// Position returns the offset within the current clip
	Position() time.Duration

	// Duration returns the length of the current clip
	Duration() time.Duration

	// Playing reports whether audio is being output
	Playing() bool

	// Delete stops playback, releases all queued files and resets the player
	Delete() error

	// Epoch counts Delete calls. End notifications carry the epoch they were
	// produced in.
	Epoch() uint64
}

// SegmentEnd is the player's notification that clip Index finished playing
type SegmentEnd struct {
	Epoch uint64
	Index int
}

// PlaybackState is the state of the player as seen by the controller
type PlaybackState int

const (
	PlaybackStopped PlaybackState = iota
	PlaybackPlaying
	PlaybackPaused
)

// String returns the string representation of the playback state
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// EndResult describes what happened after a segment finished
type EndResult int

const (
	// EndIgnored - notification did not match the current segment
	EndIgnored EndResult = iota

	// EndAdvanced - playback continues with the next segment
	EndAdvanced

	// EndWaiting - all queued segments played while generation continues
	EndWaiting

	// EndFinished - the last segment finished, playback rewound
	EndFinished
)

// Advance returns the segment following cur among n segments, and false
// when cur was the last one.
func Advance(cur, n int) (int, bool) {
	if cur+1 < n {
		return cur + 1, true
	}
	return cur, false
}

// ControllerConfig holds temp file deletion settings
type ControllerConfig struct {
	DeleteRetries int
	DeleteBackoff time.Duration
}

// Controller sequences playback across the segments of the current session.
// All methods must be called from the UI goroutine.
type Controller struct {
	player  Player
	remover *fileRemover
	logger  *logging.Logger

	sessionID  string
	token      uint64
	segments   []*Segment
	current    int
	state      PlaybackState
	generating bool

	// drained is set when every queued segment has played during generation
	drained bool
}

// NewController creates a controller driving player
func NewController(player Player, cfg ControllerConfig) *Controller {
	logger := logging.New("playback")
	return &Controller{
		player:  player,
		remover: newFileRemover(cfg.DeleteRetries, cfg.DeleteBackoff, logger),
		logger:  logger,
	}
}

// Begin releases the previous session and returns the token of a new one
func (c *Controller) Begin(sessionID string) uint64 {
	c.Release()
	c.token++
	c.sessionID = sessionID
	c.generating = true
	c.logger.Debug("Session started", "session", sessionID, "token", c.token)
	return c.token
}

// Token returns the token of the current session
func (c *Controller) Token() uint64 {
	return c.token
}

// SessionID returns the id of the current session
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Accept appends a segment produced for token. Segments of an older session
// are deleted and reported as not accepted. A segment whose index is not the
// next expected one is a programming error and panics.
func (c *Controller) Accept(token uint64, seg *Segment) (bool, error) {
	if token != c.token || !c.generating {
		c.logger.Debug("Discarding stale segment", "token", token, "current", c.token, "index", seg.Index)
		c.remover.Remove(seg.Path)
		return false, nil
	}

	if seg.Index != len(c.segments) {
		panic(fmt.Sprintf("session: segment %d arrived out of order, expected %d", seg.Index, len(c.segments)))
	}

	dur, err := c.player.Queue(seg.Path)
	if err == nil && dur <= 0 {
		err = vorerr.New("segment has zero duration")
	}
	if err != nil {
		c.remover.Remove(seg.Path)
		return false, vorerr.Wrap(err, "failed to load segment").
			WithCode(vorerr.CodeAudioFormat).
			WithDetail("index", seg.Index)
	}

	seg.Duration = dur
	c.segments = append(c.segments, seg)

	if c.drained {
		c.drained = false
		c.current = seg.Index
		if c.state == PlaybackPlaying {
			if err := c.player.Play(); err != nil {
				c.logger.Warn("Resume after drain failed", "error", err)
			}
		}
	}
	return true, nil
}

// Finish marks the generation of token as complete. It returns true when
// playback had already drained and the session is now finished.
func (c *Controller) Finish(token uint64) bool {
	if token != c.token {
		return false
	}
	c.generating = false
	if c.drained {
		c.rewind()
		return true
	}
	return false
}

// Abandon stops accepting segments of the current generation
func (c *Controller) Abandon() {
	c.token++
	c.generating = false
	if c.drained {
		c.rewind()
	}
}

// Generating reports whether segments are still expected for this session
func (c *Controller) Generating() bool {
	return c.generating
}

// TogglePlayPause pauses when playing and plays otherwise
func (c *Controller) TogglePlayPause() error {
	if len(c.segments) == 0 {
		return vorerr.New("no audio to play").WithCode(vorerr.CodeInvalidOperation)
	}

	if c.state == PlaybackPlaying {
		if err := c.player.Pause(); err != nil {
			return vorerr.Wrap(err, "pause failed").WithCode(vorerr.CodeAudioFormat)
		}
		c.state = PlaybackPaused
		return nil
	}

	if !c.drained {
		if err := c.player.Play(); err != nil {
			return vorerr.Wrap(err, "play failed").WithCode(vorerr.CodeAudioFormat)
		}
	}
	c.state = PlaybackPlaying
	return nil
}

// Stop rewinds to the first segment. Calling it repeatedly has no further effect.
func (c *Controller) Stop() {
	c.rewind()
}

// rewind resets the player and queues all segments again from the start
func (c *Controller) rewind() {
	if err := c.player.Delete(); err != nil {
		c.logger.Warn("Player reset failed", "error", err)
	}
	for _, seg := range c.segments {
		if _, err := c.player.Queue(seg.Path); err != nil {
			c.logger.Warn("Re-queue failed", "index", seg.Index, "error", err)
		}
	}
	c.current = 0
	c.state = PlaybackStopped
	c.drained = false
}

// OnSegmentEnd handles the player's end-of-clip notification. Notifications
// from before the last player reset are ignored.
func (c *Controller) OnSegmentEnd(end SegmentEnd) EndResult {
	if end.Epoch != c.player.Epoch() {
		c.logger.Debug("Discarding stale end notification", "index", end.Index, "epoch", end.Epoch)
		return EndIgnored
	}
	if c.state != PlaybackPlaying || c.drained || end.Index != c.current {
		return EndIgnored
	}

	next, ok := Advance(c.current, len(c.segments))
	switch {
	case ok:
		c.current = next
		return EndAdvanced
	case c.generating:
		c.drained = true
		return EndWaiting
	default:
		c.rewind()
		return EndFinished
	}
}

// SeekRelative moves the position within the current segment by delta.
// The target is not clamped here; the player limits it.
func (c *Controller) SeekRelative(delta time.Duration) error {
	if !c.canSeek() {
		return vorerr.New("no active playback").WithCode(vorerr.CodeInvalidOperation)
	}
	return c.seek(c.player.Position() + delta)
}

// SeekFraction moves to fraction f (0..1) of the current segment
func (c *Controller) SeekFraction(f float64) error {
	if !c.canSeek() {
		return vorerr.New("no active playback").WithCode(vorerr.CodeInvalidOperation)
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return c.seek(time.Duration(f * float64(c.player.Duration())))
}

func (c *Controller) canSeek() bool {
	return len(c.segments) > 0 && !c.drained &&
		(c.state == PlaybackPlaying || c.state == PlaybackPaused)
}

func (c *Controller) seek(pos time.Duration) error {
	if err := c.player.Seek(pos); err != nil {
		return vorerr.Wrap(err, "seek failed").WithCode(vorerr.CodeAudioFormat)
	}
	return nil
}

// Release stops the player and deletes all segment files of the session.
// Deletion failures are logged and the files are left behind.
func (c *Controller) Release() {
	if err := c.player.Delete(); err != nil {
		c.logger.Warn("Player release failed", "error", err)
	}

	orphaned := 0
	for _, seg := range c.segments {
		if err := c.remover.Remove(seg.Path); err != nil {
			orphaned++
		}
	}
	if orphaned > 0 {
		c.logger.Error("Temp files left on disk", "session", c.sessionID, "count", orphaned)
	}

	c.segments = nil
	c.current = 0
	c.state = PlaybackStopped
	c.drained = false
}

// Current returns the index of the current segment
func (c *Controller) Current() int {
	return c.current
}

// Count returns the number of accepted segments
func (c *Controller) Count() int {
	return len(c.segments)
}

// State returns the playback state
func (c *Controller) State() PlaybackState {
	return c.state
}

// Drained reports whether playback is waiting for the next segment
func (c *Controller) Drained() bool {
	return c.drained
}

// Position returns the position within the current segment
func (c *Controller) Position() time.Duration {
	if len(c.segments) == 0 {
		return 0
	}
	return c.player.Position()
}

// Duration returns the length of the current segment
func (c *Controller) Duration() time.Duration {
	if c.current < len(c.segments) {
		return c.segments[c.current].Duration
	}
	return 0
}

// Progress returns "Segment K von N"
func (c *Controller) Progress() string {
	if len(c.segments) == 0 {
		return ""
	}
	return fmt.Sprintf("Segment %d von %d", c.current+1, len(c.segments))
}

// Files returns the segment paths in order
func (c *Controller) Files() []string {
	out := make([]string, len(c.segments))
	for i, s := range c.segments {
		out[i] = s.Path
	}
	return out
}

// TotalDuration returns the summed duration of all segments
func (c *Controller) TotalDuration() time.Duration {
	var d time.Duration
	for _, s := range c.segments {
		d += s.Duration
	}
	return d
}
