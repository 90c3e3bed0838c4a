package audio

import (
	"time"

	"github.com/msto63/vorleser/internal/audio/codec"
)

// queue is the gapless clip sequence rendered by the output callback.
// It is not safe for concurrent use; Player guards it.
type queue struct {
	rate    int
	clips   []*codec.Clip
	cur     int
	pos     int
	playing bool
}

func newQueue(rate int) *queue {
	return &queue{rate: rate}
}

// add appends a clip converted to the output rate
func (q *queue) add(c *codec.Clip) *codec.Clip {
	c = codec.Resample(c, q.rate)
	q.clips = append(q.clips, c)
	return c
}

// play starts output of the current clip. Without a clip left it does nothing.
func (q *queue) play() {
	if q.cur < len(q.clips) {
		q.playing = true
	}
}

func (q *queue) pause() {
	q.playing = false
}

// seek moves within the current clip, limited to its bounds
func (q *queue) seek(d time.Duration) {
	frames := q.current().Frames()
	pos := codec.DurationToFrames(d, q.rate)
	if pos < 0 {
		pos = 0
	}
	if pos > frames {
		pos = frames
	}
	q.pos = pos
}

func (q *queue) current() *codec.Clip {
	if q.cur < len(q.clips) {
		return q.clips[q.cur]
	}
	return nil
}

func (q *queue) position() time.Duration {
	return codec.FramesToDuration(q.pos, q.rate)
}

func (q *queue) duration() time.Duration {
	return q.current().Duration()
}

func (q *queue) reset() {
	q.clips = nil
	q.cur = 0
	q.pos = 0
	q.playing = false
}

// fill renders the next len(out) frames and returns the indices of the
// clips that ended during this buffer. Output stops after the last clip.
func (q *queue) fill(out []float32) []int {
	var ended []int
	for i := range out {
		for q.playing && q.pos >= q.current().Frames() {
			ended = append(ended, q.cur)
			q.cur++
			q.pos = 0
			if q.cur >= len(q.clips) {
				q.playing = false
			}
		}
		if !q.playing {
			out[i] = 0
			continue
		}
		out[i] = q.clips[q.cur].Samples[q.pos]
		q.pos++
	}
	return ended
}
