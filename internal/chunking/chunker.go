package chunking

import (
	"regexp"
	"strings"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

const (
	// DefaultMinWords is the minimum number of words per chunk
	DefaultMinWords = 300

	// DefaultBoundary matches words ending a sentence or clause
	DefaultBoundary = `.*[.?!:]`
)

// Chunk represents one synthesis unit
type Chunk struct {
	Index int
	Text  string
	Words int
}

// Config holds chunking configuration
type Config struct {
	// MinWords is the number of words collected before looking for a boundary
	MinWords int

	// Boundary must match a whole word to end a chunk. Empty means a hard
	// cut every MinWords words.
	Boundary string
}

// DefaultConfig returns default chunking configuration
func DefaultConfig() Config {
	return Config{
		MinWords: DefaultMinWords,
		Boundary: DefaultBoundary,
	}
}

// Chunker splits text into word-bounded chunks
type Chunker struct {
	config   Config
	boundary *regexp.Regexp
}

// NewChunker validates cfg and compiles the boundary pattern
func NewChunker(cfg Config) (*Chunker, error) {
	if cfg.MinWords <= 0 {
		return nil, vorerr.Newf("words per chunk must be positive, got %d", cfg.MinWords).
			WithCode(vorerr.CodeInvalidInput)
	}

	c := &Chunker{config: cfg}
	if cfg.Boundary != "" {
		re, err := compileBoundary(cfg.Boundary)
		if err != nil {
			return nil, vorerr.Wrap(err, "invalid chunk boundary pattern").
				WithCode(vorerr.CodeInvalidInput).
				WithDetail("pattern", cfg.Boundary)
		}
		c.boundary = re
	}
	return c, nil
}

// compileBoundary anchors p so that it has to match an entire word
func compileBoundary(p string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + p + `)$`)
}

// ValidBoundary reports whether p can be used as a boundary pattern
func ValidBoundary(p string) bool {
	if p == "" {
		return true
	}
	_, err := compileBoundary(p)
	return err == nil
}

// Split splits text into chunks.
//
// Each chunk holds at least MinWords words except the last one. After
// MinWords words, words are appended until one matches the boundary or the
// input ends.
func (c *Chunker) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(words) {
		end := start + c.config.MinWords
		if end >= len(words) {
			chunks = append(chunks, newChunk(len(chunks), words[start:]))
			break
		}

		if c.boundary != nil {
			for end < len(words) && !c.boundary.MatchString(words[end-1]) {
				end++
			}
		}

		chunks = append(chunks, newChunk(len(chunks), words[start:end]))
		start = end
	}

	return chunks
}

func newChunk(index int, words []string) Chunk {
	return Chunk{
		Index: index,
		Text:  strings.Join(words, " "),
		Words: len(words),
	}
}

// Split is a convenience wrapper around NewChunker and Chunker.Split
func Split(text string, cfg Config) ([]Chunk, error) {
	c, err := NewChunker(cfg)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Single returns the whitespace-normalized text as one chunk
func Single(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return []Chunk{newChunk(0, words)}
}

// JoinWords concatenates all chunk texts with single spaces
func JoinWords(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// Texts returns the chunk texts in order
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// CountWords returns the number of words across all chunks
func CountWords(chunks []Chunk) int {
	n := 0
	for _, c := range chunks {
		n += c.Words
	}
	return n
}
