// Package subtitle extracts spoken dialogue from SRT documents and loads
// input text files.
package subtitle

import (
	"os"
	"regexp"
	"strings"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

var (
	cueNumberPattern = regexp.MustCompile(`^\d+\s*$`)
	timestampPattern = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{1,2}:\d{2}:\d{2}[,.]\d{3}.*`)
	angleTagPattern  = regexp.MustCompile(`<[^>]+>`)
	curlyTagPattern  = regexp.MustCompile(`{[^}]+}`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
)

// Extract returns the dialogue text of an SRT document as one line.
// Cue numbers, timestamps and inline markup are dropped; unrecognized
// lines outside a cue block are ignored.
func Extract(doc string) string {
	var (
		blocks  []string
		buffer  []string
		inBlock bool
	)

	flush := func() {
		if len(buffer) > 0 {
			blocks = append(blocks, strings.Join(buffer, " "))
			buffer = buffer[:0]
		}
	}

	for _, line := range splitLines(doc) {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			flush()
			inBlock = false
		case !inBlock && cueNumberPattern.MatchString(line):
			flush()
		case timestampPattern.MatchString(line):
			flush()
			inBlock = true
		case inBlock:
			if cleaned := stripMarkup(line); cleaned != "" {
				buffer = append(buffer, cleaned)
			}
		}
	}
	flush()

	text := strings.Join(blocks, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}

func stripMarkup(line string) string {
	line = angleTagPattern.ReplaceAllString(line, "")
	return curlyTagPattern.ReplaceAllString(line, "")
}

func splitLines(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")
	return strings.Split(doc, "\n")
}

// ExtractFile reads an SRT file and extracts its dialogue.
// Invalid UTF-8 sequences are dropped.
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", readError(err, path)
	}
	return Extract(strings.ToValidUTF8(string(data), "")), nil
}

func readError(err error, path string) error {
	code := vorerr.CodeInternal
	if os.IsNotExist(err) {
		code = vorerr.CodeNotFound
	}
	return vorerr.Wrap(err, "failed to read file").
		WithCode(code).
		WithDetail("path", path)
}
