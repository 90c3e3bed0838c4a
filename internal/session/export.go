package session

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/msto63/vorleser/internal/audio/codec"
	"github.com/msto63/vorleser/internal/tts"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// Export joins the segment files into dst. The container follows the
// extension of dst: ".mp3" appends MP3 frames and needs MP3 segments,
// ".wav" re-encodes all segments as one WAV file. Without an extension
// the segment format is used and its extension appended.
func Export(dst string, files []string, format tts.Format) error {
	if len(files) == 0 {
		return vorerr.New("no segments to export").WithCode(vorerr.CodeInvalidOperation)
	}

	ext := strings.ToLower(filepath.Ext(dst))
	if ext == "" {
		ext = format.Ext()
		dst += ext
	}

	var data [][]byte
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			return vorerr.Wrap(err, "failed to read segment").
				WithCode(vorerr.CodeNotFound).
				WithDetail("path", path)
		}
		data = append(data, b)
	}

	switch ext {
	case ".mp3":
		if format != tts.FormatMP3 {
			return vorerr.Newf("cannot write %s segments as MP3", format).WithCode(vorerr.CodeInvalidInput)
		}
		return writeFile(dst, func(f *os.File) error {
			return codec.ConcatMP3(f, data...)
		})

	case ".wav":
		clips := make([]*codec.Clip, 0, len(data))
		for i, b := range data {
			clip, err := codec.Decode(b)
			if err != nil {
				return vorerr.Wrap(err, "failed to decode segment").WithDetail("index", i)
			}
			clips = append(clips, clip)
		}
		return writeFile(dst, func(f *os.File) error {
			return codec.WriteWAV(f, clips[0].SampleRate, clips...)
		})

	default:
		return vorerr.Newf("unsupported file type %q", ext).WithCode(vorerr.CodeInvalidInput)
	}
}

// writeFile creates dst and removes it again when write fails
func writeFile(dst string, write func(*os.File) error) error {
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return vorerr.Wrap(err, "failed to create directory").WithCode(vorerr.CodeInternal)
		}
	}

	f, err := os.Create(dst)
	if err != nil {
		return vorerr.Wrap(err, "failed to create file").WithCode(vorerr.CodeInternal).WithDetail("path", dst)
	}

	werr := write(f)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(dst)
		return werr
	}
	return nil
}

// SuggestFileName derives a file name from the start of text.
// Only letters, digits, space, '_' and '-' survive; spaces become '_'.
func SuggestFileName(text, ext string) string {
	head := []rune(text)
	if len(head) > 40 {
		head = head[:40]
	}
	trimmed := strings.ReplaceAll(strings.TrimSpace(string(head)), "\n", " ")

	var b strings.Builder
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	name := strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
	if r := []rune(name); len(r) > 30 {
		name = string(r[:30])
	}
	if name == "" {
		name = "speech"
	}
	return name + ext
}
