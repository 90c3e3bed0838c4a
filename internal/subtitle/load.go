package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Loaded is the result of loading an input file
type Loaded struct {
	Text         string
	FromSubtitle bool
	Name         string
}

// LoadText loads a text or SRT file for synthesis.
// Files ending in .srt are reduced to their dialogue. Other files are read as
// UTF-8 and fall back to Windows-1252 when they are not valid UTF-8.
func LoadText(path string) (Loaded, error) {
	name := filepath.Base(path)

	if strings.EqualFold(filepath.Ext(path), ".srt") {
		text, err := ExtractFile(path)
		if err != nil {
			return Loaded{Name: name, FromSubtitle: true}, err
		}
		return Loaded{Text: text, FromSubtitle: true, Name: name}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{Name: name}, readError(err, path)
	}

	if utf8.Valid(data) {
		return Loaded{Text: string(data), Name: name}, nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return Loaded{Name: name}, readError(err, path)
	}
	return Loaded{Text: string(decoded), Name: name}, nil
}

// Status returns the status line shown after loading
func (l Loaded) Status() string {
	switch {
	case l.FromSubtitle && l.Text == "":
		return "⚠️ Kein Dialog in SRT gefunden: " + l.Name
	case l.FromSubtitle:
		return "✅ Dialog aus " + l.Name + " geladen"
	default:
		return "✅ Text aus " + l.Name + " geladen"
	}
}
