package tts

import (
	"sort"
	"strings"
)

// Voice describes one selectable voice
type Voice struct {
	Name         string `json:"Name"`
	ShortName    string `json:"ShortName"`
	FriendlyName string `json:"FriendlyName"`
	Locale       string `json:"Locale"`
	Gender       string `json:"Gender"`
}

// DisplayName returns the label shown in voice lists,
// e.g. "Microsoft Katja Online (Natural) - German (Germany) (de-DE, Female)"
func (v Voice) DisplayName() string {
	name := v.FriendlyName
	if name == "" {
		name = v.ShortName
	}
	if v.Gender == "" {
		return name + " (" + v.Locale + ")"
	}
	return name + " (" + v.Locale + ", " + v.Gender + ")"
}

// ID returns the identifier passed to the engine
func (v Voice) ID() string {
	if v.ShortName != "" {
		return v.ShortName
	}
	return v.Name
}

// SortVoices orders voices by locale, then by short name
func SortVoices(voices []Voice) {
	sort.SliceStable(voices, func(i, j int) bool {
		if voices[i].Locale != voices[j].Locale {
			return voices[i].Locale < voices[j].Locale
		}
		return voices[i].ShortName < voices[j].ShortName
	})
}

// FilterVoices returns voices whose display name contains query, ignoring case
func FilterVoices(voices []Voice, query string) []Voice {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return voices
	}

	var out []Voice
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.DisplayName()), query) {
			out = append(out, v)
		}
	}
	return out
}

// Catalog indexes voices by display name
type Catalog struct {
	voices []Voice
	byName map[string]Voice
}

// NewCatalog sorts voices and builds the display name index
func NewCatalog(voices []Voice) *Catalog {
	sorted := make([]Voice, len(voices))
	copy(sorted, voices)
	SortVoices(sorted)

	byName := make(map[string]Voice, len(sorted))
	for _, v := range sorted {
		byName[v.DisplayName()] = v
	}
	return &Catalog{voices: sorted, byName: byName}
}

// Lookup returns the voice with the given display name
func (c *Catalog) Lookup(display string) (Voice, bool) {
	if c == nil {
		return Voice{}, false
	}
	v, ok := c.byName[display]
	return v, ok
}

// Voices returns all voices in catalog order
func (c *Catalog) Voices() []Voice {
	if c == nil {
		return nil
	}
	return c.voices
}

// Len returns the number of voices
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.voices)
}

// Filter returns the catalog voices matching query
func (c *Catalog) Filter(query string) []Voice {
	return FilterVoices(c.Voices(), query)
}
