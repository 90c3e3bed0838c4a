package tts

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// fakeEdge answers one turn per SSML message with the given audio chunks
func fakeEdge(t *testing.T, audio ...[]byte) (*httptest.Server, chan string) {
	t.Helper()
	ssml := make(chan string, 8)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("TrustedClientToken") != "test-token" {
			http.Error(w, "missing token", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			headers, body := parseFrame(msg)
			if headers["Path"] != "ssml" {
				continue
			}
			ssml <- string(body)

			for _, a := range audio {
				conn.WriteMessage(websocket.BinaryMessage, audioFrame(a))
			}
			conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:1\r\nPath:turn.end\r\n\r\n{}"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, ssml
}

func audioFrame(body []byte) []byte {
	header := []byte("X-RequestId:1\r\nContent-Type:audio/mpeg\r\nPath:audio")
	frame := make([]byte, 2, 2+len(header)+len(body))
	binary.BigEndian.PutUint16(frame, uint16(len(header)))
	frame = append(frame, header...)
	return append(frame, body...)
}

func testEdge(srv *httptest.Server) *Edge {
	return NewEdge(EdgeConfig{
		Endpoint:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		VoicesURL:    srv.URL + "/voices",
		Token:        "test-token",
		OutputFormat: "audio-24khz-48kbitrate-mono-mp3",
		Timeout:      5 * time.Second,
	})
}

func TestEdge_Synthesize(t *testing.T) {
	srv, ssml := fakeEdge(t, []byte("abc"), []byte("def"))
	e := testEdge(srv)

	data, err := e.Synthesize(context.Background(), Request{
		Text:  "Hallo <Welt> & Co",
		Voice: "de-DE-KatjaNeural",
		Rate:  10,
		Pitch: -5,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(data) != "abcdef" {
		t.Errorf("Synthesize() = %q, want %q", data, "abcdef")
	}

	got := <-ssml
	for _, want := range []string{
		"<voice name='de-DE-KatjaNeural'>",
		"pitch='-5Hz'",
		"rate='+10%'",
		"Hallo &lt;Welt&gt; &amp; Co",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ssml = %q, missing %q", got, want)
		}
	}
}

func TestEdge_NoAudio(t *testing.T) {
	srv, _ := fakeEdge(t)
	_, err := testEdge(srv).Synthesize(context.Background(), Request{Text: "...", Voice: "x"})

	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("Synthesize() error = %v, want ErrNoAudio", err)
	}
	if !vorerr.HasCode(err, vorerr.CodeNoAudio) {
		t.Errorf("code = %v, want NO_AUDIO", vorerr.GetCode(err))
	}
}

func TestEdge_EmptyText(t *testing.T) {
	e := NewEdge(EdgeConfig{Endpoint: "ws://127.0.0.1:1"})
	if _, err := e.Synthesize(context.Background(), Request{Text: " \n "}); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Synthesize() error = %v, want ErrNoAudio", err)
	}
}

func TestEdge_LongTextUsesSeveralTurns(t *testing.T) {
	srv, ssml := fakeEdge(t, []byte("x"))
	text := strings.Repeat("wort ", 2000)

	data, err := testEdge(srv).Synthesize(context.Background(), Request{Text: text, Voice: "v"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(ssml) != 3 || string(data) != "xxx" {
		t.Errorf("turns = %d, audio = %q; want 3 turns", len(ssml), data)
	}
}

func TestEdge_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	e := testEdge(srv)
	_, err := e.Synthesize(context.Background(), Request{Text: "Hallo", Voice: "v"})
	if !vorerr.HasCode(err, vorerr.CodeSynthesisFailed) {
		t.Errorf("code = %v, want SYNTHESIS_FAILED", vorerr.GetCode(err))
	}
}

func TestEdge_Voices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("trustedclienttoken") != "test-token" || r.URL.Query().Get("Sec-MS-GEC") == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode([]Voice{
			{Name: "b", ShortName: "en-US-AriaNeural", FriendlyName: "Aria", Locale: "en-US", Gender: "Female"},
			{Name: "a", ShortName: "de-DE-KatjaNeural", FriendlyName: "Katja", Locale: "de-DE", Gender: "Female"},
		})
	}))
	defer srv.Close()

	voices, err := testEdge(srv).Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices() error = %v", err)
	}
	if len(voices) != 2 || voices[0].ShortName != "de-DE-KatjaNeural" {
		t.Errorf("Voices() = %+v", voices)
	}
}

func TestEdge_VoicesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testEdge(srv).Voices(context.Background())
	if !vorerr.HasCode(err, vorerr.CodeVoiceCatalog) {
		t.Errorf("Voices() error = %v, want VOICE_CATALOG", err)
	}
}

func TestSecMSGEC(t *testing.T) {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	a := secMSGEC(base, "tok")
	if len(a) != 64 || strings.ToUpper(a) != a {
		t.Errorf("secMSGEC() = %q, want 64 upper-case hex chars", a)
	}
	if b := secMSGEC(base.Add(4*time.Minute), "tok"); b != a {
		t.Error("token should be stable within a five minute window")
	}
	if c := secMSGEC(base.Add(5*time.Minute), "tok"); c == a {
		t.Error("token should change in the next window")
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "a b", 10, []string{"a b"}},
		{"at spaces", "aaa bbb ccc", 9, []string{"aaa bbb", "ccc"}},
		{"no space", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"keeps entity", "abc&amp;d", 6, []string{"abc", "&amp;d"}},
		{"space at limit", "aaa bbb ccc", 7, []string{"aaa bbb", "ccc"}},
		{"empty", "   ", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitText(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("splitText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitText_MultiByte(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
	}{
		{"cjk without spaces", strings.Repeat("日本語", 10), 16},
		{"umlauts", strings.Repeat("äöü", 20), 7},
		{"limit below rune size", "日本", 2},
		{"mixed", "Grüße" + strings.Repeat("日", 12) + " Ende", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := splitText(tt.text, tt.limit)
			if strings.Join(parts, "") != strings.ReplaceAll(tt.text, " ", "") {
				t.Errorf("splitText() lost text: %q", parts)
			}
			for _, p := range parts {
				if !utf8.ValidString(p) {
					t.Errorf("part %q is not valid UTF-8", p)
				}
			}
		})
	}
}

func TestParseAudioFrame(t *testing.T) {
	body, ok, err := parseAudioFrame(audioFrame([]byte{1, 2, 3}))
	if err != nil || !ok || len(body) != 3 {
		t.Errorf("parseAudioFrame() = %v, %v, %v", body, ok, err)
	}

	if _, _, err := parseAudioFrame([]byte{0}); err == nil {
		t.Error("parseAudioFrame() should reject short frames")
	}
	if _, _, err := parseAudioFrame([]byte{0, 200, 'x'}); err == nil {
		t.Error("parseAudioFrame() should reject oversized header length")
	}
}
