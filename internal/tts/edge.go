// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     tts
// Description: Microsoft Edge read-aloud WebSocket engine
// Author:      Mike Stoffels
// Created:     2026-09-22
// License:     MIT
// ============================================================================

package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
	"github.com/msto63/vorleser/pkg/core/version"
)

const (
	edgeGECVersion = "1-130.0.2849.68"
	edgeOrigin     = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"

	// Seconds between 1601-01-01 and 1970-01-01
	windowsEpochOffset = 11644473600

	// Maximum escaped text bytes per SSML request
	maxSSMLText = 4096
)

// EdgeConfig holds the read-aloud service settings
type EdgeConfig struct {
	Endpoint     string
	VoicesURL    string
	Token        string
	OutputFormat string
	Timeout      time.Duration
}

// Edge synthesizes speech with the Edge read-aloud service
type Edge struct {
	cfg    EdgeConfig
	dialer websocket.Dialer
	client *http.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewEdge creates a new Edge engine
func NewEdge(cfg EdgeConfig) *Edge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Edge{
		cfg: cfg,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logging.New("tts-edge"),
		now:    time.Now,
	}
}

// Format returns FormatMP3 for the mp3 output formats
func (e *Edge) Format() Format {
	if strings.Contains(e.cfg.OutputFormat, "riff") || strings.Contains(e.cfg.OutputFormat, "pcm") {
		return FormatWAV
	}
	return FormatMP3
}

// Close releases resources
func (e *Edge) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// Voices fetches the voice catalog
func (e *Edge) Voices(ctx context.Context) ([]Voice, error) {
	u, err := e.signedURL(e.cfg.VoicesURL, "trustedclienttoken")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to create voice list request").WithCode(vorerr.CodeVoiceCatalog)
	}
	e.setHeaders(req.Header)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to fetch voice list").WithCode(vorerr.CodeVoiceCatalog)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, vorerr.Newf("voice list request failed with status %d", resp.StatusCode).
			WithCode(vorerr.CodeVoiceCatalog)
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, vorerr.Wrap(err, "failed to decode voice list").WithCode(vorerr.CodeVoiceCatalog)
	}

	SortVoices(voices)
	e.logger.Debug("Voice list loaded", "count", len(voices))
	return voices, nil
}

// Synthesize converts text to MP3 audio over one WebSocket connection
func (e *Edge) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	parts := splitText(escapeText(req.Text), maxSSMLText)
	if len(parts) == 0 {
		return nil, vorerr.Wrap(ErrNoAudio, "edge synthesis").WithCode(vorerr.CodeNoAudio)
	}

	u, err := e.signedURL(e.cfg.Endpoint, "TrustedClientToken")
	if err != nil {
		return nil, err
	}
	q, _ := url.Parse(u)
	values := q.Query()
	values.Set("ConnectionId", newRequestID())
	q.RawQuery = values.Encode()

	header := http.Header{}
	e.setHeaders(header)
	conn, _, err := e.dialer.DialContext(ctx, q.String(), header)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to connect to speech service").WithCode(vorerr.CodeSynthesisFailed)
	}
	defer conn.Close()

	// Unblock reads when the context is cancelled
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var audio bytes.Buffer
	for _, part := range parts {
		if err := e.turn(conn, req, part, &audio); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}

	if audio.Len() == 0 {
		return nil, vorerr.Wrap(ErrNoAudio, "edge synthesis").
			WithCode(vorerr.CodeNoAudio).
			WithDetail("voice", req.Voice)
	}
	return audio.Bytes(), nil
}

// turn sends one config and SSML request and reads audio until turn.end
func (e *Edge) turn(conn *websocket.Conn, req Request, text string, audio *bytes.Buffer) error {
	ts := e.timestamp()

	cfgMsg := "X-Timestamp:" + ts + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` +
		e.cfg.OutputFormat + `"}}}}` + "\r\n"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cfgMsg)); err != nil {
		return vorerr.Wrap(err, "failed to send speech config").WithCode(vorerr.CodeSynthesisFailed)
	}

	ssmlMsg := "X-RequestId:" + newRequestID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + ts + "Z\r\n" +
		"Path:ssml\r\n\r\n" +
		buildSSML(req, text)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return vorerr.Wrap(err, "failed to send ssml").WithCode(vorerr.CodeSynthesisFailed)
	}

	for {
		conn.SetReadDeadline(e.now().Add(e.cfg.Timeout))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return vorerr.Wrap(err, "speech service connection closed").WithCode(vorerr.CodeSynthesisFailed)
		}

		switch kind {
		case websocket.TextMessage:
			headers, _ := parseFrame(data)
			if headers["Path"] == "turn.end" {
				return nil
			}
		case websocket.BinaryMessage:
			body, ok, err := parseAudioFrame(data)
			if err != nil {
				return vorerr.Wrap(err, "invalid audio frame").WithCode(vorerr.CodeSynthesisFailed)
			}
			if ok {
				audio.Write(body)
			}
		}
	}
}

func (e *Edge) setHeaders(h http.Header) {
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache")
	h.Set("Origin", edgeOrigin)
	h.Set("User-Agent", version.UserAgent())
	h.Set("Accept-Language", "en-US,en;q=0.9")
}

// signedURL appends the client token and the time-based security token
func (e *Edge) signedURL(raw, tokenParam string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", vorerr.Wrap(err, "invalid service url").WithCode(vorerr.CodeConfigError)
	}
	q := u.Query()
	q.Set(tokenParam, e.cfg.Token)
	q.Set("Sec-MS-GEC", secMSGEC(e.now(), e.cfg.Token))
	q.Set("Sec-MS-GEC-Version", edgeGECVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (e *Edge) timestamp() string {
	return e.now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

// secMSGEC derives the security token from the current five minute window
func secMSGEC(now time.Time, token string) string {
	ticks := now.Unix() + windowsEpochOffset
	ticks -= ticks % 300
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", ticks*10_000_000, token)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func buildSSML(req Request, escaped string) string {
	return "<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>" +
		"<voice name='" + req.Voice + "'>" +
		"<prosody pitch='" + req.PitchString() + "' rate='" + req.RateString() + "' volume='+0%'>" +
		escaped +
		"</prosody></voice></speak>"
}

func escapeText(text string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(strings.Join(strings.Fields(text), " ")))
	return b.String()
}

// splitText cuts escaped text into parts of at most limit bytes at spaces,
// never inside an XML entity or a multi-byte rune.
func splitText(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit+1], ' ')
		if cut <= 0 {
			cut = limit
			if amp := strings.LastIndexByte(text[:cut], '&'); amp > 0 && !strings.Contains(text[amp:cut], ";") {
				cut = amp
			}
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				// limit is smaller than the first rune
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		if part := strings.TrimSpace(text[:cut]); part != "" {
			parts = append(parts, part)
		}
		text = text[cut:]
	}
	if part := strings.TrimSpace(text); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// parseFrame splits a text frame into its header map and body
func parseFrame(data []byte) (map[string]string, []byte) {
	headers := make(map[string]string)
	head, body, _ := bytes.Cut(data, []byte("\r\n\r\n"))
	for _, line := range strings.Split(string(head), "\r\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers[k] = v
		}
	}
	return headers, body
}

// parseAudioFrame returns the audio payload of a binary frame.
// Binary frames start with a big-endian uint16 header length.
func parseAudioFrame(data []byte) ([]byte, bool, error) {
	if len(data) < 2 {
		return nil, false, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if 2+headerLen > len(data) {
		return nil, false, fmt.Errorf("header length %d exceeds frame size %d", headerLen, len(data))
	}

	headers, _ := parseFrame(append(data[2:2+headerLen:2+headerLen], "\r\n\r\n"...))
	if headers["Path"] != "audio" {
		return nil, false, nil
	}
	return data[2+headerLen:], true, nil
}
