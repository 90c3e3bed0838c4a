package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/msto63/vorleser/internal/chunking"
	"github.com/msto63/vorleser/internal/session"
	"github.com/msto63/vorleser/internal/settings"
	"github.com/msto63/vorleser/internal/subtitle"
	"github.com/msto63/vorleser/internal/tts"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/spf13/cobra"
)

var (
	speakOutput  string
	speakVoice   string
	speakRate    int
	speakPitch   int
	speakWords   int
	speakRegex   string
	speakNoSplit bool
)

var speakCmd = &cobra.Command{
	Use:   "speak [datei|-]",
	Short: "Erzeugt eine Audiodatei ohne Oberfläche",
	Long: `Erzeugt Sprache aus einer Text- oder SRT-Datei und speichert sie.

Ohne Datei oder mit "-" wird der Text von stdin gelesen. Das Format der
Ausgabedatei folgt ihrer Endung (.mp3 oder .wav).

Beispiele:
  vorleser speak kapitel1.txt -o kapitel1.mp3
  vorleser speak film.srt --voice Katja -o film.mp3
  echo "Hallo Welt." | vorleser speak --offline -o hallo.wav`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "", "Ausgabedatei (default: aus dem Text abgeleitet)")
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "Stimme (Kurzname oder Teil des Namens)")
	speakCmd.Flags().IntVar(&speakRate, "rate", 0, "Sprechgeschwindigkeit in Prozent (-100..100)")
	speakCmd.Flags().IntVar(&speakPitch, "pitch", 0, "Tonhöhe in Hz (-50..50)")
	speakCmd.Flags().IntVar(&speakWords, "words", chunking.DefaultMinWords, "Mindestanzahl Wörter pro Abschnitt")
	speakCmd.Flags().StringVar(&speakRegex, "regex", chunking.DefaultBoundary, "Muster für das Abschnittsende")
	speakCmd.Flags().BoolVar(&speakNoSplit, "no-split", false, "Text nicht in Abschnitte zerlegen")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("Konfiguration konnte nicht geladen werden", err)
		return err
	}

	text, err := readSpeakInput(args, cmd.InOrStdin())
	if err != nil {
		printError("Text konnte nicht gelesen werden", err)
		return err
	}

	chunks, err := speakChunks(text)
	if err != nil {
		printError("Text konnte nicht zerlegt werden", err)
		return err
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		printError("TTS-Engine konnte nicht erstellt werden", err)
		return err
	}
	defer synth.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	voice, err := resolveVoice(ctx, synth, speakVoice)
	if err != nil {
		printError("Stimme nicht verfügbar", err)
		return err
	}

	out := speakOutput
	if out == "" {
		out = session.SuggestFileName(text, synth.Format().Ext())
	}

	job := session.Job{
		Token:     1,
		SessionID: uuid.NewString()[:8],
		Chunks:    chunks,
		Voice:     voice.ID(),
		Rate:      clampInt(speakRate, settings.MinRate, settings.MaxRate),
		Pitch:     clampInt(speakPitch, settings.MinPitch, settings.MaxPitch),
	}

	files, err := synthesizeAll(ctx, synth, job, cmd.ErrOrStderr())
	defer func() {
		for _, f := range files {
			os.Remove(f)
		}
	}()
	if err != nil {
		printError("Sprachausgabe fehlgeschlagen", err)
		return err
	}

	if err := session.Export(out, files, synth.Format()); err != nil {
		printError("Audio konnte nicht gespeichert werden", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Audio gespeichert unter %s\n", out)

	if store := openHistory(cfg); store != nil {
		defer store.Close()
		id, err := store.Record(ctx, job.Generation(text))
		if err == nil {
			store.MarkSaved(ctx, id, out)
		}
	}
	return nil
}

func readSpeakInput(args []string, stdin io.Reader) (string, error) {
	var text string
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		text = string(data)
	} else {
		loaded, err := subtitle.LoadText(args[0])
		if err != nil {
			return "", err
		}
		text = loaded.Text
	}

	if strings.TrimSpace(text) == "" {
		return "", vorerr.New("the text is empty").WithCode(vorerr.CodeInvalidInput)
	}
	return text, nil
}

func speakChunks(text string) ([]chunking.Chunk, error) {
	if speakNoSplit {
		return chunking.Single(text), nil
	}
	return chunking.Split(text, chunking.Config{MinWords: speakWords, Boundary: speakRegex})
}

// resolveVoice picks the voice whose short name equals query or whose display
// name contains it. An empty query selects the first German voice.
func resolveVoice(ctx context.Context, synth tts.Synthesizer, query string) (tts.Voice, error) {
	voices, err := synth.Voices(ctx)
	if err != nil {
		return tts.Voice{}, err
	}
	catalog := tts.NewCatalog(voices)
	if catalog.Len() == 0 {
		return tts.Voice{}, vorerr.New("no voices available").WithCode(vorerr.CodeVoiceCatalog)
	}

	if query == "" {
		for _, v := range catalog.Voices() {
			if strings.HasPrefix(v.Locale, "de-") {
				return v, nil
			}
		}
		return catalog.Voices()[0], nil
	}

	for _, v := range catalog.Voices() {
		if strings.EqualFold(v.ShortName, query) || strings.EqualFold(v.Name, query) {
			return v, nil
		}
	}
	if matches := catalog.Filter(query); len(matches) > 0 {
		return matches[0], nil
	}
	return tts.Voice{}, vorerr.Newf("voice not found: %s", query).WithCode(vorerr.CodeNotFound)
}

// synthesizeAll runs the job to completion and returns the segment files in
// chunk order. Files produced before a failure are returned as well.
func synthesizeAll(ctx context.Context, synth tts.Synthesizer, job session.Job, progress io.Writer) ([]string, error) {
	worker := session.NewWorker(synth, os.TempDir())

	var files []string
	for ev := range worker.Run(ctx, job) {
		switch e := ev.(type) {
		case session.SegmentReady:
			files = append(files, e.Segment.Path)
			fmt.Fprintf(progress, "⚙️ Erzeuge Sprache... (%d/%d Segmente)\n", e.Done, e.Total)
		case session.Failed:
			if e.Err == nil {
				return files, vorerr.New(e.StatusText()).WithCode(vorerr.CodeSynthesisFailed)
			}
			return files, vorerr.Wrap(e.Err, e.StatusText()).WithCode(vorerr.CodeSynthesisFailed)
		case session.Finished:
			return files, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return files, err
	}
	return files, vorerr.New("generation ended without result").WithCode(vorerr.CodeInternal)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
