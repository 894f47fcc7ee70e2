package samples

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
)

// Voices rotated across speakers in multi-voice mode
var Voices = []openai.SpeechVoice{
	openai.VoiceAlloy, openai.VoiceEcho, openai.VoiceFable,
	openai.VoiceOnyx, openai.VoiceNova, openai.VoiceShimmer,
}

// Generator synthesizes scenario audio with the hosted speech API
type Generator struct {
	client *openai.Client
	model  string
	voice  string
	log    *logrus.Logger
}

// NewGenerator creates a generator for the given model and default voice
func NewGenerator(client *openai.Client, model, voice string, log *logrus.Logger) *Generator {
	return &Generator{client: client, model: model, voice: voice, log: log}
}

// Generate writes the scenario audio to outPath. With multiVoice each
// speaker gets its own voice and the MP3 parts are joined back to back;
// otherwise the whole script is read by the default voice.
func (g *Generator) Generate(ctx context.Context, s Scenario, outPath string, multiVoice bool) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// write next to the target and rename so readers never see partial audio
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".gen-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	g.log.WithFields(logrus.Fields{
		"scenario":    s.Name,
		"multi_voice": multiVoice,
	}).Info("Creating sample audio")

	if multiVoice && s.Type == TypeBidirectional {
		err = g.writeMultiVoice(ctx, s, tmp)
	} else {
		err = g.speak(ctx, s.Script(), openai.SpeechVoice(g.voice), tmp)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("failed to move generated audio: %w", err)
	}
	g.log.WithField("path", outPath).Info("Sample audio saved")
	return nil
}

func (g *Generator) writeMultiVoice(ctx context.Context, s Scenario, w io.Writer) error {
	voiceFor := make(map[string]openai.SpeechVoice)
	for _, line := range s.Lines {
		voice, ok := voiceFor[line.Speaker]
		if !ok {
			voice = Voices[len(voiceFor)%len(Voices)]
			voiceFor[line.Speaker] = voice
		}
		if err := g.speak(ctx, line.Text, voice, w); err != nil {
			return fmt.Errorf("%s: %w", line.Speaker, err)
		}
	}
	return nil
}

func (g *Generator) speak(ctx context.Context, text string, voice openai.SpeechVoice, w io.Writer) error {
	resp, err := g.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(g.model),
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          1.0,
	})
	if err != nil {
		return aiclient.Wrap("speech", err)
	}
	defer resp.Close()

	if _, err := io.Copy(w, resp); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}
