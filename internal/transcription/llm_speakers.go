package transcription

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

const speakerSystemPrompt = "You are an expert at identifying speakers in conversations. Return only the formatted conversation with speaker labels."

const speakerPromptTemplate = `Analyze this conversation and identify different speakers. Format the response as a conversation with speaker labels.

Original text: %q

Instructions:
1. Identify likely speaker changes (new person talking)
2. Format as: "Speaker A: [text]" for each part
3. Use Speaker A, Speaker B, Speaker C, etc. (at most %d speakers)
4. If unclear, use your best judgment based on conversation flow
5. Return ONLY the formatted conversation, no explanations

Example output:
Speaker A: Hello everyone, let's start the meeting.
Speaker B: Good morning, I have the safety report ready.
Speaker A: Great, please go ahead.`

// LLMSpeakerDetector asks the hosted chat model to label speaker turns and
// falls back to the text heuristic when that fails.
type LLMSpeakerDetector struct {
	client      *openai.Client
	model       string
	maxSpeakers int
	log         *logrus.Logger
}

// NewLLMSpeakerDetector creates a detector using the given chat model
func NewLLMSpeakerDetector(client *openai.Client, model string, maxSpeakers int, log *logrus.Logger) *LLMSpeakerDetector {
	return &LLMSpeakerDetector{
		client:      client,
		model:       model,
		maxSpeakers: maxSpeakers,
		log:         log,
	}
}

// Split implements SpeakerSplitter
func (d *LLMSpeakerDetector) Split(ctx context.Context, text string) types.SpeakerData {
	if strings.TrimSpace(text) == "" {
		return SplitSpeakers(text, d.maxSpeakers)
	}

	data, err := d.detect(ctx, text)
	if err != nil {
		d.log.WithError(err).Warn("LLM speaker detection failed, using heuristic split")
		return SplitSpeakers(text, d.maxSpeakers)
	}
	return data
}

func (d *LLMSpeakerDetector) detect(ctx context.Context, text string) (types.SpeakerData, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: speakerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(speakerPromptTemplate, text, d.maxSpeakers)},
		},
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		return types.SpeakerData{}, aiclient.Wrap("speaker detection", err)
	}
	if len(resp.Choices) == 0 {
		return types.SpeakerData{}, fmt.Errorf("speaker detection: empty response")
	}

	data := ParseLabeledConversation(resp.Choices[0].Message.Content, types.SpeakerMethodLLM)
	if data.SpeakerCount == 0 {
		return types.SpeakerData{}, fmt.Errorf("speaker detection: no labeled lines in response")
	}
	return data, nil
}
