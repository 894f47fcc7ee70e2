package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// ErrInvalidInsights is returned when the hosted model does not answer with
// a JSON object
var ErrInvalidInsights = errors.New("analysis response is not a JSON object")

const insightsSystemPrompt = "You analyze manufacturing conversations (safety briefings, quality control meetings, production planning). Respond with a single JSON object only."

const insightsPromptTemplate = `Analyze the conversation below and return a JSON object with these fields:
- "main_topic": short label for the dominant topic
- "summary": two or three sentence summary
- "topics": array of {"name", "relevance"} where relevance is "high", "medium" or "low"
- "key_insights": array of strings
- "action_items": array of {"owner", "task"} (owner may be a speaker label or "unassigned")
- "safety_concerns": array of strings (empty if none)
- "sentiment": one of "positive", "neutral", "negative", "urgent"

Conversation with speaker labels:
%s

Original transcript:
%s`

// Analyzer produces topic and insight analysis for a transcript
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, speakers types.SpeakerData) (json.RawMessage, error)
}

// OpenAIAnalyzer uses the hosted chat model for analysis
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	log    *logrus.Logger
}

// NewOpenAIAnalyzer creates an analyzer for the given chat model
func NewOpenAIAnalyzer(client *openai.Client, model string, log *logrus.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{client: client, model: model, log: log}
}

// Analyze returns the model's JSON object unchanged
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, transcript string, speakers types.SpeakerData) (json.RawMessage, error) {
	conversation := speakers.FormattedConversation
	if conversation == "" {
		conversation = "(no speaker turns)"
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: insightsSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(insightsPromptTemplate, conversation, transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens:   1200,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, aiclient.Wrap("analysis", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis: %w", ErrInvalidInsights)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	insights, err := asJSONObject(content)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"model":         a.model,
		"total_tokens":  resp.Usage.TotalTokens,
		"response_size": len(insights),
	}).Info("Analysis completed")
	return insights, nil
}

// asJSONObject checks the content is a JSON object. Code fences some models
// add around JSON are stripped first.
func asJSONObject(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInsights, err)
	}
	return json.RawMessage(content), nil
}
