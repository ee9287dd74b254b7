package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/inbox-snapshot/internal/config"
)

// maxInputChars bounds how much message text is sent per request. Long
// bodies are truncated, not rejected.
const maxInputChars = 8000

const systemPrompt = `You summarize emails. Respond with 1-3 short bullet points ` +
	`covering what the email says and any action it asks for. Never include ` +
	`personal data beyond what is needed to understand the email.`

// OpenAISummarizer summarizes message text with the OpenAI chat API
type OpenAISummarizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAISummarizer creates a new OpenAI-backed summarizer
func NewOpenAISummarizer(cfg *config.SummarizerConfig) (*OpenAISummarizer, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("no OpenAI provider configured: set OPENAI_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.GPT4oMini)
	}

	return &OpenAISummarizer{
		client:    openai.NewClient(cfg.OpenAIKey),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}, nil
}

// Summarize produces a short bullet-style summary of the given text. The
// call is bounded by the configured timeout so one slow message can never
// stall a whole snapshot run.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty message text")
	}
	text = truncateInput(text, maxInputChars)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarization request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("summarization returned empty content")
	}

	return summary, nil
}

// truncateInput bounds text to max bytes without splitting a UTF-8 rune.
func truncateInput(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
