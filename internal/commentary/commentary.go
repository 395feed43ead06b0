// Package commentary turns digest numbers into a short plain-language note
// using the OpenAI chat completions API.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You are a concise equity analyst. You receive CAPM statistics and price forecasts for a small watchlist.
Write at most five short bullet points in plain text: which names carry the most market risk (beta), which forecasts point up or down, and any name whose data was missing.
Do not give investment advice. Do not invent numbers that are not in the input.`

const maxTokens = 400

// Commentator generates digest commentary.
type Commentator struct {
	cli   oa.Client
	model string
}

// New creates a Commentator. Extra options are passed to the client, e.g. a base URL.
func New(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = "gpt-4"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

// Comment asks the model to summarize a digest's plain-text numbers.
func (c *Commentator) Comment(ctx context.Context, summary string) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", errors.New("empty digest summary")
	}
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Digest numbers:\n" + summary),
		},
		MaxTokens: oa.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
