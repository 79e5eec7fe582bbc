// Package agent holds the LLM-backed steps of the grant search: lead triage,
// record extraction, and search query generation.
package agent

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grant-seeker/pkg/anthropic"
	"github.com/sells-group/grant-seeker/pkg/perplexity"
)

// Completion is one model answer with its token counts.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// Completer sends a system and user prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int64) (*Completion, error)
}

// Recorder receives token usage after every completion.
type Recorder interface {
	RecordLLM(model string, inputTokens, outputTokens int64, costUSD float64)
}

// AnthropicCompleter answers prompts with a Claude model.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a Completer over an Anthropic client.
func NewAnthropicCompleter(client anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, model: model}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string, maxTokens int64) (*Completion, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(system),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "agent: anthropic completion")
	}
	resp.Usage.LogCost(c.model, "agent")
	return &Completion{
		Text:         resp.Text(),
		Model:        c.model,
		InputTokens:  resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostUSD:      resp.Usage.EstimateCost(c.model),
	}, nil
}

// PerplexityCompleter answers prompts with a Perplexity chat model.
type PerplexityCompleter struct {
	client perplexity.Client
	model  string
}

// NewPerplexityCompleter creates a Completer over a Perplexity client. An
// empty model uses the client default.
func NewPerplexityCompleter(client perplexity.Client, model string) *PerplexityCompleter {
	return &PerplexityCompleter{client: client, model: model}
}

func (c *PerplexityCompleter) Complete(ctx context.Context, system, user string, maxTokens int64) (*Completion, error) {
	temp := 0.0
	mt := int(maxTokens)
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: c.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
		MaxTokens:   &mt,
	})
	if err != nil {
		return nil, eris.Wrap(err, "agent: perplexity completion")
	}
	return &Completion{
		Text:         resp.Content(),
		Model:        c.model,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

type meteredCompleter struct {
	next Completer
	rec  Recorder
}

// Metered reports the usage of every successful completion to rec.
func Metered(next Completer, rec Recorder) Completer {
	if rec == nil {
		return next
	}
	return &meteredCompleter{next: next, rec: rec}
}

func (m *meteredCompleter) Complete(ctx context.Context, system, user string, maxTokens int64) (*Completion, error) {
	out, err := m.next.Complete(ctx, system, user, maxTokens)
	if err != nil {
		return nil, err
	}
	m.rec.RecordLLM(out.Model, out.InputTokens, out.OutputTokens, out.CostUSD)
	return out, nil
}
