package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/medleyre/leasehound/internal/ai"
	"github.com/medleyre/leasehound/internal/config"
	qerrors "github.com/medleyre/leasehound/internal/errors"
)

const answerSystemPrompt = `You are a commercial lease analyst assistant. Answer questions using ONLY the numbered lease excerpts provided. Cite excerpt numbers like [1] when you use them. If the excerpts do not contain the information needed, say so plainly instead of guessing. Keep answers concise and factual.`

const rewriteSystemPrompt = `You rewrite conversational follow-up questions into standalone search queries for a lease document index. Resolve pronouns and references ("their", "that clause", "the same") using the conversation history. Preserve tenant names, amounts, and dates exactly. If the question is already standalone, return it unchanged. Respond with the rewritten query only, no explanation and no quotes.`

// Generator implements ai.Generator against an OpenAI-compatible chat API
// via langchaingo.
type Generator struct {
	client          llms.Model
	model           string
	generateTimeout time.Duration
	rewriteTimeout  time.Duration
	logger          *slog.Logger
}

// NewGenerator creates a generator from the AI configuration.
func NewGenerator(cfg config.AIConfig) (*Generator, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.LLMHost),
		openai.WithToken(token),
		openai.WithModel(cfg.LLMModel),
	)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeConfigInvalid, "create chat client", err)
	}

	return &Generator{
		client:          client,
		model:           cfg.LLMModel,
		generateTimeout: cfg.GenerateTimeout.Std(),
		rewriteTimeout:  cfg.ReformulateTimeout.Std(),
		logger:          slog.Default().With("component", "openai-generator"),
	}, nil
}

// GenerateAnswer produces an answer grounded in the given passages.
// Passages arrive in fused rank order and are presented numbered.
func (g *Generator) GenerateAnswer(ctx context.Context, question string, passages []string, history []ai.Exchange) (string, error) {
	var sb strings.Builder
	sb.WriteString("Lease excerpts:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, p)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(answerSystemPrompt)},
		},
	}
	content = append(content, historyMessages(history)...)
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(sb.String())},
	})

	if g.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.generateTimeout)
		defer cancel()
	}

	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		g.logger.Error("answer generation failed", slog.String("error", err.Error()))
		return "", qerrors.GenerationFailed(err)
	}

	answer := firstChoice(response)
	if answer == "" {
		return "", qerrors.GenerationFailed(fmt.Errorf("model returned empty answer"))
	}

	return answer, nil
}

// RewriteQuery rewrites a conversational utterance into a standalone
// retrieval query. With no history the utterance is returned unchanged
// without a model round trip.
func (g *Generator) RewriteQuery(ctx context.Context, utterance string, history []ai.Exchange) (string, error) {
	if len(history) == 0 {
		return utterance, nil
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, ex := range history {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", ex.User, ex.Assistant)
	}
	fmt.Fprintf(&sb, "\nFollow-up question: %s", utterance)

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(rewriteSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(sb.String())},
		},
	}

	if g.rewriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.rewriteTimeout)
		defer cancel()
	}

	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", qerrors.New(qerrors.ErrCodeReformulationDegraded, "query rewrite failed", err)
	}

	rewritten := strings.Trim(firstChoice(response), `"' `)
	if rewritten == "" {
		return "", qerrors.New(qerrors.ErrCodeReformulationDegraded, "query rewrite returned empty", nil)
	}

	return rewritten, nil
}

// historyMessages converts completed exchanges into chat messages.
func historyMessages(history []ai.Exchange) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)*2)
	for _, ex := range history {
		messages = append(messages,
			llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(ex.User)},
			},
			llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{llms.TextPart(ex.Assistant)},
			})
	}
	return messages
}

func firstChoice(response *llms.ContentResponse) string {
	if response == nil || len(response.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Choices[0].Content)
}

var _ ai.Generator = (*Generator)(nil)
