// Package ai defines the contracts for the engine's model collaborators:
// an embedding provider and a text generator. Implementations live in
// subpackages (openai for real providers, mock for tests).
package ai

import "context"

// Embedder converts text into dense vectors for semantic retrieval.
type Embedder interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch of texts, preserving order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector length.
	Dimensions() int

	// ModelName returns the embedding model identifier.
	ModelName() string
}

// Exchange is one completed conversational turn: what the user asked and
// what the engine answered.
type Exchange struct {
	User      string
	Assistant string
}

// Generator produces natural-language output from the language model.
type Generator interface {
	// GenerateAnswer produces an answer to question grounded in the given
	// passages, with recent conversation history for tone and coreference.
	// Passages are the canonical chunk texts in fused rank order.
	GenerateAnswer(ctx context.Context, question string, passages []string, history []Exchange) (string, error)

	// RewriteQuery rewrites a conversational utterance into a standalone
	// retrieval query using the recent history. Returns the rewritten
	// query; implementations should return the utterance unchanged when
	// no rewriting is needed.
	RewriteQuery(ctx context.Context, utterance string, history []Exchange) (string, error)
}
