package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/medleyre/leasehound/internal/ai"
	"github.com/medleyre/leasehound/internal/config"
	qerrors "github.com/medleyre/leasehound/internal/errors"
)

// Embedder implements ai.Embedder against an OpenAI-compatible
// embedding API via langchaingo.
type Embedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewEmbedder creates an embedder from the AI configuration.
func NewEmbedder(cfg config.AIConfig) (*Embedder, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible services accept any token.
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeConfigInvalid, "create embedding client", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeConfigInvalid, "create embedder", err)
	}

	return &Embedder{
		embedder:   embedder,
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
		timeout:    cfg.EmbedTimeout.Std(),
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, qerrors.New(qerrors.ErrCodeEmbeddingFailed, "embedder returned no vectors", nil)
	}
	return vecs[0], nil
}

// EmbedTexts generates embeddings for a batch of texts, preserving order.
// Each request is bounded by the configured embed timeout.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding texts", slog.Int("count", len(texts)))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding failed",
			slog.Int("count", len(texts)),
			slog.String("error", err.Error()))
		return nil, qerrors.New(qerrors.ErrCodeEmbeddingFailed, "embedding request failed", err)
	}

	for _, v := range vecs {
		if len(v) != e.dimensions {
			return nil, qerrors.New(qerrors.ErrCodeDimensionMismatch,
				"embedding dimensions do not match configuration", nil).
				WithDetail("model", e.model)
		}
	}

	return vecs, nil
}

// Dimensions returns the configured embedding vector length.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model identifier.
func (e *Embedder) ModelName() string { return e.model }

var _ ai.Embedder = (*Embedder)(nil)
