// Package openai provides ai.Embedder and ai.Generator implementations
// backed by OpenAI-compatible APIs through langchaingo. Local services
// (Ollama, LM Studio, vLLM) work by pointing the hosts at them.
package openai

import (
	"github.com/medleyre/leasehound/internal/ai"
	"github.com/medleyre/leasehound/internal/config"
)

// Provider bundles the embedding and generation collaborators created
// from a single AI configuration.
type Provider struct {
	embedder  *Embedder
	generator *Generator
}

// NewProvider creates both collaborators. The embedder is wrapped with
// LRU caching sized from the configuration.
func NewProvider(cfg config.AIConfig) (*Provider, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	generator, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		embedder:  embedder,
		generator: generator,
	}, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// CachedEmbedder returns the embedding service wrapped with an LRU cache.
func (p *Provider) CachedEmbedder(cacheSize int) ai.Embedder {
	return ai.NewCachedEmbedder(p.embedder, cacheSize)
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}
