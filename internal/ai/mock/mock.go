// Package mock provides deterministic in-memory implementations of the ai
// contracts for tests and offline development.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/medleyre/leasehound/internal/ai"
)

// Embedder produces deterministic pseudo-embeddings derived from a hash of
// the input text. Equal texts always embed identically, different texts
// almost never collide, and vectors are unit length.
type Embedder struct {
	dims int

	mu    sync.Mutex
	calls int
	fail  error
}

// NewEmbedder creates a mock embedder with the given dimensionality.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = 8
	}
	return &Embedder{dims: dims}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (e *Embedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// Calls returns the number of embedding calls made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// EmbedText implements ai.Embedder.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts implements ai.Embedder.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()

	if fail != nil {
		return nil, fail
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = hashVector(text, e.dims)
	}
	return vecs, nil
}

// Dimensions implements ai.Embedder.
func (e *Embedder) Dimensions() int { return e.dims }

// ModelName implements ai.Embedder.
func (e *Embedder) ModelName() string { return "mock-embedder" }

// hashVector expands a SHA-256 digest of text into a unit vector.
func hashVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	var sumSquares float64

	seed := sha256.Sum256([]byte(text))
	digest := seed
	for i := 0; i < dims; i++ {
		if i%8 == 0 && i > 0 {
			digest = sha256.Sum256(digest[:])
		}
		bits := binary.BigEndian.Uint32(digest[(i%8)*4 : (i%8)*4+4])
		v := float32(bits)/float32(math.MaxUint32)*2 - 1
		vec[i] = v
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares > 0 {
		inv := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

var _ ai.Embedder = (*Embedder)(nil)

// Generator is a scripted ai.Generator. By default it echoes deterministic
// output derived from its inputs; scripted responses and failures can be
// installed per method.
type Generator struct {
	mu sync.Mutex

	// AnswerFunc overrides GenerateAnswer when set.
	AnswerFunc func(ctx context.Context, question string, passages []string, history []ai.Exchange) (string, error)

	// RewriteFunc overrides RewriteQuery when set.
	RewriteFunc func(ctx context.Context, utterance string, history []ai.Exchange) (string, error)

	answerCalls  int
	rewriteCalls int
}

// NewGenerator creates a mock generator with default behavior.
func NewGenerator() *Generator {
	return &Generator{}
}

// AnswerCalls returns the number of GenerateAnswer invocations.
func (g *Generator) AnswerCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.answerCalls
}

// RewriteCalls returns the number of RewriteQuery invocations.
func (g *Generator) RewriteCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rewriteCalls
}

// GenerateAnswer implements ai.Generator.
func (g *Generator) GenerateAnswer(ctx context.Context, question string, passages []string, history []ai.Exchange) (string, error) {
	g.mu.Lock()
	g.answerCalls++
	fn := g.AnswerFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, question, passages, history)
	}
	return fmt.Sprintf("answer(%s) from %d passages", question, len(passages)), nil
}

// RewriteQuery implements ai.Generator. The default rewrites nothing.
func (g *Generator) RewriteQuery(ctx context.Context, utterance string, history []ai.Exchange) (string, error) {
	g.mu.Lock()
	g.rewriteCalls++
	fn := g.RewriteFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, utterance, history)
	}
	return strings.TrimSpace(utterance), nil
}

var _ ai.Generator = (*Generator)(nil)
